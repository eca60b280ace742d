package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hupe1980/kls"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "klsstress",
	Short: "Stress thread slots and transient arenas",
	Long: `klsstress runs many short-lived threads against one kls runtime and
checks that every slot value is cleaned up exactly once and that every
arena block goes back to the pool.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./klsstress.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	flags.Bool("json", false, "log as JSON")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.IntP("threads", "t", 8, "concurrent threads")
	flags.IntP("iterations", "n", 100, "iterations per thread or round")
	flags.Int64("memory-limit", 0, "block pool memory limit in bytes (0 = unlimited)")
	flags.Bool("heap", false, "keep blocks on the Go heap")
	flags.Duration("timeout", time.Minute, "overall run timeout")

	for _, name := range []string{"json", "log-level", "threads", "iterations", "memory-limit", "heap", "timeout"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}

	rootCmd.AddCommand(slotsCmd)
	rootCmd.AddCommand(arenaCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("klsstress")
	}

	viper.SetEnvPrefix("KLS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

func setupLogging() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log-level"))); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	if verbose {
		level = slog.LevelDebug
	}

	if viper.GetBool("json") {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})))
	} else {
		slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
		})))
	}
	slog.SetLogLoggerLevel(level)
	return nil
}

// newRuntime builds a runtime from the bound configuration.
func newRuntime(mc kls.MetricsCollector) *kls.Runtime {
	opts := []kls.Option{
		kls.WithLogger(kls.NewLogger(slog.Default().Handler())),
		kls.WithMetricsCollector(mc),
		kls.WithMemoryLimit(viper.GetInt64("memory-limit")),
	}
	if viper.GetBool("heap") {
		opts = append(opts, kls.WithHeapBlocks())
	}
	return kls.New(opts...)
}
