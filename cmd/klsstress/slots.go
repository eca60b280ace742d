package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/kls"
	"github.com/hupe1980/kls/internal/sema"
)

var slotsCmd = &cobra.Command{
	Use:   "slots",
	Short: "Set slot values on many threads, then delete keys and exit threads",
	Long: `Each round creates a set of keys and starts the configured number of
threads. Every thread stores a value under every key. Once all threads
are parked, half of the keys are deleted (sweeping every thread), the
threads exit (draining the rest), and the remaining keys are deleted.`,
	Example: `  klsstress slots --threads 16 --iterations 50 --keys 32
  KLS_THREADS=4 klsstress slots`,
	Args: cobra.NoArgs,
	RunE: runSlots,
}

func init() {
	slotsCmd.Flags().Int("keys", 16, "keys per round")
	_ = viper.BindPFlag("keys", slotsCmd.Flags().Lookup("keys"))
}

func runSlots(cmd *cobra.Command, _ []string) error {
	threads := viper.GetInt("threads")
	rounds := viper.GetInt("iterations")
	nkeys := viper.GetInt("keys")
	if threads <= 0 || rounds <= 0 || nkeys <= 0 {
		return errors.New("threads, iterations and keys must be positive")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), viper.GetDuration("timeout"))
	defer cancel()

	mc := &kls.BasicMetricsCollector{}
	rt := newRuntime(mc)
	defer rt.Close()

	var cleanups atomic.Int64
	cleanup := func(_, _ any) { cleanups.Add(1) }

	start := time.Now()
	for round := 0; round < rounds; round++ {
		keys := make([]kls.Key, nkeys)
		for i := range keys {
			keys[i] = rt.CreateSlot(cleanup, round)
		}

		ready := sema.New(int64(threads))
		release := sema.New(int64(threads))

		g, gctx := errgroup.WithContext(ctx)
		for i := 0; i < threads; i++ {
			th := rt.Go(func(th *kls.Thread) {
				for _, k := range keys {
					th.SetSlotValue(k, th.ID())
				}
				ready.Signal()
				_ = release.Wait(ctx)
			})
			g.Go(func() error { return th.Wait(gctx) })
		}

		for i := 0; i < threads; i++ {
			if err := ready.Wait(ctx); err != nil {
				return fmt.Errorf("round %d: waiting for threads: %w", round, err)
			}
		}

		half := nkeys / 2
		for _, k := range keys[:half] {
			if err := rt.DeleteSlot(k); err != nil {
				return fmt.Errorf("round %d: %w", round, err)
			}
		}
		for i := 0; i < threads; i++ {
			release.Signal()
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("round %d: joining threads: %w", round, err)
		}
		for _, k := range keys[half:] {
			if err := rt.DeleteSlot(k); err != nil {
				return fmt.Errorf("round %d: %w", round, err)
			}
		}

		if want := int64((round + 1) * threads * nkeys); cleanups.Load() != want {
			return fmt.Errorf("round %d: %d cleanups, want %d", round, cleanups.Load(), want)
		}
		slog.Debug("round done", "round", round, "cleanups", cleanups.Load())
	}

	st := rt.Stats()
	report("slots", time.Since(start), st, mc.GetStats())
	if st.Slots.ActiveKeys != 0 || st.Slots.Contexts != 0 || st.Threads != 0 {
		return fmt.Errorf("leak: %d active keys, %d contexts, %d threads",
			st.Slots.ActiveKeys, st.Slots.Contexts, st.Threads)
	}
	return nil
}
