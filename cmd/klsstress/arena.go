package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/kls"
)

var arenaCmd = &cobra.Command{
	Use:   "arena",
	Short: "Allocate on producer threads and free on consumer goroutines",
	Long: `Every producer thread allocates the configured number of buffers of
random size and hands them to a shared set of consumers, which free them.
At the end no block may still be rented from the pool.`,
	Example: `  klsstress arena --threads 8 --iterations 10000 --max-size 65536
  klsstress arena --memory-limit 67108864 --heap`,
	Args: cobra.NoArgs,
	RunE: runArena,
}

func init() {
	flags := arenaCmd.Flags()
	flags.Int("max-size", 4096, "largest allocation in bytes")
	flags.Int("consumers", 4, "freeing goroutines")
	_ = viper.BindPFlag("max-size", flags.Lookup("max-size"))
	_ = viper.BindPFlag("consumers", flags.Lookup("consumers"))
}

func runArena(cmd *cobra.Command, _ []string) error {
	producers := viper.GetInt("threads")
	perThread := viper.GetInt("iterations")
	maxSize := viper.GetInt("max-size")
	consumers := viper.GetInt("consumers")
	if producers <= 0 || perThread <= 0 || maxSize <= 0 || consumers <= 0 {
		return errors.New("threads, iterations, max-size and consumers must be positive")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), viper.GetDuration("timeout"))
	defer cancel()

	mc := &kls.BasicMetricsCollector{}
	rt := newRuntime(mc)
	defer rt.Close()

	work := make(chan kls.Allocation, 256)
	var free errgroup.Group
	for i := 0; i < consumers; i++ {
		free.Go(func() error {
			for al := range work {
				if b := al.Bytes(); len(b) > 0 && b[0] != b[len(b)-1] {
					return errors.New("allocation corrupted")
				}
				kls.Free(al)
			}
			return nil
		})
	}

	start := time.Now()
	produce, pctx := errgroup.WithContext(ctx)
	for i := 0; i < producers; i++ {
		errc := make(chan error, 1)
		th := rt.Go(func(th *kls.Thread) {
			errc <- allocateLoop(pctx, th, work, perThread, maxSize)
		})
		produce.Go(func() error {
			if err := th.Wait(ctx); err != nil {
				return err
			}
			return <-errc
		})
	}
	perr := produce.Wait()
	close(work)
	ferr := free.Wait()
	if err := errors.Join(perr, ferr); err != nil {
		return err
	}

	st := rt.Stats()
	report("arena", time.Since(start), st, mc.GetStats())
	if st.Blocks.Rented != 0 || st.Blocks.Rents != st.Blocks.Returns {
		return fmt.Errorf("leak: %d blocks still rented (%d rents, %d returns)",
			st.Blocks.Rented, st.Blocks.Rents, st.Blocks.Returns)
	}
	return nil
}

func allocateLoop(ctx context.Context, th *kls.Thread, work chan<- kls.Allocation, n, maxSize int) error {
	for i := 0; i < n; i++ {
		al, err := th.Allocate(1 + rand.IntN(maxSize))
		if err != nil {
			return fmt.Errorf("thread %d: %w", th.ID(), err)
		}
		b := al.Bytes()
		b[0], b[len(b)-1] = byte(i), byte(i)

		select {
		case work <- al:
		case <-ctx.Done():
			kls.Free(al)
			return ctx.Err()
		}
	}
	return nil
}
