package main

import (
	"log/slog"
	"time"

	"github.com/hupe1980/kls"
)

func report(mode string, elapsed time.Duration, st kls.Stats, ms kls.BasicMetricsStats) {
	slog.Info("run complete",
		"mode", mode,
		"elapsed", elapsed,
		slog.Group("slots",
			"created", ms.SlotCreates,
			"deleted", ms.SlotDeletes,
			"active", st.Slots.ActiveKeys,
			"free", st.Slots.FreeKeys,
		),
		slog.Group("threads",
			"started", ms.ThreadStarts,
			"exited", ms.ThreadExits,
			"avg_exit", time.Duration(ms.ExitAvgNanos),
		),
		slog.Group("arena",
			"allocations", ms.Allocations,
			"bytes", ms.AllocatedBytes,
			"errors", ms.AllocationErrors,
		),
		slog.Group("blocks",
			"reserved", st.Blocks.Blocks,
			"idle", st.Blocks.Idle,
			"rented", st.Blocks.Rented,
			"rents", st.Blocks.Rents,
			"returns", st.Blocks.Returns,
			"exhausted", st.Blocks.Exhausted,
		),
	)
}
