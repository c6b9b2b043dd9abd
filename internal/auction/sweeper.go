package auction

import (
	"context"
	"log/slog"
	"time"

	"github.com/bidcycle/bidcycle/internal/store"
)

// SweepOnce settles every item with a pending transition: upcoming items past
// their start time and active items past their end time. Returns the number
// of items refreshed. Per-item failures are logged and skipped so one bad row
// cannot stall the sweep.
func (e *Engine) SweepOnce(ctx context.Context) (int, error) {
	ids, err := store.ListDueItemIDs(ctx, e.db, e.clock.Now())
	if err != nil {
		return 0, dependencyError("Server error.", err)
	}

	refreshed := 0
	for _, id := range ids {
		if _, err := e.RefreshStatus(ctx, id); err != nil {
			slog.Error("sweep: refreshing item failed", "item", id, "error", err)
			continue
		}
		refreshed++
	}
	return refreshed, nil
}

// Run drives SweepOnce on a ticker until ctx is cancelled. Lazy on-read
// refresh alone would leave auctions with no subsequent viewer unsettled
// forever; the sweep bounds settlement and notification latency.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := e.SweepOnce(ctx)
			if err != nil {
				slog.Error("settlement sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("settlement sweep applied transitions", "items", n)
			}
		}
	}
}
