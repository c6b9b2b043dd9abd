package auction

import (
	"context"

	"github.com/bidcycle/bidcycle/internal/model"
)

// Notifier delivers the outcome of a settled auction to everyone who bid on
// it. The engine dispatches it on a detached goroutine after the settlement
// transaction commits: errors are logged, never retried, and never fail the
// settlement. Implementations must be safe for concurrent use.
type Notifier interface {
	NotifyAuctionResult(ctx context.Context, item *model.Item, winningBid *model.Bid, bidders []model.User) error
}
