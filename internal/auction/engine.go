package auction

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bidcycle/bidcycle/internal/model"
	"github.com/bidcycle/bidcycle/internal/store"
)

// notifyTimeout bounds a single fire-and-forget notification dispatch.
const notifyTimeout = 30 * time.Second

// Engine owns the auction lifecycle state machine and the bid ledger.
//
// Statuses are evaluated lazily: any read or bid passes through RefreshStatus,
// which applies at most one transition (upcoming → active, or active → sold /
// expired once the end time has passed). A periodic sweeper covers auctions
// nobody is looking at.
//
// All mutations of one item are serialized by a per-item mutex and executed
// in a single transaction, so two concurrent bids can never both pass the
// price check against the same stale current bid.
type Engine struct {
	db       *sql.DB
	clock    Clock
	notifier Notifier

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	// Tracks in-flight notification goroutines so shutdown and tests can
	// wait for them.
	wg sync.WaitGroup
}

// NewEngine creates an engine. A nil clock means the wall clock; a nil
// notifier disables outcome notifications.
func NewEngine(db *sql.DB, clock Clock, notifier Notifier) *Engine {
	if clock == nil {
		clock = SystemClock
	}
	return &Engine{
		db:       db,
		clock:    clock,
		notifier: notifier,
		locks:    make(map[string]*sync.Mutex),
	}
}

// Wait blocks until all in-flight notification dispatches have finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Now returns the engine's notion of the current time. Handlers that derive
// start and end times use it so that the whole system runs on one clock.
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

// RefreshStatus loads an item, applies a pending lifecycle transition if one
// is due, and returns the up-to-date item. Calling it again immediately is a
// no-op: settlement notifications fire on the sold transition edge, not on
// the sold state.
func (e *Engine) RefreshStatus(ctx context.Context, itemID string) (*model.Item, error) {
	unlock := e.lockItems(itemID)
	defer unlock()

	item, err := store.GetItem(ctx, e.db, itemID)
	if err != nil {
		return nil, dependencyError("Server error.", err)
	}
	if item == nil {
		return nil, notFoundError("Item not found.")
	}

	return e.refreshLocked(ctx, item)
}

// AcceptBid validates and appends a bid on an item. Preconditions are checked
// in a fixed order and the first failure wins; on success the bid insert and
// the current-bid update commit in one transaction.
func (e *Engine) AcceptBid(ctx context.Context, itemID, bidderID string, amount decimal.Decimal) (*model.Bid, error) {
	if !amount.IsPositive() {
		return nil, validationError("Invalid bid amount.")
	}

	unlock := e.lockItems(itemID)
	defer unlock()

	item, err := store.GetItem(ctx, e.db, itemID)
	if err != nil {
		return nil, dependencyError("Server error.", err)
	}
	if item == nil {
		return nil, notFoundError("Item not found.")
	}

	// Bring the status up to date before any state check.
	if item, err = e.refreshLocked(ctx, item); err != nil {
		return nil, err
	}

	now := e.clock.Now()
	if !item.OpenForBidding(now) {
		if item.Status == model.ItemStatusUpcoming {
			return nil, conflictError("Auction has not started yet.")
		}
		return nil, conflictError("Auction has ended.")
	}

	if item.SellerID == bidderID {
		return nil, conflictError("You cannot bid on your own item.")
	}

	bidder, err := store.GetUser(ctx, e.db, bidderID)
	if err != nil {
		return nil, dependencyError("Server error.", err)
	}
	if bidder == nil {
		return nil, notFoundError("User not found.")
	}
	if bidder.IsBanned {
		return nil, conflictError("Your account has been banned.")
	}

	current := item.CurrentPrice()
	if !amount.GreaterThan(current) {
		return nil, conflictError(fmt.Sprintf("Bid must be higher than $%s.", current))
	}

	highest, err := store.HighestBid(ctx, e.db, itemID)
	if err != nil {
		return nil, dependencyError("Server error.", err)
	}
	if highest != nil && highest.BidderID == bidderID {
		return nil, conflictError("You already have the highest bid.")
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, dependencyError("Server error.", err)
	}
	defer tx.Rollback()

	bid, err := store.CreateBid(ctx, tx, itemID, bidderID, amount, now)
	if err != nil {
		return nil, dependencyError("Server error.", err)
	}

	item.CurrentBid = amount
	if err := store.UpdateItem(ctx, tx, item); err != nil {
		return nil, dependencyError("Server error.", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, dependencyError("Server error.", err)
	}

	slog.Info("bid accepted", "item", itemID, "bidder", bidderID, "amount", amount)
	return bid, nil
}

// RecomputeAfterRemoval rebuilds an item's current bid and winner from the
// surviving bid ledger after bids were deleted out-of-band.
func (e *Engine) RecomputeAfterRemoval(ctx context.Context, itemID string) (*model.Item, error) {
	unlock := e.lockItems(itemID)
	defer unlock()

	return e.withItemTx(ctx, itemID, func(tx *sql.Tx, item *model.Item) error {
		return e.recomputeTx(ctx, tx, item)
	})
}

// RemoveBid deletes a single bid (admin action) and recomputes the item's
// price and winner from the surviving ledger, all in one transaction.
func (e *Engine) RemoveBid(ctx context.Context, bidID string) (*model.Item, error) {
	bid, err := store.GetBid(ctx, e.db, bidID)
	if err != nil {
		return nil, dependencyError("Server error.", err)
	}
	if bid == nil {
		return nil, notFoundError("Bid not found.")
	}

	unlock := e.lockItems(bid.ItemID)
	defer unlock()

	item, err := e.withItemTx(ctx, bid.ItemID, func(tx *sql.Tx, item *model.Item) error {
		if err := store.DeleteBid(ctx, tx, bidID); err != nil {
			return err
		}
		return e.recomputeTx(ctx, tx, item)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("bid removed", "bid", bidID, "item", bid.ItemID)
	return item, nil
}

// RemoveItem deletes an item together with its entire bid ledger (admin
// action), effectively cancelling every bid on it.
func (e *Engine) RemoveItem(ctx context.Context, itemID string) error {
	unlock := e.lockItems(itemID)
	defer unlock()

	_, err := e.withItemTx(ctx, itemID, func(tx *sql.Tx, item *model.Item) error {
		if err := store.DeleteBidsByItem(ctx, tx, itemID); err != nil {
			return err
		}
		return store.DeleteItem(ctx, tx, itemID)
	})
	if err != nil {
		return err
	}

	slog.Info("item removed with its bids", "item", itemID)
	return nil
}

// RemoveUnbidItem deletes an item only if nobody has bid on it yet (seller
// action). Items with bids can only be removed by an admin.
func (e *Engine) RemoveUnbidItem(ctx context.Context, itemID string) error {
	unlock := e.lockItems(itemID)
	defer unlock()

	_, err := e.withItemTx(ctx, itemID, func(tx *sql.Tx, item *model.Item) error {
		count, err := store.CountBids(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if count > 0 {
			return conflictError("Cannot delete item with bids.")
		}
		return store.DeleteItem(ctx, tx, itemID)
	})
	return err
}

// BanUser bans a user and cascades: the user's own items are deleted together
// with every bid anyone placed on them, the user's bids on other sellers'
// items are deleted, and each affected item is recomputed exactly once. The
// ban flag and the whole cascade commit in a single transaction, so a failure
// never leaves a user banned with the cleanup half done. Re-running on an
// already-cleaned user is a no-op.
func (e *Engine) BanUser(ctx context.Context, userID string) error {
	user, err := store.GetUser(ctx, e.db, userID)
	if err != nil {
		return dependencyError("Server error.", err)
	}
	if user == nil {
		return notFoundError("User not found.")
	}
	if user.Role == model.RoleAdmin {
		return conflictError("Cannot ban admin users.")
	}

	// Lock every item the cascade can touch, in sorted order to keep a
	// consistent acquisition order with other multi-item operations.
	ownItems, err := store.ListItemIDsBySeller(ctx, e.db, userID)
	if err != nil {
		return dependencyError("Server error.", err)
	}
	bidItems, err := store.ListBidItemIDsByBidder(ctx, e.db, userID)
	if err != nil {
		return dependencyError("Server error.", err)
	}
	unlock := e.lockItems(append(append([]string{}, ownItems...), bidItems...)...)
	defer unlock()

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return dependencyError("Server error.", err)
	}
	defer tx.Rollback()

	if err := store.SetUserBanned(ctx, tx, userID, true); err != nil {
		return dependencyError("Server error.", err)
	}

	// The user as a seller: drop their items and every bid on them. Bids go
	// first so the ledger never holds a bid on a missing item.
	ownItems, err = store.ListItemIDsBySeller(ctx, tx, userID)
	if err != nil {
		return dependencyError("Server error.", err)
	}
	for _, itemID := range ownItems {
		if err := store.DeleteBidsByItem(ctx, tx, itemID); err != nil {
			return dependencyError("Server error.", err)
		}
		if err := store.DeleteItem(ctx, tx, itemID); err != nil {
			return dependencyError("Server error.", err)
		}
	}

	// The user as a bidder: drop their bids on the remaining items, then
	// recompute each affected item once.
	affected, err := store.ListBidItemIDsByBidder(ctx, tx, userID)
	if err != nil {
		return dependencyError("Server error.", err)
	}
	if err := store.DeleteBidsByBidder(ctx, tx, userID); err != nil {
		return dependencyError("Server error.", err)
	}
	for _, itemID := range affected {
		item, err := store.GetItem(ctx, tx, itemID)
		if err != nil {
			return dependencyError("Server error.", err)
		}
		if item == nil {
			continue
		}
		if err := e.recomputeTx(ctx, tx, item); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return dependencyError("Server error.", err)
	}

	slog.Info("user banned with cascade", "user", userID,
		"items_deleted", len(ownItems), "items_recomputed", len(affected))
	return nil
}

// UnbanUser clears a user's ban flag. Deleted items and bids are not
// restored.
func (e *Engine) UnbanUser(ctx context.Context, userID string) error {
	user, err := store.GetUser(ctx, e.db, userID)
	if err != nil {
		return dependencyError("Server error.", err)
	}
	if user == nil {
		return notFoundError("User not found.")
	}
	if err := store.SetUserBanned(ctx, e.db, userID, false); err != nil {
		return dependencyError("Server error.", err)
	}
	slog.Info("user unbanned", "user", userID)
	return nil
}

// refreshLocked applies at most one lifecycle transition to item. The item's
// lock must be held.
func (e *Engine) refreshLocked(ctx context.Context, item *model.Item) (*model.Item, error) {
	now := e.clock.Now()

	if item.Status == model.ItemStatusUpcoming && !now.Before(item.StartTime) {
		item.Status = model.ItemStatusActive
		if err := store.UpdateItem(ctx, e.db, item); err != nil {
			return nil, dependencyError("Server error.", err)
		}
		slog.Info("auction opened", "item", item.ID)
		return item, nil
	}

	if item.Status == model.ItemStatusActive && !now.Before(item.EndTime) {
		return e.settleLocked(ctx, item)
	}

	return item, nil
}

// settleLocked finalizes an ended auction: sold to the highest surviving
// bidder, or expired when the ledger is empty. Notification of all distinct
// bidders happens after commit, on a detached goroutine.
func (e *Engine) settleLocked(ctx context.Context, item *model.Item) (*model.Item, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, dependencyError("Server error.", err)
	}
	defer tx.Rollback()

	highest, err := store.HighestBid(ctx, tx, item.ID)
	if err != nil {
		return nil, dependencyError("Server error.", err)
	}

	if highest == nil {
		item.Status = model.ItemStatusExpired
		item.WinnerID = nil
		if err := store.UpdateItem(ctx, tx, item); err != nil {
			return nil, dependencyError("Server error.", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, dependencyError("Server error.", err)
		}
		slog.Info("auction expired with no bids", "item", item.ID)
		return item, nil
	}

	item.Status = model.ItemStatusSold
	item.WinnerID = &highest.BidderID
	item.CurrentBid = highest.Amount
	if err := store.UpdateItem(ctx, tx, item); err != nil {
		return nil, dependencyError("Server error.", err)
	}

	bidders, err := store.ListItemBidders(ctx, tx, item.ID)
	if err != nil {
		return nil, dependencyError("Server error.", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, dependencyError("Server error.", err)
	}

	slog.Info("auction sold", "item", item.ID, "winner", highest.BidderID, "amount", highest.Amount)
	e.dispatchResult(item, highest, bidders)
	return item, nil
}

// recomputeTx rebuilds current bid and winner from the surviving ledger, in
// the caller's transaction. When the last bid disappears a sold item reverts
// to active: the sale lost its basis, and this is the one legal departure
// from a terminal state.
func (e *Engine) recomputeTx(ctx context.Context, tx *sql.Tx, item *model.Item) error {
	highest, err := store.HighestBid(ctx, tx, item.ID)
	if err != nil {
		return dependencyError("Server error.", err)
	}

	if highest != nil {
		item.CurrentBid = highest.Amount
		if item.WinnerID != nil && *item.WinnerID != highest.BidderID {
			stillBidding, err := store.HasBid(ctx, tx, item.ID, *item.WinnerID)
			if err != nil {
				return dependencyError("Server error.", err)
			}
			if !stillBidding {
				item.WinnerID = &highest.BidderID
			}
		}
	} else {
		item.CurrentBid = item.BasePrice
		item.WinnerID = nil
		if item.Status == model.ItemStatusSold {
			item.Status = model.ItemStatusActive
			slog.Warn("sold auction reopened, its entire bid ledger was removed", "item", item.ID)
		}
	}

	if err := store.UpdateItem(ctx, tx, item); err != nil {
		return dependencyError("Server error.", err)
	}
	return nil
}

// dispatchResult notifies every distinct bidder of the auction outcome.
// Fire-and-forget: the settlement has already committed, failures are only
// logged.
func (e *Engine) dispatchResult(item *model.Item, winningBid *model.Bid, bidders []model.User) {
	if e.notifier == nil || len(bidders) == 0 {
		return
	}

	itemCopy := *item
	bidCopy := *winningBid

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := e.notifier.NotifyAuctionResult(ctx, &itemCopy, &bidCopy, bidders); err != nil {
			slog.Error("auction result notification failed", "item", itemCopy.ID, "error", err)
		}
	}()
}

// withItemTx loads the item and runs fn inside one transaction. The item's
// lock must be held.
func (e *Engine) withItemTx(ctx context.Context, itemID string, fn func(tx *sql.Tx, item *model.Item) error) (*model.Item, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, dependencyError("Server error.", err)
	}
	defer tx.Rollback()

	item, err := store.GetItem(ctx, tx, itemID)
	if err != nil {
		return nil, dependencyError("Server error.", err)
	}
	if item == nil {
		return nil, notFoundError("Item not found.")
	}

	if err := fn(tx, item); err != nil {
		if _, ok := err.(*Error); ok {
			return nil, err
		}
		return nil, dependencyError("Server error.", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, dependencyError("Server error.", err)
	}
	return item, nil
}

// lockItems acquires the per-item mutexes for the given IDs in sorted order
// (deduplicated) and returns the matching unlock function.
func (e *Engine) lockItems(ids ...string) func() {
	ids = slices.Clone(ids)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	locks := make([]*sync.Mutex, 0, len(ids))
	for _, id := range ids {
		e.mu.Lock()
		lock, ok := e.locks[id]
		if !ok {
			lock = &sync.Mutex{}
			e.locks[id] = lock
		}
		e.mu.Unlock()
		locks = append(locks, lock)
	}

	for _, lock := range locks {
		lock.Lock()
	}
	return func() {
		for i := len(locks) - 1; i >= 0; i-- {
			locks[i].Unlock()
		}
	}
}
