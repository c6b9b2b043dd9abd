package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bidcycle/bidcycle/internal/model"
)

// CreateBid appends a bid to an item's ledger. The caller supplies the
// creation time so that ordering is exact under an injected clock.
func CreateBid(ctx context.Context, q Querier, itemID, bidderID string, amount decimal.Decimal, createdAt time.Time) (*model.Bid, error) {
	id := uuid.NewString()
	_, err := q.ExecContext(ctx,
		`INSERT INTO bids (id, item_id, bidder_id, amount, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, itemID, bidderID, amount.String(), createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating bid: %w", err)
	}

	return GetBid(ctx, q, id)
}

// GetBid returns a bid by ID with bidder identity joined in.
func GetBid(ctx context.Context, q Querier, id string) (*model.Bid, error) {
	row := q.QueryRowContext(ctx,
		`SELECT b.id, b.item_id, b.bidder_id, b.amount, b.created_at,
		        u.name, u.email, i.title
		 FROM bids b
		 JOIN users u ON u.id = b.bidder_id
		 JOIN items i ON i.id = b.item_id
		 WHERE b.id = ?`, id,
	)
	bid, err := scanBidRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return bid, nil
}

// HighestBid returns the highest surviving bid on an item, or nil if the item
// has no bids. Ties on amount go to the earliest bid: rows are scanned in
// creation order and only a strictly greater amount displaces the leader.
// Amounts are compared as decimals in Go because they are stored as text.
func HighestBid(ctx context.Context, q Querier, itemID string) (*model.Bid, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT b.id, b.item_id, b.bidder_id, b.amount, b.created_at,
		        u.name, u.email, i.title
		 FROM bids b
		 JOIN users u ON u.id = b.bidder_id
		 JOIN items i ON i.id = b.item_id
		 WHERE b.item_id = ?
		 ORDER BY b.created_at ASC, b.id ASC`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying highest bid: %w", err)
	}
	defer rows.Close()

	var best *model.Bid
	for rows.Next() {
		bid, err := scanBidRow(rows)
		if err != nil {
			return nil, err
		}
		if best == nil || bid.Amount.GreaterThan(best.Amount) {
			best = bid
		}
	}
	return best, rows.Err()
}

// ListBidsByItem returns an item's bids, newest first.
func ListBidsByItem(ctx context.Context, q Querier, itemID string) ([]model.Bid, error) {
	return listBids(ctx, q, itemID, "", 0, 0)
}

// ListBidsByBidder returns a bidder's bids across all items, newest first.
func ListBidsByBidder(ctx context.Context, q Querier, bidderID string) ([]model.Bid, error) {
	return listBids(ctx, q, "", bidderID, 0, 0)
}

// ListBids returns bids (optionally for one item), newest first, with
// limit/offset pagination.
func ListBids(ctx context.Context, q Querier, itemID string, limit, offset int) ([]model.Bid, error) {
	return listBids(ctx, q, itemID, "", limit, offset)
}

// CountBids returns the number of bids, optionally limited to one item.
func CountBids(ctx context.Context, q Querier, itemID string) (int, error) {
	query := `SELECT COUNT(*) FROM bids`
	var args []any
	if itemID != "" {
		query += ` WHERE item_id = ?`
		args = append(args, itemID)
	}

	var count int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting bids: %w", err)
	}
	return count, nil
}

// HasBid reports whether a bidder holds at least one surviving bid on an item.
func HasBid(ctx context.Context, q Querier, itemID, bidderID string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bids WHERE item_id = ? AND bidder_id = ?`,
		itemID, bidderID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking bidder bids: %w", err)
	}
	return count > 0, nil
}

// ListItemBidders returns the distinct users that have bid on an item. The
// user columns are qualified because bids carries its own id column.
func ListItemBidders(ctx context.Context, q Querier, itemID string) ([]model.User, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT DISTINCT u.id, u.name, u.email, u.password_hash, u.role,
		        u.phone, u.address, u.bio, u.is_banned, u.created_at, u.last_login
		 FROM users u
		 JOIN bids b ON b.bidder_id = u.id
		 WHERE b.item_id = ?`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing item bidders: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUserRow(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// ListBidItemIDsByBidder returns the distinct items a bidder has bid on.
func ListBidItemIDsByBidder(ctx context.Context, q Querier, bidderID string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT DISTINCT item_id FROM bids WHERE bidder_id = ?`, bidderID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing bid item ids: %w", err)
	}
	defer rows.Close()

	return scanIDs(rows)
}

// DeleteBid removes a single bid.
func DeleteBid(ctx context.Context, q Querier, id string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM bids WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting bid: %w", err)
	}
	return nil
}

// DeleteBidsByItem removes all bids on an item.
func DeleteBidsByItem(ctx context.Context, q Querier, itemID string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM bids WHERE item_id = ?`, itemID)
	if err != nil {
		return fmt.Errorf("deleting item bids: %w", err)
	}
	return nil
}

// DeleteBidsByBidder removes all of a bidder's bids.
func DeleteBidsByBidder(ctx context.Context, q Querier, bidderID string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM bids WHERE bidder_id = ?`, bidderID)
	if err != nil {
		return fmt.Errorf("deleting bidder bids: %w", err)
	}
	return nil
}

func listBids(ctx context.Context, q Querier, itemID, bidderID string, limit, offset int) ([]model.Bid, error) {
	query := `SELECT b.id, b.item_id, b.bidder_id, b.amount, b.created_at,
	                 u.name, u.email, i.title
	          FROM bids b
	          JOIN users u ON u.id = b.bidder_id
	          JOIN items i ON i.id = b.item_id
	          WHERE 1=1`
	var args []any

	if itemID != "" {
		query += ` AND b.item_id = ?`
		args = append(args, itemID)
	}
	if bidderID != "" {
		query += ` AND b.bidder_id = ?`
		args = append(args, bidderID)
	}

	query += ` ORDER BY b.created_at DESC`

	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing bids: %w", err)
	}
	defer rows.Close()

	var bids []model.Bid
	for rows.Next() {
		bid, err := scanBidRow(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, *bid)
	}
	return bids, rows.Err()
}

func scanBidRow(s rowScanner) (*model.Bid, error) {
	bid := &model.Bid{}
	var amount string
	err := s.Scan(&bid.ID, &bid.ItemID, &bid.BidderID, &amount, &bid.CreatedAt,
		&bid.BidderName, &bid.BidderEmail, &bid.ItemTitle)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning bid: %w", err)
	}
	if bid.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parsing bid amount: %w", err)
	}
	return bid, nil
}
