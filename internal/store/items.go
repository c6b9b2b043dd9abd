package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bidcycle/bidcycle/internal/model"
)

const itemColumns = `i.id, i.seller_id, i.title, i.description, i.category, i.images,
	        i.base_price, i.current_bid, i.auction_duration, i.status, i.winner_id,
	        i.start_time, i.end_time, i.created_at,
	        s.name AS seller_name, COALESCE(w.name, '') AS winner_name`

const itemJoins = ` FROM items i
	 JOIN users s ON s.id = i.seller_id
	 LEFT JOIN users w ON w.id = i.winner_id`

// ItemFilter narrows ListItems and CountItems results. Zero values mean
// "no constraint".
type ItemFilter struct {
	Category    string
	Search      string // matches title, case-insensitive
	SellerID    string
	WinnerID    string
	Statuses    []string
	EndsAfter   time.Time // end_time > EndsAfter
	EndedBefore time.Time // end_time <= EndedBefore
}

// CreateItem inserts a new listing and returns the stored row. The caller
// fills all fields except ID and joined names.
func CreateItem(ctx context.Context, q Querier, item *model.Item) (*model.Item, error) {
	id := uuid.NewString()

	images, err := json.Marshal(item.Images)
	if err != nil {
		return nil, fmt.Errorf("encoding item images: %w", err)
	}

	_, err = q.ExecContext(ctx,
		`INSERT INTO items (id, seller_id, title, description, category, images,
		                    base_price, current_bid, auction_duration, status, winner_id,
		                    start_time, end_time)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, item.SellerID, item.Title, item.Description, item.Category, string(images),
		item.BasePrice.String(), item.CurrentBid.String(), item.AuctionDuration,
		item.Status, item.WinnerID, item.StartTime, item.EndTime,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	return GetItem(ctx, q, id)
}

// GetItem returns an item by ID with seller and winner names joined in.
func GetItem(ctx context.Context, q Querier, id string) (*model.Item, error) {
	row := q.QueryRowContext(ctx, `SELECT `+itemColumns+itemJoins+` WHERE i.id = ?`, id)
	item, err := scanItemRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ListItems returns items matching the filter, newest first, with optional
// limit/offset pagination (limit <= 0 disables pagination).
func ListItems(ctx context.Context, q Querier, f ItemFilter, limit, offset int) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + itemJoins + ` WHERE 1=1`
	query, args := applyItemFilter(query, nil, f)
	query += ` ORDER BY i.created_at DESC`
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItemRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// CountItems returns the number of items matching the filter.
func CountItems(ctx context.Context, q Querier, f ItemFilter) (int, error) {
	query := `SELECT COUNT(*)` + itemJoins + ` WHERE 1=1`
	query, args := applyItemFilter(query, nil, f)

	var count int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting items: %w", err)
	}
	return count, nil
}

// UpdateItem persists all mutable fields of an item.
func UpdateItem(ctx context.Context, q Querier, item *model.Item) error {
	images, err := json.Marshal(item.Images)
	if err != nil {
		return fmt.Errorf("encoding item images: %w", err)
	}

	_, err = q.ExecContext(ctx,
		`UPDATE items SET title = ?, description = ?, category = ?, images = ?,
		        base_price = ?, current_bid = ?, auction_duration = ?, status = ?,
		        winner_id = ?, start_time = ?, end_time = ?
		 WHERE id = ?`,
		item.Title, item.Description, item.Category, string(images),
		item.BasePrice.String(), item.CurrentBid.String(), item.AuctionDuration,
		item.Status, item.WinnerID, item.StartTime, item.EndTime, item.ID,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return nil
}

// DeleteItem removes an item. The caller is responsible for deleting its bids
// first; the schema keeps a foreign key from bids to items.
func DeleteItem(ctx context.Context, q Querier, id string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// ListItemIDsBySeller returns the IDs of all items listed by a seller.
func ListItemIDsBySeller(ctx context.Context, q Querier, sellerID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT id FROM items WHERE seller_id = ?`, sellerID)
	if err != nil {
		return nil, fmt.Errorf("listing seller item ids: %w", err)
	}
	defer rows.Close()

	return scanIDs(rows)
}

// ListDueItemIDs returns the IDs of items with a pending lifecycle transition:
// upcoming items whose start time has passed and active items whose end time
// has passed. The settlement sweeper refreshes each of these.
func ListDueItemIDs(ctx context.Context, q Querier, now time.Time) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id FROM items
		 WHERE (status = 'upcoming' AND start_time <= ?)
		    OR (status = 'active' AND end_time <= ?)`,
		now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("listing due items: %w", err)
	}
	defer rows.Close()

	return scanIDs(rows)
}

func applyItemFilter(query string, args []any, f ItemFilter) (string, []any) {
	if f.Category != "" {
		query += ` AND i.category = ?`
		args = append(args, f.Category)
	}
	if f.Search != "" {
		query += ` AND i.title LIKE ?`
		args = append(args, "%"+f.Search+"%")
	}
	if f.SellerID != "" {
		query += ` AND i.seller_id = ?`
		args = append(args, f.SellerID)
	}
	if f.WinnerID != "" {
		query += ` AND i.winner_id = ?`
		args = append(args, f.WinnerID)
	}
	if len(f.Statuses) > 0 {
		query += ` AND i.status IN (?` + repeatPlaceholder(len(f.Statuses)-1) + `)`
		for _, s := range f.Statuses {
			args = append(args, s)
		}
	}
	if !f.EndsAfter.IsZero() {
		query += ` AND i.end_time > ?`
		args = append(args, f.EndsAfter)
	}
	if !f.EndedBefore.IsZero() {
		query += ` AND i.end_time <= ?`
		args = append(args, f.EndedBefore)
	}
	return query, args
}

func repeatPlaceholder(n int) string {
	s := ""
	for range n {
		s += ", ?"
	}
	return s
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanItemRow(s rowScanner) (*model.Item, error) {
	item := &model.Item{}
	var images, basePrice, currentBid string
	var winnerID sql.NullString
	err := s.Scan(&item.ID, &item.SellerID, &item.Title, &item.Description, &item.Category,
		&images, &basePrice, &currentBid, &item.AuctionDuration, &item.Status, &winnerID,
		&item.StartTime, &item.EndTime, &item.CreatedAt,
		&item.SellerName, &item.WinnerName)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning item: %w", err)
	}

	if err := json.Unmarshal([]byte(images), &item.Images); err != nil {
		return nil, fmt.Errorf("decoding item images: %w", err)
	}
	if item.BasePrice, err = decimal.NewFromString(basePrice); err != nil {
		return nil, fmt.Errorf("parsing base price: %w", err)
	}
	if item.CurrentBid, err = decimal.NewFromString(currentBid); err != nil {
		return nil, fmt.Errorf("parsing current bid: %w", err)
	}
	if winnerID.Valid {
		item.WinnerID = &winnerID.String
	}
	return item, nil
}
