package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is an auction listing. CurrentBid starts at BasePrice and only ever
// rises through accepted bids, except when bids are deleted and the price is
// recomputed from the surviving ledger.
type Item struct {
	ID              string          `json:"id"`
	SellerID        string          `json:"seller_id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Category        string          `json:"category"`
	Images          []string        `json:"images"`
	BasePrice       decimal.Decimal `json:"base_price"`
	CurrentBid      decimal.Decimal `json:"current_bid"`
	AuctionDuration float64         `json:"auction_duration"` // hours, informational
	Status          string          `json:"status"`
	WinnerID        *string         `json:"winner_id,omitempty"`
	StartTime       time.Time       `json:"start_time"`
	EndTime         time.Time       `json:"end_time"`
	CreatedAt       time.Time       `json:"created_at"`

	// Joined display fields, populated by some store queries.
	SellerName string `json:"seller_name,omitempty"`
	WinnerName string `json:"winner_name,omitempty"`
}

// Item statuses.
const (
	ItemStatusUpcoming = "upcoming"
	ItemStatusActive   = "active"
	ItemStatusSold     = "sold"
	ItemStatusClosed   = "closed"
	ItemStatusExpired  = "expired"
)

// TerminalStatus reports whether status admits no further lifecycle
// transition. A sold item can still revert to active if its entire bid
// ledger is deleted, which is handled by the settlement recompute.
func TerminalStatus(status string) bool {
	return status == ItemStatusSold || status == ItemStatusClosed || status == ItemStatusExpired
}

// CurrentPrice returns the price a new bid must exceed: the current bid, or
// the base price if no bid has been recorded yet.
func (i *Item) CurrentPrice() decimal.Decimal {
	if i.CurrentBid.IsPositive() {
		return i.CurrentBid
	}
	return i.BasePrice
}

// OpenForBidding reports whether the auction accepts bids at the given time.
func (i *Item) OpenForBidding(now time.Time) bool {
	return i.Status == ItemStatusActive && now.Before(i.EndTime)
}

// TimeRemaining returns the time left until the auction ends, or zero if it
// has already ended.
func (i *Item) TimeRemaining(now time.Time) time.Duration {
	if !now.Before(i.EndTime) {
		return 0
	}
	return i.EndTime.Sub(now)
}
