package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bid is an immutable record of one bidder's offer on one item. Bids are only
// created through the acceptance protocol and only removed by admin deletion
// or ban cascades.
type Bid struct {
	ID        string          `json:"id"`
	ItemID    string          `json:"item_id"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`

	// Joined display fields, populated by some store queries.
	BidderName  string `json:"bidder_name,omitempty"`
	BidderEmail string `json:"bidder_email,omitempty"`
	ItemTitle   string `json:"item_title,omitempty"`
}
