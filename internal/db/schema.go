package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema. Prices and bid amounts are stored as
// decimal strings; ordering on them happens in Go, not in SQL.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    name          TEXT NOT NULL,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'buyer' CHECK (role IN ('admin', 'seller', 'buyer')),
    phone         TEXT,
    address       TEXT,
    bio           TEXT,
    is_banned     INTEGER NOT NULL DEFAULT 0,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    last_login    DATETIME
);

CREATE TABLE IF NOT EXISTS items (
    id               TEXT PRIMARY KEY,
    seller_id        TEXT NOT NULL REFERENCES users(id),
    title            TEXT NOT NULL,
    description      TEXT NOT NULL,
    category         TEXT NOT NULL,
    images           TEXT NOT NULL DEFAULT '[]',
    base_price       TEXT NOT NULL,
    current_bid      TEXT NOT NULL,
    auction_duration REAL NOT NULL,
    status           TEXT NOT NULL DEFAULT 'active'
                     CHECK (status IN ('upcoming', 'active', 'sold', 'closed', 'expired')),
    winner_id        TEXT REFERENCES users(id),
    start_time       DATETIME NOT NULL,
    end_time         DATETIME NOT NULL,
    created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_items_seller ON items(seller_id);
CREATE INDEX IF NOT EXISTS idx_items_status_end ON items(status, end_time);

CREATE TABLE IF NOT EXISTS bids (
    id         TEXT PRIMARY KEY,
    item_id    TEXT NOT NULL REFERENCES items(id),
    bidder_id  TEXT NOT NULL REFERENCES users(id),
    amount     TEXT NOT NULL,
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_bids_item ON bids(item_id);
CREATE INDEX IF NOT EXISTS idx_bids_bidder ON bids(bidder_id);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
