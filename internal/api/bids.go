package api

import (
	"database/sql"
	"net/http"

	"github.com/bidcycle/bidcycle/internal/auction"
	"github.com/bidcycle/bidcycle/internal/model"
	"github.com/bidcycle/bidcycle/internal/store"
)

// BidsHandler handles the authenticated "my bids" endpoints.
type BidsHandler struct {
	DB     *sql.DB
	Engine *auction.Engine
}

// Mine handles GET /api/bids.
func (h *BidsHandler) Mine(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	bids, err := h.refreshedBids(r, claims.UserID)
	if err != nil {
		engineError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, bids)
}

// Active handles GET /api/bids/active: only bids on auctions that are still
// open for bidding.
func (h *BidsHandler) Active(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	bids, err := h.refreshedBids(r, claims.UserID)
	if err != nil {
		engineError(w, err)
		return
	}

	now := h.Engine.Now()
	open := make(map[string]bool)
	for _, bid := range bids {
		if _, seen := open[bid.ItemID]; seen {
			continue
		}
		item, err := store.GetItem(r.Context(), h.DB, bid.ItemID)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "Server error.")
			return
		}
		open[bid.ItemID] = item != nil && item.OpenForBidding(now)
	}

	active := make([]model.Bid, 0, len(bids))
	for _, bid := range bids {
		if open[bid.ItemID] {
			active = append(active, bid)
		}
	}
	jsonResponse(w, http.StatusOK, active)
}

// Won handles GET /api/bids/won: auctions this user has won.
func (h *BidsHandler) Won(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	items, err := store.ListItems(r.Context(), h.DB, store.ItemFilter{
		WinnerID: claims.UserID,
		Statuses: []string{model.ItemStatusSold},
	}, 0, 0)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "Server error.")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// refreshedBids lists a bidder's bids after refreshing each distinct item
// they touch, so statuses and settlements are current.
func (h *BidsHandler) refreshedBids(r *http.Request, bidderID string) ([]model.Bid, error) {
	itemIDs, err := store.ListBidItemIDsByBidder(r.Context(), h.DB, bidderID)
	if err != nil {
		return nil, err
	}
	for _, id := range itemIDs {
		if _, err := h.Engine.RefreshStatus(r.Context(), id); err != nil {
			return nil, err
		}
	}

	bids, err := store.ListBidsByBidder(r.Context(), h.DB, bidderID)
	if err != nil {
		return nil, err
	}
	if bids == nil {
		bids = []model.Bid{}
	}
	return bids, nil
}
