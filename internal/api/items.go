package api

import (
	"database/sql"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/bidcycle/bidcycle/internal/auction"
	"github.com/bidcycle/bidcycle/internal/model"
	"github.com/bidcycle/bidcycle/internal/store"
)

// ItemsHandler handles the public listing endpoints and bid placement.
type ItemsHandler struct {
	DB     *sql.DB
	Engine *auction.Engine
}

type placeBidRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// List handles GET /api/items. Statuses are refreshed before the status
// filter is applied, so a just-ended auction shows up as ended on the first
// request that observes it.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r, 12)

	filter := store.ItemFilter{
		Category: r.URL.Query().Get("category"),
		Search:   r.URL.Query().Get("search"),
	}

	items, err := store.ListItems(r.Context(), h.DB, filter, 0, 0)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "Server error.")
		return
	}

	// Refresh every fetched item, then filter in memory: pagination must see
	// post-transition statuses.
	for i := range items {
		refreshed, err := h.Engine.RefreshStatus(r.Context(), items[i].ID)
		if err != nil {
			engineError(w, err)
			return
		}
		items[i] = *refreshed
	}

	now := h.Engine.Now()
	switch r.URL.Query().Get("status") {
	case "active":
		items = filterItems(items, func(i *model.Item) bool { return i.OpenForBidding(now) })
	case "ended":
		items = filterItems(items, func(i *model.Item) bool { return !i.OpenForBidding(now) })
	}

	total := len(items)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"items":      items[start:end],
		"pagination": newPagination(page, limit, total),
	})
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.Engine.RefreshStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		engineError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Bids handles GET /api/items/{id}/bids.
func (h *ItemsHandler) Bids(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "Server error.")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "Item not found.")
		return
	}

	bids, err := store.ListBidsByItem(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "Server error.")
		return
	}
	if bids == nil {
		bids = []model.Bid{}
	}
	jsonResponse(w, http.StatusOK, bids)
}

// PlaceBid handles POST /api/items/{id}/bids.
func (h *ItemsHandler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req placeBidRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	bid, err := h.Engine.AcceptBid(r.Context(), r.PathValue("id"), claims.UserID, req.Amount)
	if err != nil {
		engineError(w, err)
		return
	}

	jsonResponse(w, http.StatusCreated, map[string]any{
		"bid":           bid,
		"message":       "Bid placed successfully!",
		"current_price": bid.Amount,
	})
}

func filterItems(items []model.Item, keep func(*model.Item) bool) []model.Item {
	filtered := items[:0]
	for i := range items {
		if keep(&items[i]) {
			filtered = append(filtered, items[i])
		}
	}
	return filtered
}
