package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bidcycle/bidcycle/internal/auction"
	"github.com/bidcycle/bidcycle/internal/model"
	"github.com/bidcycle/bidcycle/internal/store"
)

// maxAuctionDuration caps listings at 30 days, in hours.
const maxAuctionDuration = 720.0

// SellerHandler handles listing management for sellers.
type SellerHandler struct {
	DB     *sql.DB
	Engine *auction.Engine
}

type createItemRequest struct {
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Category        string          `json:"category"`
	Images          []string        `json:"images"`
	BasePrice       decimal.Decimal `json:"base_price"`
	AuctionDuration float64         `json:"auction_duration"` // hours
	StartTime       *time.Time      `json:"start_time"`
	EndTime         *time.Time      `json:"end_time"`
}

type updateItemRequest struct {
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Category        string           `json:"category"`
	Images          []string         `json:"images"`
	BasePrice       *decimal.Decimal `json:"base_price"`
	AuctionDuration *float64         `json:"auction_duration"`
}

// Create handles POST /api/seller/items. The end time comes either from an
// explicit end_time or from auction_duration hours after the start; a future
// start time lists the item as upcoming.
func (h *SellerHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title == "" || req.Description == "" || req.Category == "" {
		jsonError(w, http.StatusBadRequest, "All fields are required.")
		return
	}
	if !req.BasePrice.IsPositive() {
		jsonError(w, http.StatusBadRequest, "Base price must be positive.")
		return
	}
	if req.AuctionDuration <= 0 && req.EndTime == nil {
		jsonError(w, http.StatusBadRequest, "All fields are required.")
		return
	}

	now := h.Engine.Now()

	start := now
	if req.StartTime != nil && req.StartTime.After(now) {
		start = *req.StartTime
	}

	var end time.Time
	var duration float64
	if req.EndTime != nil {
		end = *req.EndTime
		if !end.After(now) {
			jsonError(w, http.StatusBadRequest, "End time must be in the future.")
			return
		}
		duration = end.Sub(start).Hours()
	} else {
		duration = req.AuctionDuration
		end = start.Add(time.Duration(duration * float64(time.Hour)))
	}

	if !end.After(start) {
		jsonError(w, http.StatusBadRequest, "End time must be after start time.")
		return
	}
	if duration > maxAuctionDuration {
		jsonError(w, http.StatusBadRequest, "Auction duration cannot exceed 720 hours.")
		return
	}

	status := model.ItemStatusActive
	if start.After(now) {
		status = model.ItemStatusUpcoming
	}

	if req.Images == nil {
		req.Images = []string{}
	}

	item, err := store.CreateItem(r.Context(), h.DB, &model.Item{
		SellerID:        claims.UserID,
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		Images:          req.Images,
		BasePrice:       req.BasePrice,
		CurrentBid:      req.BasePrice,
		AuctionDuration: duration,
		Status:          status,
		StartTime:       start,
		EndTime:         end,
	})
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "Server error.")
		return
	}

	jsonResponse(w, http.StatusCreated, item)
}

// List handles GET /api/seller/items.
func (h *SellerHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	items, err := store.ListItems(r.Context(), h.DB, store.ItemFilter{SellerID: claims.UserID}, 0, 0)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "Server error.")
		return
	}

	for i := range items {
		refreshed, err := h.Engine.RefreshStatus(r.Context(), items[i].ID)
		if err != nil {
			engineError(w, err)
			return
		}
		items[i] = *refreshed
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Update handles PUT /api/seller/items/{id}. Items cannot be edited once
// they have bids or once the auction has ended.
func (h *SellerHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	item, ok := h.ownedItem(w, r, claims.UserID)
	if !ok {
		return
	}

	count, err := store.CountBids(r.Context(), h.DB, item.ID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "Server error.")
		return
	}
	if count > 0 {
		jsonError(w, http.StatusConflict, "Cannot edit item with bids.")
		return
	}

	now := h.Engine.Now()
	if !item.EndTime.After(now) {
		jsonError(w, http.StatusConflict, "Cannot edit ended auction.")
		return
	}

	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title != "" {
		item.Title = req.Title
	}
	if req.Description != "" {
		item.Description = req.Description
	}
	if req.Category != "" {
		item.Category = req.Category
	}
	if req.Images != nil {
		item.Images = req.Images
	}
	if req.BasePrice != nil && req.BasePrice.IsPositive() {
		item.BasePrice = *req.BasePrice
		item.CurrentBid = *req.BasePrice
	}
	if req.AuctionDuration != nil && *req.AuctionDuration > 0 && *req.AuctionDuration <= maxAuctionDuration {
		item.AuctionDuration = *req.AuctionDuration
		item.EndTime = now.Add(time.Duration(*req.AuctionDuration * float64(time.Hour)))
	}

	if err := store.UpdateItem(r.Context(), h.DB, item); err != nil {
		jsonError(w, http.StatusInternalServerError, "Server error.")
		return
	}

	item, _ = store.GetItem(r.Context(), h.DB, item.ID)
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/seller/items/{id}. Only items without bids can
// be deleted by their seller.
func (h *SellerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	item, ok := h.ownedItem(w, r, claims.UserID)
	if !ok {
		return
	}

	if err := h.Engine.RemoveUnbidItem(r.Context(), item.ID); err != nil {
		engineError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "Item deleted successfully."})
}

// BidHistory handles GET /api/seller/items/{id}/bids.
func (h *SellerHandler) BidHistory(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	item, ok := h.ownedItem(w, r, claims.UserID)
	if !ok {
		return
	}

	bids, err := store.ListBidsByItem(r.Context(), h.DB, item.ID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "Server error.")
		return
	}
	if bids == nil {
		bids = []model.Bid{}
	}
	jsonResponse(w, http.StatusOK, bids)
}

// ownedItem loads the item from the path and verifies the caller owns it.
// On failure it writes the response and returns ok=false.
func (h *SellerHandler) ownedItem(w http.ResponseWriter, r *http.Request, sellerID string) (*model.Item, bool) {
	item, err := store.GetItem(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "Server error.")
		return nil, false
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "Item not found.")
		return nil, false
	}
	if item.SellerID != sellerID {
		jsonError(w, http.StatusForbidden, "Forbidden.")
		return nil, false
	}
	return item, true
}
