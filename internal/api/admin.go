package api

import (
	"database/sql"
	"net/http"

	"github.com/bidcycle/bidcycle/internal/auction"
	"github.com/bidcycle/bidcycle/internal/model"
	"github.com/bidcycle/bidcycle/internal/store"
)

// AdminHandler handles moderation endpoints. All routes require the admin
// role via RequireAdmin.
type AdminHandler struct {
	DB     *sql.DB
	Engine *auction.Engine
}

// ListUsers handles GET /api/admin/users with optional search and pagination.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	page, limit := pageParams(r, 10)

	total, err := store.CountUsers(r.Context(), h.DB, search)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "Server error.")
		return
	}

	users, err := store.ListUsers(r.Context(), h.DB, search, limit, (page-1)*limit)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "Server error.")
		return
	}
	if users == nil {
		users = []model.User{}
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"users":      users,
		"pagination": newPagination(page, limit, total),
	})
}

// BanToggle handles PUT /api/admin/users/{id}/ban. Banning a user removes
// their listings and bids and recomputes affected auctions; unbanning only
// clears the flag.
func (h *AdminHandler) BanToggle(w http.ResponseWriter, r *http.Request) {
	user, err := store.GetUser(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "Server error.")
		return
	}
	if user == nil {
		jsonError(w, http.StatusNotFound, "User not found.")
		return
	}

	if user.IsBanned {
		if err := h.Engine.UnbanUser(r.Context(), user.ID); err != nil {
			engineError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"message": "User unbanned successfully."})
		return
	}

	if err := h.Engine.BanUser(r.Context(), user.ID); err != nil {
		engineError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "User banned and associated data cleaned successfully."})
}

// UpdateRole handles PUT /api/admin/users/{id}/role.
func (h *AdminHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role string `json:"role"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !model.ValidRole(req.Role) {
		jsonError(w, http.StatusBadRequest, "Invalid role.")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "Server error.")
		return
	}
	if user == nil {
		jsonError(w, http.StatusNotFound, "User not found.")
		return
	}

	if err := store.UpdateUserRole(r.Context(), h.DB, user.ID, req.Role); err != nil {
		jsonError(w, http.StatusInternalServerError, "Server error.")
		return
	}

	user.Role = req.Role
	jsonResponse(w, http.StatusOK, user)
}

// ListItems handles GET /api/admin/items with search, active/ended status
// filtering and pagination.
func (h *AdminHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, limit := pageParams(r, 10)

	filter := store.ItemFilter{Search: q.Get("search")}
	now := h.Engine.Now()
	switch q.Get("status") {
	case "active":
		filter.EndsAfter = now
	case "ended":
		filter.EndedBefore = now
	}

	total, err := store.CountItems(r.Context(), h.DB, filter)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "Server error.")
		return
	}

	items, err := store.ListItems(r.Context(), h.DB, filter, limit, (page-1)*limit)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "Server error.")
		return
	}
	if items == nil {
		items = []model.Item{}
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"items":      items,
		"pagination": newPagination(page, limit, total),
	})
}

// DeleteItem handles DELETE /api/admin/items/{id}. The item's bids are
// removed with it.
func (h *AdminHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.RemoveItem(r.Context(), r.PathValue("id")); err != nil {
		engineError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "Item and all associated bids deleted successfully."})
}

// ListBids handles GET /api/admin/bids with an optional item filter and
// pagination.
func (h *AdminHandler) ListBids(w http.ResponseWriter, r *http.Request) {
	itemID := r.URL.Query().Get("item")
	page, limit := pageParams(r, 10)

	total, err := store.CountBids(r.Context(), h.DB, itemID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "Server error.")
		return
	}

	bids, err := store.ListBids(r.Context(), h.DB, itemID, limit, (page-1)*limit)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "Server error.")
		return
	}
	if bids == nil {
		bids = []model.Bid{}
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"bids":       bids,
		"pagination": newPagination(page, limit, total),
	})
}

// DeleteBid handles DELETE /api/admin/bids/{id}. The item's current price
// and winner are recomputed from the surviving bids.
func (h *AdminHandler) DeleteBid(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Engine.RemoveBid(r.Context(), r.PathValue("id")); err != nil {
		engineError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "Bid deleted and item price updated successfully."})
}
