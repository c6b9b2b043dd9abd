package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/bidcycle/bidcycle/internal/auction"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// engineError maps a typed auction rejection to a transport status. Untyped
// and dependency errors become opaque 500s; the reason stays in the log.
func engineError(w http.ResponseWriter, err error) {
	switch auction.ErrKind(err) {
	case auction.KindValidation:
		jsonError(w, http.StatusBadRequest, auction.ErrMessage(err))
	case auction.KindNotFound:
		jsonError(w, http.StatusNotFound, auction.ErrMessage(err))
	case auction.KindConflict:
		jsonError(w, http.StatusConflict, auction.ErrMessage(err))
	default:
		slog.Error("engine operation failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "Server error.")
	}
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// pagination is the envelope the original client expects on list endpoints.
type pagination struct {
	Current int  `json:"current"`
	Total   int  `json:"total"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

// pageParams reads page/limit query parameters with a default page size.
func pageParams(r *http.Request, defaultLimit int) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = defaultLimit
	}
	return page, limit
}

// newPagination builds the pagination envelope for a page over total rows.
func newPagination(page, limit, total int) pagination {
	pages := (total + limit - 1) / limit
	return pagination{
		Current: page,
		Total:   pages,
		HasNext: page*limit < total,
		HasPrev: page > 1,
	}
}
