package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gif-subs/backend/internal/db"
	"github.com/gif-subs/backend/internal/search"
)

type SearchHandler struct {
	index    *search.Index
	database *db.Database
	topK     int
}

func NewSearchHandler(index *search.Index, database *db.Database, topK int) *SearchHandler {
	return &SearchHandler{index: index, database: database, topK: topK}
}

// Search ranks indexed cues against the query, best match first.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	limit := h.topK
	if v := h.database.GetSetting("top_k", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			jsonError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	matches, err := h.index.Search(r.Context(), query, limit)
	if err != nil {
		switch {
		case errors.Is(err, search.ErrEmptyQuery):
			jsonError(w, "query required", http.StatusBadRequest)
		case errors.Is(err, search.ErrEmptyIndex):
			jsonError(w, "no subtitles indexed yet", http.StatusConflict)
		default:
			jsonError(w, "search failed: "+err.Error(), http.StatusBadGateway)
		}
		return
	}

	if matches == nil {
		matches = []search.Match{}
	}
	jsonResponse(w, map[string]interface{}{
		"query":   query,
		"matches": matches,
	}, http.StatusOK)
}
