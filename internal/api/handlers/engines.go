package handlers

import (
	"net/http"
	"sort"

	"github.com/gif-subs/backend/internal/search"
	"github.com/gif-subs/backend/internal/subtitle"
)

type EnginesHandler struct {
	acquirer *subtitle.Acquirer
	embedder search.Embedder
}

func NewEnginesHandler(acquirer *subtitle.Acquirer, embedder search.Embedder) *EnginesHandler {
	return &EnginesHandler{acquirer: acquirer, embedder: embedder}
}

// List returns the configured transcription engines and embedding backend
func (h *EnginesHandler) List(w http.ResponseWriter, r *http.Request) {
	engines := h.acquirer.Engines()
	sort.Strings(engines)

	jsonResponse(w, map[string]interface{}{
		"whisper":  engines,
		"embedder": h.embedder.Name(),
	}, http.StatusOK)
}
