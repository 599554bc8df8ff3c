package handlers

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/gif-subs/backend/internal/subtitle"
)

type SubtitleHandler struct {
	acquirer *subtitle.Acquirer
}

func NewSubtitleHandler(acquirer *subtitle.Acquirer) *SubtitleHandler {
	return &SubtitleHandler{acquirer: acquirer}
}

// Serve returns the stored subtitle track for a video, as WebVTT by default
// or as a JSON cue list with ?format=json.
func (h *SubtitleHandler) Serve(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "id")

	path := h.acquirer.FindVTT(videoID)
	if path == "" {
		jsonError(w, "no subtitles for video", http.StatusNotFound)
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		jsonError(w, "failed to read subtitle", http.StatusInternalServerError)
		return
	}

	if r.URL.Query().Get("format") == "json" {
		cues := subtitle.ParseVTT(string(data))
		jsonResponse(w, cues, http.StatusOK)
		return
	}

	w.Header().Set("Content-Type", "text/vtt; charset=utf-8")
	w.Header().Set("Cache-Control", "max-age=3600")
	w.Write(data)
}
