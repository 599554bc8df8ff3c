package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/gif-subs/backend/internal/clip"
	"github.com/gif-subs/backend/internal/db"
	"github.com/gif-subs/backend/internal/ffmpeg"
	"github.com/gif-subs/backend/internal/job"
	"github.com/gif-subs/backend/internal/storage"
)

type ClipHandler struct {
	database   *db.Database
	queue      *job.JobQueue
	exporter   *clip.Exporter
	clipPath   string
	maxSeconds float64
}

func NewClipHandler(database *db.Database, queue *job.JobQueue, exporter *clip.Exporter, clipPath string, maxSeconds float64) *ClipHandler {
	return &ClipHandler{
		database:   database,
		queue:      queue,
		exporter:   exporter,
		clipPath:   clipPath,
		maxSeconds: maxSeconds,
	}
}

type clipRequest struct {
	VideoID string  `json:"video_id"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Caption string  `json:"caption"`
}

// Create validates a clip request against the video's duration and enqueues
// the export job.
func (h *ClipHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req clipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	video, err := h.database.GetVideo(req.VideoID)
	if err != nil {
		jsonError(w, "video not found", http.StatusNotFound)
		return
	}

	if err := ffmpeg.ValidateClipRange(req.Start, req.End, video.Duration); err != nil {
		switch {
		case errors.Is(err, ffmpeg.ErrInvalidRange), errors.Is(err, ffmpeg.ErrOutOfRange):
			jsonError(w, err.Error(), http.StatusBadRequest)
		default:
			jsonError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	if h.maxSeconds > 0 && req.End-req.Start > h.maxSeconds {
		jsonError(w, "clip too long", http.StatusBadRequest)
		return
	}

	// Already rendered: answer directly, no job needed.
	outPath := h.exporter.OutputPath(req.VideoID, req.Start, req.Caption)
	if _, err := os.Stat(outPath); err == nil {
		jsonResponse(w, map[string]string{
			"output_path": storage.GIFName(req.VideoID, req.Start, req.Caption),
		}, http.StatusOK)
		return
	}

	j, err := h.queue.Enqueue(job.JobClip, req.VideoID, job.ClipParams{
		URL:     video.URL,
		Start:   req.Start,
		End:     req.End,
		Caption: req.Caption,
	})
	if err != nil {
		jsonError(w, "enqueue failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	jsonResponse(w, j, http.StatusAccepted)
}

// List returns all rendered GIFs, newest first
func (h *ClipHandler) List(w http.ResponseWriter, r *http.Request) {
	clips, err := storage.ListClips(h.clipPath)
	if err != nil {
		jsonError(w, "failed to list clips", http.StatusInternalServerError)
		return
	}
	if clips == nil {
		clips = []*storage.ClipEntry{}
	}
	jsonResponse(w, clips, http.StatusOK)
}

// Serve streams one rendered GIF
func (h *ClipHandler) Serve(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	path, err := storage.SafeJoin(h.clipPath, name)
	if err != nil {
		jsonError(w, "invalid path", http.StatusForbidden)
		return
	}
	if _, err := os.Stat(path); err != nil {
		jsonError(w, "clip not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "max-age=86400")
	http.ServeFile(w, r, path)
}
