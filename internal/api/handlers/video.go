package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gif-subs/backend/internal/db"
	"github.com/gif-subs/backend/internal/db/models"
	"github.com/gif-subs/backend/internal/job"
	"github.com/gif-subs/backend/internal/ytdlp"
)

type VideoHandler struct {
	database    *db.Database
	runner      *ytdlp.Runner
	queue       *job.JobQueue
	defaultLang string
}

func NewVideoHandler(database *db.Database, runner *ytdlp.Runner, queue *job.JobQueue, defaultLang string) *VideoHandler {
	return &VideoHandler{
		database:    database,
		runner:      runner,
		queue:       queue,
		defaultLang: defaultLang,
	}
}

type scanRequest struct {
	URL      string `json:"url"`
	Language string `json:"language"`
	Engine   string `json:"engine"`
	Prompt   string `json:"prompt"`
}

type scanEntry struct {
	VideoID string `json:"video_id"`
	Title   string `json:"title"`
	JobID   string `json:"job_id"`
}

// Scan resolves a video or playlist URL and enqueues one acquisition job per
// entry. Entries whose subtitles already exist complete quickly as cache hits
// inside the job.
func (h *VideoHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.URL == "" {
		jsonError(w, "url required", http.StatusBadRequest)
		return
	}
	// Omitted fields fall back to stored settings, then config defaults.
	lang := req.Language
	if lang == "" {
		lang = h.database.GetSetting("whisper_language", h.defaultLang)
	}
	engine := req.Engine
	if engine == "" {
		engine = h.database.GetSetting("whisper_engine", "")
	}
	prompt := req.Prompt
	if prompt == "" {
		prompt = h.database.GetSetting("transcribe_prompt", "")
	}

	result, err := h.runner.Scan(r.Context(), req.URL)
	if err != nil {
		jsonError(w, "scan failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	entries := make([]scanEntry, 0, len(result.Entries))
	for _, e := range result.Entries {
		entry := scanEntry{VideoID: e.ID, Title: e.Title}

		j, err := h.queue.Enqueue(job.JobAcquire, e.ID, job.AcquireParams{
			URL:      e.URL,
			Title:    e.Title,
			Language: lang,
			Engine:   engine,
			Prompt:   prompt,
			Duration: e.Duration,
		})
		if err != nil {
			jsonError(w, "enqueue failed: "+err.Error(), http.StatusInternalServerError)
			return
		}
		entry.JobID = j.ID
		entries = append(entries, entry)
	}

	jsonResponse(w, map[string]interface{}{
		"playlist": result.Playlist,
		"title":    result.Title,
		"entries":  entries,
	}, http.StatusAccepted)
}

// List returns all acquired videos
func (h *VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	videos, err := h.database.ListVideos()
	if err != nil {
		jsonError(w, "failed to list videos", http.StatusInternalServerError)
		return
	}
	if videos == nil {
		videos = []*models.Video{}
	}
	jsonResponse(w, videos, http.StatusOK)
}

// Get returns one acquired video
func (h *VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	video, err := h.database.GetVideo(id)
	if err != nil {
		jsonError(w, "video not found", http.StatusNotFound)
		return
	}
	jsonResponse(w, video, http.StatusOK)
}
