package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/gif-subs/backend/internal/api/handlers"
	"github.com/gif-subs/backend/internal/api/middleware"
	"github.com/gif-subs/backend/internal/auth"
	"github.com/gif-subs/backend/internal/clip"
	"github.com/gif-subs/backend/internal/config"
	"github.com/gif-subs/backend/internal/db"
	"github.com/gif-subs/backend/internal/job"
	"github.com/gif-subs/backend/internal/search"
	"github.com/gif-subs/backend/internal/subtitle"
	"github.com/gif-subs/backend/internal/ytdlp"
)

func NewRouter(
	database *db.Database,
	jwtService *auth.JWTService,
	cfg *config.Config,
	jobQueue *job.JobQueue,
	runner *ytdlp.Runner,
	acquirer *subtitle.Acquirer,
	index *search.Index,
	embedder search.Embedder,
	exporter *clip.Exporter,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(middleware.CORSHandler(cfg.CORSOrigins)))
	r.Use(middleware.MaxBodySize(1 << 20)) // JSON API only, 1MB is plenty

	loginLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Handlers
	authHandler := handlers.NewAuthHandler(database, jwtService)
	videoHandler := handlers.NewVideoHandler(database, runner, jobQueue, cfg.DefaultLang)
	subtitleHandler := handlers.NewSubtitleHandler(acquirer)
	searchHandler := handlers.NewSearchHandler(index, database, cfg.TopK)
	clipHandler := handlers.NewClipHandler(database, jobQueue, exporter, cfg.ClipPath, cfg.ClipMaxSeconds)
	jobHandler := handlers.NewJobHandler(jobQueue)
	enginesHandler := handlers.NewEnginesHandler(acquirer, embedder)
	settingsHandler := handlers.NewSettingsHandler(database, index)

	r.Route("/api", func(r chi.Router) {
		// Public
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("ok"))
		})
		r.With(loginLimiter.Handler).Post("/auth/login", authHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(jwtService))

			// Auth
			r.Get("/auth/me", authHandler.Me)

			// Videos
			r.Post("/videos/scan", videoHandler.Scan)
			r.Get("/videos", videoHandler.List)
			r.Get("/videos/{id}", videoHandler.Get)
			r.Get("/videos/{id}/subtitles", subtitleHandler.Serve)

			// Search
			r.Get("/search", searchHandler.Search)

			// Clips
			r.Post("/clips", clipHandler.Create)
			r.Get("/clips", clipHandler.List)
			r.Get("/clips/{name}", clipHandler.Serve)

			// Jobs
			r.Get("/jobs", jobHandler.ListJobs)
			r.Get("/jobs/{id}", jobHandler.GetJob)
			r.Delete("/jobs/{id}", jobHandler.CancelJob)
			r.Post("/jobs/{id}/retry", jobHandler.RetryJob)

			// Engines
			r.Get("/engines", enginesHandler.List)

			// Admin only
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole("admin"))
				r.Get("/settings", settingsHandler.GetSettings)
				r.Put("/settings", settingsHandler.UpdateSettings)
				r.Get("/ratelimit", func(w http.ResponseWriter, _ *http.Request) {
					w.Header().Set("Content-Type", "application/json")
					json.NewEncoder(w).Encode(loginLimiter.Status())
				})
				r.Delete("/ratelimit", func(w http.ResponseWriter, _ *http.Request) {
					loginLimiter.Clear()
					w.WriteHeader(http.StatusNoContent)
				})
			})
		})
	})

	return r
}
