package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gif-subs/backend/internal/api"
	"github.com/gif-subs/backend/internal/auth"
	"github.com/gif-subs/backend/internal/clip"
	"github.com/gif-subs/backend/internal/config"
	"github.com/gif-subs/backend/internal/db"
	"github.com/gif-subs/backend/internal/job"
	"github.com/gif-subs/backend/internal/search"
	"github.com/gif-subs/backend/internal/storage"
	"github.com/gif-subs/backend/internal/subtitle"
	"github.com/gif-subs/backend/internal/subtitle/whisper"
	"github.com/gif-subs/backend/internal/ytdlp"
)

func main() {
	cfg := config.Load()

	// Ensure artifact directories exist
	for _, dir := range []string{cfg.DataPath, cfg.SubtitlePath, cfg.ClipPath, cfg.TmpPath} {
		os.MkdirAll(dir, 0755)
	}
	storage.CleanTemp(cfg.TmpPath, "clip_")

	// Initialize database
	database, err := db.NewSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// Ensure admin user exists
	if err := database.EnsureAdmin(cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Fatalf("Failed to create admin user: %v", err)
	}
	log.Printf("Admin user ensured: %s", cfg.AdminUsername)

	// Downloader
	runner := ytdlp.NewRunner(cfg.YtdlpPath, cfg.CookiesBrowser)

	// Subtitle acquisition with registered whisper engines
	acquirer := subtitle.NewAcquirer(runner, cfg.SubtitlePath, cfg.TmpPath)
	if cfg.FasterWhisperURL != "" {
		acquirer.RegisterEngine(whisper.NewFasterWhisperClient(cfg.FasterWhisperURL, cfg.WhisperModel))
	}
	if cfg.WhisperURL != "" {
		acquirer.RegisterEngine(whisper.NewWhisperCppClient(cfg.WhisperURL))
	}
	// The stored setting wins over the env key, and is re-read on every
	// transcription so admin updates apply without a restart.
	resolveOpenAIKey := func() string {
		if key := database.GetSetting("openai_api_key", ""); key != "" {
			return key
		}
		return cfg.OpenAIKey
	}
	if resolveOpenAIKey() != "" {
		acquirer.RegisterEngine(whisper.NewOpenAIWhisperClient(resolveOpenAIKey))
	}
	if len(acquirer.Engines()) == 0 {
		log.Println("WARNING: no whisper engine configured, videos without subtitles cannot be transcribed")
	}

	// Search index over acquired subtitles
	embedder := search.NewLlamaEmbedder(cfg.EmbeddingURL, cfg.EmbeddingModel)
	index := search.NewIndex(embedder, cfg.MinScore)
	if v := database.GetSetting("min_score", ""); v != "" {
		if score, err := strconv.ParseFloat(v, 64); err == nil {
			index.SetMinScore(score)
		}
	}
	go func() {
		if err := index.Rebuild(context.Background(), cfg.SubtitlePath); err != nil {
			log.Printf("Index rebuild failed: %v", err)
		}
	}()

	// Clip export
	exporter := clip.NewExporter(runner, cfg.ClipPath, cfg.TmpPath, cfg.FontFile)

	// Job queue with handlers
	jobQueue := job.NewJobQueue(database.SQL())
	defer jobQueue.Stop()
	acquireService := subtitle.NewService(acquirer, database, index)
	jobQueue.RegisterHandler(job.JobAcquire, acquireService.HandleJob)
	jobQueue.RegisterHandler(job.JobClip, exporter.HandleJob)

	// Initialize JWT service
	jwtService := auth.NewJWTService(cfg.JWTSecret)

	// Create router
	router := api.NewRouter(database, jwtService, cfg, jobQueue, runner, acquirer, index, embedder, exporter)

	// Start server
	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("Starting server on %s", addr)
	log.Printf("Subtitle path: %s", cfg.SubtitlePath)
	log.Printf("Clip path: %s", cfg.ClipPath)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down...")
		jobQueue.Stop()
		database.Close()
		os.Exit(0)
	}()

	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
