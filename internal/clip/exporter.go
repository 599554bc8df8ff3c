package clip

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/gif-subs/backend/internal/ffmpeg"
	"github.com/gif-subs/backend/internal/job"
	"github.com/gif-subs/backend/internal/storage"
)

// Downloader fetches the video range feeding a GIF. *ytdlp.Runner implements
// it; tests substitute fakes.
type Downloader interface {
	DownloadClip(ctx context.Context, url, videoID string, start, end float64, outDir string) (string, error)
}

// Renderer burns the caption and encodes the GIF. ffmpeg.RenderGIF wrapped in
// a func implements it.
type Renderer func(ctx context.Context, videoPath, outputPath string, opts ffmpeg.GIFOptions) error

// Exporter runs clip jobs: download the requested range, render a captioned
// looping GIF, keep it under clipPath.
type Exporter struct {
	downloader Downloader
	render     Renderer
	clipPath   string
	tmpPath    string
	fontFile   string
}

func NewExporter(downloader Downloader, clipPath, tmpPath, fontFile string) *Exporter {
	return &Exporter{
		downloader: downloader,
		render:     ffmpeg.RenderGIF,
		clipPath:   clipPath,
		tmpPath:    tmpPath,
		fontFile:   fontFile,
	}
}

// SetRenderer replaces the GIF renderer (used by tests).
func (e *Exporter) SetRenderer(r Renderer) {
	e.render = r
}

// OutputPath returns the GIF path for a clip request without rendering it.
func (e *Exporter) OutputPath(videoID string, start float64, caption string) string {
	return filepath.Join(e.clipPath, storage.GIFName(videoID, start, caption))
}

// HandleJob processes a clip export job
func (e *Exporter) HandleJob(ctx context.Context, j *job.Job, updateProgress func(float64)) error {
	var params job.ClipParams
	if err := json.Unmarshal(j.Params, &params); err != nil {
		return fmt.Errorf("unmarshal params: %w", err)
	}

	// Range validity was checked against the video duration at enqueue
	// time; recheck the cheap invariant in case the row was hand-edited.
	if err := ffmpeg.ValidateClipRange(params.Start, params.End, 0); err != nil {
		return err
	}

	outPath := e.OutputPath(j.VideoID, params.Start, params.Caption)
	name := filepath.Base(outPath)

	// Same clip already rendered: done.
	if _, err := os.Stat(outPath); err == nil {
		log.Printf("[clip] reusing existing GIF %s", name)
		j.Result, _ = json.Marshal(job.ClipResult{OutputPath: name})
		updateProgress(1.0)
		return nil
	}

	if err := os.MkdirAll(e.clipPath, 0755); err != nil {
		return err
	}

	log.Printf("[clip] exporting %s [%.2f,%.2f]", j.VideoID, params.Start, params.End)

	updateProgress(0.1)
	videoPath, err := e.downloader.DownloadClip(ctx, params.URL, j.VideoID, params.Start, params.End, e.tmpPath)
	if err != nil {
		return fmt.Errorf("download clip: %w", err)
	}
	defer os.Remove(videoPath)

	if info, err := ffmpeg.Probe(videoPath); err == nil {
		log.Printf("[clip] downloaded range: %.1fs %s %dx%d",
			info.DurationSeconds(), info.VideoCodec, info.Width, info.Height)
	}

	updateProgress(0.6)
	if err := e.render(ctx, videoPath, outPath, ffmpeg.GIFOptions{
		Caption:  params.Caption,
		FontFile: e.fontFile,
	}); err != nil {
		return fmt.Errorf("render gif: %w", err)
	}

	log.Printf("[clip] export complete: %s", name)
	j.Result, _ = json.Marshal(job.ClipResult{OutputPath: name})
	updateProgress(1.0)
	return nil
}
