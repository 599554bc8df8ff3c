package subtitle

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/gif-subs/backend/internal/db/models"
	"github.com/gif-subs/backend/internal/job"
)

// VideoStore persists acquired videos. *db.Database implements it.
type VideoStore interface {
	UpsertVideo(v *models.Video) error
}

// Indexer receives cues of acquired videos. *search.Index implements it.
type Indexer interface {
	AddVideo(ctx context.Context, videoID string, cues []Cue) error
}

// Service runs acquisition jobs: acquire cues, record the video, index the
// cues for search.
type Service struct {
	acquirer *Acquirer
	store    VideoStore
	index    Indexer
}

func NewService(acquirer *Acquirer, store VideoStore, index Indexer) *Service {
	return &Service{acquirer: acquirer, store: store, index: index}
}

// HandleJob processes an acquisition job
func (s *Service) HandleJob(ctx context.Context, j *job.Job, updateProgress func(float64)) error {
	var params job.AcquireParams
	if err := json.Unmarshal(j.Params, &params); err != nil {
		return fmt.Errorf("unmarshal params: %w", err)
	}

	log.Printf("[acquire] starting acquisition: video=%s language=%s engine=%s",
		j.VideoID, params.Language, params.Engine)

	result, err := s.acquirer.Acquire(ctx, AcquireRequest{
		VideoID:  j.VideoID,
		URL:      params.URL,
		Language: params.Language,
		Engine:   params.Engine,
		Prompt:   params.Prompt,
	}, updateProgress)
	if err != nil {
		return err
	}

	// Record the video so the UI can list it. Cached hits keep the source
	// they were originally acquired with.
	source := result.Source
	if source == "cached" {
		source = "fetched"
	}
	// Prefer the duration the scan reported; the last cue end is only a
	// lower bound.
	duration := params.Duration
	if n := len(result.Cues); duration == 0 && n > 0 {
		duration = result.Cues[n-1].End
	}
	if err := s.store.UpsertVideo(&models.Video{
		ID:             j.VideoID,
		URL:            params.URL,
		Title:          params.Title,
		Language:       params.Language,
		Duration:       duration,
		SubtitleSource: source,
		CueCount:       len(result.Cues),
	}); err != nil {
		return fmt.Errorf("record video: %w", err)
	}

	if err := s.index.AddVideo(ctx, j.VideoID, result.Cues); err != nil {
		return fmt.Errorf("index cues: %w", err)
	}

	resultJSON, _ := json.Marshal(job.AcquireResult{
		VTTPath:  result.VTTPath,
		Source:   result.Source,
		CueCount: len(result.Cues),
		Language: params.Language,
	})
	j.Result = resultJSON

	updateProgress(1.0)
	return nil
}
