package job

import (
	"context"
	"encoding/json"
	"time"
)

// JobType represents the kind of job
type JobType string

const (
	JobAcquire JobType = "acquire" // fetch or transcribe subtitles
	JobClip    JobType = "clip"    // render a captioned GIF clip
)

// JobStatus represents the current state of a job
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Job represents a queued task (subtitle acquisition or clip export)
type Job struct {
	ID          string          `json:"id"`
	Type        JobType         `json:"type"`
	Status      JobStatus       `json:"status"`
	VideoID     string          `json:"video_id"`
	Params      json.RawMessage `json:"params"`
	Progress    float64         `json:"progress"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// AcquireParams are parameters for a subtitle acquisition job
type AcquireParams struct {
	URL      string  `json:"url"`      // source video URL
	Title    string  `json:"title"`    // display title from the scan
	Language string  `json:"language"` // target subtitle language, e.g. "el"
	Engine   string  `json:"engine"`   // "whisper.cpp", "faster-whisper", "openai"; empty uses default
	Prompt   string  `json:"prompt"`   // optional initial prompt for the transcriber
	Duration float64 `json:"duration"` // video duration from the scan, seconds
}

// ClipParams are parameters for a GIF clip job
type ClipParams struct {
	URL     string  `json:"url"`     // source video URL
	Start   float64 `json:"start"`   // clip start, seconds
	End     float64 `json:"end"`     // clip end, seconds
	Caption string  `json:"caption"` // text burned into the GIF
}

// AcquireResult is the output of a successful acquisition
type AcquireResult struct {
	VTTPath  string `json:"vtt_path"` // path of the stored VTT
	Source   string `json:"source"`   // "cached", "fetched" or "transcribed"
	CueCount int    `json:"cue_count"`
	Language string `json:"language"`
}

// ClipResult is the output of a successful clip export
type ClipResult struct {
	OutputPath string `json:"output_path"` // GIF filename under the clip directory
}

// JobHandler processes a job. Implementations are provided by the acquisition
// and clip packages.
type JobHandler func(ctx context.Context, job *Job, updateProgress func(float64)) error
