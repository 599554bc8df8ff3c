package models

import "time"

// Video is one acquired video: its identity at the source plus the subtitle
// track we hold for it.
type Video struct {
	ID             string    `json:"id"`
	URL            string    `json:"url"`
	Title          string    `json:"title"`
	Language       string    `json:"language"`
	Duration       float64   `json:"duration"`
	SubtitleSource string    `json:"subtitle_source"` // "fetched" or "transcribed"
	CueCount       int       `json:"cue_count"`
	CreatedAt      time.Time `json:"created_at"`
}
