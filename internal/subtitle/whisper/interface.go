package whisper

import "context"

// TranscribeRequest is the input for a transcription
type TranscribeRequest struct {
	AudioPath string // absolute path to the downloaded audio file
	Language  string // "auto", "el", "en", etc.
	Prompt    string // optional initial prompt steering the decoder toward the target language
}

// TranscribeResult is the output of a transcription
type TranscribeResult struct {
	VTT      string // WebVTT content
	Language string // detected language
}

// Transcriber is the common interface for all whisper engines
type Transcriber interface {
	// Transcribe converts audio to subtitles
	Transcribe(ctx context.Context, req TranscribeRequest, updateProgress func(float64)) (*TranscribeResult, error)
	// Name returns the engine name
	Name() string
}
