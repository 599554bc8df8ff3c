package subtitle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/gif-subs/backend/internal/subtitle/whisper"
)

var (
	// ErrNoSubtitles means neither a fetched track nor a transcription
	// produced any usable cues for the video.
	ErrNoSubtitles = errors.New("no subtitles available")
	// ErrEmptyTranscript means the transcription engine ran but returned
	// no cues.
	ErrEmptyTranscript = errors.New("transcription produced no output")
	// ErrUnknownEngine means the requested transcription engine is not
	// registered.
	ErrUnknownEngine = errors.New("unknown whisper engine")
)

// Fetcher abstracts the downloader side of acquisition. *ytdlp.Runner
// implements it; tests substitute fakes.
type Fetcher interface {
	DownloadSubtitles(ctx context.Context, url, videoID, lang, outDir string) (string, error)
	DownloadAudio(ctx context.Context, url, videoID, outDir string) (string, error)
}

// AcquireRequest describes one subtitle acquisition.
type AcquireRequest struct {
	VideoID  string
	URL      string
	Language string
	Engine   string // transcription engine for the fallback; empty uses the default
	Prompt   string // optional initial prompt for the transcriber
}

// AcquireResult is the outcome of a successful acquisition.
type AcquireResult struct {
	Cues    []Cue
	VTTPath string
	Source  string // "cached", "fetched" or "transcribed"
}

// Acquirer obtains subtitle cues for a video: cached VTT first, then a
// fetched track, then transcription of the extracted audio.
type Acquirer struct {
	fetcher       Fetcher
	engines       map[string]whisper.Transcriber
	defaultEngine string
	subPath       string
	tmpPath       string
}

// NewAcquirer creates an Acquirer writing VTT files under subPath and
// temporary audio under tmpPath.
func NewAcquirer(fetcher Fetcher, subPath, tmpPath string) *Acquirer {
	return &Acquirer{
		fetcher: fetcher,
		engines: make(map[string]whisper.Transcriber),
		subPath: subPath,
		tmpPath: tmpPath,
	}
}

// RegisterEngine adds a transcription engine. The first registered engine
// becomes the default.
func (a *Acquirer) RegisterEngine(engine whisper.Transcriber) {
	name := engine.Name()
	a.engines[name] = engine
	if a.defaultEngine == "" {
		a.defaultEngine = name
	}
	log.Printf("[acquire] registered %s engine", name)
}

// Engines returns the names of all registered transcription engines.
func (a *Acquirer) Engines() []string {
	names := make([]string, 0, len(a.engines))
	for name := range a.engines {
		names = append(names, name)
	}
	return names
}

// VTTPath returns where the subtitle track for a video/language pair lives.
func (a *Acquirer) VTTPath(videoID, lang string) string {
	return filepath.Join(a.subPath, fmt.Sprintf("%s.%s.vtt", videoID, lang))
}

// Acquire returns the subtitle cues for a video. Re-acquiring an already
// processed video is a cheap cache hit; nothing is downloaded twice.
func (a *Acquirer) Acquire(ctx context.Context, req AcquireRequest, updateProgress func(float64)) (*AcquireResult, error) {
	if updateProgress == nil {
		updateProgress = func(float64) {}
	}

	// 1. Cached VTT from a previous run. Glob because yt-dlp may have
	// written a regional variant suffix (en-US instead of en).
	if path := a.FindVTT(req.VideoID); path != "" {
		cues, err := a.readCues(path)
		if err != nil {
			return nil, err
		}
		updateProgress(1.0)
		return &AcquireResult{Cues: cues, VTTPath: path, Source: "cached"}, nil
	}

	// 2. Fetch an existing track from the source. A failed download is not
	// fatal; transcription below can still produce the track.
	updateProgress(0.05)
	path, err := a.fetcher.DownloadSubtitles(ctx, req.URL, req.VideoID, req.Language, a.subPath)
	if err != nil {
		log.Printf("[acquire] subtitle download failed for %s, trying transcription: %v", req.VideoID, err)
		path = ""
	}
	if path != "" {
		cues, err := a.readCues(path)
		if err == nil && len(cues) > 0 {
			log.Printf("[acquire] found existing subtitles for %s", req.VideoID)
			updateProgress(1.0)
			return &AcquireResult{Cues: cues, VTTPath: path, Source: "fetched"}, nil
		}
		// An empty or unreadable track is as good as none; fall through
		// to transcription.
		os.Remove(path)
	}

	// 3. Transcribe the audio.
	log.Printf("[acquire] no subtitles for %s, falling back to transcription", req.VideoID)
	return a.transcribe(ctx, req, updateProgress)
}

func (a *Acquirer) transcribe(ctx context.Context, req AcquireRequest, updateProgress func(float64)) (*AcquireResult, error) {
	engineName := req.Engine
	if engineName == "" {
		engineName = a.defaultEngine
	}
	engine, ok := a.engines[engineName]
	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %v)", ErrUnknownEngine, engineName, a.Engines())
	}

	updateProgress(0.1)
	audioPath, err := a.fetcher.DownloadAudio(ctx, req.URL, req.VideoID, a.tmpPath)
	if err != nil {
		return nil, fmt.Errorf("download audio: %w", err)
	}
	defer os.Remove(audioPath)

	updateProgress(0.2)
	log.Printf("[acquire] transcribing %s with %s (language=%s)", req.VideoID, engineName, req.Language)

	result, err := engine.Transcribe(ctx, whisper.TranscribeRequest{
		AudioPath: audioPath,
		Language:  req.Language,
		Prompt:    req.Prompt,
	}, func(p float64) {
		// Transcription covers the 20%..95% band of the overall job.
		updateProgress(0.2 + 0.75*p)
	})
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}

	cues := ParseVTT(result.VTT)
	if len(cues) == 0 {
		return nil, ErrEmptyTranscript
	}

	if err := os.MkdirAll(a.subPath, 0755); err != nil {
		return nil, err
	}
	outPath := a.VTTPath(req.VideoID, req.Language)
	if err := os.WriteFile(outPath, []byte(CuesToVTT(cues)), 0644); err != nil {
		return nil, fmt.Errorf("save subtitle: %w", err)
	}

	log.Printf("[acquire] transcription complete: %s (%d cues)", outPath, len(cues))
	updateProgress(1.0)

	return &AcquireResult{Cues: cues, VTTPath: outPath, Source: "transcribed"}, nil
}

// FindVTT returns the stored subtitle path for a video in any language, or
// "" when none exists.
func (a *Acquirer) FindVTT(videoID string) string {
	matches, err := filepath.Glob(filepath.Join(a.subPath, videoID+".*.vtt"))
	if err != nil || len(matches) == 0 {
		return ""
	}
	return matches[0]
}

func (a *Acquirer) readCues(path string) ([]Cue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read subtitle: %w", err)
	}
	cues := ParseVTT(string(data))
	if len(cues) == 0 {
		return nil, ErrNoSubtitles
	}
	return cues, nil
}
