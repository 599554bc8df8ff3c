package subtitle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gif-subs/backend/internal/subtitle/whisper"
)

// fakeFetcher simulates the downloader. subsVTT empty means the video has no
// existing subtitle track.
type fakeFetcher struct {
	subsVTT    string
	subsErr    error
	subsCalls  int
	audioCalls int
	audioErr   error
}

func (f *fakeFetcher) DownloadSubtitles(ctx context.Context, url, videoID, lang, outDir string) (string, error) {
	f.subsCalls++
	if f.subsErr != nil {
		return "", f.subsErr
	}
	if f.subsVTT == "" {
		return "", nil
	}
	path := filepath.Join(outDir, videoID+"."+lang+".vtt")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(f.subsVTT), 0644); err != nil {
		return "", err
	}
	return path, nil
}

func (f *fakeFetcher) DownloadAudio(ctx context.Context, url, videoID, outDir string) (string, error) {
	f.audioCalls++
	if f.audioErr != nil {
		return "", f.audioErr
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(outDir, videoID+".mp3")
	if err := os.WriteFile(path, []byte("audio"), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// fakeTranscriber returns canned VTT.
type fakeTranscriber struct {
	vtt   string
	calls int
}

func (f *fakeTranscriber) Name() string { return "fake" }

func (f *fakeTranscriber) Transcribe(ctx context.Context, req whisper.TranscribeRequest, updateProgress func(float64)) (*whisper.TranscribeResult, error) {
	f.calls++
	return &whisper.TranscribeResult{VTT: f.vtt, Language: req.Language}, nil
}

const sampleVTT = "WEBVTT\n\n1\n00:00:10.000 --> 00:00:12.000\nHello world\n"

func newTestAcquirer(t *testing.T, fetcher Fetcher, engine whisper.Transcriber) *Acquirer {
	t.Helper()
	dir := t.TempDir()
	a := NewAcquirer(fetcher, filepath.Join(dir, "subs"), filepath.Join(dir, "tmp"))
	if engine != nil {
		a.RegisterEngine(engine)
	}
	return a
}

func TestAcquireFetchesExistingTrack(t *testing.T) {
	fetcher := &fakeFetcher{subsVTT: sampleVTT}
	engine := &fakeTranscriber{vtt: sampleVTT}
	a := newTestAcquirer(t, fetcher, engine)

	result, err := a.Acquire(context.Background(), AcquireRequest{
		VideoID: "abc123", URL: "https://example.com/v/abc123", Language: "en",
	}, nil)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	if result.Source != "fetched" {
		t.Errorf("source = %q, want fetched", result.Source)
	}
	if len(result.Cues) != 1 || result.Cues[0].Text != "Hello world" {
		t.Errorf("unexpected cues: %+v", result.Cues)
	}
	if engine.calls != 0 {
		t.Errorf("transcriber called %d times for a video with subtitles", engine.calls)
	}
}

func TestAcquireFallsBackToTranscription(t *testing.T) {
	fetcher := &fakeFetcher{} // no existing track
	engine := &fakeTranscriber{vtt: sampleVTT}
	a := newTestAcquirer(t, fetcher, engine)

	result, err := a.Acquire(context.Background(), AcquireRequest{
		VideoID: "abc123", URL: "https://example.com/v/abc123", Language: "en",
	}, nil)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	if result.Source != "transcribed" {
		t.Errorf("source = %q, want transcribed", result.Source)
	}
	if len(result.Cues) == 0 {
		t.Fatal("expected non-empty cues from transcription")
	}
	if engine.calls != 1 {
		t.Errorf("transcriber calls = %d, want 1", engine.calls)
	}
	if _, err := os.Stat(result.VTTPath); err != nil {
		t.Errorf("transcribed VTT not written: %v", err)
	}
}

func TestAcquireSubtitleDownloadFailureFallsBack(t *testing.T) {
	fetcher := &fakeFetcher{subsErr: errors.New("HTTP 429")}
	engine := &fakeTranscriber{vtt: sampleVTT}
	a := newTestAcquirer(t, fetcher, engine)

	result, err := a.Acquire(context.Background(), AcquireRequest{
		VideoID: "abc123", URL: "https://example.com/v/abc123", Language: "en",
	}, nil)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if result.Source != "transcribed" {
		t.Errorf("source = %q, want transcribed", result.Source)
	}
	if engine.calls != 1 {
		t.Errorf("transcriber calls = %d, want 1", engine.calls)
	}
}

func TestAcquireIsIdempotent(t *testing.T) {
	fetcher := &fakeFetcher{}
	engine := &fakeTranscriber{vtt: sampleVTT}
	a := newTestAcquirer(t, fetcher, engine)

	req := AcquireRequest{VideoID: "abc123", URL: "https://example.com/v/abc123", Language: "en"}

	first, err := a.Acquire(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	second, err := a.Acquire(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("second Acquire: %v", err)
	}

	if second.Source != "cached" {
		t.Errorf("second source = %q, want cached", second.Source)
	}
	if engine.calls != 1 {
		t.Errorf("transcriber calls = %d, want 1 (second acquire must hit cache)", engine.calls)
	}
	if len(first.Cues) != len(second.Cues) {
		t.Fatalf("cue counts differ: %d vs %d", len(first.Cues), len(second.Cues))
	}
	for i := range first.Cues {
		if first.Cues[i].Text != second.Cues[i].Text {
			t.Errorf("cue %d text differs: %q vs %q", i, first.Cues[i].Text, second.Cues[i].Text)
		}
	}
}

func TestAcquireEmptyTranscript(t *testing.T) {
	fetcher := &fakeFetcher{}
	engine := &fakeTranscriber{vtt: "WEBVTT\n\n"}
	a := newTestAcquirer(t, fetcher, engine)

	_, err := a.Acquire(context.Background(), AcquireRequest{
		VideoID: "abc123", URL: "https://example.com/v/abc123", Language: "en",
	}, nil)
	if !errors.Is(err, ErrEmptyTranscript) {
		t.Errorf("err = %v, want ErrEmptyTranscript", err)
	}
}

func TestAcquireAudioFailure(t *testing.T) {
	fetcher := &fakeFetcher{audioErr: errors.New("network down")}
	engine := &fakeTranscriber{vtt: sampleVTT}
	a := newTestAcquirer(t, fetcher, engine)

	_, err := a.Acquire(context.Background(), AcquireRequest{
		VideoID: "abc123", URL: "https://example.com/v/abc123", Language: "en",
	}, nil)
	if err == nil {
		t.Fatal("expected error when audio download fails")
	}
}

func TestAcquireUnknownEngine(t *testing.T) {
	fetcher := &fakeFetcher{}
	a := newTestAcquirer(t, fetcher, &fakeTranscriber{vtt: sampleVTT})

	_, err := a.Acquire(context.Background(), AcquireRequest{
		VideoID: "abc123", URL: "https://example.com/v/abc123", Language: "en", Engine: "nope",
	}, nil)
	if !errors.Is(err, ErrUnknownEngine) {
		t.Errorf("err = %v, want ErrUnknownEngine", err)
	}
}
