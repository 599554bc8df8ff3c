package ytdlp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Runner invokes the yt-dlp binary. All downloads go through here so cookie
// handling and binary location stay in one place.
type Runner struct {
	binary         string
	cookiesBrowser string // e.g. "firefox"; empty disables cookie passing
}

// NewRunner creates a Runner. binary defaults to "yt-dlp" when empty.
func NewRunner(binary, cookiesBrowser string) *Runner {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &Runner{binary: binary, cookiesBrowser: cookiesBrowser}
}

// Entry is one video discovered by Scan.
type Entry struct {
	ID       string  `json:"id"`
	URL      string  `json:"url"`
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
}

// ScanResult is the outcome of scanning a URL: a single video or an expanded
// playlist.
type ScanResult struct {
	Playlist bool    `json:"playlist"`
	Title    string  `json:"title"`
	Entries  []Entry `json:"entries"`
}

// rawInfo mirrors the subset of yt-dlp -J output we need.
type rawInfo struct {
	Type        string    `json:"_type"`
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Duration    float64   `json:"duration"`
	URL         string    `json:"url"`
	OriginalURL string    `json:"original_url"`
	WebpageURL  string    `json:"webpage_url"`
	Entries     []rawInfo `json:"entries"`
}

func (r *Runner) baseArgs() []string {
	args := []string{"--quiet", "--no-warnings", "--ignore-errors"}
	if r.cookiesBrowser != "" {
		args = append(args, "--cookies-from-browser", r.cookiesBrowser)
	}
	return args
}

// Scan resolves a URL to its video entries without downloading anything.
// Playlists are expanded flat; unavailable entries are skipped.
func (r *Runner) Scan(ctx context.Context, url string) (*ScanResult, error) {
	args := append(r.baseArgs(), "--dump-single-json", "--flat-playlist", url)

	cmd := exec.CommandContext(ctx, r.binary, args...)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("yt-dlp scan: %w", err)
	}

	var info rawInfo
	if err := json.Unmarshal(output, &info); err != nil {
		return nil, fmt.Errorf("yt-dlp scan: parse output: %w", err)
	}
	if info.ID == "" && len(info.Entries) == 0 {
		return nil, fmt.Errorf("yt-dlp scan: no video information for %s", url)
	}

	result := &ScanResult{Title: info.Title}
	if info.Type == "playlist" || len(info.Entries) > 0 {
		result.Playlist = true
		for _, e := range info.Entries {
			if e.ID == "" {
				continue
			}
			result.Entries = append(result.Entries, entryFromInfo(e))
		}
		log.Printf("[ytdlp] playlist %q resolved to %d entries", info.Title, len(result.Entries))
	} else {
		result.Entries = []Entry{entryFromInfo(info)}
	}

	return result, nil
}

func entryFromInfo(info rawInfo) Entry {
	url := info.URL
	if url == "" {
		url = info.OriginalURL
	}
	if url == "" {
		url = info.WebpageURL
	}
	return Entry{ID: info.ID, URL: url, Title: info.Title, Duration: info.Duration}
}

// DownloadSubtitles fetches an existing subtitle track (manual or
// auto-generated) in the given language. Returns the path of the written VTT,
// or "" when the video has no track in that language.
func (r *Runner) DownloadSubtitles(ctx context.Context, url, videoID, lang, outDir string) (string, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", err
	}

	args := append(r.baseArgs(),
		"--skip-download",
		"--write-subs",
		"--write-auto-subs",
		"--sub-langs", lang,
		"--sub-format", "vtt",
		"-o", filepath.Join(outDir, videoID),
		url,
	)

	cmd := exec.CommandContext(ctx, r.binary, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("yt-dlp subtitles: %s: %w", strings.TrimSpace(string(output)), err)
	}

	// yt-dlp names the file <id>.<lang>.vtt; the lang suffix can vary
	// (e.g. en vs en-US), so glob instead of guessing.
	matches, err := filepath.Glob(filepath.Join(outDir, videoID+"*.vtt"))
	if err != nil || len(matches) == 0 {
		return "", nil
	}
	return matches[0], nil
}

// DownloadAudio extracts the audio track as MP3 for transcription.
func (r *Runner) DownloadAudio(ctx context.Context, url, videoID, outDir string) (string, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", err
	}
	outPath := filepath.Join(outDir, videoID+".mp3")

	args := append(r.baseArgs(),
		"-f", "bestaudio/best",
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "192K",
		"-o", filepath.Join(outDir, videoID+".%(ext)s"),
		url,
	)

	cmd := exec.CommandContext(ctx, r.binary, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("yt-dlp audio: %s: %w", strings.TrimSpace(string(output)), err)
	}

	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("yt-dlp audio: no output file for %s", videoID)
	}
	return outPath, nil
}

// DownloadClip fetches only the [start,end] range of a video as MP4, capped
// at 480p. The result is meant as GIF rendering input, not for keeping.
func (r *Runner) DownloadClip(ctx context.Context, url, videoID string, start, end float64, outDir string) (string, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", err
	}
	outPath := filepath.Join(outDir, fmt.Sprintf("clip_%s_%d.mp4", videoID, int(start)))

	args := append(r.baseArgs(),
		"-f", "bestvideo[height<=480]+bestaudio/best[height<=480]",
		"--download-sections", fmt.Sprintf("*%.2f-%.2f", start, end),
		"--force-keyframes-at-cuts",
		"--merge-output-format", "mp4",
		"-o", outPath,
		url,
	)

	cmd := exec.CommandContext(ctx, r.binary, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("yt-dlp clip: %s: %w", strings.TrimSpace(string(output)), err)
	}

	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("yt-dlp clip: no output file for %s", videoID)
	}
	return outPath, nil
}
