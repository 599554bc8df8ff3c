package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"
)

// ClipEntry is one stored GIF artifact.
type ClipEntry struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// GIFName builds a stable, filesystem-safe name for a rendered clip. The
// same (video, start, caption) triple always maps to the same file, which is
// what makes re-exports a cache hit.
func GIFName(videoID string, start float64, caption string) string {
	return fmt.Sprintf("%s_%d_%s.gif", videoID, int(start), safeSlug(caption))
}

// safeSlug keeps letters, digits and spaces from the caption, truncated to 20
// characters, with spaces as underscores.
func safeSlug(caption string) string {
	var sb strings.Builder
	for _, r := range caption {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			sb.WriteRune(r)
		}
	}
	slug := strings.TrimSpace(sb.String())
	if runes := []rune(slug); len(runes) > 20 {
		slug = string(runes[:20])
	}
	slug = strings.TrimSpace(slug)
	return strings.ReplaceAll(slug, " ", "_")
}

// ListClips returns all GIFs under clipPath, newest first.
func ListClips(clipPath string) ([]*ClipEntry, error) {
	entries, err := os.ReadDir(clipPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var clips []*ClipEntry
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".gif") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		clips = append(clips, &ClipEntry{
			Name:      entry.Name(),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	// ReadDir sorts by name; callers want newest first
	sort.Slice(clips, func(i, j int) bool {
		return clips[i].CreatedAt.After(clips[j].CreatedAt)
	})
	return clips, nil
}

// SafeJoin joins name under base and rejects path traversal.
func SafeJoin(base, name string) (string, error) {
	full := filepath.Join(base, name)
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", err
	}
	absFull, err := filepath.Abs(full)
	if err != nil {
		return "", err
	}
	if absFull != absBase && !strings.HasPrefix(absFull, absBase+string(filepath.Separator)) {
		return "", os.ErrPermission
	}
	return full, nil
}

// CleanTemp removes leftover files matching prefix under dir. Best effort;
// used to clear interrupted clip downloads.
func CleanTemp(dir, prefix string) {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"*"))
	if err != nil {
		return
	}
	for _, m := range matches {
		os.Remove(m)
	}
}
