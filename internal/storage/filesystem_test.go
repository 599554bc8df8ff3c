package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGIFName(t *testing.T) {
	tests := []struct {
		videoID string
		start   float64
		caption string
		want    string
	}{
		{"abc123", 12.5, "Hello world", "abc123_12_Hello_world.gif"},
		{"abc123", 12.5, "Hello world", "abc123_12_Hello_world.gif"}, // stable
		{"abc123", 0, "", "abc123_0_.gif"},
		{"abc123", 7.9, "it's: 100%!", "abc123_7_its_100.gif"},
		{"abc123", 3, "a very long caption that keeps going", "abc123_3_a_very_long_caption.gif"},
	}

	for _, tt := range tests {
		if got := GIFName(tt.videoID, tt.start, tt.caption); got != tt.want {
			t.Errorf("GIFName(%q, %v, %q) = %q, want %q", tt.videoID, tt.start, tt.caption, got, tt.want)
		}
	}
}

func TestSafeSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello world", "Hello_world"},
		{"../../etc/passwd", "etcpasswd"},
		{"über gut", "über_gut"},
		{"   spaced   ", "spaced"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := safeSlug(tt.in); got != tt.want {
			t.Errorf("safeSlug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSafeJoin(t *testing.T) {
	base := t.TempDir()

	good, err := SafeJoin(base, "clip.gif")
	if err != nil {
		t.Fatalf("SafeJoin: %v", err)
	}
	if good != filepath.Join(base, "clip.gif") {
		t.Errorf("SafeJoin = %q", good)
	}

	for _, name := range []string{"../outside.gif", "../../etc/passwd", "a/../../b.gif"} {
		if _, err := SafeJoin(base, name); err == nil {
			t.Errorf("SafeJoin(%q) accepted a traversal path", name)
		}
	}
}

func TestListClips(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"one.gif", "two.gif", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	clips, err := ListClips(dir)
	if err != nil {
		t.Fatalf("ListClips: %v", err)
	}
	if len(clips) != 2 {
		t.Fatalf("got %d clips, want 2 (non-gif files skipped)", len(clips))
	}
	for _, c := range clips {
		if filepath.Ext(c.Name) != ".gif" {
			t.Errorf("unexpected entry %q", c.Name)
		}
	}
}

func TestListClipsMissingDir(t *testing.T) {
	clips, err := ListClips(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("ListClips: %v", err)
	}
	if len(clips) != 0 {
		t.Errorf("got %d clips from missing dir, want 0", len(clips))
	}
}

func TestCleanTemp(t *testing.T) {
	dir := t.TempDir()
	keep := filepath.Join(dir, "subs.vtt")
	stale := filepath.Join(dir, "clip_abc_10.mp4")
	for _, p := range []string{keep, stale} {
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	CleanTemp(dir, "clip_")

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("stale temp file survived cleanup")
	}
	if _, err := os.Stat(keep); err != nil {
		t.Errorf("unrelated file removed: %v", err)
	}
}
