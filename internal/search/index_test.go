package search

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gif-subs/backend/internal/subtitle"
)

// stubEmbedder produces deterministic bag-of-words vectors over a fixed
// vocabulary, so cosine similarity reflects word overlap.
type stubEmbedder struct{}

var stubVocab = []string{"hello", "world", "goodbye", "moon", "quick", "brown", "fox"}

func (stubEmbedder) Name() string { return "stub" }

func (stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, len(stubVocab))
		for _, word := range strings.Fields(strings.ToLower(text)) {
			for j, v := range stubVocab {
				if word == v {
					vec[j]++
				}
			}
		}
		out[i] = vec
	}
	return out, nil
}

func cue(start float64, text string) subtitle.Cue {
	return subtitle.Cue{Start: start, End: start + 2, Text: text}
}

func newTestIndex(t *testing.T, minScore float64) *Index {
	t.Helper()
	return NewIndex(stubEmbedder{}, minScore)
}

func TestSearchExactMatchRanksFirst(t *testing.T) {
	idx := newTestIndex(t, 0.25)
	err := idx.AddVideo(context.Background(), "vid1", []subtitle.Cue{
		cue(10, "Goodbye moon"),
		cue(20, "Hello world"),
		cue(30, "quick brown fox"),
	})
	if err != nil {
		t.Fatalf("AddVideo: %v", err)
	}

	matches, err := idx.Search(context.Background(), "Hello world", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) == 0 {
		t.Fatal("no matches")
	}
	if matches[0].Cue.Text != "Hello world" {
		t.Errorf("top match = %q, want %q", matches[0].Cue.Text, "Hello world")
	}
	if matches[0].Score < 0.99 {
		t.Errorf("exact match score = %f, want ~1.0", matches[0].Score)
	}
}

func TestSearchScoresNonIncreasing(t *testing.T) {
	idx := newTestIndex(t, 0.25)
	err := idx.AddVideo(context.Background(), "vid1", []subtitle.Cue{
		cue(10, "hello world moon world"),
		cue(20, "hello world"),
		cue(30, "hello hello"),
	})
	if err != nil {
		t.Fatalf("AddVideo: %v", err)
	}

	matches, err := idx.Search(context.Background(), "hello", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("got %d matches, want 3", len(matches))
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Score > matches[i-1].Score {
			t.Errorf("scores out of order at %d: %f > %f", i, matches[i].Score, matches[i-1].Score)
		}
	}
	if matches[0].Cue.Text != "hello hello" {
		t.Errorf("top match = %q, want %q", matches[0].Cue.Text, "hello hello")
	}
}

func TestSearchPartialQueryMatches(t *testing.T) {
	idx := newTestIndex(t, 0.25)
	err := idx.AddVideo(context.Background(), "vid1", []subtitle.Cue{
		cue(10, "Hello world"),
	})
	if err != nil {
		t.Fatalf("AddVideo: %v", err)
	}

	// Lowercase single-word query still matches the mixed-case cue.
	matches, err := idx.Search(context.Background(), "hello", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if matches[0].VideoID != "vid1" {
		t.Errorf("video = %q, want vid1", matches[0].VideoID)
	}
}

func TestSearchTieBreak(t *testing.T) {
	idx := newTestIndex(t, 0.25)
	ctx := context.Background()
	if err := idx.AddVideo(ctx, "vidB", []subtitle.Cue{cue(8, "Hello world")}); err != nil {
		t.Fatalf("AddVideo: %v", err)
	}
	if err := idx.AddVideo(ctx, "vidA", []subtitle.Cue{cue(8, "Hello world")}); err != nil {
		t.Fatalf("AddVideo: %v", err)
	}
	if err := idx.AddVideo(ctx, "vidC", []subtitle.Cue{cue(3, "Hello world")}); err != nil {
		t.Fatalf("AddVideo: %v", err)
	}

	matches, err := idx.Search(ctx, "Hello world", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("got %d matches, want 3", len(matches))
	}
	// Equal scores: earliest start first, then video ID.
	if matches[0].VideoID != "vidC" {
		t.Errorf("first = %s, want vidC (earliest start)", matches[0].VideoID)
	}
	if matches[1].VideoID != "vidA" || matches[2].VideoID != "vidB" {
		t.Errorf("tied starts order = %s, %s; want vidA, vidB", matches[1].VideoID, matches[2].VideoID)
	}
}

func TestSearchThresholdFilters(t *testing.T) {
	idx := newTestIndex(t, 0.99)
	err := idx.AddVideo(context.Background(), "vid1", []subtitle.Cue{
		cue(10, "Hello world"),
		cue(20, "hello moon"),
	})
	if err != nil {
		t.Fatalf("AddVideo: %v", err)
	}

	matches, err := idx.Search(context.Background(), "Hello world", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1 (threshold should drop partial match)", len(matches))
	}
	if matches[0].Cue.Text != "Hello world" {
		t.Errorf("match = %q, want %q", matches[0].Cue.Text, "Hello world")
	}
}

func TestSearchNoMatches(t *testing.T) {
	idx := newTestIndex(t, 0.25)
	err := idx.AddVideo(context.Background(), "vid1", []subtitle.Cue{
		cue(10, "Hello world"),
	})
	if err != nil {
		t.Fatalf("AddVideo: %v", err)
	}

	matches, err := idx.Search(context.Background(), "zzz unrelated", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("got %d matches for unrelated query, want 0", len(matches))
	}
}

func TestSearchTopK(t *testing.T) {
	idx := newTestIndex(t, 0.0)
	var cues []subtitle.Cue
	for i := 0; i < 5; i++ {
		cues = append(cues, cue(float64(i*10), "hello world"))
	}
	if err := idx.AddVideo(context.Background(), "vid1", cues); err != nil {
		t.Fatalf("AddVideo: %v", err)
	}

	matches, err := idx.Search(context.Background(), "hello", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("got %d matches, want 2", len(matches))
	}
}

// gatedEmbedder blocks query embeds until released; cue embeds pass through.
type gatedEmbedder struct {
	stubEmbedder
	gate    string
	started chan struct{}
	release chan struct{}
}

func (g *gatedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 1 && texts[0] == g.gate {
		g.started <- struct{}{}
		<-g.release
	}
	return g.stubEmbedder.Embed(ctx, texts)
}

func TestSearchDoesNotBlockIndexing(t *testing.T) {
	e := &gatedEmbedder{gate: "hello", started: make(chan struct{}), release: make(chan struct{})}
	idx := NewIndex(e, 0.25)
	ctx := context.Background()

	if err := idx.AddVideo(ctx, "vid1", []subtitle.Cue{cue(10, "hello world")}); err != nil {
		t.Fatalf("AddVideo: %v", err)
	}

	searchDone := make(chan struct{})
	go func() {
		defer close(searchDone)
		if _, err := idx.Search(ctx, "hello", 10); err != nil {
			t.Errorf("Search: %v", err)
		}
	}()
	<-e.started // the query embed is now in flight

	addDone := make(chan error, 1)
	go func() {
		addDone <- idx.AddVideo(ctx, "vid2", []subtitle.Cue{cue(5, "goodbye moon")})
	}()
	select {
	case err := <-addDone:
		if err != nil {
			t.Fatalf("AddVideo: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("AddVideo blocked while a search embed was in flight")
	}

	close(e.release)
	<-searchDone
}

func TestSearchEmptyQuery(t *testing.T) {
	idx := newTestIndex(t, 0.25)
	if err := idx.AddVideo(context.Background(), "vid1", []subtitle.Cue{cue(10, "Hello world")}); err != nil {
		t.Fatalf("AddVideo: %v", err)
	}

	for _, q := range []string{"", "   ", "\t\n"} {
		_, err := idx.Search(context.Background(), q, 10)
		if !errors.Is(err, ErrEmptyQuery) {
			t.Errorf("Search(%q) err = %v, want ErrEmptyQuery", q, err)
		}
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	idx := newTestIndex(t, 0.25)
	_, err := idx.Search(context.Background(), "hello", 10)
	if !errors.Is(err, ErrEmptyIndex) {
		t.Errorf("err = %v, want ErrEmptyIndex", err)
	}
}

func TestAddVideoReplacesPrevious(t *testing.T) {
	idx := newTestIndex(t, 0.25)
	ctx := context.Background()
	cues := []subtitle.Cue{cue(10, "Hello world"), cue(20, "Goodbye moon")}
	if err := idx.AddVideo(ctx, "vid1", cues); err != nil {
		t.Fatalf("AddVideo: %v", err)
	}
	if err := idx.AddVideo(ctx, "vid1", cues); err != nil {
		t.Fatalf("AddVideo again: %v", err)
	}
	if idx.Size() != 2 {
		t.Errorf("size = %d after re-adding same video, want 2", idx.Size())
	}
}

func TestAddVideoFiltersShortCues(t *testing.T) {
	idx := newTestIndex(t, 0.25)
	err := idx.AddVideo(context.Background(), "vid1", []subtitle.Cue{
		cue(10, "a"),
		cue(20, "  "),
		cue(30, "Hello world"),
	})
	if err != nil {
		t.Fatalf("AddVideo: %v", err)
	}
	if idx.Size() != 1 {
		t.Errorf("size = %d, want 1 (short cues filtered)", idx.Size())
	}
}
