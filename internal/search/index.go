package search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gif-subs/backend/internal/subtitle"
)

var (
	// ErrEmptyQuery means the search query was blank.
	ErrEmptyQuery = errors.New("empty search query")
	// ErrEmptyIndex means no subtitles have been indexed yet.
	ErrEmptyIndex = errors.New("no subtitles indexed")
)

// minCueLength filters out noise cues (music notes, single characters)
// before indexing.
const minCueLength = 3

// Match is one ranked search hit.
type Match struct {
	VideoID string       `json:"video_id"`
	Cue     subtitle.Cue `json:"cue"`
	Score   float64      `json:"score"`
}

type indexEntry struct {
	videoID string
	cue     subtitle.Cue
	vec     []float32
}

// Index holds cue embeddings for all acquired videos and answers keyword
// queries by cosine similarity. It is an explicit value owned by main, not a
// package singleton, so stages stay independently testable.
type Index struct {
	mu       sync.RWMutex
	embedder Embedder
	entries  []indexEntry
	minScore float64
}

// NewIndex creates an empty index. Matches scoring below minScore are
// dropped from results.
func NewIndex(embedder Embedder, minScore float64) *Index {
	return &Index{embedder: embedder, minScore: minScore}
}

// SetMinScore changes the score threshold for subsequent searches.
func (idx *Index) SetMinScore(minScore float64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.minScore = minScore
}

// Size returns the number of indexed cues.
func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// AddVideo embeds and indexes the cues of one video, replacing any previous
// entries for the same video ID.
func (idx *Index) AddVideo(ctx context.Context, videoID string, cues []subtitle.Cue) error {
	var kept []subtitle.Cue
	var texts []string
	for _, cue := range cues {
		text := cleanText(cue.Text)
		if len([]rune(text)) < minCueLength {
			continue
		}
		cue.Text = text
		kept = append(kept, cue)
		texts = append(texts, text)
	}
	if len(kept) == 0 {
		return nil
	}

	vectors, err := idx.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed cues for %s: %w", videoID, err)
	}

	entries := make([]indexEntry, len(kept))
	for i, cue := range kept {
		entries[i] = indexEntry{videoID: videoID, cue: cue, vec: normalize(vectors[i])}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	// Build a fresh slice: searches snapshot idx.entries without a lock held
	// during scoring, so the old backing array must stay intact.
	filtered := make([]indexEntry, 0, len(idx.entries)+len(entries))
	for _, e := range idx.entries {
		if e.videoID != videoID {
			filtered = append(filtered, e)
		}
	}
	idx.entries = append(filtered, entries...)
	log.Printf("[search] indexed %d cues for %s (total %d)", len(entries), videoID, len(idx.entries))
	return nil
}

// Rebuild re-indexes every VTT file under subPath. Called at startup to
// recover the index from disk.
func (idx *Index) Rebuild(ctx context.Context, subPath string) error {
	matches, err := filepath.Glob(filepath.Join(subPath, "*.vtt"))
	if err != nil {
		return err
	}

	log.Printf("[search] indexing %d subtitle files", len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("[search] skipping %s: %v", path, err)
			continue
		}
		// Filenames are <videoID>.<lang>.vtt
		videoID := strings.SplitN(filepath.Base(path), ".", 2)[0]
		if err := idx.AddVideo(ctx, videoID, subtitle.ParseVTT(string(data))); err != nil {
			return err
		}
	}
	return nil
}

// Search returns the cues best matching the query, ordered by descending
// similarity. Ties are broken by earliest cue start, then by video ID.
func (idx *Index) Search(ctx context.Context, query string, topK int) ([]Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	// Snapshot under the lock, then embed and score without it: the embed
	// is a remote call and must not block concurrent indexing.
	idx.mu.RLock()
	entries := idx.entries
	minScore := idx.minScore
	idx.mu.RUnlock()

	if len(entries) == 0 {
		return nil, ErrEmptyIndex
	}

	vectors, err := idx.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	qvec := normalize(vectors[0])

	matches := make([]Match, 0, len(entries))
	for _, e := range entries {
		score := dot(qvec, e.vec)
		if score < minScore {
			continue
		}
		matches = append(matches, Match{VideoID: e.videoID, Cue: e.cue, Score: score})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if matches[i].Cue.Start != matches[j].Cue.Start {
			return matches[i].Cue.Start < matches[j].Cue.Start
		}
		return matches[i].VideoID < matches[j].VideoID
	})

	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func cleanText(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
}

// dot computes cosine similarity given unit vectors.
func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
