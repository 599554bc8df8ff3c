package search

import "context"

// Embedder turns text into fixed-length vectors for similarity comparison.
// The model itself runs externally; this interface only covers the transport.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Name returns the backend name
	Name() string
}
