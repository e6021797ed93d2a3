package embeddings

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ziadkadry99/macbot/internal/document"
)

// DefaultBatchSize is the number of chunks sent per upstream request.
const DefaultBatchSize = 100

// Vector is the embedding of one chunk.
type Vector struct {
	ChunkID string
	Values  []float32
}

// Client wraps an Embedder with batching and dimension checks.
type Client struct {
	embedder   Embedder
	dimensions int
	batchSize  int
}

// NewClient returns a Client producing vectors of the given dimension.
func NewClient(embedder Embedder, dimensions, batchSize int) *Client {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Client{embedder: embedder, dimensions: dimensions, batchSize: batchSize}
}

// Dimensions returns the target vector length.
func (c *Client) Dimensions() int { return c.dimensions }

// EmbedChunks embeds chunks in order, one upstream call per batch. A failed
// batch aborts the whole call. Vectors of the wrong length are dropped.
func (c *Client) EmbedChunks(ctx context.Context, chunks []document.Chunk) ([]Vector, error) {
	out := make([]Vector, 0, len(chunks))

	for start := 0; start < len(chunks); start += c.batchSize {
		end := min(start+c.batchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, ch := range batch {
			texts[i] = prepare(ch.Text)
		}

		vecs, err := c.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding batch at offset %d: %w", start, err)
		}
		if len(vecs) != len(batch) {
			return nil, fmt.Errorf("embedding batch at offset %d: got %d vectors for %d chunks", start, len(vecs), len(batch))
		}

		for i, v := range vecs {
			if len(v) != c.dimensions {
				log.Printf("embeddings: warning: dropping chunk %s: vector has %d dimensions, want %d", batch[i].ID, len(v), c.dimensions)
				continue
			}
			out = append(out, Vector{ChunkID: batch[i].ID, Values: v})
		}
	}

	return out, nil
}

// EmbedQuery embeds a single query. Blank input yields a zero vector
// without calling upstream; see IsZero.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	text = prepare(text)
	if text == "" {
		return make([]float32, c.dimensions), nil
	}

	vecs, err := c.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedding query: got %d vectors, want 1", len(vecs))
	}
	if len(vecs[0]) != c.dimensions {
		return nil, fmt.Errorf("embedding query: vector has %d dimensions, want %d", len(vecs[0]), c.dimensions)
	}
	return vecs[0], nil
}

// IsZero reports whether every component of v is zero.
func IsZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

func prepare(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
}
