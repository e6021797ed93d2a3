package embeddings

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedEmbedder throttles calls to an underlying Embedder.
type RateLimitedEmbedder struct {
	embedder Embedder
	limiter  *rate.Limiter
}

// NewRateLimitedEmbedder allows at most rpm Embed calls per minute. A
// non-positive rpm returns the embedder unchanged.
func NewRateLimitedEmbedder(embedder Embedder, rpm int) Embedder {
	if rpm <= 0 {
		return embedder
	}
	return &RateLimitedEmbedder{
		embedder: embedder,
		limiter:  rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm),
	}
}

func (r *RateLimitedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.embedder.Embed(ctx, texts)
}

func (r *RateLimitedEmbedder) Dimensions() int { return r.embedder.Dimensions() }
func (r *RateLimitedEmbedder) Name() string    { return r.embedder.Name() }
