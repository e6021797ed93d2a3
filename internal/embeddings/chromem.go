package embeddings

import (
	"context"

	chromem "github.com/philippgille/chromem-go"
)

// ChromemFunc adapts the client to chromem-go, which embeds one text at
// a time when a document or query arrives without a vector.
func (c *Client) ChromemFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return c.EmbedQuery(ctx, text)
	}
}
