// Package retrieval assembles the context block injected into chat prompts.
package retrieval

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ziadkadry99/macbot/internal/embeddings"
	"github.com/ziadkadry99/macbot/internal/vectordb"
)

const (
	StartMarker = "--- Start of Retrieved Context ---"
	EndMarker   = "--- End of Retrieved Context ---"
	separator   = "\n---\n"
)

// QueryEmbedder is the part of embeddings.Client the retriever needs.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Retriever looks up chunks similar to a message.
type Retriever struct {
	embedder QueryEmbedder
	store    vectordb.Store
}

// New returns a Retriever.
func New(embedder QueryEmbedder, store vectordb.Store) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Retrieve returns the formatted context for message, or "" when nothing
// useful was found. Failures are logged, never returned: a chat turn
// must proceed without context rather than fail.
func (r *Retriever) Retrieve(ctx context.Context, message string, topK int) string {
	matches := r.Matches(ctx, message, topK)
	if len(matches) == 0 {
		return ""
	}
	return FormatContext(matches)
}

// Matches is Retrieve without formatting.
func (r *Retriever) Matches(ctx context.Context, message string, topK int) []vectordb.Match {
	if strings.TrimSpace(message) == "" || topK <= 0 {
		return nil
	}

	vec, err := r.embedder.EmbedQuery(ctx, message)
	if err != nil {
		log.Printf("retrieval: embedding failed, continuing without context: %v", err)
		return nil
	}
	if embeddings.IsZero(vec) {
		return nil
	}

	matches, err := r.store.Query(ctx, vec, topK, nil)
	if err != nil {
		log.Printf("retrieval: %s query failed, continuing without context: %v", r.store.Name(), err)
		return nil
	}
	return matches
}

// FormatContext renders matches as citation-headed blocks between the
// start and end markers.
func FormatContext(matches []vectordb.Match) string {
	blocks := make([]string, len(matches))
	for i, m := range matches {
		header := fmt.Sprintf("[Chunk %d | Source: %s", m.ChunkIndex+1, m.FileName)
		if m.PageNumber != nil {
			header += fmt.Sprintf(" | Page %d", *m.PageNumber)
		}
		blocks[i] = header + "]\n" + m.Content
	}

	var sb strings.Builder
	sb.WriteString(StartMarker)
	sb.WriteString("\n")
	sb.WriteString(strings.Join(blocks, separator))
	sb.WriteString("\n")
	sb.WriteString(EndMarker)
	return sb.String()
}
