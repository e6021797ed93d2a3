package llm

import "context"

// Provider defines the interface for LLM providers.
type Provider interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Stream starts a streamed completion. The returned Stream must be
	// closed by the caller.
	Stream(ctx context.Context, req CompletionRequest) (Stream, error)
	// Name returns the name of this provider.
	Name() string
}

// Stream is a pull-based iterator over completion text deltas.
type Stream interface {
	// Recv returns the next delta, which may be empty, or io.EOF once
	// the completion has finished.
	Recv() (string, error)
	// Close releases the underlying connection.
	Close() error
}
