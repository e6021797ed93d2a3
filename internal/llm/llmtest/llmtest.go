// Package llmtest provides a scripted llm.Provider for tests.
package llmtest

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/ziadkadry99/macbot/internal/llm"
)

// Provider replays a fixed list of deltas for every Stream call and
// records the requests it received.
type Provider struct {
	mu    sync.Mutex
	Calls []llm.CompletionRequest

	// Deltas are returned in order by each stream.
	Deltas []string
	// StartErr is returned by Stream before any delta is produced.
	StartErr error
	// FailAfter, when positive, makes the stream fail with StreamErr
	// after that many deltas.
	FailAfter int
	StreamErr error

	closes int
}

// New returns a Provider that streams deltas.
func New(deltas ...string) *Provider {
	return &Provider{Deltas: deltas}
}

func (p *Provider) Name() string { return "llmtest" }

func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.record(req)
	if p.StartErr != nil {
		return nil, p.StartErr
	}
	return &llm.CompletionResponse{
		Content:      strings.Join(p.Deltas, ""),
		Model:        req.Model,
		FinishReason: "stop",
	}, nil
}

func (p *Provider) Stream(ctx context.Context, req llm.CompletionRequest) (llm.Stream, error) {
	p.record(req)
	if p.StartErr != nil {
		return nil, p.StartErr
	}
	return &stream{p: p, ctx: ctx}, nil
}

func (p *Provider) record(req llm.CompletionRequest) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, req)
}

// LastRequest returns the most recent request, or the zero value.
func (p *Provider) LastRequest() llm.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Calls) == 0 {
		return llm.CompletionRequest{}
	}
	return p.Calls[len(p.Calls)-1]
}

// CallCount returns the number of Complete and Stream calls.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// Closes returns how many times a stream was closed.
func (p *Provider) Closes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closes
}

type stream struct {
	p   *Provider
	ctx context.Context
	pos int
}

func (s *stream) Recv() (string, error) {
	if err := s.ctx.Err(); err != nil {
		return "", err
	}
	if s.p.FailAfter > 0 && s.pos >= s.p.FailAfter {
		return "", s.p.StreamErr
	}
	if s.pos >= len(s.p.Deltas) {
		return "", io.EOF
	}
	d := s.p.Deltas[s.pos]
	s.pos++
	return d, nil
}

func (s *stream) Close() error {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()
	s.p.closes++
	return nil
}
