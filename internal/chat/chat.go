// Package chat runs one retrieval-augmented chat turn and streams the
// model's reply to a caller-supplied sink.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/ziadkadry99/macbot/internal/llm"
)

// ErrNoMessages is returned by Validate for an empty conversation.
var ErrNoMessages = errors.New("messages must be a non-empty array")

// Retriever produces the formatted context block for a message. An empty
// result means "no context".
type Retriever interface {
	Retrieve(ctx context.Context, message string, topK int) string
}

// Sink receives the streamed reply. Open is called once, before the first
// delta, and commits the response; nothing can be reported to the caller
// out of band after that.
type Sink interface {
	Open() error
	Write(delta string) error
}

// Config wires an Orchestrator.
type Config struct {
	Provider          llm.Provider
	Retriever         Retriever
	Model             string
	Temperature       float64
	MaxTokens         int
	TopK              int
	Persona           string
	RetrieveByDefault bool
}

// Request is one chat turn as submitted by a client.
type Request struct {
	Messages []llm.Message
	// UseContext overrides RetrieveByDefault when set.
	UseContext *bool
}

// SetupError reports a failure before the sink was opened. The caller
// can still answer with an ordinary error response.
type SetupError struct {
	Err error
}

func (e *SetupError) Error() string { return "chat setup: " + e.Err.Error() }
func (e *SetupError) Unwrap() error { return e.Err }

// StreamError reports a failure after the sink was opened.
type StreamError struct {
	Err error
}

func (e *StreamError) Error() string { return "chat stream: " + e.Err.Error() }
func (e *StreamError) Unwrap() error { return e.Err }

// Orchestrator runs chat turns. It holds no per-turn state and is safe
// for concurrent use.
type Orchestrator struct {
	cfg Config
}

// New returns an Orchestrator.
func New(cfg Config) *Orchestrator {
	return &Orchestrator{cfg: cfg}
}

// Validate checks a client conversation.
func Validate(messages []llm.Message) error {
	if len(messages) == 0 {
		return ErrNoMessages
	}
	for i, m := range messages {
		if !m.Role.Valid() {
			return fmt.Errorf("message %d: invalid role %q", i, m.Role)
		}
	}
	return nil
}

// Run executes a single turn. See Turn.Run.
func (o *Orchestrator) Run(ctx context.Context, req Request, sink Sink) error {
	return o.NewTurn().Run(ctx, req, sink)
}

// NewTurn returns an idle turn bound to o.
func (o *Orchestrator) NewTurn() *Turn {
	return &Turn{o: o, state: StateIdle}
}

// Turn is a single pass through the chat state machine.
type Turn struct {
	o *Orchestrator

	mu    sync.Mutex
	state State
}

// State returns the turn's current state.
func (t *Turn) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Turn) transition(s State) {
	t.mu.Lock()
	prev := t.state
	t.state = s
	t.mu.Unlock()
	log.Printf("chat: %s -> %s", prev, s)
}

func (t *Turn) fail(err error) error {
	t.transition(StateErrored)
	return err
}

// Run retrieves context, builds the prompt and forwards every non-empty
// upstream delta to sink in order. Errors before sink.Open are
// *SetupError, later ones *StreamError. The upstream stream is closed
// exactly once whenever it was opened.
func (t *Turn) Run(ctx context.Context, req Request, sink Sink) error {
	if t.State() != StateIdle {
		return &SetupError{Err: fmt.Errorf("turn already ran (state %s)", t.State())}
	}
	cfg := t.o.cfg

	var retrieved string
	useContext := cfg.RetrieveByDefault
	if req.UseContext != nil {
		useContext = *req.UseContext
	}
	if useContext && cfg.Retriever != nil {
		t.transition(StateRetrievingContext)
		if q := LatestUserMessage(req.Messages); q != "" {
			retrieved = cfg.Retriever.Retrieve(ctx, q, cfg.TopK)
		}
	}

	t.transition(StateBuildingPrompt)
	prompt := BuildPrompt(req.Messages, cfg.Persona, retrieved)

	stream, err := cfg.Provider.Stream(ctx, llm.CompletionRequest{
		Model:       cfg.Model,
		Messages:    prompt,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	})
	if err != nil {
		return t.fail(&SetupError{Err: err})
	}
	defer func() {
		if cerr := stream.Close(); cerr != nil {
			log.Printf("chat: closing upstream stream: %v", cerr)
		}
	}()

	if err := sink.Open(); err != nil {
		return t.fail(&SetupError{Err: err})
	}

	t.transition(StateStreaming)
	for {
		if err := ctx.Err(); err != nil {
			return t.fail(&StreamError{Err: err})
		}
		delta, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return t.fail(&StreamError{Err: err})
		}
		if delta == "" {
			continue
		}
		if err := sink.Write(delta); err != nil {
			return t.fail(&StreamError{Err: err})
		}
	}

	t.transition(StateDone)
	return nil
}
