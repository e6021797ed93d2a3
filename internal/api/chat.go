package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/ziadkadry99/macbot/internal/chat"
	"github.com/ziadkadry99/macbot/internal/llm"
)

// chatMessage is a message as sent by the browser client. id and
// createdAt are accepted and ignored.
type chatMessage struct {
	ID        string          `json:"id,omitempty"`
	Role      llm.Role        `json:"role"`
	Content   string          `json:"content"`
	CreatedAt json.RawMessage `json:"createdAt,omitempty"`
}

type chatRequest struct {
	Messages         []chatMessage `json:"messages"`
	UseUploadedFiles *bool         `json:"useUploadedFiles,omitempty"`
}

func (c chatRequest) toTurn() (chat.Request, error) {
	msgs := make([]llm.Message, len(c.Messages))
	for i, m := range c.Messages {
		msgs[i] = llm.Message{Role: m.Role, Content: m.Content}
	}
	if err := chat.Validate(msgs); err != nil {
		return chat.Request{}, err
	}
	return chat.Request{Messages: msgs, UseContext: c.UseUploadedFiles}, nil
}

// streamSink writes raw text deltas to an HTTP response, flushing after
// each one.
type streamSink struct {
	w      http.ResponseWriter
	rc     *http.ResponseController
	opened bool
}

func newStreamSink(w http.ResponseWriter) *streamSink {
	return &streamSink{w: w, rc: http.NewResponseController(w)}
}

func (s *streamSink) Open() error {
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)
	s.opened = true
	return s.flush()
}

func (s *streamSink) Write(delta string) error {
	if _, err := s.w.Write([]byte(delta)); err != nil {
		return err
	}
	return s.flush()
}

func (s *streamSink) flush() error {
	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var body chatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	req, err := body.toTurn()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.ChatTimeout)
	defer cancel()

	sink := newStreamSink(w)
	err = h.cfg.Chat.Run(ctx, req, sink)
	if err == nil {
		return
	}

	if !sink.opened {
		log.Printf("api: chat: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate response", err.Error())
		return
	}
	if r.Context().Err() != nil {
		log.Printf("api: chat: client went away: %v", err)
		return
	}
	// Headers are out; aborting is the only way to tell the client the
	// body is incomplete.
	log.Printf("api: chat: aborting stream: %v", err)
	panic(http.ErrAbortHandler)
}
