package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// socketRequest is the incoming WebSocket message format.
type socketRequest struct {
	Type string `json:"type"` // "chat"
	chatRequest
}

// socketFrame is the outgoing WebSocket message format.
type socketFrame struct {
	Type    string `json:"type"` // "token", "done" or "error"
	Content string `json:"content,omitempty"`
}

// socketSink forwards deltas as token frames.
type socketSink struct {
	conn *websocket.Conn
}

func (s *socketSink) Open() error { return nil }

func (s *socketSink) Write(delta string) error {
	return s.conn.WriteJSON(socketFrame{Type: "token", Content: delta})
}

func (h *Handler) handleChatSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("api: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("api: websocket read: %v", err)
			}
			return
		}

		var req socketRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			sendFrame(conn, socketFrame{Type: "error", Content: "invalid message format"})
			continue
		}
		if req.Type != "chat" {
			sendFrame(conn, socketFrame{Type: "error", Content: "unknown message type: " + req.Type})
			continue
		}
		turn, err := req.toTurn()
		if err != nil {
			sendFrame(conn, socketFrame{Type: "error", Content: err.Error()})
			continue
		}

		ctx, cancel := context.WithTimeout(r.Context(), h.cfg.ChatTimeout)
		err = h.cfg.Chat.Run(ctx, turn, &socketSink{conn: conn})
		cancel()
		if err != nil {
			log.Printf("api: websocket chat: %v", err)
			sendFrame(conn, socketFrame{Type: "error", Content: "Failed to generate response"})
			continue
		}
		sendFrame(conn, socketFrame{Type: "done"})
	}
}

func sendFrame(conn *websocket.Conn, frame socketFrame) {
	if err := conn.WriteJSON(frame); err != nil {
		log.Printf("api: websocket write: %v", err)
	}
}
