// Package api exposes ingestion, document management and chat over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ziadkadry99/macbot/internal/audit"
	"github.com/ziadkadry99/macbot/internal/chat"
	"github.com/ziadkadry99/macbot/internal/ingest"
)

// Config wires a Handler. Audit is optional; when nil the audit routes
// are not mounted.
type Config struct {
	Ingest         *ingest.Service
	Chat           *chat.Orchestrator
	Audit          *audit.Store
	AdminKey       string
	MaxUploadBytes int64
	RequestTimeout time.Duration
	ChatTimeout    time.Duration
}

// Handler serves the /api routes.
type Handler struct {
	cfg Config
}

// New returns a Handler.
func New(cfg Config) *Handler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 20 << 20
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.ChatTimeout <= 0 {
		cfg.ChatTimeout = 120 * time.Second
	}
	return &Handler{cfg: cfg}
}

// RegisterRoutes mounts all endpoints on r. Streaming endpoints manage
// their own deadline; everything else runs under the request timeout.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/chat", h.handleChat)
	r.Get("/ws/chat", h.handleChatSocket)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(h.cfg.RequestTimeout))

		r.Post("/api/upload", h.handleUpload)
		r.Post("/api/admin/upload-document", h.handleAdminUpload)
		r.Get("/api/documents", h.handleListDocuments)
		r.Delete("/api/documents", h.handleDeleteDocument)

		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin(h.cfg.AdminKey))
			r.Post("/api/seed", h.handleSeed)
			if h.cfg.Audit != nil {
				audit.RegisterRoutes(r, h.cfg.Audit)
			}
		})
	})
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string, details string) {
	writeJSON(w, status, errorBody{Error: msg, Details: details})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
