package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ziadkadry99/macbot/internal/audit"
	"github.com/ziadkadry99/macbot/internal/ingest"
)

func (h *Handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	limit := ingest.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	docs, err := h.cfg.Ingest.ListDocuments(r.Context(), limit)
	if err != nil {
		writeIngestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

type deleteRequest struct {
	FileName string `json:"fileName"`
}

func (h *Handler) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "File name is required", err.Error())
		return
	}

	n, err := h.cfg.Ingest.DeleteDocument(r.Context(), req.FileName, audit.ActorAdmin)
	if err != nil {
		writeIngestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"deletedCount": n,
		"fileName":     req.FileName,
	})
}

func (h *Handler) handleSeed(w http.ResponseWriter, r *http.Request) {
	n, err := h.cfg.Ingest.Seed(r.Context(), audit.ActorAdmin)
	if err != nil {
		writeIngestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Successfully seeded the vector store with %d documents", n),
	})
}
