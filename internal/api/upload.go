package api

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"

	"github.com/ziadkadry99/macbot/internal/audit"
	"github.com/ziadkadry99/macbot/internal/document"
	"github.com/ziadkadry99/macbot/internal/ingest"
)

type processedFile struct {
	Name   string `json:"name"`
	Chunks int    `json:"chunks"`
}

type uploadResponse struct {
	Success        bool            `json:"success"`
	Message        string          `json:"message"`
	ProcessedFiles []processedFile `json:"processedFiles"`
}

type adminUploadResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	FileName string `json:"fileName"`
	Title    string `json:"title"`
	Chunks   int    `json:"chunks"`
	FileID   string `json:"fileId"`
}

// parseMultipart bounds the body and parses the form. It writes the
// error response itself and reports whether the handler may continue.
func (h *Handler) parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.cfg.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Upload exceeds the %d byte limit", tooLarge.Limit), "")
			return false
		}
		writeError(w, http.StatusBadRequest, "Expected a multipart form upload", err.Error())
		return false
	}
	return true
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if !h.parseMultipart(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "No files uploaded under the key 'files'", "")
		return
	}

	uploads := make([]ingest.Upload, 0, len(headers))
	for _, fh := range headers {
		data, err := readFile(fh)
		if err != nil {
			log.Printf("api: reading %s: %v", fh.Filename, err)
			continue
		}
		uploads = append(uploads, ingest.Upload{FileName: fh.Filename, Data: data, Actor: audit.ActorUser})
	}

	results := h.cfg.Ingest.IngestFiles(r.Context(), uploads)
	processed := make([]processedFile, len(results))
	for i, res := range results {
		processed[i] = processedFile{Name: res.FileName, Chunks: res.Chunks}
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Success:        true,
		Message:        fmt.Sprintf("%d file(s) processed successfully.", len(processed)),
		ProcessedFiles: processed,
	})
}

func (h *Handler) handleAdminUpload(w http.ResponseWriter, r *http.Request) {
	if !h.parseMultipart(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "File is required", "")
		return
	}
	rawMeta := r.MultipartForm.Value["metadata"]
	if len(rawMeta) == 0 || rawMeta[0] == "" {
		writeError(w, http.StatusBadRequest, "Metadata JSON string is required", "")
		return
	}
	meta, err := document.ParseMeta(rawMeta[0])
	if errors.Is(err, document.ErrMissingTitle) {
		writeError(w, http.StatusBadRequest, `Metadata requires a non-empty "title" field`, "")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid metadata format.", err.Error())
		return
	}

	fh := headers[0]
	data, err := readFile(fh)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Could not read uploaded file", err.Error())
		return
	}

	res, err := h.cfg.Ingest.IngestFile(r.Context(), ingest.Upload{
		FileName: fh.Filename,
		Data:     data,
		Meta:     &meta,
		Actor:    audit.ActorAdmin,
	})
	if err != nil {
		writeIngestError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, adminUploadResponse{
		Success:  true,
		Message:  fmt.Sprintf("Document %q (%s) processed and indexed successfully with %d chunks.", meta.Title, res.FileName, res.Chunks),
		FileName: res.FileName,
		Title:    meta.Title,
		Chunks:   res.Chunks,
		FileID:   res.FileID,
	})
}

// writeIngestError answers validation failures verbatim and everything
// else as a 500 carrying the upstream message.
func writeIngestError(w http.ResponseWriter, err error) {
	var ve *ingest.ValidationError
	if errors.As(err, &ve) {
		writeError(w, ve.Status, ve.Message, "")
		return
	}
	var se *ingest.ServiceError
	if errors.As(err, &se) {
		log.Printf("api: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to "+se.Op, se.Err.Error())
		return
	}
	log.Printf("api: %v", err)
	writeError(w, http.StatusInternalServerError, "An unexpected server error occurred.", err.Error())
}
