// Package ingest turns uploaded files into indexed vector records and
// manages the documents already in the index.
package ingest

import (
	"context"
	"errors"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/macbot/internal/audit"
	"github.com/ziadkadry99/macbot/internal/chunker"
	"github.com/ziadkadry99/macbot/internal/document"
	"github.com/ziadkadry99/macbot/internal/embeddings"
	"github.com/ziadkadry99/macbot/internal/extract"
	"github.com/ziadkadry99/macbot/internal/seed"
	"github.com/ziadkadry99/macbot/internal/vectordb"
)

// Listing limits for ListDocuments.
const (
	DefaultListLimit = 10
	MaxListLimit     = 1000
)

// ChunkEmbedder is the part of embeddings.Client the service needs.
type ChunkEmbedder interface {
	EmbedChunks(ctx context.Context, chunks []document.Chunk) ([]embeddings.Vector, error)
}

// Recorder receives an audit event for every ingest, delete and seed.
type Recorder interface {
	Record(ctx context.Context, event audit.Event) error
}

// Config wires a Service. Audit, Now and NewID are optional.
type Config struct {
	Embeddings ChunkEmbedder
	Store      vectordb.Store
	Chunker    *chunker.Chunker
	Audit      Recorder
	Now        func() time.Time
	NewID      func() string
}

// Service runs the ingestion pipeline. It is safe for concurrent use;
// work on the same file name is serialised.
type Service struct {
	cfg   Config
	locks *keyedMutex
}

// New returns a Service.
func New(cfg Config) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = NewFileID
	}
	return &Service{cfg: cfg, locks: newKeyedMutex()}
}

// NewFileID returns a short random file id.
func NewFileID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}

// Upload is one file handed to the service.
type Upload struct {
	FileName string
	Data     []byte
	// Meta is set for admin uploads and stored on every chunk.
	Meta  *document.Meta
	Actor audit.Actor
}

// Result describes a successfully indexed file.
type Result struct {
	FileID   string `json:"fileId"`
	FileName string `json:"name"`
	Chunks   int    `json:"chunks"`
}

// DocumentSummary groups the sampled records of one file.
type DocumentSummary struct {
	FileName   string     `json:"fileName"`
	UploadedAt *time.Time `json:"uploadedAt,omitempty"`
	Chunks     int        `json:"chunks"`
}

// IngestFile validates, extracts, chunks, embeds and upserts one file.
// Validation failures are reported before any external call.
func (s *Service) IngestFile(ctx context.Context, up Upload) (*Result, error) {
	name := filepath.Base(strings.TrimSpace(up.FileName))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, badRequest("File is required")
	}
	if !extract.Supported(name) {
		return nil, unsupported("Unsupported file type: %s", strings.ToLower(filepath.Ext(name)))
	}
	if len(up.Data) == 0 {
		return nil, badRequest("File %s is empty", name)
	}

	pages, err := extract.Extract(name, up.Data)
	if err != nil {
		if errors.Is(err, extract.ErrUnsupported) {
			return nil, unsupported("%v", err)
		}
		return nil, &ServiceError{Op: "parse file content", Err: err}
	}

	doc := &document.Document{
		ID:       s.cfg.NewID(),
		FileName: name,
		Size:     int64(len(up.Data)),
		Pages:    pages,
	}
	if up.Meta != nil {
		doc.Meta = up.Meta.WithDefaults()
	}
	if doc.Empty() {
		return nil, badRequest("Extracted file content is empty. Cannot process.")
	}

	chunks := s.cfg.Chunker.Chunk(doc)
	if len(chunks) == 0 {
		return nil, badRequest("No text chunks could be generated from the file content.")
	}

	unlock := s.locks.Lock(name)
	defer unlock()

	if err := s.index(ctx, chunks); err != nil {
		s.record(ctx, audit.Event{
			Actor: up.Actor, Action: audit.ActionUpload, FileName: name, FileID: doc.ID,
			Status: audit.StatusFailed, Detail: err.Error(),
		})
		return nil, err
	}

	log.Printf("ingest: indexed %s (%d chunks, id %s)", name, len(chunks), doc.ID)
	s.record(ctx, audit.Event{
		Actor: up.Actor, Action: audit.ActionUpload, FileName: name, FileID: doc.ID,
		Chunks: len(chunks), Detail: doc.Meta.Title,
	})
	return &Result{FileID: doc.ID, FileName: name, Chunks: len(chunks)}, nil
}

// IngestFiles ingests uploads one after another. A file that fails is
// logged and skipped; only successes are returned.
func (s *Service) IngestFiles(ctx context.Context, uploads []Upload) []Result {
	results := make([]Result, 0, len(uploads))
	for _, up := range uploads {
		if err := ctx.Err(); err != nil {
			log.Printf("ingest: stopping batch: %v", err)
			break
		}
		res, err := s.IngestFile(ctx, up)
		if err != nil {
			log.Printf("ingest: skipping %s: %v", up.FileName, err)
			continue
		}
		results = append(results, *res)
	}
	return results
}

// index embeds chunks and writes them to the store.
func (s *Service) index(ctx context.Context, chunks []document.Chunk) error {
	vectors, err := s.cfg.Embeddings.EmbedChunks(ctx, chunks)
	if err != nil {
		return &ServiceError{Op: "generate embeddings", Err: err}
	}
	if len(vectors) == 0 {
		return &ServiceError{Op: "generate embeddings", Err: errors.New("no vectors returned")}
	}

	byID := make(map[string]document.Chunk, len(chunks))
	for _, ch := range chunks {
		byID[ch.ID] = ch
	}

	now := s.cfg.Now().UTC()
	records := make([]vectordb.Record, 0, len(vectors))
	for _, v := range vectors {
		ch, ok := byID[v.ChunkID]
		if !ok {
			continue
		}
		records = append(records, vectordb.Record{
			ID:     ch.ID,
			Values: v.Values,
			Metadata: vectordb.Metadata{
				FileName:   ch.FileName,
				ChunkIndex: ch.Index,
				PageNumber: ch.PageNumber,
				Content:    ch.Text,
				UploadedAt: now,
				DocTitle:   ch.Meta.Title,
				DocSource:  ch.Meta.Source,
				DocType:    ch.Meta.Type,
			},
		})
	}

	if err := s.cfg.Store.Upsert(ctx, records); err != nil {
		return &ServiceError{Op: "store vectors", Err: err}
	}
	return nil
}

// DeleteDocument removes every record of fileName and returns how many
// were targeted. Deleting an unknown file is not an error.
func (s *Service) DeleteDocument(ctx context.Context, fileName string, actor audit.Actor) (int, error) {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return 0, badRequest("File name is required")
	}

	unlock := s.locks.Lock(fileName)
	defer unlock()

	n, err := s.cfg.Store.DeleteByFileName(ctx, fileName)
	if err != nil {
		s.record(ctx, audit.Event{
			Actor: actor, Action: audit.ActionDelete, FileName: fileName,
			Status: audit.StatusFailed, Detail: err.Error(),
		})
		return 0, &ServiceError{Op: "delete document", Err: err}
	}

	log.Printf("ingest: deleted %d records of %s", n, fileName)
	s.record(ctx, audit.Event{Actor: actor, Action: audit.ActionDelete, FileName: fileName, Chunks: n})
	return n, nil
}

// ListDocuments samples up to limit records and groups them by file name
// in first-seen order. limit is clamped to [1, MaxListLimit]; zero means
// DefaultListLimit.
func (s *Service) ListDocuments(ctx context.Context, limit int) ([]DocumentSummary, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}

	sample, err := s.cfg.Store.Sample(ctx, limit)
	if err != nil {
		return nil, &ServiceError{Op: "list documents", Err: err}
	}
	return groupByFile(sample), nil
}

func groupByFile(sample []vectordb.Metadata) []DocumentSummary {
	index := make(map[string]int)
	out := []DocumentSummary{}
	for _, m := range sample {
		if m.FileName == "" {
			continue
		}
		i, ok := index[m.FileName]
		if !ok {
			i = len(out)
			index[m.FileName] = i
			out = append(out, DocumentSummary{FileName: m.FileName})
		}
		d := &out[i]
		d.Chunks++
		if m.UploadedAt.IsZero() {
			continue
		}
		if d.UploadedAt == nil || m.UploadedAt.Before(*d.UploadedAt) {
			t := m.UploadedAt
			d.UploadedAt = &t
		}
	}
	return out
}

// Seed upserts the built-in corpus. Chunk ids are deterministic, so
// seeding twice leaves one copy.
func (s *Service) Seed(ctx context.Context, actor audit.Actor) (int, error) {
	corpus, err := seed.Load()
	if err != nil {
		return 0, &ServiceError{Op: "load seed corpus", Err: err}
	}
	chunks := corpus.Chunks()

	unlock := s.locks.Lock(corpus.FileName)
	defer unlock()

	if err := s.index(ctx, chunks); err != nil {
		s.record(ctx, audit.Event{
			Actor: actor, Action: audit.ActionSeed, FileName: corpus.FileName,
			Status: audit.StatusFailed, Detail: err.Error(),
		})
		return 0, err
	}

	log.Printf("ingest: seeded %d passages", len(chunks))
	s.record(ctx, audit.Event{Actor: actor, Action: audit.ActionSeed, FileName: corpus.FileName, Chunks: len(chunks)})
	return len(chunks), nil
}

func (s *Service) record(ctx context.Context, event audit.Event) {
	if s.cfg.Audit == nil {
		return
	}
	if event.Actor == "" {
		event.Actor = audit.ActorUser
	}
	// The trail must not depend on the request still being alive.
	if err := s.cfg.Audit.Record(context.WithoutCancel(ctx), event); err != nil {
		log.Printf("ingest: audit: %v", err)
	}
}
