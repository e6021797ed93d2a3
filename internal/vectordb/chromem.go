package vectordb

import (
	"context"
	"fmt"
	"log"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

// ChromemStore implements Store in-process using chromem-go. With a
// directory it persists through chromem's own on-disk format.
type ChromemStore struct {
	db          *chromem.DB
	name        string
	dims        int
	embedFunc   chromem.EmbeddingFunc
	deleteBatch int

	mu         sync.Mutex
	collection *chromem.Collection
}

// NewChromemStore opens an in-memory store, or a persistent one when dir
// is not empty. embedFunc is only used if a record arrives without values.
func NewChromemStore(name string, dims int, dir string, embedFunc chromem.EmbeddingFunc) (*ChromemStore, error) {
	db := chromem.NewDB()
	if dir != "" {
		var err error
		db, err = chromem.NewPersistentDB(dir, true)
		if err != nil {
			return nil, fmt.Errorf("open chromem db %s: %w", dir, err)
		}
	}
	return &ChromemStore{
		db:          db,
		name:        name,
		dims:        dims,
		embedFunc:   embedFunc,
		deleteBatch: 1000,
	}, nil
}

func (s *ChromemStore) Name() string   { return "chromem" }
func (s *ChromemStore) Dimension() int { return s.dims }

func (s *ChromemStore) EnsureIndex(ctx context.Context) error {
	_, err := s.col()
	return err
}

func (s *ChromemStore) col() (*chromem.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collection != nil {
		return s.collection, nil
	}

	if c := s.db.GetCollection(s.name, s.embedFunc); c != nil {
		s.collection = c
		return c, nil
	}

	c, err := s.db.CreateCollection(s.name, map[string]string{KeySchemaVersion: SchemaVersion}, s.embedFunc)
	if err != nil {
		if ClassifyChromemError(err) != ErrorConflict {
			return nil, fmt.Errorf("create collection %s: %w", s.name, err)
		}
		c = s.db.GetCollection(s.name, s.embedFunc)
		if c == nil {
			return nil, fmt.Errorf("collection %s disappeared after conflict: %w", s.name, err)
		}
	}
	s.collection = c
	return c, nil
}

func (s *ChromemStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	col, err := s.col()
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		if len(r.Values) != s.dims {
			return fmt.Errorf("record %s has %d dimensions, want %d", r.ID, len(r.Values), s.dims)
		}
		docs[i] = chromem.Document{
			ID:        r.ID,
			Metadata:  r.Metadata.ToMap(),
			Embedding: r.Values,
			Content:   r.Metadata.Content,
		}
	}
	return col.AddDocuments(ctx, docs, 1)
}

func (s *ChromemStore) queryRaw(ctx context.Context, vector []float32, topK int, where map[string]string) ([]chromem.Result, error) {
	col, err := s.col()
	if err != nil {
		return nil, err
	}
	// chromem-go requires nResults <= collection size.
	count := col.Count()
	if count == 0 || topK <= 0 {
		return nil, nil
	}
	return col.QueryEmbedding(ctx, vector, min(topK, count), where, nil)
}

func (s *ChromemStore) Query(ctx context.Context, vector []float32, topK int, filter *Filter) ([]Match, error) {
	if len(vector) != s.dims {
		log.Printf("vectordb: warning: query vector has %d dimensions, want %d", len(vector), s.dims)
		return nil, nil
	}

	var where map[string]string
	if filter != nil && filter.FileName != "" {
		where = map[string]string{KeyFileName: filter.FileName}
	}
	results, err := s.queryRaw(ctx, vector, topK, where)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		md, err := ParseMetadata(r.Metadata)
		if err != nil {
			log.Printf("vectordb: warning: skipping match %s: %v", r.ID, err)
			continue
		}
		matches = append(matches, matchFromMetadata(r.ID, r.Similarity, md))
	}
	return matches, nil
}

func (s *ChromemStore) DeleteByFileName(ctx context.Context, fileName string) (int, error) {
	results, err := s.queryRaw(ctx, unitVector(s.dims), 10000, map[string]string{KeyFileName: fileName})
	if err != nil {
		return 0, fmt.Errorf("finding documents for %s: %w", fileName, err)
	}
	if len(results) == 0 {
		return 0, nil
	}
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}

	col, err := s.col()
	if err != nil {
		return 0, err
	}
	for start := 0; start < len(ids); start += s.deleteBatch {
		end := min(start+s.deleteBatch, len(ids))
		if err := col.Delete(ctx, nil, nil, ids[start:end]...); err != nil {
			return 0, fmt.Errorf("deleting batch at offset %d: %w", start, err)
		}
	}
	return len(ids), nil
}

func (s *ChromemStore) Sample(ctx context.Context, limit int) ([]Metadata, error) {
	results, err := s.queryRaw(ctx, unitVector(s.dims), limit, nil)
	if err != nil {
		return nil, fmt.Errorf("sampling collection: %w", err)
	}
	out := make([]Metadata, 0, len(results))
	for _, r := range results {
		if md, err := ParseMetadata(r.Metadata); err == nil {
			out = append(out, md)
		}
	}
	return out, nil
}

// Count returns the number of stored records.
func (s *ChromemStore) Count() int {
	col, err := s.col()
	if err != nil {
		return 0
	}
	return col.Count()
}
