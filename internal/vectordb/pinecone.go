package vectordb

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"google.golang.org/protobuf/types/known/structpb"
)

// PineconeConfig configures a PineconeStore.
type PineconeConfig struct {
	APIKey    string
	Index     string
	Dimension int
	Metric    string
	Cloud     string
	Region    string
	Namespace string

	// ControlURL overrides the control-plane endpoint.
	ControlURL string
	// SettleDelay is waited after creating an index before it is used.
	SettleDelay time.Duration

	UpsertBatch int
	DeleteBatch int
	DeleteCap   int
	Timeout     time.Duration
}

// indexConn is the part of *pinecone.IndexConnection the store uses.
type indexConn interface {
	UpsertVectors(ctx context.Context, in []*pinecone.Vector) (uint32, error)
	QueryByVectorValues(ctx context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error)
	DeleteVectorsById(ctx context.Context, ids []string) error
	Close() error
}

// PineconeStore serves one serverless Pinecone index. The data-plane
// connection is opened on first use and reused.
type PineconeStore struct {
	cfg    PineconeConfig
	client *pinecone.Client

	mu  sync.Mutex
	idx indexConn

	// swapped out in tests
	sleep func(ctx context.Context, d time.Duration) error
	dial  func(host string) (indexConn, error)
}

// NewPineconeStore returns a store; nothing is contacted until first use.
func NewPineconeStore(cfg PineconeConfig) (*PineconeStore, error) {
	if cfg.Metric == "" {
		cfg.Metric = "cosine"
	}
	if cfg.UpsertBatch <= 0 {
		cfg.UpsertBatch = 100
	}
	if cfg.DeleteBatch <= 0 {
		cfg.DeleteBatch = 1000
	}
	if cfg.DeleteCap <= 0 {
		cfg.DeleteCap = 10000
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	client, err := pinecone.NewClient(pinecone.NewClientParams{
		ApiKey:     cfg.APIKey,
		Host:       cfg.ControlURL,
		RestClient: &http.Client{Timeout: timeout},
		SourceTag:  "macbot",
	})
	if err != nil {
		return nil, fmt.Errorf("creating pinecone client: %w", err)
	}

	s := &PineconeStore{cfg: cfg, client: client, sleep: sleepCtx}
	s.dial = func(host string) (indexConn, error) {
		return client.Index(pinecone.NewIndexConnParams{Host: host, Namespace: cfg.Namespace})
	}
	return s, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *PineconeStore) Name() string   { return "pinecone" }
func (s *PineconeStore) Dimension() int { return s.cfg.Dimension }

// Close releases the data-plane connection, if one was opened.
func (s *PineconeStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx == nil {
		return nil
	}
	err := s.idx.Close()
	s.idx = nil
	return err
}

// EnsureIndex describes the index and creates it when the describe call
// reports it missing. A conflicting concurrent create counts as success.
func (s *PineconeStore) EnsureIndex(ctx context.Context) error {
	_, err := s.index(ctx)
	return err
}

func (s *PineconeStore) index(ctx context.Context) (indexConn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx != nil {
		return s.idx, nil
	}

	host, err := s.resolveHost(ctx)
	if err != nil {
		return nil, err
	}
	idx, err := s.dial(host)
	if err != nil {
		return nil, fmt.Errorf("connecting to index %s at %s: %w", s.cfg.Index, host, err)
	}
	s.idx = idx
	return idx, nil
}

// resolveHost must be called with s.mu held.
func (s *PineconeStore) resolveHost(ctx context.Context) (string, error) {
	desc, err := s.client.DescribeIndex(ctx, s.cfg.Index)
	if err == nil {
		return desc.Host, nil
	}
	if ClassifyPineconeError(err) != ErrorNotFound {
		return "", fmt.Errorf("describing index %s: %w", s.cfg.Index, err)
	}

	log.Printf("vectordb: index %s not found, creating (dimension %d, %s)", s.cfg.Index, s.cfg.Dimension, s.cfg.Metric)
	dim := int32(s.cfg.Dimension)
	metric := pinecone.IndexMetric(s.cfg.Metric)
	_, err = s.client.CreateServerlessIndex(ctx, &pinecone.CreateServerlessIndexRequest{
		Name:      s.cfg.Index,
		Dimension: &dim,
		Metric:    &metric,
		Cloud:     pinecone.Cloud(s.cfg.Cloud),
		Region:    s.cfg.Region,
	})
	if err != nil {
		if ClassifyPineconeError(err) != ErrorConflict {
			return "", fmt.Errorf("creating index %s: %w", s.cfg.Index, err)
		}
		log.Printf("vectordb: index %s was created concurrently", s.cfg.Index)
	}

	if err := s.sleep(ctx, s.cfg.SettleDelay); err != nil {
		return "", err
	}

	desc, err = s.client.DescribeIndex(ctx, s.cfg.Index)
	if err != nil {
		return "", fmt.Errorf("describing new index %s: %w", s.cfg.Index, err)
	}
	if desc.Host == "" {
		return "", fmt.Errorf("index %s has no host yet", s.cfg.Index)
	}
	return desc.Host, nil
}

func toStruct(m map[string]string) (*structpb.Struct, error) {
	fields := make(map[string]any, len(m))
	for k, v := range m {
		fields[k] = v
	}
	return structpb.NewStruct(fields)
}

func (s *PineconeStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if len(r.Values) != s.cfg.Dimension {
			return fmt.Errorf("record %s has %d dimensions, want %d", r.ID, len(r.Values), s.cfg.Dimension)
		}
	}

	idx, err := s.index(ctx)
	if err != nil {
		return err
	}

	for start := 0; start < len(records); start += s.cfg.UpsertBatch {
		end := min(start+s.cfg.UpsertBatch, len(records))
		vectors := make([]*pinecone.Vector, 0, end-start)
		for _, r := range records[start:end] {
			md, err := toStruct(r.Metadata.ToMap())
			if err != nil {
				return fmt.Errorf("encoding metadata of %s: %w", r.ID, err)
			}
			values := r.Values
			vectors = append(vectors, &pinecone.Vector{Id: r.ID, Values: &values, Metadata: md})
		}
		if _, err := idx.UpsertVectors(ctx, vectors); err != nil {
			return fmt.Errorf("upserting batch at offset %d: %w", start, err)
		}
	}
	return nil
}

func (s *PineconeStore) query(ctx context.Context, vector []float32, topK int, filter *Filter, withMetadata bool) (*pinecone.QueryVectorsResponse, error) {
	idx, err := s.index(ctx)
	if err != nil {
		return nil, err
	}
	req := &pinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            uint32(topK),
		IncludeMetadata: withMetadata,
	}
	if filter != nil && filter.FileName != "" {
		req.MetadataFilter, err = structpb.NewStruct(map[string]any{
			KeyFileName: map[string]any{"$eq": filter.FileName},
		})
		if err != nil {
			return nil, err
		}
	}
	return idx.QueryByVectorValues(ctx, req)
}

func scoredMetadata(m *pinecone.ScoredVector) (string, Metadata, error) {
	if m == nil || m.Vector == nil {
		return "", Metadata{}, fmt.Errorf("empty match")
	}
	var raw map[string]any
	if m.Vector.Metadata != nil {
		raw = m.Vector.Metadata.AsMap()
	}
	md, err := ParseMetadata(stringify(raw))
	return m.Vector.Id, md, err
}

// Query returns an empty result without contacting Pinecone when the
// vector has the wrong dimension.
func (s *PineconeStore) Query(ctx context.Context, vector []float32, topK int, filter *Filter) ([]Match, error) {
	if len(vector) != s.cfg.Dimension {
		log.Printf("vectordb: warning: query vector has %d dimensions, want %d", len(vector), s.cfg.Dimension)
		return nil, nil
	}
	if topK <= 0 {
		return nil, nil
	}

	resp, err := s.query(ctx, vector, topK, filter, true)
	if err != nil {
		return nil, fmt.Errorf("pinecone query: %w", err)
	}

	matches := make([]Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		id, md, err := scoredMetadata(m)
		if err != nil {
			log.Printf("vectordb: warning: skipping match %s: %v", id, err)
			continue
		}
		matches = append(matches, matchFromMetadata(id, m.Score, md))
	}
	return matches, nil
}

// DeleteByFileName queries for matching ids, then deletes them in batches;
// serverless indexes do not delete by metadata filter.
func (s *PineconeStore) DeleteByFileName(ctx context.Context, fileName string) (int, error) {
	resp, err := s.query(ctx, unitVector(s.cfg.Dimension), s.cfg.DeleteCap, &Filter{FileName: fileName}, false)
	if err != nil {
		return 0, fmt.Errorf("finding vectors for %s: %w", fileName, err)
	}
	ids := make([]string, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if m != nil && m.Vector != nil {
			ids = append(ids, m.Vector.Id)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	idx, err := s.index(ctx)
	if err != nil {
		return 0, err
	}
	for start := 0; start < len(ids); start += s.cfg.DeleteBatch {
		end := min(start+s.cfg.DeleteBatch, len(ids))
		if err := idx.DeleteVectorsById(ctx, ids[start:end]); err != nil {
			return 0, fmt.Errorf("deleting batch at offset %d: %w", start, err)
		}
	}
	return len(ids), nil
}

func (s *PineconeStore) Sample(ctx context.Context, limit int) ([]Metadata, error) {
	if limit <= 0 {
		return nil, nil
	}
	resp, err := s.query(ctx, unitVector(s.cfg.Dimension), limit, nil, true)
	if err != nil {
		return nil, fmt.Errorf("sampling index: %w", err)
	}
	out := make([]Metadata, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		_, md, err := scoredMetadata(m)
		if err != nil {
			continue
		}
		out = append(out, md)
	}
	return out, nil
}
