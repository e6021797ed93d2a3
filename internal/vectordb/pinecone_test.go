package vectordb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// fakeControlPlane serves the index describe and create endpoints.
type fakeControlPlane struct {
	srv *httptest.Server

	mu           sync.Mutex
	exists       bool
	createStatus int // status returned by POST /indexes; 0 means 201
	created      map[string]any
	requests     []string
}

func newFakeControlPlane(t *testing.T, exists bool) *fakeControlPlane {
	f := &fakeControlPlane{exists: exists}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeControlPlane) requestCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if strings.HasPrefix(r, prefix) {
			n++
		}
	}
	return n
}

func indexModel() map[string]any {
	return map[string]any{
		"name":                "macbot",
		"dimension":           4,
		"metric":              "cosine",
		"host":                "macbot-abc123.svc.pinecone.io",
		"vector_type":         "dense",
		"deletion_protection": "disabled",
		"spec":                map[string]any{"serverless": map[string]any{"cloud": "aws", "region": "us-east-1"}},
		"status":              map[string]any{"ready": true, "state": "Ready"},
	}
}

func writeJSONError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":{"code":%q,"message":%q},"status":%d}`, code, msg, status)
}

func (f *fakeControlPlane) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)

	if r.Header.Get("Api-Key") != "test-key" {
		writeJSONError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "bad key")
		return
	}

	switch {
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/indexes/"):
		if !f.exists {
			writeJSONError(w, http.StatusNotFound, "NOT_FOUND", "Resource macbot not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(indexModel())

	case r.Method == http.MethodPost && r.URL.Path == "/indexes":
		json.NewDecoder(r.Body).Decode(&f.created)
		f.exists = true
		if f.createStatus != 0 {
			writeJSONError(w, f.createStatus, "ALREADY_EXISTS", "Resource already exists")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(indexModel())

	default:
		http.NotFound(w, r)
	}
}

// fakeIndex is an in-memory data plane with exact dot-product scoring.
type fakeIndex struct {
	mu      sync.Mutex
	vectors map[string]*pinecone.Vector
	calls   map[string]int
	closed  bool
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{vectors: map[string]*pinecone.Vector{}, calls: map[string]int{}}
}

func (f *fakeIndex) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeIndex) UpsertVectors(_ context.Context, in []*pinecone.Vector) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["upsert"]++
	for _, v := range in {
		f.vectors[v.Id] = v
	}
	return uint32(len(in)), nil
}

func (f *fakeIndex) QueryByVectorValues(_ context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["query"]++

	want := ""
	if in.MetadataFilter != nil {
		eq, _ := in.MetadataFilter.AsMap()[KeyFileName].(map[string]any)
		want, _ = eq["$eq"].(string)
	}

	var hits []*pinecone.ScoredVector
	for _, v := range f.vectors {
		if want != "" && v.Metadata.AsMap()[KeyFileName] != want {
			continue
		}
		var dot float32
		for i, x := range *v.Values {
			dot += x * in.Vector[i]
		}
		out := &pinecone.Vector{Id: v.Id}
		if in.IncludeMetadata {
			out.Metadata = v.Metadata
		}
		hits = append(hits, &pinecone.ScoredVector{Vector: out, Score: dot})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score == hits[j].Score {
			return hits[i].Vector.Id < hits[j].Vector.Id
		}
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > int(in.TopK) {
		hits = hits[:in.TopK]
	}
	return &pinecone.QueryVectorsResponse{Matches: hits}, nil
}

func (f *fakeIndex) DeleteVectorsById(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["delete"]++
	for _, id := range ids {
		delete(f.vectors, id)
	}
	return nil
}

func (f *fakeIndex) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func newTestPinecone(t *testing.T, cp *fakeControlPlane, apiKey string) (*PineconeStore, *fakeIndex, *[]string) {
	t.Helper()
	s, err := NewPineconeStore(PineconeConfig{
		APIKey:      apiKey,
		Index:       "macbot",
		Dimension:   4,
		Cloud:       "aws",
		Region:      "us-east-1",
		ControlURL:  cp.srv.URL,
		SettleDelay: time.Minute,
		DeleteBatch: 2,
	})
	require.NoError(t, err)

	idx := newFakeIndex()
	var dialled []string
	s.sleep = func(context.Context, time.Duration) error { return nil }
	s.dial = func(host string) (indexConn, error) {
		dialled = append(dialled, host)
		return idx, nil
	}
	return s, idx, &dialled
}

func record(id, file string, idx int, values ...float32) Record {
	return Record{ID: id, Values: values, Metadata: Metadata{FileName: file, ChunkIndex: idx, Content: "text of " + id}}
}

func TestPineconeEnsureIndexCreatesMissing(t *testing.T) {
	cp := newFakeControlPlane(t, false)
	s, _, dialled := newTestPinecone(t, cp, "test-key")

	var slept time.Duration
	s.sleep = func(_ context.Context, d time.Duration) error { slept = d; return nil }

	require.NoError(t, s.EnsureIndex(context.Background()))
	assert.Equal(t, time.Minute, slept)
	assert.EqualValues(t, 4, cp.created["dimension"])
	assert.Equal(t, "cosine", cp.created["metric"])
	spec := cp.created["spec"].(map[string]any)["serverless"].(map[string]any)
	assert.Equal(t, "aws", spec["cloud"])
	assert.Equal(t, "us-east-1", spec["region"])
	assert.Equal(t, []string{"macbot-abc123.svc.pinecone.io"}, *dialled)

	// The connection is reused after the first resolution.
	require.NoError(t, s.EnsureIndex(context.Background()))
	assert.Equal(t, 2, cp.requestCount("GET /indexes/"))
	assert.Len(t, *dialled, 1)
}

func TestPineconeEnsureIndexExisting(t *testing.T) {
	cp := newFakeControlPlane(t, true)
	s, _, _ := newTestPinecone(t, cp, "test-key")
	require.NoError(t, s.EnsureIndex(context.Background()))
	assert.Equal(t, 0, cp.requestCount("POST /indexes"))
}

func TestPineconeEnsureIndexConflictIsSuccess(t *testing.T) {
	cp := newFakeControlPlane(t, false)
	cp.createStatus = http.StatusConflict
	s, _, _ := newTestPinecone(t, cp, "test-key")
	assert.NoError(t, s.EnsureIndex(context.Background()))
}

func TestPineconeEnsureIndexOtherErrorIsFatal(t *testing.T) {
	cp := newFakeControlPlane(t, true)
	s, _, dialled := newTestPinecone(t, cp, "wrong")
	err := s.EnsureIndex(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, cp.requestCount("POST /indexes"))
	assert.Empty(t, *dialled)
}

func TestPineconeUpsertBatchesAndRoundTrip(t *testing.T) {
	cp := newFakeControlPlane(t, true)
	s, idx, _ := newTestPinecone(t, cp, "test-key")
	s.cfg.UpsertBatch = 2
	ctx := context.Background()

	page := 4
	recs := []Record{
		record("a-chunk-0", "a.txt", 0, 1, 0, 0, 0),
		record("a-chunk-1", "a.txt", 1, 0, 1, 0, 0),
		record("a-chunk-17", "a.txt", 17, 0, 0, 1, 0),
	}
	recs[2].Metadata.PageNumber = &page
	require.NoError(t, s.Upsert(ctx, recs))
	assert.Equal(t, 2, idx.count("upsert"))

	matches, err := s.Query(ctx, []float32{0, 0, 1, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a-chunk-17", matches[0].ID)
	assert.Equal(t, 17, matches[0].ChunkIndex)
	require.NotNil(t, matches[0].PageNumber)
	assert.Equal(t, 4, *matches[0].PageNumber)
	assert.Equal(t, "a.txt", matches[0].FileName)
}

func TestPineconeUpsertEmptyIsNoop(t *testing.T) {
	cp := newFakeControlPlane(t, true)
	s, idx, dialled := newTestPinecone(t, cp, "test-key")
	require.NoError(t, s.Upsert(context.Background(), nil))
	assert.Empty(t, cp.requests)
	assert.Empty(t, *dialled)
	assert.Equal(t, 0, idx.count("upsert"))
}

func TestPineconeQueryDimensionGuard(t *testing.T) {
	cp := newFakeControlPlane(t, true)
	s, idx, _ := newTestPinecone(t, cp, "test-key")
	matches, err := s.Query(context.Background(), []float32{1, 2, 3}, 3, nil)
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.Empty(t, cp.requests, "no network call on dimension mismatch")
	assert.Equal(t, 0, idx.count("query"))
}

func TestPineconeQuerySkipsBadMetadata(t *testing.T) {
	cp := newFakeControlPlane(t, true)
	s, idx, _ := newTestPinecone(t, cp, "test-key")
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []Record{record("good", "x", 0, 1, 0, 0, 0)}))
	bad, err := toStruct(map[string]string{KeyFileName: "x"})
	require.NoError(t, err)
	values := []float32{1, 0, 0, 0}
	idx.vectors["bad"] = &pinecone.Vector{Id: "bad", Values: &values, Metadata: bad}

	matches, err := s.Query(ctx, []float32{1, 0, 0, 0}, 5, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "good", matches[0].ID)
}

func TestPineconeDeleteByFileNameIsIdempotent(t *testing.T) {
	cp := newFakeControlPlane(t, true)
	s, idx, _ := newTestPinecone(t, cp, "test-key")
	ctx := context.Background()

	var recs []Record
	for i := 0; i < 5; i++ {
		recs = append(recs, record(fmt.Sprintf("x-chunk-%d", i), "x.txt", i, 1, float32(i), 0, 0))
	}
	recs = append(recs, record("y-chunk-0", "y.txt", 0, 0, 1, 0, 0))
	require.NoError(t, s.Upsert(ctx, recs))

	n, err := s.DeleteByFileName(ctx, "x.txt")
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 3, idx.count("delete"), "5 ids in batches of 2")

	n, err = s.DeleteByFileName(ctx, "x.txt")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	sample, err := s.Sample(ctx, 10)
	require.NoError(t, err)
	require.Len(t, sample, 1)
	assert.Equal(t, "y.txt", sample[0].FileName)
}

func TestPineconeDataPlaneErrorIsWrapped(t *testing.T) {
	cp := newFakeControlPlane(t, true)
	s, _, _ := newTestPinecone(t, cp, "test-key")
	s.dial = func(string) (indexConn, error) {
		return failingIndex{status.Error(codes.Unavailable, "connection refused")}, nil
	}

	_, err := s.Query(context.Background(), []float32{1, 0, 0, 0}, 3, nil)
	require.Error(t, err)
	assert.Equal(t, codes.Unavailable, status.Code(err))
	assert.Equal(t, ErrorOther, ClassifyStoreError(err))
}

func TestPineconeClose(t *testing.T) {
	cp := newFakeControlPlane(t, true)
	s, idx, _ := newTestPinecone(t, cp, "test-key")
	require.NoError(t, s.Close(), "closing before first use")
	require.NoError(t, s.EnsureIndex(context.Background()))
	require.NoError(t, s.Close())
	assert.True(t, idx.closed)
}

type failingIndex struct{ err error }

func (f failingIndex) UpsertVectors(context.Context, []*pinecone.Vector) (uint32, error) {
	return 0, f.err
}

func (f failingIndex) QueryByVectorValues(context.Context, *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error) {
	return nil, f.err
}

func (f failingIndex) DeleteVectorsById(context.Context, []string) error { return f.err }
func (f failingIndex) Close() error                                      { return nil }
