package vectordb

import "context"

// Store manages one vector index. Implementations must reject query
// vectors of the wrong dimension without contacting the backend.
type Store interface {
	// EnsureIndex creates the index if it does not exist yet.
	EnsureIndex(ctx context.Context) error

	// Upsert writes records in fixed-size batches, sequentially. Batches
	// written before a failure are not rolled back.
	Upsert(ctx context.Context, records []Record) error

	// Query returns up to topK nearest records, optionally filtered.
	Query(ctx context.Context, vector []float32, topK int, filter *Filter) ([]Match, error)

	// DeleteByFileName removes every record of a file and returns how
	// many ids were targeted.
	DeleteByFileName(ctx context.Context, fileName string) (int, error)

	// Sample returns the metadata of up to limit stored records.
	Sample(ctx context.Context, limit int) ([]Metadata, error)

	// Dimension is the configured vector length.
	Dimension() int

	// Name identifies the backend in logs.
	Name() string
}

// Record is the unit persisted in the index.
type Record struct {
	ID       string
	Values   []float32
	Metadata Metadata
}

// Match is a scored query result carrying what is needed for citations.
type Match struct {
	ID         string
	Score      float32
	Content    string
	FileName   string
	ChunkIndex int
	PageNumber *int
}

// Filter narrows a query by metadata equality.
type Filter struct {
	FileName string
}

// unitVector returns a unit vector for enumeration queries where the
// ranking is irrelevant. Some backends reject all-zero vectors.
func unitVector(dim int) []float32 {
	v := make([]float32, dim)
	if dim > 0 {
		v[0] = 1
	}
	return v
}

func matchFromMetadata(id string, score float32, m Metadata) Match {
	return Match{
		ID:         id,
		Score:      score,
		Content:    m.Content,
		FileName:   m.FileName,
		ChunkIndex: m.ChunkIndex,
		PageNumber: m.PageNumber,
	}
}
