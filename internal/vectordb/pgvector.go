package vectordb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// PGVectorStore implements Store on PostgreSQL with the pgvector
// extension. One table holds one index.
type PGVectorStore struct {
	db          *sql.DB
	table       string
	dims        int
	upsertBatch int
	deleteBatch int
	deleteCap   int
}

// NewPGVectorStore connects to dsn. The table is created by EnsureIndex.
func NewPGVectorStore(dsn, table string, dims int) (*PGVectorStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open database connection: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	return &PGVectorStore{
		db:          db,
		table:       table,
		dims:        dims,
		upsertBatch: 100,
		deleteBatch: 1000,
		deleteCap:   10000,
	}, nil
}

func (s *PGVectorStore) Name() string   { return "pgvector" }
func (s *PGVectorStore) Dimension() int { return s.dims }

// Close releases the connection pool.
func (s *PGVectorStore) Close() error { return s.db.Close() }

func (s *PGVectorStore) quoted() string { return pq.QuoteIdentifier(s.table) }

// EnsureIndex looks the table up by its quoted name, so hyphens and
// mixed case resolve the same way the CREATE statement spells them.
func (s *PGVectorStore) EnsureIndex(ctx context.Context) error {
	var reg sql.NullString
	if err := s.db.QueryRowContext(ctx, `SELECT to_regclass($1)::text`, s.quoted()).Scan(&reg); err != nil {
		return fmt.Errorf("checking table %s: %w", s.table, err)
	}
	if reg.Valid {
		return nil
	}

	log.Printf("vectordb: table %s not found, creating (dimension %d)", s.table, s.dims)
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE %s (
			id TEXT PRIMARY KEY,
			file_name TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			metadata JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.quoted(), s.dims),
		fmt.Sprintf(`CREATE INDEX %s ON %s (file_name)`, pq.QuoteIdentifier(s.table+"_file_name_idx"), s.quoted()),
		fmt.Sprintf(`CREATE INDEX %s ON %s USING hnsw (embedding vector_cosine_ops)`, pq.QuoteIdentifier(s.table+"_embedding_idx"), s.quoted()),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			if ClassifyPostgresError(err) == ErrorConflict {
				log.Printf("vectordb: table %s was created concurrently", s.table)
				return nil
			}
			return fmt.Errorf("creating table %s: %w", s.table, err)
		}
	}
	return nil
}

func (s *PGVectorStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, file_name, embedding, metadata)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET file_name = EXCLUDED.file_name, embedding = EXCLUDED.embedding, metadata = EXCLUDED.metadata
	`, s.quoted())

	for start := 0; start < len(records); start += s.upsertBatch {
		end := min(start+s.upsertBatch, len(records))
		if err := s.upsertBatchTx(ctx, query, records[start:end]); err != nil {
			return fmt.Errorf("upserting batch at offset %d: %w", start, err)
		}
	}
	return nil
}

func (s *PGVectorStore) upsertBatchTx(ctx context.Context, query string, batch []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, r := range batch {
		if len(r.Values) != s.dims {
			return fmt.Errorf("record %s has %d dimensions, want %d", r.ID, len(r.Values), s.dims)
		}
		md, err := json.Marshal(r.Metadata.ToMap())
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, r.ID, r.Metadata.FileName, pgvector.NewVector(r.Values), md); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *PGVectorStore) Query(ctx context.Context, vector []float32, topK int, filter *Filter) ([]Match, error) {
	if len(vector) != s.dims {
		log.Printf("vectordb: warning: query vector has %d dimensions, want %d", len(vector), s.dims)
		return nil, nil
	}
	if topK <= 0 {
		return nil, nil
	}

	args := []any{pgvector.NewVector(vector), topK}
	where := ""
	if filter != nil && filter.FileName != "" {
		where = "WHERE file_name = $3"
		args = append(args, filter.FileName)
	}
	query := fmt.Sprintf(`
		SELECT id, metadata, 1 - (embedding <=> $1) AS score
		FROM %s %s
		ORDER BY embedding <=> $1
		LIMIT $2
	`, s.quoted(), where)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search query: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			id    string
			raw   []byte
			score float64
		)
		if err := rows.Scan(&id, &raw, &score); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		md, err := decodeMetadata(raw)
		if err != nil {
			log.Printf("vectordb: warning: skipping match %s: %v", id, err)
			continue
		}
		matches = append(matches, matchFromMetadata(id, float32(score), md))
	}
	return matches, rows.Err()
}

func decodeMetadata(raw []byte) (Metadata, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return Metadata{}, err
	}
	return ParseMetadata(stringify(m))
}

func (s *PGVectorStore) DeleteByFileName(ctx context.Context, fileName string) (int, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id FROM %s WHERE file_name = $1 LIMIT $2`, s.quoted()), fileName, s.deleteCap)
	if err != nil {
		return 0, fmt.Errorf("finding rows for %s: %w", fileName, err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	del := fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1)`, s.quoted())
	for start := 0; start < len(ids); start += s.deleteBatch {
		end := min(start+s.deleteBatch, len(ids))
		if _, err := s.db.ExecContext(ctx, del, pq.Array(ids[start:end])); err != nil {
			return 0, fmt.Errorf("deleting batch at offset %d: %w", start, err)
		}
	}
	return len(ids), nil
}

func (s *PGVectorStore) Sample(ctx context.Context, limit int) ([]Metadata, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT metadata FROM %s ORDER BY created_at LIMIT $1`, s.quoted()), limit)
	if err != nil {
		return nil, fmt.Errorf("sampling table: %w", err)
	}
	defer rows.Close()

	var out []Metadata
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		if md, err := decodeMetadata(raw); err == nil {
			out = append(out, md)
		}
	}
	return out, rows.Err()
}
