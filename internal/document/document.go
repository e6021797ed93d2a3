// Package document holds the transient shapes a file passes through
// between upload and indexing.
package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DefaultType is recorded when an uploader does not declare a document type.
const DefaultType = "unknown"

// ErrMissingTitle is returned by ParseMeta when the title field is empty.
var ErrMissingTitle = errors.New("title is required")

// Meta is the uploader-declared description of a document.
type Meta struct {
	Title  string `json:"title"`
	Source string `json:"source,omitempty"`
	Type   string `json:"type,omitempty"`
}

// WithDefaults fills optional fields with their defaults.
func (m Meta) WithDefaults() Meta {
	m.Title = strings.TrimSpace(m.Title)
	m.Source = strings.TrimSpace(m.Source)
	m.Type = strings.TrimSpace(m.Type)
	if m.Type == "" {
		m.Type = DefaultType
	}
	return m
}

// ParseMeta decodes the JSON metadata field of an admin upload.
func ParseMeta(raw string) (Meta, error) {
	var m Meta
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return Meta{}, fmt.Errorf("invalid metadata JSON: %w", err)
	}
	m = m.WithDefaults()
	if m.Title == "" {
		return Meta{}, ErrMissingTitle
	}
	return m, nil
}

// Page is a unit of extracted text. Number is 1-based; zero means the
// source format has no page structure.
type Page struct {
	Number int
	Text   string
}

// Document is an uploaded file after text extraction. It only lives for
// the duration of one ingestion.
type Document struct {
	ID       string
	FileName string
	Size     int64
	Meta     Meta
	Pages    []Page
}

// Text returns the concatenated text of all pages.
func (d *Document) Text() string {
	parts := make([]string, 0, len(d.Pages))
	for _, p := range d.Pages {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, "\n\n")
}

// Empty reports whether the document has no non-whitespace text.
func (d *Document) Empty() bool {
	for _, p := range d.Pages {
		if strings.TrimSpace(p.Text) != "" {
			return false
		}
	}
	return true
}

// Chunk is a bounded, overlapping slice of a document's text.
type Chunk struct {
	ID         string
	DocumentID string
	Text       string
	Index      int
	PageNumber *int
	FileName   string
	Meta       Meta
}

// ChunkID derives the id of the chunk at the given ordinal.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s-chunk-%d", documentID, index)
}
