package vectordb

import (
	"fmt"
	"strconv"
	"time"
)

// SchemaVersion is stamped on every record written by this package.
const SchemaVersion = "1"

// Metadata keys as stored in the index. Values are always strings so
// that equality filters behave the same on every backend.
const (
	KeySchemaVersion = "schemaVersion"
	KeyFileName      = "fileName"
	KeyChunkIndex    = "chunkIndex"
	KeyPageNumber    = "pageNumber"
	KeyContent       = "content"
	KeyUploadedAt    = "uploadedAt"
	KeyDocTitle      = "docTitle"
	KeyDocSource     = "docSource"
	KeyDocType       = "docType"
)

// Metadata is the fixed schema attached to every record.
type Metadata struct {
	FileName   string
	ChunkIndex int
	PageNumber *int
	Content    string
	UploadedAt time.Time
	DocTitle   string
	DocSource  string
	DocType    string
}

// ToMap flattens the metadata into string values. Empty optional fields
// are omitted.
func (m Metadata) ToMap() map[string]string {
	out := map[string]string{
		KeySchemaVersion: SchemaVersion,
		KeyFileName:      m.FileName,
		KeyChunkIndex:    strconv.Itoa(m.ChunkIndex),
		KeyContent:       m.Content,
	}
	if m.PageNumber != nil {
		out[KeyPageNumber] = strconv.Itoa(*m.PageNumber)
	}
	if !m.UploadedAt.IsZero() {
		out[KeyUploadedAt] = m.UploadedAt.UTC().Format(time.RFC3339)
	}
	setIf(out, KeyDocTitle, m.DocTitle)
	setIf(out, KeyDocSource, m.DocSource)
	setIf(out, KeyDocType, m.DocType)
	return out
}

func setIf(m map[string]string, k, v string) {
	if v != "" {
		m[k] = v
	}
}

// ParseMetadata is the inverse of ToMap. content, fileName and chunkIndex
// are required; unparsable optional fields are dropped.
func ParseMetadata(m map[string]string) (Metadata, error) {
	content, ok := m[KeyContent]
	if !ok || content == "" {
		return Metadata{}, fmt.Errorf("missing %s", KeyContent)
	}
	fileName, ok := m[KeyFileName]
	if !ok || fileName == "" {
		return Metadata{}, fmt.Errorf("missing %s", KeyFileName)
	}
	rawIdx, ok := m[KeyChunkIndex]
	if !ok {
		return Metadata{}, fmt.Errorf("missing %s", KeyChunkIndex)
	}
	idx, err := strconv.Atoi(rawIdx)
	if err != nil || idx < 0 {
		return Metadata{}, fmt.Errorf("invalid %s %q", KeyChunkIndex, rawIdx)
	}

	md := Metadata{
		FileName:   fileName,
		ChunkIndex: idx,
		Content:    content,
		DocTitle:   m[KeyDocTitle],
		DocSource:  m[KeyDocSource],
		DocType:    m[KeyDocType],
	}
	if raw, ok := m[KeyPageNumber]; ok {
		if n, err := strconv.Atoi(raw); err == nil {
			md.PageNumber = &n
		}
	}
	if raw, ok := m[KeyUploadedAt]; ok {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			md.UploadedAt = ts
		}
	}
	return md, nil
}

// stringify converts loosely typed metadata (JSON numbers, booleans)
// into the string form ParseMetadata expects.
func stringify(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(val)
		case nil:
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}
