// Package chunker splits document text into overlapping windows.
package chunker

import (
	"fmt"
	"strings"

	"github.com/ziadkadry99/macbot/internal/document"
)

// Chunker produces fixed-size, overlapping windows over text. Sizes and
// offsets are measured in runes.
type Chunker struct {
	size           int
	overlap        int
	wordBoundaries bool
}

// Window is one emitted chunk and the rune offset it starts at.
type Window struct {
	Start int
	Text  string
}

// New returns a Chunker. overlap may exceed size; the window start still
// advances by at least one rune per step.
func New(size, overlap int, wordBoundaries bool) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunk overlap must be non-negative, got %d", overlap)
	}
	return &Chunker{size: size, overlap: overlap, wordBoundaries: wordBoundaries}, nil
}

// Windows returns the trimmed, non-empty windows of text in reading order.
func (c *Chunker) Windows(text string) []Window {
	runes := []rune(text)
	if c.wordBoundaries {
		return c.wordWindows(runes)
	}
	return c.fixedWindows(runes)
}

// Split is Windows without offsets.
func (c *Chunker) Split(text string) []string {
	windows := c.Windows(text)
	out := make([]string, len(windows))
	for i, w := range windows {
		out[i] = w.Text
	}
	return out
}

func (c *Chunker) fixedWindows(runes []rune) []Window {
	step := c.size - c.overlap
	if step < 1 {
		step = 1
	}

	var out []Window
	for start := 0; start < len(runes); start += step {
		end := min(start+c.size, len(runes))
		if t := strings.TrimSpace(string(runes[start:end])); t != "" {
			out = append(out, Window{Start: start, Text: t})
		}
		if end == len(runes) {
			break
		}
	}
	return out
}

func (c *Chunker) wordWindows(runes []rune) []Window {
	var out []Window
	start := 0
	for start < len(runes) {
		end := min(start+c.size, len(runes))
		if end < len(runes) {
			if bp := lastBreak(runes, start, end); bp > start {
				end = bp
			}
		}
		if t := strings.TrimSpace(string(runes[start:end])); t != "" {
			out = append(out, Window{Start: start, Text: t})
		}
		if end >= len(runes) {
			break
		}
		next := end - c.overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return out
}

// lastBreak finds the last space or newline at or before end and after start.
func lastBreak(runes []rune, start, end int) int {
	for i := end; i > start; i-- {
		if runes[i] == ' ' || runes[i] == '\n' {
			return i
		}
	}
	return -1
}

// Chunk splits every page of doc and numbers the chunks across pages.
func (c *Chunker) Chunk(doc *document.Document) []document.Chunk {
	var chunks []document.Chunk
	for _, page := range doc.Pages {
		var pageNumber *int
		if page.Number > 0 {
			n := page.Number
			pageNumber = &n
		}
		for _, w := range c.Windows(page.Text) {
			idx := len(chunks)
			chunks = append(chunks, document.Chunk{
				ID:         document.ChunkID(doc.ID, idx),
				DocumentID: doc.ID,
				Text:       w.Text,
				Index:      idx,
				PageNumber: pageNumber,
				FileName:   doc.FileName,
				Meta:       doc.Meta,
			})
		}
	}
	return chunks
}
