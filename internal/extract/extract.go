// Package extract turns uploaded file bytes into plain text pages.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ziadkadry99/macbot/internal/document"
)

// ErrUnsupported is returned for file extensions with no extractor.
var ErrUnsupported = errors.New("unsupported file type")

type extractor func(data []byte) ([]document.Page, error)

var extractors = map[string]extractor{
	".txt":  plainText,
	".md":   markdown,
	".pdf":  pdfPages,
	".docx": docx,
	".doc":  docx,
}

// Extensions lists the supported file extensions.
func Extensions() []string {
	return []string{".txt", ".md", ".pdf", ".docx", ".doc"}
}

// Supported reports whether fileName has an extractable extension.
func Supported(fileName string) bool {
	_, ok := extractors[ext(fileName)]
	return ok
}

// Extract returns the normalized text of the file, one Page per source
// page for paged formats and a single unnumbered Page otherwise.
func Extract(fileName string, data []byte) ([]document.Page, error) {
	fn, ok := extractors[ext(fileName)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(fileName))
	}
	pages, err := fn(data)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", fileName, err)
	}
	for i := range pages {
		pages[i].Text = Normalize(pages[i].Text)
	}
	return pages, nil
}

func ext(fileName string) string {
	return strings.ToLower(filepath.Ext(fileName))
}

func plainText(data []byte) ([]document.Page, error) {
	return []document.Page{{Text: string(data)}}, nil
}

var (
	horizontalSpace = regexp.MustCompile(`[ \t\f\v\x{00a0}]+`)
	spaceAroundEOL  = regexp.MustCompile(` *\n *`)
	blankLines      = regexp.MustCompile(`\n{3,}`)
)

// Normalize unifies line endings, collapses runs of horizontal
// whitespace and limits blank lines to one.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\x00", "")
	s = horizontalSpace.ReplaceAllString(s, " ")
	s = spaceAroundEOL.ReplaceAllString(s, "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
