package extract

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/ziadkadry99/macbot/internal/document"
)

// pdfPages extracts the plain text of every page. The reader panics on
// some malformed inputs, so panics are reported as errors.
func pdfPages(data []byte) (pages []document.Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("error creating PDF reader: %w", err)
	}

	for i := 1; i <= reader.NumPage(); i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			continue
		}
		txt, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("could not read page %d: %w", i, err)
		}
		pages = append(pages, document.Page{Number: i, Text: txt})
	}
	return pages, nil
}
