package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ziadkadry99/macbot/internal/document"
)

var errLegacyDoc = errors.New("not an Office Open XML document (legacy .doc files must be saved as .docx)")

// maxDocumentXMLSize bounds the decompressed word/document.xml.
var maxDocumentXMLSize int64 = 64 << 20

func docx(data []byte) ([]document.Page, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errLegacyDoc
	}

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("opening document.xml: %w", err)
		}
		content, err := io.ReadAll(io.LimitReader(rc, maxDocumentXMLSize+1))
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("reading document.xml: %w", err)
		}
		if int64(len(content)) > maxDocumentXMLSize {
			return nil, fmt.Errorf("document.xml is larger than %d bytes", maxDocumentXMLSize)
		}

		txt, err := parseDocumentXML(content)
		if err != nil {
			return nil, err
		}
		return []document.Page{{Text: txt}}, nil
	}
	return nil, fmt.Errorf("word/document.xml not found")
}

// parseDocumentXML walks every element of the body in document order, so
// text nested in hyperlinks, tables, content controls and tracked
// insertions is kept. Deleted text (w:delText) and field codes
// (w:instrText) are not w:t and are skipped.
func parseDocumentXML(content []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))

	var sb strings.Builder
	runDepth := 0
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parsing document.xml: %w", err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "r":
				runDepth++
			case "t":
				inText = runDepth > 0
			case "tab":
				if runDepth > 0 {
					sb.WriteString(" ")
				}
			case "br", "cr":
				if runDepth > 0 {
					sb.WriteString("\n")
				}
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "r":
				runDepth--
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(el)
			}
		}
	}
	return sb.String(), nil
}
