package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupported(t *testing.T) {
	for _, name := range []string{"a.txt", "B.MD", "notes.pdf", "essay.docx", "old.doc"} {
		assert.True(t, Supported(name), name)
	}
	for _, name := range []string{"a.png", "noext", "archive.zip"} {
		assert.False(t, Supported(name), name)
	}
}

func TestExtractUnsupported(t *testing.T) {
	_, err := Extract("witches.png", []byte{0x89})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupported))
}

func TestExtractPlainText(t *testing.T) {
	pages, err := Extract("act1.txt", []byte("When shall we three\r\nmeet again?\n\n\n\nIn   thunder,\tlightning"))
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, 0, pages[0].Number)
	assert.Equal(t, "When shall we three\nmeet again?\n\nIn thunder, lightning", pages[0].Text)
}

func TestExtractMarkdown(t *testing.T) {
	src := "# Act I\n\nFair is **foul**, and foul is *fair*.\n\n```\nHover through the fog\n```\n\n<div>ignored</div>\n"
	pages, err := Extract("notes.md", []byte(src))
	require.NoError(t, err)
	require.Len(t, pages, 1)

	text := pages[0].Text
	assert.Contains(t, text, "Act I")
	assert.Contains(t, text, "Fair is foul, and foul is fair.")
	assert.Contains(t, text, "Hover through the fog")
	assert.NotContains(t, text, "**")
	assert.NotContains(t, text, "#")
	assert.NotContains(t, text, "ignored")
}

func buildDocx(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtractDocx(t *testing.T) {
	data := buildDocx(t,
		`<w:p><w:r><w:t>Is this a dagger</w:t></w:r><w:r><w:t xml:space="preserve"> which I see before me</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t>The handle toward my hand?</w:t></w:r></w:p>`)

	pages, err := Extract("dagger.docx", data)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "Is this a dagger which I see before me\nThe handle toward my hand?", pages[0].Text)
}

func TestExtractDocxNestedContent(t *testing.T) {
	data := buildDocx(t,
		`<w:p><w:pPr><w:tabs><w:tab w:val="left" w:pos="720"/></w:tabs></w:pPr>`+
			`<w:r><w:t>Intro</w:t></w:r>`+
			`<w:hyperlink r:id="rId1" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">`+
			`<w:r><w:t xml:space="preserve"> LinkedDagger</w:t></w:r></w:hyperlink></w:p>`+
			`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>TableBanquo</w:t></w:r></w:p></w:tc>`+
			`<w:tc><w:sdt><w:sdtContent><w:p><w:r><w:t>ControlFleance</w:t></w:r></w:p></w:sdtContent></w:sdt></w:tc></w:tr></w:tbl>`+
			`<w:p><w:ins w:id="1"><w:r><w:t>Inserted</w:t></w:r></w:ins>`+
			`<w:del w:id="2"><w:r><w:delText>Deleted</w:delText></w:r></w:del></w:p>`)

	pages, err := Extract("nested.docx", data)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "Intro LinkedDagger\nTableBanquo\nControlFleance\nInserted", pages[0].Text)
}

func TestExtractDocxTabsAndBreaksInOrder(t *testing.T) {
	data := buildDocx(t,
		`<w:p><w:r><w:t>Act</w:t><w:tab/><w:t>I</w:t><w:br/><w:t>Scene</w:t><w:tab/><w:t>VII</w:t></w:r></w:p>`)

	pages, err := Extract("tabs.docx", data)
	require.NoError(t, err)
	assert.Equal(t, "Act I\nScene VII", pages[0].Text)
}

func TestExtractDocxTooLarge(t *testing.T) {
	old := maxDocumentXMLSize
	maxDocumentXMLSize = 64
	defer func() { maxDocumentXMLSize = old }()

	data := buildDocx(t, `<w:p><w:r><w:t>`+strings.Repeat("Tomorrow, and tomorrow ", 20)+`</w:t></w:r></w:p>`)
	_, err := Extract("huge.docx", data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "larger than 64 bytes")
}

func TestExtractDocNamedOpenXML(t *testing.T) {
	data := buildDocx(t, `<w:p><w:r><w:t>Out, damned spot</w:t></w:r></w:p>`)
	pages, err := Extract("renamed.doc", data)
	require.NoError(t, err)
	assert.Equal(t, "Out, damned spot", pages[0].Text)
}

func TestExtractLegacyDocFails(t *testing.T) {
	_, err := Extract("old.doc", []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnsupported))
}

func TestExtractInvalidPDF(t *testing.T) {
	_, err := Extract("broken.pdf", []byte("not a pdf"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnsupported))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a b\n\nc", Normalize("  a \t b \n\n\n\n c  "))
	assert.Equal(t, "", Normalize(" \r\n\t "))
}
