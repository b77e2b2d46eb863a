package extract_test

import (
	"archive/zip"
	"bytes"
	"fmt"
	"testing"

	"github.com/anirudhmenon/resumatch/internal/extract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPDF assembles a single-page PDF with the given text, computing the
// cross-reference offsets so the file is structurally valid.
func buildPDF(t *testing.T, text string) []byte {
	t.Helper()

	content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n",
		"2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n",
		"3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>\nendobj\n",
		fmt.Sprintf("4 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", len(content), content),
		"5 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		buf.WriteString(obj)
	}

	xrefStart := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xrefStart)

	return buf.Bytes()
}

// buildDOCX zips a word/document.xml body with the given paragraphs.
func buildDOCX(t *testing.T, paragraphs ...string) []byte {
	t.Helper()

	var body bytes.Buffer
	body.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	body.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t>`)
		body.WriteString(p)
		body.WriteString(`</w:t></w:r></w:p>`)
	}
	body.WriteString(`</w:body></w:document>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = f.Write(body.Bytes())
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	return buf.Bytes()
}

func TestExtract_EmptyInput(t *testing.T) {
	assert.Equal(t, "", extract.Extract(nil, extract.MediaTypePDF))
	assert.Equal(t, "", extract.Extract([]byte{}, extract.MediaTypeText))
}

func TestExtract_UnrecognizedMediaType(t *testing.T) {
	assert.Equal(t, "", extract.Extract([]byte("some bytes"), "image/png"))
	assert.Equal(t, "", extract.Extract([]byte("some bytes"), ""))
}

func TestExtract_PlainText(t *testing.T) {
	got := extract.Extract([]byte("  backend engineer with Go experience \n"), extract.MediaTypeText)
	assert.Equal(t, "backend engineer with Go experience", got)
}

func TestExtract_PlainText_MediaTypeParameters(t *testing.T) {
	got := extract.Extract([]byte("hello"), "text/plain; charset=utf-8")
	assert.Equal(t, "hello", got)
}

func TestExtract_PlainText_InvalidUTF8Dropped(t *testing.T) {
	input := append([]byte("valid "), 0xff, 0xfe)
	input = append(input, []byte(" tail")...)
	got := extract.Extract(input, extract.MediaTypeText)
	assert.Equal(t, "valid  tail", got)
}

func TestExtract_PDF(t *testing.T) {
	got := extract.Extract(buildPDF(t, "senior backend engineer"), extract.MediaTypePDF)
	assert.Contains(t, got, "senior backend engineer")
}

func TestExtract_PDF_Garbage(t *testing.T) {
	// Corrupt input degrades to empty output, never an error or panic.
	got := extract.Extract([]byte("%PDF-1.4 garbage without structure"), extract.MediaTypePDF)
	assert.Equal(t, "", got)
}

func TestExtract_DOCX(t *testing.T) {
	docx := buildDOCX(t, "Jane Doe", "Go developer since 2016")
	got := extract.Extract(docx, extract.MediaTypeDOCX)
	assert.Equal(t, "Jane Doe Go developer since 2016", got)
}

func TestExtract_DOCX_EmptyParagraphsSkipped(t *testing.T) {
	docx := buildDOCX(t, "first", "", "second")
	got := extract.Extract(docx, extract.MediaTypeDOCX)
	assert.Equal(t, "first second", got)
}

func TestExtract_DOCX_Garbage(t *testing.T) {
	got := extract.Extract([]byte("not a zip archive"), extract.MediaTypeDOCX)
	assert.Equal(t, "", got)
}
