package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"log/slog"
	"strings"
)

// writeDOCXText appends the text of every non-empty paragraph in document
// order, separated by single spaces. A .docx file is a zip archive; the body
// lives in word/document.xml as w:p paragraphs containing w:t text runs.
func writeDOCXText(b *strings.Builder, content []byte) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		slog.Warn("unreadable docx archive", "error", err)
		return
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		slog.Warn("docx missing word/document.xml")
		return
	}

	rc, err := doc.Open()
	if err != nil {
		slog.Warn("open docx body", "error", err)
		return
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var para strings.Builder
	inText := false

	flush := func() {
		if para.Len() == 0 {
			return
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(para.String())
		para.Reset()
	}

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Keep the paragraphs read so far.
			slog.Warn("malformed docx body, keeping partial text", "error", err)
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				flush()
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}
	flush()
}
