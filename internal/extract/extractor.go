// Package extract converts raw document bytes into normalized plain text.
// Extraction never fails a job: parse faults degrade to whatever text was
// recovered before the fault, and unknown formats yield an empty string.
package extract

import (
	"bytes"
	"log/slog"
	"mime"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	MediaTypePDF  = "application/pdf"
	MediaTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MediaTypeText = "text/plain"
)

// Extract returns the plain text of content according to its declared media
// type, trimmed of surrounding whitespace. Empty input and unrecognized media
// types return "".
func Extract(content []byte, mediaType string) string {
	if len(content) == 0 {
		return ""
	}

	var b strings.Builder
	func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Warn("extraction fault, keeping partial text",
					"media_type", mediaType, "panic", r)
			}
		}()

		switch normalizeMediaType(mediaType) {
		case MediaTypePDF:
			writePDFText(&b, content)
		case MediaTypeDOCX:
			writeDOCXText(&b, content)
		case MediaTypeText:
			// Lenient decode: undecodable sequences are dropped, not fatal.
			b.WriteString(strings.ToValidUTF8(string(content), ""))
		}
	}()

	return strings.TrimSpace(b.String())
}

// normalizeMediaType strips parameters such as "; charset=utf-8".
func normalizeMediaType(mediaType string) string {
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mediaType))
	}
	return mt
}

// writePDFText appends the extractable text of every page in page order,
// separated by single spaces. Pages without text contribute nothing.
func writePDFText(b *strings.Builder, content []byte) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		slog.Warn("unreadable pdf", "error", err)
		return
	}

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil || text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(text)
	}
}
