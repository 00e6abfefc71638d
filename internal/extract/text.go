package extract

import (
	"context"
	"strings"
	"unicode/utf8"
)

// TextExtractor accepts plain text and Markdown documents
type TextExtractor struct{}

// NewTextExtractor creates a new text extractor
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// Name returns the extractor name
func (e *TextExtractor) Name() string {
	return "text"
}

// CanHandle accepts .txt/.md files and any valid UTF-8 text/* payload
func (e *TextExtractor) CanHandle(doc Source) bool {
	switch doc.Ext() {
	case ".txt", ".text", ".md", ".markdown":
		return true
	}
	mt := doc.MediaType()
	return strings.HasPrefix(mt, "text/plain") || mt == "text/markdown"
}

// Extract normalizes line endings and strips a UTF-8 byte order mark.
// Invalid UTF-8 bytes become U+FFFD.
func (e *TextExtractor) Extract(_ context.Context, doc Source) (string, error) {
	text := string(doc.Data)
	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "\ufffd")
	}
	return text, nil
}
