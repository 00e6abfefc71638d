// Package extract turns uploaded or fetched documents into plain text.
package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned when no extractor accepts a document.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrNoText is returned when a document contains no extractable text.
	ErrNoText = errors.New("no text content found")
)

// Extractor converts one document format to plain text
type Extractor interface {
	// Name returns the format name (pdf, html, text)
	Name() string

	// CanHandle checks if this extractor accepts the document
	CanHandle(doc Source) bool

	// Extract returns the document text
	Extract(ctx context.Context, doc Source) (string, error)
}

// Source describes a document to extract
type Source struct {
	Name        string // File name, path or URL
	ContentType string // Declared MIME type, may be empty
	Data        []byte
}

// Ext returns the lower-case file extension of the source name
func (s Source) Ext() string {
	name := s.Name
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(path.Ext(name))
}

// MediaType returns the declared media type, or a sniffed one
func (s Source) MediaType() string {
	ct := s.ContentType
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(s.Data)
	}
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// Result is the extracted text of a document
type Result struct {
	Text   string
	Format string
}

// Registry manages document extractors
type Registry struct {
	extractors []Extractor // registered, tried first
	builtins   []Extractor // fallback
}

// NewRegistry creates a registry with the built-in extractors
func NewRegistry() *Registry {
	return &Registry{
		builtins: []Extractor{
			NewPDFExtractor(),
			NewHTMLExtractor(),
			NewTextExtractor(),
		},
	}
}

// Register registers a new extractor. Registered extractors are tried in
// registration order, before the built-in ones.
func (r *Registry) Register(e Extractor) {
	r.extractors = append(r.extractors, e)
}

// Find returns the first extractor that accepts doc, or nil
func (r *Registry) Find(doc Source) Extractor {
	for _, list := range [][]Extractor{r.extractors, r.builtins} {
		for _, e := range list {
			if e.CanHandle(doc) {
				return e
			}
		}
	}
	return nil
}

// Extract extracts the text of a named document, sniffing its format
func (r *Registry) Extract(ctx context.Context, name string, data []byte) (*Result, error) {
	return r.ExtractSource(ctx, Source{Name: name, Data: data})
}

// ExtractSource extracts the text of doc
func (r *Registry) ExtractSource(ctx context.Context, doc Source) (*Result, error) {
	e := r.Find(doc)
	if e == nil {
		return nil, fmt.Errorf("%s (%s): %w", doc.Name, doc.MediaType(), ErrUnsupportedFormat)
	}

	text, err := e.Extract(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", e.Name(), err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("extract %s: %w", e.Name(), ErrNoText)
	}

	return &Result{Text: text, Format: e.Name()}, nil
}
