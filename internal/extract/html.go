package extract

import (
	"bytes"
	"context"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLExtractor extracts the visible text of HTML documents.
// When the page has a <main>, <article> or role="main" element only that
// subtree is used. Block elements end with a blank line so that headings
// and paragraphs become separate sentences.
type HTMLExtractor struct{}

// NewHTMLExtractor creates a new HTML extractor
func NewHTMLExtractor() *HTMLExtractor {
	return &HTMLExtractor{}
}

// Name returns the extractor name
func (e *HTMLExtractor) Name() string {
	return "html"
}

// CanHandle accepts .html/.htm files and text/html payloads
func (e *HTMLExtractor) CanHandle(doc Source) bool {
	switch doc.Ext() {
	case ".html", ".htm", ".xhtml":
		return true
	}
	mt := doc.MediaType()
	return mt == "text/html" || mt == "application/xhtml+xml"
}

// Extract returns the visible text of the document
func (e *HTMLExtractor) Extract(_ context.Context, doc Source) (string, error) {
	root, err := html.Parse(bytes.NewReader(doc.Data))
	if err != nil {
		return "", err
	}
	return VisibleText(mainContent(root)), nil
}

// ParseVisibleText parses an HTML fragment and returns its visible text
func ParseVisibleText(fragment string) string {
	root, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	return VisibleText(root)
}

// VisibleText extracts text nodes, skipping scripts, styles, navigation
// and hidden elements
func VisibleText(n *html.Node) string {
	var w textWriter

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Iframe, atom.Nav, atom.Template:
				return
			}
			if hasHiddenStyle(n) {
				return
			}
		}

		if n.Type == html.TextNode {
			w.words(n.Data)
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && isBlock(n.DataAtom) {
			w.paragraph()
		}
	}

	walk(n)
	return strings.TrimSpace(w.buf.String())
}

// textWriter joins words with single spaces and paragraphs with blank lines
type textWriter struct {
	buf     strings.Builder
	pending byte // separator owed before the next word: 0, ' ' or '\n'
}

func (w *textWriter) words(s string) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s != "" {
			w.space()
		}
		return
	}
	if first := s[0]; first == ' ' || first == '\t' || first == '\n' || first == '\r' {
		w.space()
	}
	for i, f := range fields {
		if i > 0 {
			w.space()
		}
		w.flush()
		w.buf.WriteString(f)
	}
	last := s[len(s)-1]
	if last == ' ' || last == '\t' || last == '\n' || last == '\r' {
		w.space()
	}
}

func (w *textWriter) space() {
	if w.pending == 0 && w.buf.Len() > 0 {
		w.pending = ' '
	}
}

func (w *textWriter) paragraph() {
	if w.buf.Len() > 0 {
		w.pending = '\n'
	}
}

func (w *textWriter) flush() {
	switch w.pending {
	case ' ':
		w.buf.WriteByte(' ')
	case '\n':
		w.buf.WriteString("\n\n")
	}
	w.pending = 0
}

// mainContent finds the main content element, falling back to the document
func mainContent(doc *html.Node) *html.Node {
	main := findFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.Main
	})
	if main == nil {
		main = findFirst(doc, func(n *html.Node) bool {
			return n.Type == html.ElementNode &&
				(n.DataAtom == atom.Article || attr(n, "role") == "main")
		})
	}
	if main == nil {
		return doc
	}
	return main
}

var hiddenStylePattern = regexp.MustCompile(`(?i)display\s*:\s*none|visibility\s*:\s*hidden`)

func hasHiddenStyle(n *html.Node) bool {
	if _, hidden := attrLookup(n, "hidden"); hidden {
		return true
	}
	if attr(n, "aria-hidden") == "true" {
		return true
	}
	return hiddenStylePattern.MatchString(attr(n, "style"))
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Main, atom.Header, atom.Footer,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Li, atom.Ul, atom.Ol, atom.Table, atom.Tr, atom.Blockquote, atom.Pre,
		atom.Br, atom.Hr, atom.Dd, atom.Dt, atom.Title:
		return true
	}
	return false
}

// attr gets an attribute value from a node
func attr(n *html.Node, key string) string {
	v, _ := attrLookup(n, key)
	return v
}

func attrLookup(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// findFirst finds the first node matching a predicate
func findFirst(n *html.Node, predicate func(*html.Node) bool) *html.Node {
	if predicate(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, predicate); found != nil {
			return found
		}
	}
	return nil
}

// findAll finds all nodes matching a predicate
func findAll(n *html.Node, predicate func(*html.Node) bool) []*html.Node {
	var results []*html.Node

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if predicate(node) {
			results = append(results, node)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return results
}
