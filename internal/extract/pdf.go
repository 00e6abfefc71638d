package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFExtractor extracts text from PDF content streams using pdfcpu.
// Pages are separated by a blank line. Scanned (image-only) PDFs yield
// no text.
type PDFExtractor struct{}

// NewPDFExtractor creates a new PDF extractor
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Name returns the extractor name
func (e *PDFExtractor) Name() string {
	return "pdf"
}

// CanHandle accepts .pdf files and payloads starting with the PDF header
func (e *PDFExtractor) CanHandle(doc Source) bool {
	if doc.Ext() == ".pdf" {
		return true
	}
	return bytes.HasPrefix(doc.Data, []byte("%PDF-")) || doc.MediaType() == "application/pdf"
}

// Extract returns the text of every page in order
func (e *PDFExtractor) Extract(ctx context.Context, doc Source) (string, error) {
	pdfCtx, err := readPDF(doc.Data)
	if err != nil {
		return "", err
	}

	var pages []string
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if text := extractPageText(pdfCtx, pageNr); text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 {
		return "", ErrNoText
	}
	return strings.Join(pages, "\n\n"), nil
}

// ValidatePDF parses and validates a PDF and returns its page count
func ValidatePDF(data []byte) (int, error) {
	pdfCtx, err := readPDF(data)
	if err != nil {
		return 0, err
	}
	return pdfCtx.PageCount, nil
}

func readPDF(data []byte) (*model.Context, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}
	return pdfCtx, nil
}

// extractPageText extracts text from a single PDF page via its content stream
func extractPageText(pdfCtx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(pdfCtx, pageNr)
	if err != nil || r == nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return extractTextFromStream(data)
}

// pdfStringRe matches PDF string literals, allowing escaped parentheses
var pdfStringRe = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)`)

// textOpRe matches text-showing operators ([...] TJ, (...) Tj, (...) ' and
// (...) ") and the operators that move to a new line or end a text object.
// Operators may share a line, as in "BT 72 720 Td (text) Tj ET".
var textOpRe = regexp.MustCompile(`\[((?:\((?:\\.|[^\\)])*\)|[^\]()])*)\]\s*TJ` +
	`|\(((?:\\.|[^\\)])*)\)\s*(Tj|'|")` +
	`|(?:^|\s)(?:Td|TD|T\*|Tm|ET)(?:\s|$)`)

// extractTextFromStream parses content stream text operators
func extractTextFromStream(data []byte) string {
	var sb strings.Builder
	space := func() {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
	}

	for _, m := range textOpRe.FindAllSubmatch(data, -1) {
		switch {
		case m[1] != nil:
			for _, str := range pdfStringRe.FindAllSubmatch(m[1], -1) {
				sb.WriteString(decodePDFString(str[1]))
			}
		case m[2] != nil:
			if op := string(m[3]); op == "'" || op == `"` {
				space()
			}
			sb.WriteString(decodePDFString(m[2]))
		default:
			space()
		}
	}

	return cleanPDFText(sb.String())
}

// decodePDFString handles PDF escape sequences
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\', '(', ')':
			sb.WriteByte(raw[i])
		default:
			// Octal escape (e.g. \040 for space)
			if raw[i] < '0' || raw[i] > '7' {
				sb.WriteByte(raw[i])
				continue
			}
			val := int(raw[i] - '0')
			for n := 0; n < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; n++ {
				i++
				val = val*8 + int(raw[i]-'0')
			}
			sb.WriteByte(byte(val))
		}
	}
	return latin1ToUTF8(sb.String())
}

// latin1ToUTF8 maps single-byte WinAnsi text to UTF-8. Bytes that already
// form valid UTF-8 are kept.
func latin1ToUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		sb.WriteRune(rune(s[i]))
	}
	return sb.String()
}

// cleanPDFText normalises whitespace in extracted PDF text
func cleanPDFText(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
		} else if unicode.IsPrint(r) {
			sb.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimSpace(sb.String())
}
