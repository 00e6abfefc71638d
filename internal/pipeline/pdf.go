package pipeline

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/ppiankov/legalens/internal/extract"
	"github.com/ppiankov/legalens/internal/model"
)

// Layout in millimetres on A4
const (
	pageMargin     = 15.0
	headingSize    = 12.0
	bodySize       = 10.0
	headingHeight  = 10.0
	bodyLineHeight = 6.0
	noteSize       = 8.0
)

// RenderPDF renders the report sections as a PDF document and validates
// the result with pdfcpu
func RenderPDF(report *model.Report) ([]byte, error) {
	features, err := model.ParseFeatures(report.Features)
	if err != nil {
		return nil, err
	}

	doc := newPDFDoc(report)
	doc.title(model.ReportTitle)
	doc.text("Document: " + report.Subject)
	if !report.CreatedAt.IsZero() {
		doc.text("Analyzed: " + report.CreatedAt.UTC().Format("2006-01-02 15:04 MST"))
	}

	a := report.Analysis
	if features.Has(model.FeatureSummary) {
		doc.heading("Summary")
		doc.text(orPlaceholder(a.Summary, "No summary available."))
	}

	if features.Has(model.FeatureClauses) {
		doc.heading("Key Clauses")
		if len(a.KeyClauses) == 0 {
			doc.text("No key clauses identified.")
		}
		for _, clause := range a.KeyClauses {
			doc.text("- " + clause)
		}
	}

	if features.Has(model.FeatureKeywords) {
		doc.heading("Keywords")
		doc.text(orPlaceholder(strings.Join(a.Keywords, ", "), "No keywords found."))
	}

	if features.Has(model.FeatureRisks) {
		doc.heading("Detected Risks")
		doc.text(orPlaceholder(strings.Join(a.Risks, ", "), "No risk terms detected."))
		if report.Profile.Level != "" {
			doc.text(fmt.Sprintf("Risk level: %s (%d/100), %.2f terms per 1,000 tokens",
				report.Profile.Level, report.Profile.Score, report.Profile.Density))
		}
	}

	if features.Has(model.FeatureUpdates) {
		doc.heading("Regulatory Updates")
		if len(report.Updates) == 0 {
			doc.text("No regulatory updates available.")
		}
		for _, u := range report.Updates {
			doc.text("- " + orPlaceholder(u.Title, "N/A") + ": " + orPlaceholder(u.Description, "N/A"))
		}
	}

	doc.note("Flags terminology only. This report is not legal advice.")

	var buf bytes.Buffer
	if err := doc.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	data := buf.Bytes()
	if _, err := extract.ValidatePDF(data); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return data, nil
}

func orPlaceholder(s, placeholder string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}

// pdfDoc writes report blocks in the core Helvetica fonts; text is
// translated to cp1252 first
type pdfDoc struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newPDFDoc(report *model.Report) *pdfDoc {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetCatalogSort(true)
	pdf.SetCreator("legalens", false)
	pdf.SetTitle(model.ReportTitle, true)
	if !report.CreatedAt.IsZero() {
		pdf.SetCreationDate(report.CreatedAt)
		pdf.SetModificationDate(report.CreatedAt)
	}
	pdf.AddPage()

	return &pdfDoc{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (d *pdfDoc) title(s string) {
	d.pdf.SetFont("Helvetica", "B", headingSize+4)
	d.pdf.CellFormat(0, headingHeight, d.tr(s), "", 1, "C", false, 0, "")
	d.pdf.Ln(bodyLineHeight / 2)
}

func (d *pdfDoc) heading(s string) {
	d.pdf.Ln(bodyLineHeight / 2)
	d.pdf.SetFont("Helvetica", "B", headingSize)
	d.pdf.CellFormat(0, headingHeight, d.tr(s), "", 1, "L", false, 0, "")
}

func (d *pdfDoc) text(s string) {
	d.pdf.SetFont("Helvetica", "", bodySize)
	d.pdf.MultiCell(0, bodyLineHeight, d.tr(s), "", "L", false)
}

func (d *pdfDoc) note(s string) {
	d.pdf.Ln(bodyLineHeight)
	d.pdf.SetFont("Helvetica", "I", noteSize)
	d.pdf.MultiCell(0, bodyLineHeight, d.tr(s), "", "L", false)
}
