package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/ppiankov/legalens/internal/extract"
	"github.com/ppiankov/legalens/internal/model"
	"github.com/ppiankov/legalens/internal/pipeline"
)

const contractText = `The Supplier shall deliver the goods by the agreed date. ` +
	`Any breach of this agreement by the Supplier results in a penalty of ten percent. ` +
	`The Buyer may terminate the agreement after a second breach. ` +
	`Each party bears its own risk of loss during transport.`

type stubUpdates struct{}

func (stubUpdates) Updates(context.Context) []model.RegulatoryUpdate {
	return []model.RegulatoryUpdate{{Title: "SEC Adopts Amendments", Link: "https://www.sec.gov/news/1", Source: "www.sec.gov"}}
}

type fakeMailer struct {
	configured bool
	err        error
	sent       []string
	attachment []byte
}

func (m *fakeMailer) Configured() bool { return m.configured }

func (m *fakeMailer) Send(_ context.Context, recipient string, attachment []byte) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, recipient)
	m.attachment = attachment
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, opts ...Option) *httptest.Server {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.Regulatory.Enabled = false
	cfg.Cache.Enabled = false
	cfg.HTTP.RespectRobots = false
	cfg.RateLimiting.RequestsPerSecond = 0

	p, err := pipeline.NewPipeline(cfg, pipeline.WithLogger(quietLogger()), pipeline.WithUpdateSource(stubUpdates{}))
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}

	server := model.ServerConfig{MaxUploadBytes: 64 << 10}
	opts = append([]Option{WithLogger(quietLogger()), WithVersion("test")}, opts...)
	ts := httptest.NewServer(New(p, server, opts...).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func postFile(t *testing.T, url, filename string, data []byte, fields map[string]string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	fw.Write(data)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()

	resp, err := http.Post(url, mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeAnalyze(t *testing.T, resp *http.Response) analyzeResponse {
	t.Helper()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, body)
	}
	var out analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Decode response: %v", err)
	}
	return out
}

func errorMessage(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Expected JSON error body: %v", err)
	}
	return body["error"]
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	if _, err := uuid.Parse(resp.Header.Get(RequestIDHeader)); err != nil {
		t.Errorf("Expected UUID request ID, got %q", resp.Header.Get(RequestIDHeader))
	}

	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("Unexpected health body: %v", body)
	}
}

func TestRequestIDPropagated(t *testing.T) {
	ts := newTestServer(t)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()

	if got := resp.Header.Get(RequestIDHeader); got != "req-123" {
		t.Errorf("Expected caller request ID, got %q", got)
	}
}

func TestAnalyze_JSON(t *testing.T) {
	ts := newTestServer(t)

	out := decodeAnalyze(t, postJSON(t, ts.URL+"/api/v1/analyze", analyzeRequest{Text: contractText, Name: "Supply Agreement"}))

	report := out.Report
	if report == nil {
		t.Fatal("Expected report")
	}
	if report.Subject != "Supply Agreement" {
		t.Errorf("Expected subject from name, got %q", report.Subject)
	}
	if !slices.Equal(report.Analysis.Risks, []string{"breach", "penalty", "risk"}) {
		t.Errorf("Expected risks [breach penalty risk], got %v", report.Analysis.Risks)
	}
	if len(report.Updates) != 1 || report.Updates[0].Title != "SEC Adopts Amendments" {
		t.Errorf("Expected stub updates, got %v", report.Updates)
	}
	if out.Email != nil {
		t.Error("Expected no email status without a recipient")
	}
}

func TestAnalyze_Features(t *testing.T) {
	ts := newTestServer(t)

	out := decodeAnalyze(t, postJSON(t, ts.URL+"/api/v1/analyze", analyzeRequest{Text: contractText, Features: []string{"risks"}}))

	if !slices.Equal(out.Report.Features, []string{"risks"}) {
		t.Errorf("Expected features [risks], got %v", out.Report.Features)
	}
	if out.Report.Analysis.Summary != "" || len(out.Report.Updates) != 0 {
		t.Error("Expected disabled sections to be empty")
	}
	if len(out.Report.Analysis.Risks) == 0 {
		t.Error("Expected risks section")
	}
}

func TestAnalyze_BadRequests(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		ct     string
		body   string
		status int
		msg    string
	}{
		{"wrong content type", "text/plain", contractText, http.StatusUnsupportedMediaType, "Content-Type must be application/json"},
		{"invalid json", "application/json", "{", http.StatusBadRequest, "Invalid JSON payload"},
		{"missing text", "application/json", `{"text": "  "}`, http.StatusBadRequest, "text is required"},
		{"unknown feature", "application/json", `{"text": "x", "features": ["appendix"]}`, http.StatusBadRequest, "unknown feature"},
		{"invalid email", "application/json", `{"text": "x", "email": "not-an-address"}`, http.StatusBadRequest, "invalid email address"},
		{"mail not configured", "application/json", `{"text": "x", "email": "bob@example.org"}`, http.StatusServiceUnavailable, "not configured"},
		{"too large", "application/json", `{"text": "` + strings.Repeat("a", 70<<10) + `"}`, http.StatusRequestEntityTooLarge, "too large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/api/v1/analyze", tt.ct, strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("POST: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.status {
				t.Errorf("Expected %d, got %d", tt.status, resp.StatusCode)
			}
			if msg := errorMessage(t, resp); !strings.Contains(msg, tt.msg) {
				t.Errorf("Expected error containing %q, got %q", tt.msg, msg)
			}
		})
	}
}

func TestAnalyze_Upload(t *testing.T) {
	ts := newTestServer(t)

	out := decodeAnalyze(t, postFile(t, ts.URL+"/api/v1/analyze", "supply_agreement.txt", []byte(contractText), map[string]string{"features": "summary,risks"}))

	if out.Report.Source != "supply_agreement.txt" || out.Report.Format != "text" {
		t.Errorf("Unexpected source/format: %s/%s", out.Report.Source, out.Report.Format)
	}
	if out.Report.Subject != "supply agreement" {
		t.Errorf("Expected subject derived from file name, got %q", out.Report.Subject)
	}
	if !slices.Equal(out.Report.Features, []string{"summary", "risks"}) {
		t.Errorf("Expected features [summary risks], got %v", out.Report.Features)
	}
}

func TestAnalyze_UploadPDF(t *testing.T) {
	ts := newTestServer(t)

	source := decodeAnalyze(t, postJSON(t, ts.URL+"/api/v1/analyze", analyzeRequest{Text: contractText}))
	pdf, err := pipeline.RenderPDF(source.Report)
	if err != nil {
		t.Fatalf("RenderPDF failed: %v", err)
	}

	out := decodeAnalyze(t, postFile(t, ts.URL+"/api/v1/analyze", "report.pdf", pdf, nil))
	if out.Report.Format != "pdf" {
		t.Errorf("Expected pdf format, got %s", out.Report.Format)
	}
	if !slices.Contains(out.Report.Analysis.Risks, "breach") {
		t.Errorf("Expected breach in risks extracted from PDF, got %v", out.Report.Analysis.Risks)
	}
}

func TestAnalyze_UploadErrors(t *testing.T) {
	ts := newTestServer(t)

	resp := postFile(t, ts.URL+"/api/v1/analyze", "scan.png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), nil)
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("Expected 415 for image upload, got %d", resp.StatusCode)
	}

	resp = postFile(t, ts.URL+"/api/v1/analyze", "empty.txt", []byte("   "), nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for empty document, got %d", resp.StatusCode)
	}

	resp = postFile(t, ts.URL+"/api/v1/analyze", "big.txt", bytes.Repeat([]byte("a"), 70<<10), nil)
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413 for oversized upload, got %d", resp.StatusCode)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("email", "bob@example.org")
	mw.Close()
	missing, err := http.Post(ts.URL+"/api/v1/analyze", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 without file, got %d", missing.StatusCode)
	}
}

func TestAnalyze_Email(t *testing.T) {
	mailer := &fakeMailer{configured: true}
	ts := newTestServer(t, WithMailer(mailer))

	out := decodeAnalyze(t, postJSON(t, ts.URL+"/api/v1/analyze", analyzeRequest{Text: contractText, Email: "Bob <bob@example.org>"}))

	if out.Email == nil || !out.Email.Sent {
		t.Fatalf("Expected sent email status, got %+v", out.Email)
	}
	if !slices.Equal(mailer.sent, []string{"bob@example.org"}) {
		t.Errorf("Expected bare recipient, got %v", mailer.sent)
	}
	if _, err := extract.ValidatePDF(mailer.attachment); err != nil {
		t.Errorf("Expected valid PDF attachment: %v", err)
	}
}

func TestAnalyze_EmailFailureKeepsReport(t *testing.T) {
	mailer := &fakeMailer{configured: true, err: errors.New("smtp send: 535 authentication failed")}
	ts := newTestServer(t, WithMailer(mailer))

	out := decodeAnalyze(t, postJSON(t, ts.URL+"/api/v1/analyze", analyzeRequest{Text: contractText, Email: "bob@example.org"}))

	if out.Report == nil {
		t.Fatal("Expected report despite delivery failure")
	}
	if out.Email == nil || out.Email.Sent || !strings.Contains(out.Email.Error, "535") {
		t.Errorf("Expected failed email status, got %+v", out.Email)
	}
}

func TestReportPDF(t *testing.T) {
	mailer := &fakeMailer{configured: true}
	ts := newTestServer(t, WithMailer(mailer))

	resp := postJSON(t, ts.URL+"/api/v1/report.pdf", analyzeRequest{Text: contractText, Email: "bob@example.org"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Expected application/pdf, got %s", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "Analysis_Results.pdf") {
		t.Errorf("Expected attachment name, got %s", cd)
	}
	if resp.Header.Get("X-Email-Sent") != "true" {
		t.Error("Expected X-Email-Sent: true")
	}

	data, _ := io.ReadAll(resp.Body)
	if _, err := extract.ValidatePDF(data); err != nil {
		t.Errorf("Expected valid PDF: %v", err)
	}
	if !bytes.Equal(data, mailer.attachment) {
		t.Error("Expected the mailed attachment to match the response")
	}
}

func TestUpdates(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/updates")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Updates []model.RegulatoryUpdate `json:"updates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(body.Updates) != 1 || body.Updates[0].Link != "https://www.sec.gov/news/1" {
		t.Errorf("Unexpected updates: %v", body.Updates)
	}
}

func TestNotFoundAndMethod(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nope")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/v1/analyze")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", resp.StatusCode)
	}
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		msg    string
	}{
		{newHTTPError(http.StatusTeapot, "short and stout"), http.StatusTeapot, "short and stout"},
		{errors.New("database exploded"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		HandleError(rec, tt.err)
		if rec.Code != tt.status {
			t.Errorf("Expected %d, got %d", tt.status, rec.Code)
		}
		var body map[string]string
		json.Unmarshal(rec.Body.Bytes(), &body)
		if body["error"] != tt.msg {
			t.Errorf("Expected %q, got %q", tt.msg, body["error"])
		}
	}
}
