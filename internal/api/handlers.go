package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/ppiankov/legalens/internal/extract"
	"github.com/ppiankov/legalens/internal/mail"
	"github.com/ppiankov/legalens/internal/model"
	"github.com/ppiankov/legalens/internal/pipeline"
	"github.com/ppiankov/legalens/internal/validate"
)

// analyzeRequest is the JSON body accepted by the analyze endpoints
type analyzeRequest struct {
	Text     string   `json:"text"`
	Name     string   `json:"name,omitempty"`
	Features []string `json:"features,omitempty"`
	Email    string   `json:"email,omitempty"`
}

// analyzeResponse wraps the report with the delivery outcome
type analyzeResponse struct {
	Report *model.Report `json:"report"`
	Email  *emailStatus  `json:"email,omitempty"`
}

type emailStatus struct {
	Recipient string `json:"recipient"`
	Sent      bool   `json:"sent"`
	Error     string `json:"error,omitempty"`
}

// parsedInput is an analyze request decoded from either JSON or a
// multipart upload
type parsedInput struct {
	req   pipeline.Request
	email string
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	JSONResponse(w, http.StatusOK, map[string]string{"status": "ok", "version": s.version})
}

func (s *Server) handleUpdates(w http.ResponseWriter, r *http.Request) {
	updates := s.pipeline.Updates(r.Context())
	JSONResponse(w, http.StatusOK, map[string]any{"updates": updates})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	in, err := s.parseInput(w, r)
	if err != nil {
		HandleError(w, err)
		return
	}

	report, err := s.pipeline.Analyze(r.Context(), in.req)
	if err != nil {
		HandleError(w, s.analysisError(r.Context(), err))
		return
	}

	resp := analyzeResponse{Report: report}
	if in.email != "" {
		pdf, err := pipeline.RenderPDF(report)
		if err != nil {
			resp.Email = &emailStatus{Recipient: in.email, Error: err.Error()}
		} else {
			resp.Email = s.deliver(r.Context(), in.email, pdf)
		}
	}
	JSONResponse(w, http.StatusOK, resp)
}

func (s *Server) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	in, err := s.parseInput(w, r)
	if err != nil {
		HandleError(w, err)
		return
	}

	report, err := s.pipeline.Analyze(r.Context(), in.req)
	if err != nil {
		HandleError(w, s.analysisError(r.Context(), err))
		return
	}

	pdf, err := pipeline.RenderPDF(report)
	if err != nil {
		s.logger.Error("render pdf", "request_id", RequestIDFrom(r.Context()), "error", err)
		HandleError(w, err)
		return
	}

	if in.email != "" {
		status := s.deliver(r.Context(), in.email, pdf)
		w.Header().Set("X-Email-Sent", fmt.Sprint(status.Sent))
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": mail.AttachmentName}))
	w.Header().Set("X-Report-ID", report.ID)
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

// parseInput reads a JSON body or a multipart "file" upload. Recipients
// and features are validated before any analysis runs.
func (s *Server) parseInput(w http.ResponseWriter, r *http.Request) (*parsedInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	var (
		in       parsedInput
		features []string
	)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
				return nil, newHTTPError(http.StatusRequestEntityTooLarge, "upload too large")
			}
			return nil, newHTTPError(http.StatusBadRequest, "invalid multipart form: "+err.Error())
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, newHTTPError(http.StatusBadRequest, "missing form file \"file\"")
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return nil, newHTTPError(http.StatusBadRequest, "read upload: "+err.Error())
		}

		in.req = pipeline.Request{
			Source:      header.Filename,
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		}
		in.email = r.FormValue("email")
		features = r.Form["features"]
	} else {
		var body analyzeRequest
		if err := DecodeJSON(r, &body); err != nil {
			return nil, err
		}
		if strings.TrimSpace(body.Text) == "" {
			return nil, newHTTPError(http.StatusBadRequest, "text is required")
		}
		name := body.Name
		if name == "" {
			name = "submitted text"
		}
		in.req = pipeline.Request{Source: name, Subject: name, Text: body.Text}
		in.email = body.Email
		features = body.Features
	}

	if len(features) > 0 {
		set, err := model.ParseFeatures(features)
		if err != nil {
			return nil, newHTTPError(http.StatusBadRequest, err.Error())
		}
		in.req.Features = set
	}

	if in.email != "" {
		addr, err := validate.Recipient(in.email)
		if err != nil {
			return nil, newHTTPError(http.StatusBadRequest, "invalid email address")
		}
		if s.mailer == nil || !s.mailer.Configured() {
			return nil, newHTTPError(http.StatusServiceUnavailable, "e-mail delivery is not configured")
		}
		in.email = addr
	}
	return &in, nil
}

// analysisError maps extraction and cancellation errors to HTTP statuses
func (s *Server) analysisError(ctx context.Context, err error) error {
	s.logger.Warn("analysis failed", "request_id", RequestIDFrom(ctx), "error", err)
	switch {
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return newHTTPError(http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return newHTTPError(http.StatusServiceUnavailable, "analysis cancelled")
	default:
		return newHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
}

// deliver mails the rendered PDF. Failures are reported in the response
// rather than failing the request.
func (s *Server) deliver(ctx context.Context, recipient string, pdf []byte) *emailStatus {
	status := &emailStatus{Recipient: recipient}
	if err := s.mailer.Send(ctx, recipient, pdf); err != nil {
		s.logger.Warn("e-mail delivery failed", "request_id", RequestIDFrom(ctx), "to", recipient, "error", err)
		status.Error = err.Error()
		return status
	}
	status.Sent = true
	return status
}
