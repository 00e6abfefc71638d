package api

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
)

// HTTPError carries the status code a handler error maps to
type HTTPError struct {
	Code    int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

func newHTTPError(code int, message string) *HTTPError {
	return &HTTPError{Code: code, Message: message}
}

// HandleError writes err as a JSON error body. Errors that are not an
// *HTTPError become a generic 500.
func HandleError(w http.ResponseWriter, err error) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		JSONError(w, httpErr.Code, httpErr.Message)
		return
	}
	JSONError(w, http.StatusInternalServerError, "Internal server error")
}

// JSONResponse writes data as JSON with the given status
func JSONResponse(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// JSONError writes {"error": message}
func JSONError(w http.ResponseWriter, status int, message string) error {
	return JSONResponse(w, status, map[string]string{
		"error": message,
	})
}

// DecodeJSON decodes a JSON request body into v
func DecodeJSON(r *http.Request, v any) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		return newHTTPError(http.StatusUnsupportedMediaType, "Content-Type must be application/json")
	}

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return newHTTPError(http.StatusRequestEntityTooLarge, "request body too large")
		}
		return newHTTPError(http.StatusBadRequest, "Invalid JSON payload: "+err.Error())
	}
	return nil
}
