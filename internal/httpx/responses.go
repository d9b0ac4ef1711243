package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   *ErrorBody     `json:"error,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

type ErrorBody struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

type ErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var errTrailingData = errors.New("request body must contain a single JSON value")

// meta merges the request id into extra. It returns nil when both are empty
// so the field is omitted.
func meta(r *http.Request, extra map[string]any) map[string]any {
	id := RequestIDFrom(r)
	if id == "" && len(extra) == 0 {
		return nil
	}
	m := make(map[string]any, len(extra)+1)
	for k, v := range extra {
		m[k] = v
	}
	if id != "" {
		m["request_id"] = id
	}
	return m
}

func writeJSON(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func JSONSuccess(w http.ResponseWriter, r *http.Request, data any, extra map[string]any) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: data, Meta: meta(r, extra)})
}

func JSONSuccessCreated(w http.ResponseWriter, r *http.Request, data any) {
	writeJSON(w, http.StatusCreated, Envelope{Success: true, Data: data, Meta: meta(r, nil)})
}

func JSONSuccessNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func JSONError(w http.ResponseWriter, r *http.Request, status int, code, message string, details []ErrorDetail) {
	writeJSON(w, status, Envelope{
		Error: &ErrorBody{Code: code, Message: message, Details: details},
		Meta:  meta(r, nil),
	})
}

// DecodeJSON decodes exactly one JSON value from the body into dst. Unknown
// fields are rejected.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errTrailingData
	}
	return nil
}
