package latescan

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"lendingapi/internal/httpx"
	"lendingapi/internal/notify"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type HTTPHandler struct {
	scanner *Scanner
}

func NewHTTPHandler(scanner *Scanner) *HTTPHandler {
	return &HTTPHandler{scanner: scanner}
}

// RunResponse is the JSON shape of a recorded sweep.
type RunResponse struct {
	ID         int64      `json:"id"`
	Trigger    string     `json:"trigger"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	LateLoans  int        `json:"late_loans"`
	Recipients int        `json:"recipients"`
	Dispatched bool       `json:"dispatched"`
	Error      string     `json:"error,omitempty"`
}

func toRunResponse(r Run) RunResponse {
	return RunResponse{
		ID:         r.ID,
		Trigger:    string(r.Trigger),
		Status:     r.Status,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		LateLoans:  r.LateLoans,
		Recipients: r.Recipients,
		Dispatched: r.Dispatched,
		Error:      r.Error,
	}
}

// Sweep handles POST /v1/admin/late-loans/sweep
func (h *HTTPHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	log.Printf("manual late-loan sweep request_id=%s", httpx.RequestIDFrom(r))

	// A client that goes away must not abort a dispatch already under way.
	res, err := h.scanner.RunOnce(context.WithoutCancel(r.Context()), TriggerManual)
	switch {
	case err == nil:
		httpx.JSONSuccess(w, r, res, nil)
	case errors.Is(err, ErrSweepInProgress):
		httpx.JSONError(w, r, http.StatusConflict, "SWEEP_IN_PROGRESS", "A late-loan sweep is already running", nil)
	case errors.Is(err, notify.ErrDispatchFailed):
		httpx.JSONError(w, r, http.StatusBadGateway, "DISPATCH_FAILED", "Late-loan notification could not be sent", nil)
	default:
		log.Printf("sweep handler error: request_id=%s error=%v", httpx.RequestIDFrom(r), err)
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}

// History handles GET /v1/admin/late-loans/sweeps
func (h *HTTPHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "limit must be a positive integer", nil)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	runs, err := h.scanner.History(r.Context(), limit)
	if err != nil {
		log.Printf("sweep history error: request_id=%s error=%v", httpx.RequestIDFrom(r), err)
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	out := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, toRunResponse(run))
	}
	httpx.JSONSuccess(w, r, out, map[string]any{"limit": limit})
}
