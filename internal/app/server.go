package app

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sidart10/orion-toolcore/internal/executor"
	"github.com/sidart10/orion-toolcore/internal/observe"
)

// executeRequest is the POST /v1/tools/execute body.
type executeRequest struct {
	ToolName  string         `json:"tool_name"`
	ToolUseID string         `json:"tool_use_id"`
	Args      map[string]any `json:"args"`
	TraceID   string         `json:"trace_id"`

	// TimeoutMs and MaxAttempts override the configured defaults when > 0.
	TimeoutMs   int `json:"timeout_ms"`
	MaxAttempts int `json:"max_attempts"`
}

// executeResponse is the POST /v1/tools/execute body. Execution failures are
// reported in-band with is_error; the HTTP status is 200 either way so the
// agent loop has a single decode path.
type executeResponse struct {
	Content    string `json:"content"`
	IsError    bool   `json:"is_error"`
	Code       string `json:"code,omitempty"`
	ToolUseID  string `json:"tool_use_id,omitempty"`
	TraceID    string `json:"trace_id"`
	Attempts   int    `json:"attempts"`
	DurationMs int64  `json:"duration_ms"`
}

// handleListTools serves the deterministic tool list.
func (a *App) handleListTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": a.Tools()})
}

// handleExecute runs one tool call. Only malformed requests produce non-200
// statuses; tool failures come back as is_error payloads.
func (a *App) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid request body: " + err.Error(),
		})
		return
	}
	if req.ToolName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "tool_name is required",
		})
		return
	}

	traceID := req.TraceID
	if traceID == "" {
		traceID = observe.CorrelationID(r.Context())
	}

	out := a.Execute(r.Context(), executor.Request{
		ToolName:    req.ToolName,
		ToolUseID:   req.ToolUseID,
		Args:        req.Args,
		TraceID:     traceID,
		Timeout:     msToDuration(req.TimeoutMs),
		MaxAttempts: req.MaxAttempts,
	})

	writeJSON(w, http.StatusOK, executeResponse{
		Content:    out.Content,
		IsError:    out.IsError,
		Code:       string(out.Code),
		ToolUseID:  out.ToolUseID,
		TraceID:    out.TraceID,
		Attempts:   out.Attempts,
		DurationMs: out.Duration.Milliseconds(),
	})
}

func msToDuration(ms int) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failure"}`, http.StatusInternalServerError)
	}
}
