package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// checkTimeout is the maximum time a single readiness check may take before
// its context is cancelled.
const checkTimeout = 5 * time.Second

// Checker is a named health check. Check returns nil when the dependency is
// healthy and a descriptive error otherwise.
type Checker struct {
	// Name appears as a key in the JSON readiness response.
	Name string

	// Check probes the dependency. It must respect context cancellation.
	Check func(ctx context.Context) error
}

// result is the JSON response body for health endpoints.
type result struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks,omitempty"`
	Servers []ServerHealth    `json:"servers,omitempty"`
}

// Handler serves the /healthz, /readyz, and /toolhealth endpoints. Safe for
// concurrent use; the checker list and tracker are fixed at construction.
type Handler struct {
	tracker  *Tracker
	checkers []Checker
}

// NewHandler creates a Handler over the given tracker plus any extra
// checkers. The tracker's own checker is always included.
func NewHandler(tracker *Tracker, extra ...Checker) *Handler {
	checkers := make([]Checker, 0, len(extra)+1)
	checkers = append(checkers, tracker.Checker())
	checkers = append(checkers, extra...)
	return &Handler{tracker: tracker, checkers: checkers}
}

// Healthz is a liveness probe that always returns 200 OK.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, result{Status: "ok"})
}

// Readyz returns 200 only when every registered Checker passes. Checkers
// run sequentially, each with a checkTimeout deadline derived from the
// request context.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(h.checkers))
	allOK := true

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.Check(ctx)
		cancel()

		if err != nil {
			checks[c.Name] = "fail: " + err.Error()
			allOK = false
		} else {
			checks[c.Name] = "ok"
		}
	}

	res := result{Status: "ok", Checks: checks}
	status := http.StatusOK
	if !allOK {
		res.Status = "fail"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}

// ToolHealth reports the recorded per-server state in detail. Always 200 —
// this endpoint is diagnostic, not a gate.
func (h *Handler) ToolHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, result{
		Status:  "ok",
		Servers: h.tracker.AllServerHealth(),
	})
}

// Register adds the health routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", requireMethod(http.MethodGet, h.Healthz))
	mux.HandleFunc("/readyz", requireMethod(http.MethodGet, h.Readyz))
	mux.HandleFunc("/toolhealth", requireMethod(http.MethodGet, h.ToolHealth))
}

// requireMethod restricts a handler to a single HTTP method, standing in
// for Go 1.22 ServeMux method patterns on older toolchains.
func requireMethod(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

// writeJSON encodes v as JSON with the given status code. On encoding
// failure it falls back to a plain 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
