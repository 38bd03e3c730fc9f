// Package health tracks per-server availability for the tool layer and
// exposes HTTP liveness/readiness handlers built on that state.
//
// The [Tracker] is advisory telemetry, not a circuit breaker: it never
// blocks a call by itself. Discovery and the router write to it; the
// readiness endpoint and degradation messaging read from it.
package health

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// ServerHealth is the recorded state of one MCP server.
type ServerHealth struct {
	Name          string    `json:"name"`
	Available     bool      `json:"available"`
	LastError     string    `json:"last_error,omitempty"`
	LastErrorTime time.Time `json:"last_error_time,omitzero"`
	FailureCount  int       `json:"failure_count"`
}

// Tracker records failure/recovery state per server. Servers with no record
// are assumed available. Safe for concurrent use.
type Tracker struct {
	mu      sync.RWMutex
	servers map[string]*ServerHealth
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{servers: make(map[string]*ServerHealth)}
}

// MarkServerUnavailable records a failure: flips the server to unavailable,
// increments its failure counter, and overwrites the last-error fields.
func (t *Tracker) MarkServerUnavailable(name string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.servers[name]
	if !ok {
		rec = &ServerHealth{Name: name}
		t.servers[name] = rec
	}
	rec.Available = false
	rec.FailureCount++
	rec.LastErrorTime = time.Now()
	if err != nil {
		rec.LastError = err.Error()
	}
}

// MarkServerAvailable records an explicit recovery signal. The failure
// counter is kept as a lifetime tally.
func (t *Tracker) MarkServerAvailable(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.servers[name]
	if !ok {
		rec = &ServerHealth{Name: name}
		t.servers[name] = rec
	}
	rec.Available = true
}

// IsServerAvailable reports the recorded state; unknown servers default to
// available.
func (t *Tracker) IsServerAvailable(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rec, ok := t.servers[name]
	if !ok {
		return true
	}
	return rec.Available
}

// AllServerHealth returns a snapshot of every recorded server, sorted by
// name.
func (t *Tracker) AllServerHealth() []ServerHealth {
	t.mu.RLock()
	out := make([]ServerHealth, 0, len(t.servers))
	for _, rec := range t.servers {
		out = append(out, *rec)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Checker adapts the tracker into a named readiness check that fails when
// any recorded server is unavailable.
func (t *Tracker) Checker() Checker {
	return Checker{
		Name: "mcp_servers",
		Check: func(ctx context.Context) error {
			var down []string
			for _, rec := range t.AllServerHealth() {
				if !rec.Available {
					down = append(down, rec.Name)
				}
			}
			if len(down) > 0 {
				return fmt.Errorf("servers unavailable: %s", strings.Join(down, ", "))
			}
			return nil
		},
	}
}
