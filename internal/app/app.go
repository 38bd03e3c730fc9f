// Package app wires all toolcore subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves the HTTP API and the periodic discovery loop, and
// Shutdown tears everything down in order.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sidart10/orion-toolcore/internal/config"
	"github.com/sidart10/orion-toolcore/internal/discovery"
	"github.com/sidart10/orion-toolcore/internal/executor"
	"github.com/sidart10/orion-toolcore/internal/health"
	"github.com/sidart10/orion-toolcore/internal/mcp"
	"github.com/sidart10/orion-toolcore/internal/observe"
	"github.com/sidart10/orion-toolcore/internal/registry"
	"github.com/sidart10/orion-toolcore/internal/router"
	"github.com/sidart10/orion-toolcore/pkg/claude"
)

// discoveryInterval is how often the background loop re-checks server
// staleness. The registry's TTL gate makes idle passes nearly free.
const discoveryInterval = time.Minute

// App owns all subsystem lifetimes.
type App struct {
	cfg *config.Config

	pool       *mcp.Pool
	registry   *registry.Registry
	tracker    *health.Tracker
	discoverer *discovery.Discoverer
	executor   *executor.Executor
	metrics    *observe.Metrics

	server *http.Server

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithMetrics injects a Metrics instance instead of the global default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New creates an App by wiring all subsystems together: client pool,
// registry (with built-in static tools), health tracker, discoverer, router,
// executor, and the HTTP server. The initial discovery pass runs
// synchronously so the registry is populated before Run starts serving.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	a.pool = mcp.NewPool()
	a.pool.Configure(clientConfigs(cfg.MCP.Servers))

	a.registry = registry.New()
	a.tracker = health.NewTracker()
	a.registerBuiltinTools()

	a.discoverer = discovery.New(a.registry, a.tracker,
		discovery.PoolLookup(a.pool), cfg.MCP.Servers)

	rt := router.New(a.registry, a.tracker, router.PoolLookup(a.pool))
	a.executor = executor.New(rt, a.metrics, executor.Options{
		Timeout:     cfg.Executor.ToolTimeout(),
		MaxAttempts: cfg.Executor.Attempts(),
	})

	// Initial discovery. Failure is not fatal: servers may come up later and
	// the periodic loop will pick them up.
	start := time.Now()
	if res := a.discoverer.Refresh(ctx, true); !res.Success() {
		slog.Warn("initial tool discovery failed",
			"code", res.Err.Code, "err", res.Err.Message)
		a.metrics.RecordDiscovery(ctx, "error", time.Since(start).Seconds())
	} else {
		slog.Info("initial tool discovery complete", "tools", res.Data)
		a.metrics.RecordDiscovery(ctx, "ok", time.Since(start).Seconds())
	}
	a.metrics.SetRegisteredTools(ctx, a.registry.ToolCount())

	a.server = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           a.buildHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// ApplyConfig applies a hot-reloaded config: the client pool and discoverer
// pick up the new server list, and a forced refresh reconciles the registry.
// Listen address changes require a restart and are ignored here.
func (a *App) ApplyConfig(ctx context.Context, cfg *config.Config) {
	a.pool.Configure(clientConfigs(cfg.MCP.Servers))
	a.discoverer.SetServers(cfg.MCP.Servers)

	start := time.Now()
	res := a.discoverer.Refresh(ctx, true)
	status := "ok"
	if !res.Success() {
		status = "error"
		slog.Warn("discovery after config reload failed",
			"code", res.Err.Code, "err", res.Err.Message)
	}
	a.metrics.RecordDiscovery(ctx, status, time.Since(start).Seconds())
	a.metrics.SetRegisteredTools(ctx, a.registry.ToolCount())
}

// Tools returns the current tool list in deterministic order.
func (a *App) Tools() []claude.Tool {
	return a.registry.ToolsForClaude()
}

// Execute runs one tool call through the full pipeline.
func (a *App) Execute(ctx context.Context, req executor.Request) executor.Outcome {
	return a.executor.Execute(ctx, req)
}

// Run serves the HTTP API and the periodic discovery loop until ctx is
// cancelled. Returns the server error, or nil on clean shutdown.
func (a *App) Run(ctx context.Context) error {
	go a.discoveryLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = a.server.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = a.server.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	slog.Info("http server listening", "addr", a.cfg.Server.ListenAddr)

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return fmt.Errorf("app: http server: %w", err)
	}
}

// Shutdown stops the HTTP server, draining in-flight requests until ctx
// expires. Idempotent.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	a.stopOnce.Do(func() {
		err = a.server.Shutdown(ctx)
	})
	return err
}

// discoveryLoop runs periodic discovery and keeps the registry gauge fresh.
func (a *App) discoveryLoop(ctx context.Context) {
	ticker := time.NewTicker(discoveryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			status := "ok"
			if res := a.discoverer.Refresh(ctx, false); !res.Success() {
				status = "error"
				slog.Warn("periodic tool discovery failed",
					"code", res.Err.Code, "err", res.Err.Message)
			}
			a.metrics.RecordDiscovery(ctx, status, time.Since(start).Seconds())
			a.metrics.SetRegisteredTools(ctx, a.registry.ToolCount())
		}
	}
}

// registerBuiltinTools installs the static tools that ship with the server.
func (a *App) registerBuiltinTools() {
	a.registry.RegisterStaticTool("health_report",
		func(context.Context, map[string]any) (any, error) {
			clients := make(map[string]mcp.Stats)
			for _, name := range a.pool.Names() {
				if c, ok := a.pool.Get(name); ok {
					clients[name] = c.Stats()
				}
			}
			return map[string]any{
				"servers": a.tracker.AllServerHealth(),
				"clients": clients,
			}, nil
		},
		claude.Tool{
			Name:        "health_report",
			Description: "Report the availability of every connected tool server.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		})
}

// buildHandler assembles the HTTP routes behind the observability middleware.
func (a *App) buildHandler() http.Handler {
	mux := http.NewServeMux()

	health.NewHandler(a.tracker).Register(mux)
	mux.Handle("/metrics", requireMethod(http.MethodGet, promhttp.Handler().ServeHTTP))
	mux.HandleFunc("/v1/tools", requireMethod(http.MethodGet, a.handleListTools))
	mux.HandleFunc("/v1/tools/execute", requireMethod(http.MethodPost, a.handleExecute))

	return observe.Middleware(a.metrics)(mux)
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

// clientConfigs maps server configs onto MCP client configs.
func clientConfigs(servers []config.MCPServerConfig) []mcp.ClientConfig {
	out := make([]mcp.ClientConfig, 0, len(servers))
	for _, srv := range servers {
		if !srv.IsEnabled() {
			continue
		}
		out = append(out, mcp.ClientConfig{
			ServerName:        srv.Name,
			URL:               srv.URL,
			BearerToken:       srv.BearerToken,
			ConnectionTimeout: srv.ConnectionTimeout(),
			RequestTimeout:    srv.RequestTimeout(),
		})
	}
	return out
}
