// Package discovery keeps the tool registry in sync with the tools each
// configured MCP server advertises.
//
// Discovery is TTL-gated: a server whose tool list was fetched recently is
// skipped unless the caller forces a refresh. Servers are queried
// concurrently and independently, so one slow or broken server never delays
// or hides another's tools. When a previously discovered server fails, its
// stale tools stay registered: a stale tool that may work beats a missing
// one.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sidart10/orion-toolcore/internal/config"
	"github.com/sidart10/orion-toolcore/internal/health"
	"github.com/sidart10/orion-toolcore/internal/mcp"
	"github.com/sidart10/orion-toolcore/internal/registry"
	"github.com/sidart10/orion-toolcore/internal/toolcall"
)

// ToolLister is the slice of the MCP client that discovery needs.
type ToolLister interface {
	ListTools(ctx context.Context) toolcall.Result[[]mcp.Tool]
}

// LookupFunc resolves a server name to its client.
type LookupFunc func(serverName string) (ToolLister, bool)

// PoolLookup adapts an [mcp.Pool] into a LookupFunc.
func PoolLookup(pool *mcp.Pool) LookupFunc {
	return func(serverName string) (ToolLister, bool) {
		c, ok := pool.Get(serverName)
		if !ok {
			return nil, false
		}
		return c, true
	}
}

// Discoverer refreshes the registry from the configured MCP servers.
// Safe for concurrent use; SetServers may be called while a Refresh runs.
type Discoverer struct {
	registry *registry.Registry
	tracker  *health.Tracker
	lookup   LookupFunc

	mu      sync.Mutex
	servers []config.MCPServerConfig
}

// New creates a Discoverer over the given registry, health tracker, and
// client lookup.
func New(reg *registry.Registry, tracker *health.Tracker, lookup LookupFunc, servers []config.MCPServerConfig) *Discoverer {
	return &Discoverer{
		registry: reg,
		tracker:  tracker,
		lookup:   lookup,
		servers:  servers,
	}
}

// SetServers swaps the server list, typically after a config reload. The new
// list takes effect on the next Refresh.
func (d *Discoverer) SetServers(servers []config.MCPServerConfig) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.servers = servers
}

// Refresh reconciles the registry with every configured server: disabled
// servers have their tools removed, enabled servers are re-queried when
// their cache entry is stale (always, when force is set). Servers are
// queried concurrently; each server's outcome is committed as soon as it
// arrives, regardless of the others.
//
// The result carries the number of tools registered during this pass. If any
// queried server failed, the first failure is surfaced as the overall result
// — but registrations from the servers that succeeded have already
// committed, so a partial failure still refreshes everything reachable.
func (d *Discoverer) Refresh(ctx context.Context, force bool) toolcall.Result[int] {
	d.mu.Lock()
	servers := make([]config.MCPServerConfig, len(d.servers))
	copy(servers, d.servers)
	d.mu.Unlock()

	var (
		g        errgroup.Group
		resMu    sync.Mutex
		total    int
		failures []error
	)

	for _, srv := range servers {
		if !srv.IsEnabled() {
			if removed := d.registry.RemoveServerTools(srv.Name); removed > 0 {
				slog.Info("removed tools of disabled mcp server",
					"server", srv.Name, "removed", removed)
			}
			continue
		}
		if !force && !d.registry.IsDiscoveryStale(srv.Name) {
			continue
		}

		srv := srv
		g.Go(func() error {
			n, err := d.refreshServer(ctx, srv)
			resMu.Lock()
			defer resMu.Unlock()
			if err != nil {
				failures = append(failures, fmt.Errorf("%s: %w", srv.Name, err))
				return nil
			}
			total += n
			return nil
		})
	}

	// Errors are aggregated via failures; Wait only joins the goroutines.
	_ = g.Wait()

	if len(failures) > 0 {
		return toolcall.Fail[int](toolcall.Classify(failures[0]))
	}
	return toolcall.OK(total)
}

// refreshServer fetches one server's tool list and commits it to the
// registry. On failure any previously registered tools are left in place.
func (d *Discoverer) refreshServer(ctx context.Context, srv config.MCPServerConfig) (int, error) {
	client, ok := d.lookup(srv.Name)
	if !ok {
		err := fmt.Errorf("no client configured for server %q", srv.Name)
		d.tracker.MarkServerUnavailable(srv.Name, err)
		return 0, err
	}

	res := client.ListTools(ctx)
	if !res.Success() {
		d.tracker.MarkServerUnavailable(srv.Name, res.Err)
		slog.Warn("tool discovery failed; keeping previously registered tools",
			"server", srv.Name, "code", res.Err.Code, "err", res.Err.Message)
		return 0, res.Err
	}

	regs := make([]registry.Registration, 0, len(res.Data))
	for _, tool := range res.Data {
		regs = append(regs, registry.Registration{
			OriginalName: tool.Name,
			ClaudeTool:   mcp.ToClaudeTool(srv.Name, tool),
		})
	}

	n := d.registry.RegisterMcpTools(srv.Name, regs)
	d.tracker.MarkServerAvailable(srv.Name)
	slog.Info("tool discovery complete", "server", srv.Name, "tools", n)
	return n, nil
}

// Run refreshes on a fixed interval until ctx is cancelled. Each pass is
// TTL-gated, so a short interval only costs a staleness check per server.
func (d *Discoverer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if res := d.Refresh(ctx, false); !res.Success() {
				slog.Warn("periodic tool discovery failed",
					"code", res.Err.Code, "err", res.Err.Message)
			}
		}
	}
}
