package mcp

import (
	"sort"
	"sync"
)

// Pool holds one Client per configured server, keyed by server name. It
// supports hot reconfiguration: Configure reconciles the pool against a new
// server list, rebuilding only the clients whose settings changed.
//
// Safe for concurrent use.
type Pool struct {
	mu      sync.RWMutex
	entries map[string]poolEntry
}

type poolEntry struct {
	cfg    ClientConfig
	client *Client
}

// NewPool returns an empty Pool.
func NewPool() *Pool {
	return &Pool{entries: make(map[string]poolEntry)}
}

// Configure reconciles the pool with cfgs: new servers get fresh clients,
// servers whose config changed get rebuilt clients, and servers absent from
// cfgs are dropped. Unchanged servers keep their client (and its connection
// pool and stats).
func (p *Pool) Configure(cfgs []ClientConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()

	seen := make(map[string]bool, len(cfgs))
	for _, cfg := range cfgs {
		seen[cfg.ServerName] = true
		if old, ok := p.entries[cfg.ServerName]; ok && old.cfg == cfg {
			continue
		}
		p.entries[cfg.ServerName] = poolEntry{cfg: cfg, client: NewClient(cfg)}
	}

	for name := range p.entries {
		if !seen[name] {
			delete(p.entries, name)
		}
	}
}

// Get returns the client for a server name.
func (p *Pool) Get(name string) (*Client, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.entries[name]
	if !ok {
		return nil, false
	}
	return e.client, true
}

// Names returns the configured server names, sorted.
func (p *Pool) Names() []string {
	p.mu.RLock()
	names := make([]string, 0, len(p.entries))
	for name := range p.entries {
		names = append(names, name)
	}
	p.mu.RUnlock()

	sort.Strings(names)
	return names
}
