package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	ServersChanged  bool         // true if any MCP server was added, removed, or modified
	ServerChanges   []ServerDiff // per-server diffs
	LogLevelChanged bool
	NewLogLevel     LogLevel
	ExecutorChanged bool
}

// ServerDiff describes what changed for a single MCP server between two configs.
type ServerDiff struct {
	Name            string
	Added           bool
	Removed         bool
	EndpointChanged bool // URL, token, or timeouts differ
	EnabledChanged  bool
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	// Log level
	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	// Executor defaults
	if old.Executor.ToolTimeout() != new.Executor.ToolTimeout() ||
		old.Executor.Attempts() != new.Executor.Attempts() {
		d.ExecutorChanged = true
	}

	// Build server lookup maps keyed by name.
	oldServers := make(map[string]*MCPServerConfig, len(old.MCP.Servers))
	for i := range old.MCP.Servers {
		oldServers[old.MCP.Servers[i].Name] = &old.MCP.Servers[i]
	}
	newServers := make(map[string]*MCPServerConfig, len(new.MCP.Servers))
	for i := range new.MCP.Servers {
		newServers[new.MCP.Servers[i].Name] = &new.MCP.Servers[i]
	}

	// Detect modified and removed servers.
	for name, oldSrv := range oldServers {
		newSrv, exists := newServers[name]
		if !exists {
			d.ServerChanges = append(d.ServerChanges, ServerDiff{
				Name:    name,
				Removed: true,
			})
			d.ServersChanged = true
			continue
		}
		sd := diffServer(name, oldSrv, newSrv)
		if sd.EndpointChanged || sd.EnabledChanged {
			d.ServerChanges = append(d.ServerChanges, sd)
			d.ServersChanged = true
		}
	}

	// Detect added servers.
	for name := range newServers {
		if _, exists := oldServers[name]; !exists {
			d.ServerChanges = append(d.ServerChanges, ServerDiff{
				Name:  name,
				Added: true,
			})
			d.ServersChanged = true
		}
	}

	return d
}

// diffServer compares two server configs with the same name.
func diffServer(name string, old, new *MCPServerConfig) ServerDiff {
	sd := ServerDiff{Name: name}

	if old.URL != new.URL ||
		old.BearerToken != new.BearerToken ||
		old.ConnectionTimeout() != new.ConnectionTimeout() ||
		old.RequestTimeout() != new.RequestTimeout() {
		sd.EndpointChanged = true
	}

	if old.IsEnabled() != new.IsEnabled() {
		sd.EnabledChanged = true
	}

	return sd
}
