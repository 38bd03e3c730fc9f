package config_test

import (
	"testing"

	"github.com/sidart10/orion-toolcore/internal/config"
)

func boolPtr(b bool) *bool { return &b }

func baseConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{LogLevel: config.LogInfo},
		MCP: config.MCPConfig{Servers: []config.MCPServerConfig{
			{Name: "github", URL: "https://gh.example.com/mcp"},
			{Name: "jira", URL: "https://jira.example.com/mcp"},
		}},
	}
}

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	d := config.Diff(baseConfig(), baseConfig())
	if d.ServersChanged || d.LogLevelChanged || d.ExecutorChanged {
		t.Errorf("identical configs should produce empty diff, got %+v", d)
	}
}

func TestDiff_LogLevel(t *testing.T) {
	t.Parallel()
	newCfg := baseConfig()
	newCfg.Server.LogLevel = config.LogDebug

	d := config.Diff(baseConfig(), newCfg)
	if !d.LogLevelChanged || d.NewLogLevel != config.LogDebug {
		t.Errorf("diff = %+v, want LogLevelChanged with debug", d)
	}
}

func TestDiff_ServerAddedAndRemoved(t *testing.T) {
	t.Parallel()
	newCfg := baseConfig()
	newCfg.MCP.Servers = []config.MCPServerConfig{
		{Name: "github", URL: "https://gh.example.com/mcp"},
		{Name: "linear", URL: "https://linear.example.com/mcp"},
	}

	d := config.Diff(baseConfig(), newCfg)
	if !d.ServersChanged {
		t.Fatal("ServersChanged should be true")
	}

	byName := make(map[string]config.ServerDiff)
	for _, sd := range d.ServerChanges {
		byName[sd.Name] = sd
	}
	if !byName["jira"].Removed {
		t.Errorf("jira should be marked removed, got %+v", byName["jira"])
	}
	if !byName["linear"].Added {
		t.Errorf("linear should be marked added, got %+v", byName["linear"])
	}
	if _, ok := byName["github"]; ok {
		t.Error("unchanged github should not appear in the diff")
	}
}

func TestDiff_EndpointAndEnabledChanges(t *testing.T) {
	t.Parallel()
	newCfg := baseConfig()
	newCfg.MCP.Servers[0].BearerToken = "rotated"
	newCfg.MCP.Servers[1].Enabled = boolPtr(false)

	d := config.Diff(baseConfig(), newCfg)
	byName := make(map[string]config.ServerDiff)
	for _, sd := range d.ServerChanges {
		byName[sd.Name] = sd
	}
	if !byName["github"].EndpointChanged {
		t.Errorf("github token rotation should set EndpointChanged, got %+v", byName["github"])
	}
	if !byName["jira"].EnabledChanged {
		t.Errorf("jira disable should set EnabledChanged, got %+v", byName["jira"])
	}
}

func TestDiff_ExecutorDefaultsEquivalence(t *testing.T) {
	t.Parallel()
	// 0 and the explicit default are the same effective value.
	newCfg := baseConfig()
	newCfg.Executor.ToolTimeoutMs = 30000
	newCfg.Executor.MaxAttempts = 3

	if d := config.Diff(baseConfig(), newCfg); d.ExecutorChanged {
		t.Error("explicit defaults should not register as a change")
	}

	newCfg.Executor.ToolTimeoutMs = 5000
	if d := config.Diff(baseConfig(), newCfg); !d.ExecutorChanged {
		t.Error("timeout change should set ExecutorChanged")
	}
}
