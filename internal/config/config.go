// Package config provides the configuration schema, loader, and file watcher
// for the Orion tool-execution server.
package config

import "time"

// LogLevel controls log verbosity for the server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	MCP      MCPConfig      `yaml:"mcp"`
	Executor ExecutorConfig `yaml:"executor"`
}

// ServerConfig holds network and logging settings for the server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// MCPConfig holds the list of Model Context Protocol servers to connect to.
type MCPConfig struct {
	Servers []MCPServerConfig `yaml:"servers"`
}

// MCPServerConfig describes how to connect to a single MCP tool server over
// streamable HTTP.
type MCPServerConfig struct {
	// Name is a unique identifier for this server. It becomes the prefix of
	// every exposed tool name, so keep it short and stable.
	Name string `yaml:"name"`

	// URL is the MCP endpoint address (e.g., "https://mcp.example.com/mcp").
	URL string `yaml:"url"`

	// Enabled toggles the server. Unset means enabled; a disabled server's
	// tools are dropped from the registry on the next discovery pass.
	Enabled *bool `yaml:"enabled"`

	// BearerToken is a static token sent in the Authorization header of every
	// request. Empty means no authentication.
	BearerToken string `yaml:"bearer_token"`

	// ConnectionTimeoutMs bounds TCP connection establishment. 0 means the
	// default of 5000.
	ConnectionTimeoutMs int `yaml:"connection_timeout_ms"`

	// RequestTimeoutMs bounds a full request/response round trip. 0 means the
	// default of 30000.
	RequestTimeoutMs int `yaml:"request_timeout_ms"`
}

// IsEnabled reports whether the server should be connected to. Servers are
// enabled unless explicitly switched off.
func (s MCPServerConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// ConnectionTimeout returns the configured connection timeout, defaulted.
func (s MCPServerConfig) ConnectionTimeout() time.Duration {
	if s.ConnectionTimeoutMs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(s.ConnectionTimeoutMs) * time.Millisecond
}

// RequestTimeout returns the configured request timeout, defaulted.
func (s MCPServerConfig) RequestTimeout() time.Duration {
	if s.RequestTimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.RequestTimeoutMs) * time.Millisecond
}

// ExecutorConfig holds defaults for tool execution.
type ExecutorConfig struct {
	// ToolTimeoutMs bounds a single tool call attempt. 0 means the default
	// of 30000.
	ToolTimeoutMs int `yaml:"tool_timeout_ms"`

	// MaxAttempts is the total number of tries per tool call including the
	// first. 0 means the default of 3.
	MaxAttempts int `yaml:"max_attempts"`
}

// ToolTimeout returns the configured per-attempt timeout, defaulted.
func (e ExecutorConfig) ToolTimeout() time.Duration {
	if e.ToolTimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(e.ToolTimeoutMs) * time.Millisecond
}

// Attempts returns the configured attempt budget, defaulted.
func (e ExecutorConfig) Attempts() int {
	if e.MaxAttempts <= 0 {
		return 3
	}
	return e.MaxAttempts
}
