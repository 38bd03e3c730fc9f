package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	// MCP servers
	namesSeen := make(map[string]int, len(cfg.MCP.Servers))
	for i, srv := range cfg.MCP.Servers {
		prefix := fmt.Sprintf("mcp.servers[%d]", i)
		if srv.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		} else {
			if prev, ok := namesSeen[srv.Name]; ok {
				errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of mcp.servers[%d]", prefix, srv.Name, prev))
			}
			namesSeen[srv.Name] = i
		}
		if srv.URL == "" {
			errs = append(errs, fmt.Errorf("%s.url is required", prefix))
		} else if u, err := url.Parse(srv.URL); err != nil {
			errs = append(errs, fmt.Errorf("%s.url %q is not a valid URL: %v", prefix, srv.URL, err))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errs = append(errs, fmt.Errorf("%s.url %q must use http or https", prefix, srv.URL))
		}
		if srv.ConnectionTimeoutMs < 0 {
			errs = append(errs, fmt.Errorf("%s.connection_timeout_ms must not be negative", prefix))
		}
		if srv.RequestTimeoutMs < 0 {
			errs = append(errs, fmt.Errorf("%s.request_timeout_ms must not be negative", prefix))
		}
		if srv.BearerToken == "" && srv.IsEnabled() {
			// Not an error: many local MCP servers run unauthenticated.
			slog.Debug("mcp server has no bearer token configured", "server", srv.Name)
		}
	}

	// Executor
	if cfg.Executor.ToolTimeoutMs < 0 {
		errs = append(errs, errors.New("executor.tool_timeout_ms must not be negative"))
	}
	if cfg.Executor.MaxAttempts < 0 {
		errs = append(errs, errors.New("executor.max_attempts must not be negative"))
	}

	return errors.Join(errs...)
}
