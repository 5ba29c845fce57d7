// Package toolserver describes the external MCP tool servers the agent uses
// and adapts their tools into ADK tools.
package toolserver

import (
	"errors"
	"fmt"
	"os"
	"path"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultName is the name of the built-in Bright Data tool server.
const DefaultName = "BrightData"

// ErrMissingCredential is returned when a server's credential variable is empty.
var ErrMissingCredential = errors.New("tool server credential is not set")

// Server describes how to launch one tool-server process.
type Server struct {
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`

	// CredentialEnv names the Env entry that must be non-empty. Load
	// defaults it to the only Env entry when there is exactly one.
	CredentialEnv string `yaml:"credential_env,omitempty"`

	// Include restricts the exposed tools to names matching any of these
	// glob patterns. Empty means every tool.
	Include []string `yaml:"include,omitempty"`
}

// Config is the tool-server section, keyed by server name.
type Config struct {
	MCPServers map[string]Server `yaml:"mcpServers"`
}

// Default returns the Bright Data MCP server definition using token as its
// API credential.
func Default(token string) Config {
	return Config{MCPServers: map[string]Server{
		DefaultName: {
			Command:       "npx",
			Args:          []string{"@brightdata/mcp"},
			Env:           map[string]string{"API_TOKEN": token},
			CredentialEnv: "API_TOKEN",
		},
	}}
}

// Load reads a YAML tool-server file. ${VAR} references in env values are
// expanded from the process environment. A server with a single env entry
// and no credential_env treats that entry as its credential.
func Load(p string) (Config, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return Config{}, fmt.Errorf("read tool server config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse tool server config: %w", err)
	}

	for name, srv := range cfg.MCPServers {
		for k, v := range srv.Env {
			srv.Env[k] = os.ExpandEnv(v)
			if srv.CredentialEnv == "" && len(srv.Env) == 1 {
				srv.CredentialEnv = k
			}
		}
		cfg.MCPServers[name] = srv
	}
	return cfg, nil
}

// Validate checks that at least one server is defined, that every server
// has a command, and that required credentials are present.
func (c Config) Validate() error {
	if len(c.MCPServers) == 0 {
		return errors.New("no tool servers configured")
	}
	for _, name := range c.Names() {
		srv := c.MCPServers[name]
		if srv.Command == "" {
			return fmt.Errorf("tool server %s: command is required", name)
		}
		if srv.CredentialEnv != "" && srv.Env[srv.CredentialEnv] == "" {
			return fmt.Errorf("tool server %s: %s: %w", name, srv.CredentialEnv, ErrMissingCredential)
		}
		for _, pat := range srv.Include {
			if _, err := path.Match(pat, ""); err != nil {
				return fmt.Errorf("tool server %s: bad include pattern %q: %w", name, pat, err)
			}
		}
	}
	return nil
}

// Names returns the server names in sorted order.
func (c Config) Names() []string {
	names := make([]string, 0, len(c.MCPServers))
	for name := range c.MCPServers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Environ returns the server's extra environment as sorted KEY=VALUE pairs.
func (s Server) Environ() []string {
	env := make([]string, 0, len(s.Env))
	for k, v := range s.Env {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}

// Included reports whether a tool name passes the include patterns.
func Included(name string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pat := range patterns {
		if ok, _ := path.Match(pat, name); ok {
			return true
		}
	}
	return false
}
