//go:build e2e

// Package e2e contains end-to-end tests against a running web agent. They
// make real model and Bright Data calls.
//
// Run with: go test -tags e2e -timeout 300s -v ./testing/e2e/...
//
// Prerequisites:
//   - webagent serve running (GOOGLE_API_KEY or ANTHROPIC_API_KEY and
//     BRIGHT_DATA_API_TOKEN set in its environment)
//
// Environment variables:
//   - E2E_AGENT_URL: web agent base URL (default: http://localhost:1107)
package e2e

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"webagent/internal/stream"
	"webagent/internal/webagent"
)

// Config holds E2E test configuration from environment.
type Config struct {
	AgentURL string
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() *Config {
	return &Config{
		AgentURL: strings.TrimSuffix(getEnvDefault("E2E_AGENT_URL", "http://localhost:1107"), "/"),
	}
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// RequireCredentials skips the test if the agent cannot have been started
// with working credentials.
func RequireCredentials(t *testing.T) {
	t.Helper()
	if os.Getenv("GOOGLE_API_KEY") == "" && os.Getenv("ANTHROPIC_API_KEY") == "" {
		t.Skip("GOOGLE_API_KEY or ANTHROPIC_API_KEY not set")
	}
	if os.Getenv("BRIGHT_DATA_API_TOKEN") == "" {
		t.Skip("BRIGHT_DATA_API_TOKEN not set")
	}
}

// RequireAgent skips the test if the agent is not reachable.
func RequireAgent(t *testing.T, cfg *Config) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(cfg.AgentURL + "/healthz")
	if err != nil {
		t.Skipf("web agent not reachable at %s: %v", cfg.AgentURL, err)
	}
	resp.Body.Close()
}

// GatewayClient calls the agent's HTTP gateway.
type GatewayClient struct {
	BaseURL string
	Client  *http.Client
}

// NewGatewayClient creates a client for the gateway.
func NewGatewayClient(baseURL string) *GatewayClient {
	return &GatewayClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Client: &http.Client{
			Timeout: 180 * time.Second, // research runs call out to the web
		},
	}
}

// Metadata calls GET /api/v1/metadata.
func (c *GatewayClient) Metadata(ctx context.Context) (*webagent.Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/v1/metadata", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("GET metadata: HTTP %d: %s", resp.StatusCode, body)
	}
	var meta webagent.Metadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &meta, nil
}

// Research calls POST /api/v1/research and collects the NDJSON events.
func (c *GatewayClient) Research(ctx context.Context, sessionID, query string) ([]stream.Event, error) {
	data, err := json.Marshal(webagent.ResearchRequest{Query: query, SessionID: sessionID})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/v1/research", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST research: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("POST research: HTTP %d: %s", resp.StatusCode, body)
	}

	var events []stream.Event
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var streamErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(line, &streamErr) == nil && streamErr.Error != "" {
			return events, fmt.Errorf("stream error: %s", streamErr.Error)
		}
		var ev stream.Event
		if err := json.Unmarshal(line, &ev); err != nil {
			return events, fmt.Errorf("decode event %q: %w", line, err)
		}
		events = append(events, ev)
	}
	return events, sc.Err()
}
