// Package main defines the webagent command line using kong.
package main

import (
	"github.com/alecthomas/kong"

	"webagent/internal/webagent"
)

// CLI is the root command.
type CLI struct {
	Globals

	Serve      ServeCmd      `cmd:"" help:"Serve the agent over A2A and the HTTP gateway."`
	Ask        AskCmd        `cmd:"" help:"Ask a question locally or against a running agent."`
	Tools      ToolsCmd      `cmd:"" help:"List the tools exposed by the tool servers."`
	Card       CardCmd       `cmd:"" help:"Print the agent card of a running agent."`
	Transcript TranscriptCmd `cmd:"" help:"Print stored transcript entries for a session."`
	Version    VersionCmd    `cmd:"" help:"Show version."`
}

// Globals are the settings shared by every command. Each one can come from
// the environment (or .env).
type Globals struct {
	BrightDataToken string `name:"bright-data-token" env:"BRIGHT_DATA_API_TOKEN" help:"Bright Data API token for the default tool server."`
	GoogleAPIKey    string `name:"google-api-key" env:"GOOGLE_API_KEY" help:"Gemini API key."`
	AnthropicAPIKey string `name:"anthropic-api-key" env:"ANTHROPIC_API_KEY" help:"Anthropic API key."`

	ModelVendor string `name:"model-vendor" env:"WEBAGENT_MODEL_VENDOR" default:"${default_vendor}" enum:"gemini,google,anthropic" help:"Model vendor (${enum})."`
	ModelName   string `name:"model-name" env:"WEBAGENT_MODEL_NAME" default:"${default_model}" help:"Model name."`

	ToolServerConfig string `name:"toolserver-config" env:"WEBAGENT_TOOLSERVER_CONFIG" type:"path" help:"YAML tool-server file. Defaults to the Bright Data server."`
	TranscriptDSN    string `name:"transcript-dsn" env:"WEBAGENT_TRANSCRIPT_DSN" help:"Transcript store: SQLite path or postgres:// URL. Empty disables transcripts."`
	FinalMode        string `name:"final-mode" env:"WEBAGENT_FINAL_MODE" default:"stream" enum:"stream,reinvoke" help:"Where the final answer comes from (${enum})."`
}

// ServeCmd runs the A2A server and gateway.
type ServeCmd struct {
	Addr  string `env:"WEBAGENT_AGENT_ADDR" default:"${default_addr}" help:"Listen address."`
	Eager bool   `env:"WEBAGENT_EAGER_INIT" help:"Build the agent graph at startup instead of on the first request."`
}

// AskCmd runs one question.
type AskCmd struct {
	Question []string `arg:"" help:"Question to ask."`
	Remote   string   `help:"Base URL of a running agent. The question is sent over A2A."`
	Session  string   `short:"s" help:"Session ID. A fresh one is generated when empty."`
	JSON     bool     `name:"json" help:"Print events as NDJSON."`
}

// ToolsCmd lists tools.
type ToolsCmd struct{}

// CardCmd fetches agent cards.
type CardCmd struct {
	URL []string `name:"url" default:"http://${default_addr}" help:"Base URL of an agent. Repeat to print several cards."`
}

// TranscriptCmd prints a stored transcript.
type TranscriptCmd struct {
	Session string `arg:"" help:"Session ID."`
	Trace   string `help:"Only entries from this trace."`
	Kind    string `help:"Only entries of this kind."`
	Limit   int    `default:"0" help:"Maximum number of entries (0 for all)."`
}

// VersionCmd shows version information.
type VersionCmd struct{}

const (
	defaultVendor = "gemini"
	defaultModel  = "gemini-2.0-flash"
	defaultAddr   = "localhost:1107"
)

func kongVars() kong.Vars {
	return kong.Vars{
		"version":        webagent.Version,
		"default_vendor": defaultVendor,
		"default_model":  defaultModel,
		"default_addr":   defaultAddr,
	}
}
