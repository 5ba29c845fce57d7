package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"webagent/agentutil"
	"webagent/internal/research"
	"webagent/internal/stream"
	"webagent/internal/toolserver"
	"webagent/internal/transcript"
	"webagent/internal/webagent"
	"webagent/prompts"
)

// toolServers returns the tool-server section: the YAML file when one is
// configured, the Bright Data server otherwise.
func (g *Globals) toolServers() (toolserver.Config, error) {
	if g.ToolServerConfig != "" {
		cfg, err := toolserver.Load(g.ToolServerConfig)
		if err != nil {
			return toolserver.Config{}, err
		}
		slog.Info("loaded tool server config", "path", g.ToolServerConfig, "servers", cfg.Names())
		return cfg, cfg.Validate()
	}
	cfg := toolserver.Default(g.BrightDataToken)
	return cfg, cfg.Validate()
}

// llmConfig picks the API key that matches the model vendor.
func (g *Globals) llmConfig() (agentutil.Config, error) {
	cfg := agentutil.Config{ModelVendor: g.ModelVendor, ModelName: g.ModelName}
	switch strings.ToLower(g.ModelVendor) {
	case "gemini", "google":
		cfg.APIKey = g.GoogleAPIKey
		if cfg.APIKey == "" {
			return cfg, fmt.Errorf("GOOGLE_API_KEY is required for model vendor %q", g.ModelVendor)
		}
	case "anthropic":
		cfg.APIKey = g.AnthropicAPIKey
		if cfg.APIKey == "" {
			return cfg, fmt.Errorf("ANTHROPIC_API_KEY is required for model vendor %q", g.ModelVendor)
		}
	default:
		return cfg, fmt.Errorf("unknown model vendor: %s", g.ModelVendor)
	}
	return cfg, nil
}

// openTranscripts opens the transcript store, or returns nil when no DSN is
// configured.
func (g *Globals) openTranscripts() (*transcript.Store, error) {
	if g.TranscriptDSN == "" {
		return nil, nil
	}
	store, err := transcript.Open(g.TranscriptDSN)
	if err != nil {
		return nil, err
	}
	slog.Info("transcripts enabled", "postgres", store.IsPostgres())
	return store, nil
}

// builder returns the agent constructor used by Lazy. The model client and
// tool servers are only created when it runs.
func builder(llmCfg agentutil.Config, tools toolserver.Config, store *transcript.Store) func(context.Context) (research.Agent, error) {
	provider := research.MCPTools{}
	if store != nil {
		provider.Observer = transcript.ToolObserver{Recorder: store}
	}

	return func(ctx context.Context) (research.Agent, error) {
		llm, err := agentutil.NewLLM(ctx, llmCfg)
		if err != nil {
			return nil, err
		}
		return research.Build(ctx, research.Options{
			ToolServers: tools,
			Model:       llm,
			Instruction: prompts.WebResearch,
			Tools:       provider,
		})
	}
}

// newService wires an agent into a Service. store may be nil.
func (g *Globals) newService(agent stream.Invoker, store *transcript.Store) *webagent.Service {
	meta := webagent.DefaultMetadata()
	if g.ModelName != "" && g.ModelName != defaultModel {
		meta.RecommendedModels = append([]string{g.ModelName}, meta.RecommendedModels...)
	}

	svc := &webagent.Service{
		Agent:    agent,
		Mode:     stream.ParseFinalMode(g.FinalMode),
		Metadata: meta,
	}
	if store != nil {
		svc.Recorder = store
		svc.Transcripts = store
	}
	return svc
}

// setup validates the configuration and returns a lazily built service.
// The returned cleanup closes the agent and the transcript store.
func (g *Globals) setup() (*webagent.Service, *research.Lazy, func(), error) {
	tools, err := g.toolServers()
	if err != nil {
		return nil, nil, nil, err
	}
	llmCfg, err := g.llmConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	store, err := g.openTranscripts()
	if err != nil {
		return nil, nil, nil, err
	}

	lazy := research.NewLazy(builder(llmCfg, tools, store))
	cleanup := func() {
		if err := lazy.Close(); err != nil {
			slog.Warn("close agent", "err", err)
		}
		if store != nil {
			if err := store.Close(); err != nil {
				slog.Warn("close transcript store", "err", err)
			}
		}
	}
	return g.newService(lazy, store), lazy, cleanup, nil
}
