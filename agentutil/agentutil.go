// Package agentutil holds the boilerplate shared by everything that hosts the
// web agent: LLM creation and A2A server startup.
package agentutil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"google.golang.org/genai"

	adkmodel "google.golang.org/adk/model"
	"google.golang.org/adk/model/gemini"

	"webagent/internal/model"
)

// InvokePath is where the A2A JSON-RPC endpoint is mounted.
const InvokePath = "/invoke"

// Config selects the model backend.
type Config struct {
	ModelVendor string
	ModelName   string
	APIKey      string
}

// NewLLM creates an LLM model based on Config.ModelVendor (gemini or anthropic).
func NewLLM(ctx context.Context, cfg Config) (adkmodel.LLM, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key for model vendor %q", cfg.ModelVendor)
	}

	switch strings.ToLower(cfg.ModelVendor) {
	case "google", "gemini":
		llm, err := gemini.NewModel(ctx, cfg.ModelName, &genai.ClientConfig{APIKey: cfg.APIKey})
		if err != nil {
			return nil, fmt.Errorf("create Gemini model: %w", err)
		}
		slog.Info("using model", "vendor", "gemini", "model", cfg.ModelName)
		return llm, nil

	case "anthropic":
		llm, err := model.NewAnthropicModel(ctx, cfg.ModelName, cfg.APIKey)
		if err != nil {
			return nil, fmt.Errorf("create Anthropic model: %w", err)
		}
		slog.Info("using model", "vendor", "anthropic", "model", cfg.ModelName)
		return llm, nil

	default:
		return nil, fmt.Errorf("unknown model vendor: %s (supported: google, gemini, anthropic)", cfg.ModelVendor)
	}
}

// CardFunc builds the agent card for the given JSON-RPC endpoint URL.
type CardFunc func(invokeURL string) *a2a.AgentCard

// Handler assembles the A2A mux: the well-known agent card, the JSON-RPC
// endpoint backed by executor, and any extra routes added by register.
func Handler(baseURL string, card CardFunc, executor a2asrv.AgentExecutor, register func(*http.ServeMux)) http.Handler {
	u, _ := url.Parse(baseURL)
	agentCard := card(u.JoinPath(InvokePath).String())

	mux := http.NewServeMux()
	mux.Handle(a2asrv.WellKnownAgentCardPath, a2asrv.NewStaticAgentCardHandler(agentCard))
	mux.Handle(InvokePath, a2asrv.NewJSONRPCHandler(a2asrv.NewHandler(executor)))
	if register != nil {
		register(mux)
	}
	return mux
}

// Serve listens on addr and serves Handler until ctx is cancelled.
func Serve(ctx context.Context, addr string, card CardFunc, executor a2asrv.AgentExecutor, register func(*http.ServeMux)) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", addr, err)
	}

	baseURL := &url.URL{Scheme: "http", Host: listener.Addr().String()}
	srv := &http.Server{
		Handler:           Handler(baseURL.String(), card, executor, register),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("starting A2A server",
		"url", baseURL.String(),
		"card", baseURL.JoinPath(a2asrv.WellKnownAgentCardPath).String(),
	)

	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
