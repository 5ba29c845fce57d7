// Package research assembles the web-research agent: tools from the
// configured tool servers, a reasoning loop over a model, and a session
// store that checkpoints each conversation.
package research

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	adkmodel "google.golang.org/adk/model"
	"google.golang.org/adk/session"
	"google.golang.org/adk/tool"

	"webagent/internal/stream"
	"webagent/internal/toolserver"
)

// ToolProvider constructs tools from a tool-server description.
type ToolProvider interface {
	Tools(ctx context.Context, cfg toolserver.Config) (*Toolset, error)
}

// LoopConfig is everything a reasoning loop is built from.
type LoopConfig struct {
	Tools       []tool.Tool
	Model       adkmodel.LLM
	Instruction string
	Sessions    session.Service
}

// LoopFactory constructs a reasoning loop given tools, a model, a prompt and
// a checkpoint store.
type LoopFactory interface {
	NewLoop(cfg LoopConfig) (stream.Invoker, error)
}

// Agent is a constructed agent graph. Close releases the tool servers.
type Agent interface {
	stream.Invoker
	io.Closer
}

// Options configure Build.
type Options struct {
	ToolServers toolserver.Config
	Model       adkmodel.LLM
	Instruction string

	Tools ToolProvider
	Loop  LoopFactory

	// Sessions defaults to an in-memory store.
	Sessions session.Service
}

// Toolset is the set of tools exposed by one or more tool servers.
type Toolset struct {
	Tools   []tool.Tool
	closers []io.Closer
}

// Close shuts down every tool server behind the set.
func (ts *Toolset) Close() error {
	if ts == nil {
		return nil
	}
	var errs []error
	for _, c := range ts.closers {
		errs = append(errs, c.Close())
	}
	ts.closers = nil
	return errors.Join(errs...)
}

type built struct {
	stream.Invoker
	tools *Toolset
}

func (b *built) Close() error { return b.tools.Close() }

// Build validates the tool-server configuration, connects the tools and
// wires them into a reasoning loop.
func Build(ctx context.Context, opts Options) (Agent, error) {
	if err := opts.ToolServers.Validate(); err != nil {
		return nil, err
	}
	if opts.Model == nil {
		return nil, errors.New("research: no model configured")
	}
	if opts.Tools == nil {
		opts.Tools = MCPTools{}
	}
	if opts.Loop == nil {
		opts.Loop = ReactLoop{}
	}
	if opts.Sessions == nil {
		opts.Sessions = session.InMemoryService()
	}

	ts, err := opts.Tools.Tools(ctx, opts.ToolServers)
	if err != nil {
		return nil, fmt.Errorf("connect tools: %w", err)
	}

	loop, err := opts.Loop.NewLoop(LoopConfig{
		Tools:       ts.Tools,
		Model:       opts.Model,
		Instruction: opts.Instruction,
		Sessions:    opts.Sessions,
	})
	if err != nil {
		ts.Close()
		return nil, fmt.Errorf("build reasoning loop: %w", err)
	}

	slog.Info("agent graph built", "tools", len(ts.Tools), "model", opts.Model.Name())
	return &built{Invoker: loop, tools: ts}, nil
}
