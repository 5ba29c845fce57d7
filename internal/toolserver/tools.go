package toolserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/mark3labs/mcp-go/mcp"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"
)

// ErrNoTools is returned when a server exposes no usable tools.
var ErrNoTools = errors.New("tool server exposed no tools")

// Call describes one completed tool invocation.
type Call struct {
	Server   string
	Tool     string
	Args     map[string]any
	Output   string
	Err      error
	Duration time.Duration
}

// CallObserver is told about every tool call made through the bridge.
type CallObserver interface {
	ObserveToolCall(ctx context.Context, call Call)
}

// ToolOptions controls how remote tools are exposed.
type ToolOptions struct {
	Include  []string
	Observer CallObserver
}

// Tools wraps each remote tool as an ADK function tool that forwards calls
// to this session. The remote input schema is passed through unchanged.
func (s *Session) Tools(ctx context.Context, opts ToolOptions) ([]tool.Tool, error) {
	remote, err := s.ListTools(ctx)
	if err != nil {
		return nil, err
	}

	var tools []tool.Tool
	for _, rt := range remote {
		if !Included(rt.Name, opts.Include) {
			continue
		}
		schema, err := inputSchema(rt)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", rt.Name, err)
		}

		name := rt.Name
		t, err := functiontool.New(functiontool.Config{
			Name:        name,
			Description: rt.Description,
			InputSchema: schema,
		}, func(ctx tool.Context, args map[string]any) (map[string]any, error) {
			return s.invoke(ctx, name, args, opts.Observer)
		})
		if err != nil {
			return nil, fmt.Errorf("wrap tool %s: %w", name, err)
		}
		tools = append(tools, t)
	}

	if len(tools) == 0 {
		return nil, fmt.Errorf("%s: %w", s.name, ErrNoTools)
	}
	return tools, nil
}

func (s *Session) invoke(ctx context.Context, name string, args map[string]any, obs CallObserver) (map[string]any, error) {
	start := time.Now()
	out, err := s.Call(ctx, name, args)
	if obs != nil {
		obs.ObserveToolCall(ctx, Call{
			Server:   s.name,
			Tool:     name,
			Args:     args,
			Output:   out,
			Err:      err,
			Duration: time.Since(start),
		})
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{"result": out}, nil
}

func inputSchema(t mcp.Tool) (*jsonschema.Schema, error) {
	raw := t.RawInputSchema
	if len(raw) == 0 {
		b, err := json.Marshal(t.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("encode input schema: %w", err)
		}
		raw = b
	}

	var schema jsonschema.Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("decode input schema: %w", err)
	}
	if schema.Type == "" && len(schema.Types) == 0 {
		schema.Type = "object"
	}
	return &schema, nil
}
