package toolserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	clientName    = "webagent"
	clientVersion = "1.0.0"
)

// ToolError is a tool result the server flagged as an error.
type ToolError struct {
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s failed: %s", e.Tool, e.Message)
}

// Session is an initialized connection to one tool server.
type Session struct {
	name   string
	client client.MCPClient
}

// Dial launches the server process over stdio and performs the MCP
// initialize handshake.
func Dial(ctx context.Context, name string, srv Server) (*Session, error) {
	c, err := client.NewStdioMCPClient(srv.Command, srv.Environ(), srv.Args...)
	if err != nil {
		return nil, fmt.Errorf("start tool server %s: %w", name, err)
	}
	s, err := NewSession(ctx, name, c)
	if err != nil {
		c.Close()
		return nil, err
	}
	return s, nil
}

// NewSession initializes an already-started MCP client.
func NewSession(ctx context.Context, name string, c client.MCPClient) (*Session, error) {
	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: clientName, Version: clientVersion}

	res, err := c.Initialize(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("initialize tool server %s: %w", name, err)
	}
	slog.Info("tool server ready", "server", name, "impl", res.ServerInfo.Name, "version", res.ServerInfo.Version)

	return &Session{name: name, client: c}, nil
}

// Name returns the configured server name.
func (s *Session) Name() string { return s.name }

// ListTools returns every tool the server exposes, following pagination.
func (s *Session) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	var tools []mcp.Tool
	req := mcp.ListToolsRequest{}
	for {
		res, err := s.client.ListTools(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("list tools on %s: %w", s.name, err)
		}
		tools = append(tools, res.Tools...)
		if res.NextCursor == "" {
			return tools, nil
		}
		req.Params.Cursor = res.NextCursor
	}
}

// Call invokes a tool and returns its text output. Results the server marks
// as errors are returned as *ToolError.
func (s *Session) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := s.client.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("call %s on %s: %w", name, s.name, err)
	}

	text := contentText(res.Content)
	if res.IsError {
		return "", &ToolError{Tool: name, Message: text}
	}
	return text, nil
}

// Close shuts down the client and, for stdio servers, the server process.
func (s *Session) Close() error {
	return s.client.Close()
}

func contentText(content []mcp.Content) string {
	var parts []string
	for _, c := range content {
		switch v := c.(type) {
		case mcp.TextContent:
			parts = append(parts, v.Text)
		case *mcp.TextContent:
			parts = append(parts, v.Text)
		default:
			b, err := json.Marshal(v)
			if err != nil {
				slog.Debug("dropping unencodable tool content", "type", fmt.Sprintf("%T", v), "err", err)
				continue
			}
			parts = append(parts, string(b))
		}
	}
	return strings.Join(parts, "\n")
}
