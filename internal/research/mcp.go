package research

import (
	"context"
	"fmt"
	"log/slog"

	"webagent/internal/toolserver"
)

// MCPTools dials every configured MCP server over stdio and merges their
// tools. When two servers expose the same tool name the first server in
// name order wins.
type MCPTools struct {
	Observer toolserver.CallObserver

	dial func(ctx context.Context, name string, srv toolserver.Server) (*toolserver.Session, error)
}

func (p MCPTools) Tools(ctx context.Context, cfg toolserver.Config) (*Toolset, error) {
	dial := p.dial
	if dial == nil {
		dial = toolserver.Dial
	}

	ts := &Toolset{}
	seen := map[string]string{}

	for _, name := range cfg.Names() {
		srv := cfg.MCPServers[name]
		sess, err := dial(ctx, name, srv)
		if err != nil {
			ts.Close()
			return nil, err
		}
		ts.closers = append(ts.closers, sess)

		tools, err := sess.Tools(ctx, toolserver.ToolOptions{Include: srv.Include, Observer: p.Observer})
		if err != nil {
			ts.Close()
			return nil, fmt.Errorf("load tools from %s: %w", name, err)
		}
		for _, t := range tools {
			if owner, dup := seen[t.Name()]; dup {
				slog.Warn("duplicate tool name, keeping first", "tool", t.Name(), "kept", owner, "dropped", sess.Name())
				continue
			}
			seen[t.Name()] = sess.Name()
			ts.Tools = append(ts.Tools, t)
		}
	}
	return ts, nil
}
