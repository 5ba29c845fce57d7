package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"webagent/agentutil"
	"webagent/internal/discovery"
	"webagent/internal/research"
	"webagent/internal/stream"
	"webagent/internal/toolserver"
	"webagent/internal/transcript"
	"webagent/internal/webagent"
)

// maxResultLen bounds tool results in text output.
const maxResultLen = 300

func (c *ServeCmd) Run(ctx context.Context, g *Globals) error {
	svc, lazy, cleanup, err := g.setup()
	if err != nil {
		return err
	}
	defer cleanup()

	if c.Eager {
		if err := lazy.Warm(ctx); err != nil {
			return fmt.Errorf("build agent: %w", err)
		}
		slog.Info("agent graph ready")
	}

	slog.Info("starting web agent", "addr", c.Addr, "vendor", g.ModelVendor, "model", g.ModelName, "final_mode", svc.Mode)
	return agentutil.Serve(ctx, c.Addr, svc.Metadata.Card, &webagent.Executor{Service: svc}, svc.RegisterRoutes)
}

func (c *AskCmd) Run(ctx context.Context, g *Globals) error {
	question := strings.TrimSpace(strings.Join(c.Question, " "))
	if question == "" {
		return errors.New("empty question")
	}

	if c.Remote != "" {
		resp, err := discovery.SendPrompt(ctx, c.Remote, question, c.Session)
		if err != nil {
			return err
		}
		slog.Info("remote answer", "state", resp.State, "session", resp.ContextID, "duration", resp.Duration)
		return writeEvent(os.Stdout, stream.Answer(resp.Text), c.JSON)
	}

	svc, _, cleanup, err := g.setup()
	if err != nil {
		return err
	}
	defer cleanup()

	req := research.NewRequest("", c.Session, []stream.Turn{{Role: "user", Content: question}})
	slog.Info("asking", "session", req.SessionID)
	return printEvents(os.Stdout, svc.Run(ctx, req), c.JSON)
}

func (c *ToolsCmd) Run(ctx context.Context, g *Globals) error {
	cfg, err := g.toolServers()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SERVER\tTOOL\tDESCRIPTION")
	for _, name := range cfg.Names() {
		srv := cfg.MCPServers[name]
		sess, err := toolserver.Dial(ctx, name, srv)
		if err != nil {
			return err
		}
		tools, err := sess.ListTools(ctx)
		sess.Close()
		if err != nil {
			return err
		}
		for _, t := range tools {
			if !toolserver.Included(t.Name, srv.Include) {
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", name, t.Name, firstLine(t.Description))
		}
	}
	return tw.Flush()
}

func (c *CardCmd) Run(ctx context.Context) error {
	return printCards(ctx, os.Stdout, c.URL)
}

// printCards writes the card of each agent in urls. A single unreachable
// agent is an error; with several, unreachable ones are skipped and the
// rest are printed in name order.
func printCards(ctx context.Context, w io.Writer, urls []string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if len(urls) == 1 {
		card, err := discovery.FetchCard(ctx, urls[0])
		if err != nil {
			return err
		}
		return enc.Encode(card)
	}

	agents, err := discovery.Discover(ctx, urls)
	if err != nil {
		return err
	}
	for _, name := range slices.Sorted(maps.Keys(agents)) {
		if err := enc.Encode(agents[name].Card); err != nil {
			return err
		}
	}
	return nil
}

func (c *TranscriptCmd) Run(ctx context.Context, g *Globals) error {
	store, err := g.openTranscripts()
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("no transcript store configured (set WEBAGENT_TRANSCRIPT_DSN)")
	}
	defer store.Close()

	entries, err := store.Query(ctx, transcript.QueryOptions{
		SessionID: c.Session,
		TraceID:   c.Trace,
		Kind:      transcript.Kind(c.Kind),
		Limit:     c.Limit,
	})
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no transcript for session %q", c.Session)
	}
	return writeEntries(os.Stdout, entries)
}

func (c *VersionCmd) Run() error {
	fmt.Printf("webagent version %s\n", webagent.Version)
	return nil
}

// printEvents writes every event of seq and stops at the first error.
func printEvents(w io.Writer, seq iter.Seq2[stream.Event, error], asJSON bool) error {
	for ev, err := range seq {
		if err != nil {
			return err
		}
		if err := writeEvent(w, ev, asJSON); err != nil {
			return err
		}
	}
	return nil
}

// writeEvent prints one event, either as an NDJSON line or as text.
func writeEvent(w io.Writer, ev stream.Event, asJSON bool) error {
	if asJSON {
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}

	var err error
	switch ev.Kind {
	case stream.KindToolCall:
		args, _ := json.Marshal(ev.ToolCall.Args)
		_, err = fmt.Fprintf(w, "[tool_call] %s %s\n", ev.ToolCall.Name, args)
	case stream.KindThinking:
		_, err = fmt.Fprintf(w, "[thinking] %s\n", ev.Text)
	case stream.KindToolResult:
		_, err = fmt.Fprintf(w, "[tool_result] %s\n", truncate(ev.Text, maxResultLen))
	case stream.KindMessage:
		_, err = fmt.Fprintf(w, "\n%s\n", ev.Text)
	}
	return err
}

func writeEntries(w io.Writer, entries []transcript.Entry) error {
	enc := json.NewEncoder(w)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	return nil
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

func firstLine(s string) string {
	s, _, _ = strings.Cut(strings.TrimSpace(s), "\n")
	return s
}
