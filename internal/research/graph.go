package research

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"webagent/internal/stream"
)

const (
	// AgentName is the ADK agent and application name.
	AgentName = "web_agent"

	// DefaultUserID is used when a caller does not identify itself.
	DefaultUserID = "user"
)

// ReactLoop builds an ADK LLM agent: the model alternates between reasoning
// and calling tools until it produces an answer without tool calls.
type ReactLoop struct {
	Name        string
	Description string
}

func (r ReactLoop) NewLoop(cfg LoopConfig) (stream.Invoker, error) {
	name := r.Name
	if name == "" {
		name = AgentName
	}
	desc := r.Description
	if desc == "" {
		desc = "Web research agent that searches, scrapes and extracts structured data from the web."
	}

	a, err := llmagent.New(llmagent.Config{
		Name:        name,
		Description: desc,
		Instruction: cfg.Instruction,
		Model:       cfg.Model,
		Tools:       cfg.Tools,
	})
	if err != nil {
		return nil, fmt.Errorf("create agent: %w", err)
	}

	run, err := runner.New(runner.Config{
		AppName:        name,
		Agent:          a,
		SessionService: cfg.Sessions,
	})
	if err != nil {
		return nil, fmt.Errorf("create runner: %w", err)
	}
	return &Graph{appName: name, runner: run, sessions: cfg.Sessions}, nil
}

// Graph runs the agent against a session store. Each (user, session) pair
// is its own checkpointed conversation.
type Graph struct {
	appName  string
	runner   *runner.Runner
	sessions session.Service
}

// NewRequest fills in the caller identity. An empty sessionID gets a fresh
// one, so unrelated callers never share a conversation.
func NewRequest(userID, sessionID string, msgs []stream.Turn) stream.Request {
	if userID == "" {
		userID = DefaultUserID
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return stream.Request{UserID: userID, SessionID: sessionID, Messages: msgs}
}

// Prompt renders the inbound turns as the text of one user turn. A single
// turn is passed through as is.
func Prompt(msgs []stream.Turn) string {
	switch len(msgs) {
	case 0:
		return ""
	case 1:
		return msgs[0].Content
	}
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		role := m.Role
		if role == "" {
			role = "user"
		}
		fmt.Fprintf(&b, "%s: %s", role, m.Content)
	}
	return b.String()
}

// Stream runs one turn and yields a step per runtime event.
func (g *Graph) Stream(ctx context.Context, req stream.Request) iter.Seq2[stream.Step, error] {
	return func(yield func(stream.Step, error) bool) {
		req = NewRequest(req.UserID, req.SessionID, req.Messages)
		if err := g.ensureSession(ctx, req.UserID, req.SessionID); err != nil {
			yield(stream.Step{}, err)
			return
		}

		msg := genai.NewContentFromText(Prompt(req.Messages), genai.RoleUser)
		cfg := agent.RunConfig{StreamingMode: agent.StreamingModeNone}
		for ev, err := range g.runner.Run(ctx, req.UserID, req.SessionID, msg, cfg) {
			if err != nil {
				yield(stream.Step{}, err)
				return
			}
			step, ok := stream.FromSession(ev)
			if !ok {
				continue
			}
			if !yield(step, nil) {
				return
			}
		}
	}
}

// Invoke runs one turn to completion and returns the last agent message.
func (g *Graph) Invoke(ctx context.Context, req stream.Request) (stream.Message, error) {
	var last stream.Message
	for step, err := range g.Stream(ctx, req) {
		if err != nil {
			return stream.Message{}, err
		}
		if step.Origin == stream.OriginAgent && len(step.Messages) > 0 {
			last = step.Messages[len(step.Messages)-1]
		}
	}
	return last, nil
}

func (g *Graph) ensureSession(ctx context.Context, userID, sessionID string) error {
	got, err := g.sessions.Get(ctx, &session.GetRequest{
		AppName:   g.appName,
		UserID:    userID,
		SessionID: sessionID,
	})
	if err == nil && got != nil && got.Session != nil {
		return nil
	}
	_, err = g.sessions.Create(ctx, &session.CreateRequest{
		AppName:   g.appName,
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil {
		return fmt.Errorf("create session %s: %w", sessionID, err)
	}
	return nil
}
