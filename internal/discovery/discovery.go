// Package discovery fetches A2A agent cards and talks to remote agents.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2aclient"
	"github.com/a2aproject/a2a-go/a2asrv"
)

var httpClient = &http.Client{Timeout: 5 * time.Second}

// Agent holds the discovered agent metadata.
type Agent struct {
	Name      string
	InvokeURL string
	Card      *a2a.AgentCard
}

// FetchCard retrieves the agent card published under baseURL. The card's
// invoke URL is rebased onto baseURL: agents behind a proxy or in a
// container report an address the caller cannot reach.
func FetchCard(ctx context.Context, baseURL string) (*a2a.AgentCard, error) {
	cardURL := strings.TrimSuffix(baseURL, "/") + a2asrv.WellKnownAgentCardPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cardURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch agent card: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch agent card: HTTP %d from %s", resp.StatusCode, cardURL)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read agent card: %w", err)
	}

	var card a2a.AgentCard
	if err := json.Unmarshal(body, &card); err != nil {
		return nil, fmt.Errorf("parse agent card: %w", err)
	}
	card.URL = rebase(baseURL, card.URL)
	return &card, nil
}

func rebase(baseURL, invokeURL string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return invokeURL
	}
	path := "/invoke"
	if u, err := url.Parse(invokeURL); err == nil && u.Path != "" {
		path = u.Path
	}
	return base.JoinPath(path).String()
}

// Discover fetches agent cards from a list of base URLs and returns
// a map keyed by agent name. Agents that cannot be reached are logged
// and skipped.
func Discover(ctx context.Context, baseURLs []string) (map[string]*Agent, error) {
	agents := make(map[string]*Agent)
	for _, baseURL := range baseURLs {
		slog.Info("discovering agent", "url", baseURL)
		card, err := FetchCard(ctx, baseURL)
		if err != nil {
			slog.Warn("discovery: skipping agent", "url", baseURL, "err", err)
			continue
		}
		agents[card.Name] = &Agent{Name: card.Name, InvokeURL: card.URL, Card: card}
		slog.Info("discovered agent", "name", card.Name, "invoke_url", card.URL)
	}

	if len(agents) == 0 {
		return nil, fmt.Errorf("no agents discovered from %d URLs", len(baseURLs))
	}
	return agents, nil
}

// Response is the outcome of one remote research request.
type Response struct {
	Text      string
	State     a2a.TaskState
	ContextID string
	Duration  time.Duration
}

// SendPrompt sends prompt to the agent at baseURL and waits for the task to
// finish. contextID continues an earlier conversation when set.
func SendPrompt(ctx context.Context, baseURL, prompt, contextID string) (Response, error) {
	start := time.Now()

	card, err := FetchCard(ctx, baseURL)
	if err != nil {
		return Response{}, err
	}
	client, err := a2aclient.NewFromCard(ctx, card)
	if err != nil {
		return Response{}, fmt.Errorf("create A2A client for %s: %w", baseURL, err)
	}

	msg := a2a.NewMessage(a2a.MessageRoleUser, a2a.TextPart{Text: prompt})
	msg.ContextID = contextID
	result, err := client.SendMessage(ctx, &a2a.MessageSendParams{Message: msg})
	if err != nil {
		return Response{}, fmt.Errorf("A2A call to %s: %w", baseURL, err)
	}

	resp := Response{Duration: time.Since(start)}
	switch v := result.(type) {
	case *a2a.Task:
		resp.State = v.Status.State
		resp.ContextID = v.ContextID
		if v.Status.Message != nil {
			resp.Text = partsText(v.Status.Message.Parts)
		}
	case *a2a.Message:
		resp.State = a2a.TaskStateCompleted
		resp.ContextID = v.ContextID
		resp.Text = partsText(v.Parts)
	}

	if resp.State == a2a.TaskStateFailed {
		return resp, fmt.Errorf("remote agent failed: %s", resp.Text)
	}
	return resp, nil
}

func partsText(parts a2a.ContentParts) string {
	var texts []string
	for _, p := range parts {
		if tp, ok := p.(a2a.TextPart); ok {
			texts = append(texts, tp.Text)
		}
	}
	return strings.Join(texts, "\n")
}
