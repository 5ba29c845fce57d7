package discovery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/a2aproject/a2a-go/a2asrv/eventqueue"

	"webagent/agentutil"
)

func webAgentCard(name string) a2a.AgentCard {
	return a2a.AgentCard{
		Name:        name,
		Description: "Web research agent",
		URL:         "http://10.0.0.7:1107/invoke",
		Skills: []a2a.AgentSkill{
			{ID: "web_search", Name: "Web Search", Description: "search using Google, Bing or Yandex"},
		},
	}
}

func cardServer(t *testing.T, card a2a.AgentCard) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(a2asrv.WellKnownAgentCardPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(card)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchCard_RebasesInvokeURL(t *testing.T) {
	srv := cardServer(t, webAgentCard("the_web_agent"))

	for _, base := range []string{srv.URL, srv.URL + "/"} {
		card, err := FetchCard(context.Background(), base)
		if err != nil {
			t.Fatalf("FetchCard(%s): %v", base, err)
		}
		if want := srv.URL + "/invoke"; card.URL != want {
			t.Errorf("URL = %q, want %q", card.URL, want)
		}
		if len(card.Skills) != 1 || card.Skills[0].ID != "web_search" {
			t.Errorf("Skills = %+v", card.Skills)
		}
	}
}

func TestFetchCard_Errors(t *testing.T) {
	notJSON := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer notJSON.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	cases := map[string]string{
		"bad json":    notJSON.URL,
		"non-200":     broken.URL,
		"unreachable": "http://127.0.0.1:1",
	}
	for name, base := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := FetchCard(context.Background(), base); err == nil {
				t.Error("FetchCard succeeded")
			}
		})
	}
}

func TestDiscover_SkipsUnreachable(t *testing.T) {
	a := cardServer(t, webAgentCard("agent-a"))
	b := cardServer(t, webAgentCard("agent-b"))

	agents, err := Discover(context.Background(), []string{a.URL, "http://127.0.0.1:1", b.URL})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(agents) != 2 {
		t.Fatalf("got %d agents, want 2", len(agents))
	}
	if got := agents["agent-b"].InvokeURL; got != b.URL+"/invoke" {
		t.Errorf("agent-b InvokeURL = %q", got)
	}
}

func TestDiscover_AllFailReturnsError(t *testing.T) {
	if _, err := Discover(context.Background(), []string{"http://127.0.0.1:1"}); err == nil {
		t.Fatal("expected error when all URLs fail")
	}
}

// echoExecutor completes every task with the prompt echoed back, or fails
// it when the prompt is "fail".
type echoExecutor struct{}

func (echoExecutor) Execute(ctx context.Context, reqCtx *a2asrv.RequestContext, q eventqueue.Queue) error {
	if reqCtx.StoredTask == nil {
		if err := q.Write(ctx, a2a.NewSubmittedTask(reqCtx, reqCtx.Message)); err != nil {
			return err
		}
	}
	var text string
	for _, p := range reqCtx.Message.Parts {
		if tp, ok := p.(a2a.TextPart); ok {
			text += tp.Text
		}
	}
	state := a2a.TaskStateCompleted
	if text == "fail" {
		state = a2a.TaskStateFailed
	}
	ev := a2a.NewStatusUpdateEvent(reqCtx, state,
		a2a.NewMessageForTask(a2a.MessageRoleAgent, reqCtx, a2a.TextPart{Text: "echo: " + text}))
	ev.Final = true
	return q.Write(ctx, ev)
}

func (echoExecutor) Cancel(ctx context.Context, reqCtx *a2asrv.RequestContext, q eventqueue.Queue) error {
	return nil
}

func echoAgent(t *testing.T) string {
	t.Helper()
	var h http.Handler
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	h = agentutil.Handler(srv.URL, func(invokeURL string) *a2a.AgentCard {
		card := webAgentCard("echo")
		card.URL = invokeURL
		card.PreferredTransport = a2a.TransportProtocolJSONRPC
		return &card
	}, echoExecutor{}, nil)
	return srv.URL
}

func TestSendPrompt(t *testing.T) {
	base := echoAgent(t)

	resp, err := SendPrompt(context.Background(), base, "espresso", "ctx-9")
	if err != nil {
		t.Fatalf("SendPrompt: %v", err)
	}
	if resp.Text != "echo: espresso" {
		t.Errorf("Text = %q", resp.Text)
	}
	if resp.State != a2a.TaskStateCompleted {
		t.Errorf("State = %s", resp.State)
	}
	if resp.ContextID != "ctx-9" {
		t.Errorf("ContextID = %q, want ctx-9", resp.ContextID)
	}
}

func TestSendPrompt_RemoteFailure(t *testing.T) {
	base := echoAgent(t)

	resp, err := SendPrompt(context.Background(), base, "fail", "")
	if err == nil || !strings.Contains(err.Error(), "echo: fail") {
		t.Fatalf("err = %v, want remote failure", err)
	}
	if resp.State != a2a.TaskStateFailed {
		t.Errorf("State = %s", resp.State)
	}
}
