package webagent

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2aclient"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/a2aproject/a2a-go/a2asrv/eventqueue"

	"webagent/agentutil"
	"webagent/internal/stream"
)

func startA2A(t *testing.T, svc *Service) *a2a.AgentCard {
	t.Helper()
	var h http.Handler
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	card := svc.Metadata.Card
	h = agentutil.Handler(srv.URL, card, &Executor{Service: svc}, svc.RegisterRoutes)
	return card(srv.URL + agentutil.InvokePath)
}

func send(t *testing.T, card *a2a.AgentCard, msg *a2a.Message) *a2a.Task {
	t.Helper()
	ctx := context.Background()
	client, err := a2aclient.NewFromCard(ctx, card)
	if err != nil {
		t.Fatalf("NewFromCard: %v", err)
	}
	result, err := client.SendMessage(ctx, &a2a.MessageSendParams{Message: msg})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	task, ok := result.(*a2a.Task)
	if !ok {
		t.Fatalf("result is %T, want *a2a.Task", result)
	}
	return task
}

func statusText(task *a2a.Task) string {
	if task.Status.Message == nil {
		return ""
	}
	for _, p := range task.Status.Message.Parts {
		if tp, ok := p.(a2a.TextPart); ok {
			return tp.Text
		}
	}
	return ""
}

func TestExecutor_CompletesWithAnswer(t *testing.T) {
	inv := &replayInvoker{steps: researchSteps()}
	card := startA2A(t, &Service{Agent: inv, Metadata: DefaultMetadata()})

	msg := a2a.NewMessage(a2a.MessageRoleUser, a2a.TextPart{Text: "find espresso machines"})
	msg.ContextID = "ctx-1"
	task := send(t, card, msg)

	if task.Status.State != a2a.TaskStateCompleted {
		t.Fatalf("state = %s, want completed", task.Status.State)
	}
	if got := statusText(task); got != "Answer." {
		t.Errorf("answer = %q", got)
	}

	req := inv.lastRequest()
	if req.SessionID != "ctx-1" {
		t.Errorf("SessionID = %q, want the A2A context ID", req.SessionID)
	}
	if len(req.Messages) != 1 || req.Messages[0].Content != "find espresso machines" {
		t.Errorf("Messages = %+v", req.Messages)
	}
}

func TestExecutor_FailsOnRunError(t *testing.T) {
	inv := &replayInvoker{err: errors.New("tool server unreachable")}
	card := startA2A(t, &Service{Agent: inv, Metadata: DefaultMetadata()})

	task := send(t, card, a2a.NewMessage(a2a.MessageRoleUser, a2a.TextPart{Text: "q"}))
	if task.Status.State != a2a.TaskStateFailed {
		t.Fatalf("state = %s, want failed", task.Status.State)
	}
	if got := statusText(task); got != "tool server unreachable" {
		t.Errorf("status text = %q", got)
	}
}

type recordingQueue struct {
	eventqueue.Queue
	events []a2a.Event
}

func (q *recordingQueue) Write(ctx context.Context, ev a2a.Event) error {
	q.events = append(q.events, ev)
	return nil
}

func TestExecutor_Cancel(t *testing.T) {
	q := &recordingQueue{}
	reqCtx := &a2asrv.RequestContext{TaskID: "task-1", ContextID: "ctx-1"}
	exec := &Executor{Service: &Service{Agent: &replayInvoker{}}}

	if err := exec.Cancel(context.Background(), reqCtx, q); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if len(q.events) != 1 {
		t.Fatalf("got %d events, want 1", len(q.events))
	}
	ev, ok := q.events[0].(*a2a.TaskStatusUpdateEvent)
	if !ok {
		t.Fatalf("event is %T", q.events[0])
	}
	if ev.Status.State != a2a.TaskStateCanceled || !ev.Final {
		t.Errorf("status = %s final = %v, want canceled final", ev.Status.State, ev.Final)
	}
	if ev.TaskID != "task-1" || ev.ContextID != "ctx-1" {
		t.Errorf("ids = %s/%s", ev.TaskID, ev.ContextID)
	}
}

func TestMessageTurns(t *testing.T) {
	msg := a2a.NewMessage(a2a.MessageRoleUser,
		a2a.TextPart{Text: "first"},
		a2a.DataPart{Data: map[string]any{"ignored": true}},
		a2a.TextPart{Text: "  "},
		a2a.TextPart{Text: "second"},
	)
	turns := messageTurns(msg)
	if len(turns) != 2 || turns[0].Content != "first" || turns[1].Content != "second" {
		t.Errorf("turns = %+v", turns)
	}
	if turns[0].Role != "user" {
		t.Errorf("role = %q", turns[0].Role)
	}
	if messageTurns(nil) != nil {
		t.Error("nil message should give no turns")
	}
}

func TestEventData(t *testing.T) {
	cases := []struct {
		ev  stream.Event
		key string
	}{
		{stream.Event{Kind: stream.KindThinking, Text: "Let me search"}, "thinking"},
		{stream.Event{Kind: stream.KindToolResult, Text: "serp"}, "tool_result"},
		{stream.Event{Kind: stream.KindToolCall, ToolCall: &stream.ToolCall{Name: "search_engine"}}, "tool_call"},
	}
	for _, tc := range cases {
		data := eventData(tc.ev)
		if _, ok := data[tc.key]; !ok || len(data) != 1 {
			t.Errorf("eventData(%v) = %v, want single key %q", tc.ev.Kind, data, tc.key)
		}
	}
	tc := eventData(cases[2].ev)["tool_call"].(map[string]any)
	if tc["name"] != "search_engine" {
		t.Errorf("tool_call = %v", tc)
	}
}
