package webagent

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/a2aproject/a2a-go/a2asrv/eventqueue"

	"webagent/internal/research"
	"webagent/internal/stream"
)

// Executor runs research requests arriving over A2A. Each translated event
// becomes a working status update with one data part; the final answer
// completes the task.
type Executor struct {
	Service *Service
}

var _ a2asrv.AgentExecutor = (*Executor)(nil)

func (e *Executor) Execute(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue) error {
	if reqCtx.StoredTask == nil {
		if err := queue.Write(ctx, a2a.NewSubmittedTask(reqCtx, reqCtx.Message)); err != nil {
			return err
		}
	}

	req := research.NewRequest("", reqCtx.ContextID, messageTurns(reqCtx.Message))
	if err := queue.Write(ctx, a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateWorking, nil)); err != nil {
		return err
	}

	var answer string
	for ev, err := range e.Service.Run(ctx, req) {
		if err != nil {
			slog.Error("research run failed", "session", req.SessionID, "err", err)
			msg := a2a.NewMessageForTask(a2a.MessageRoleAgent, reqCtx, a2a.TextPart{Text: err.Error()})
			return writeFinal(ctx, queue, reqCtx, a2a.TaskStateFailed, msg)
		}
		if ev.Terminal() {
			answer = ev.Text
			continue
		}
		msg := a2a.NewMessageForTask(a2a.MessageRoleAgent, reqCtx, a2a.DataPart{Data: eventData(ev)})
		if err := queue.Write(ctx, a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateWorking, msg)); err != nil {
			return err
		}
	}

	msg := a2a.NewMessageForTask(a2a.MessageRoleAgent, reqCtx, a2a.TextPart{Text: answer})
	return writeFinal(ctx, queue, reqCtx, a2a.TaskStateCompleted, msg)
}

func (e *Executor) Cancel(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue) error {
	return writeFinal(ctx, queue, reqCtx, a2a.TaskStateCanceled, nil)
}

func writeFinal(ctx context.Context, queue eventqueue.Queue, reqCtx *a2asrv.RequestContext, state a2a.TaskState, msg *a2a.Message) error {
	ev := a2a.NewStatusUpdateEvent(reqCtx, state, msg)
	ev.Final = true
	return queue.Write(ctx, ev)
}

// messageTurns turns an A2A message into inbound turns: one per text part.
func messageTurns(msg *a2a.Message) []stream.Turn {
	if msg == nil {
		return nil
	}
	role := "user"
	if msg.Role == a2a.MessageRoleAgent {
		role = "assistant"
	}
	var turns []stream.Turn
	for _, p := range msg.Parts {
		if tp, ok := p.(a2a.TextPart); ok && strings.TrimSpace(tp.Text) != "" {
			turns = append(turns, stream.Turn{Role: role, Content: tp.Text})
		}
	}
	return turns
}

// eventData is the event's wire object, e.g. {"thinking": "..."}.
func eventData(ev stream.Event) map[string]any {
	b, err := json.Marshal(ev)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	var data map[string]any
	if err := json.Unmarshal(b, &data); err != nil {
		return map[string]any{"error": err.Error()}
	}
	return data
}
