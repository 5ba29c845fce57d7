package transcript

import (
	"context"
	"encoding/json"
	"iter"
	"log/slog"

	"webagent/internal/stream"
	"webagent/internal/toolserver"
)

// Tee records every event of seq as it passes through to the caller. A nil
// recorder returns seq unchanged. Recording failures are logged and never
// interrupt the stream.
func Tee(ctx context.Context, rec Recorder, sessionID, traceID string, seq iter.Seq2[stream.Event, error]) iter.Seq2[stream.Event, error] {
	if rec == nil {
		return seq
	}
	return func(yield func(stream.Event, error) bool) {
		for ev, err := range seq {
			if err != nil {
				record(ctx, rec, &Entry{
					SessionID: sessionID,
					TraceID:   traceID,
					Kind:      KindError,
					Payload:   mustJSON(map[string]string{"error": err.Error()}),
				})
			} else {
				e := &Entry{
					SessionID: sessionID,
					TraceID:   traceID,
					Kind:      Kind(ev.Kind),
					Payload:   mustJSON(ev),
				}
				if ev.ToolCall != nil {
					e.ToolName = ev.ToolCall.Name
				}
				record(ctx, rec, e)
			}
			if !yield(ev, err) {
				return
			}
		}
	}
}

// RecordRequest stores the inbound turns of a run.
func RecordRequest(ctx context.Context, rec Recorder, traceID string, req stream.Request) {
	if rec == nil {
		return
	}
	record(ctx, rec, &Entry{
		SessionID: req.SessionID,
		TraceID:   traceID,
		Kind:      KindRequest,
		Payload:   mustJSON(map[string]any{"user_id": req.UserID, "messages": req.Messages}),
	})
}

// ToolObserver records tool executions made through the tool-server bridge.
// The session and trace come from the call's context (see WithTrace).
type ToolObserver struct {
	Recorder Recorder
}

var _ toolserver.CallObserver = ToolObserver{}

func (o ToolObserver) ObserveToolCall(ctx context.Context, call toolserver.Call) {
	if o.Recorder == nil {
		return
	}
	sessionID, traceID := TraceFromContext(ctx)
	if sessionID == "" {
		slog.Debug("tool call outside a traced run, not recorded", "tool", call.Tool)
		return
	}

	payload := map[string]any{
		"server": call.Server,
		"args":   call.Args,
		"output": call.Output,
	}
	if call.Err != nil {
		payload["error"] = call.Err.Error()
	}
	record(ctx, o.Recorder, &Entry{
		SessionID: sessionID,
		TraceID:   traceID,
		Kind:      KindToolExec,
		ToolName:  call.Tool,
		Payload:   mustJSON(payload),
		Duration:  call.Duration,
	})
}

func record(ctx context.Context, rec Recorder, e *Entry) {
	if err := rec.Record(context.WithoutCancel(ctx), e); err != nil {
		slog.Warn("transcript record failed", "session", e.SessionID, "kind", e.Kind, "err", err)
	}
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		b, _ = json.Marshal(map[string]string{"unencodable": err.Error()})
	}
	return b
}
