// Package transcript persists what each research run produced: the events
// sent to the caller and the tool executions behind them.
package transcript

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Kind classifies a transcript entry.
type Kind string

const (
	KindRequest    Kind = "request"
	KindToolCall   Kind = "tool_call"
	KindThinking   Kind = "thinking"
	KindToolResult Kind = "tool_result"
	KindMessage    Kind = "message"
	KindToolExec   Kind = "tool_exec"
	KindError      Kind = "error"
)

// Entry is one recorded transcript line.
type Entry struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	SessionID string          `json:"session_id"`
	TraceID   string          `json:"trace_id,omitempty"`
	Kind      Kind            `json:"kind"`
	ToolName  string          `json:"tool_name,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Duration  time.Duration   `json:"duration_ns,omitempty"`
}

// Recorder stores entries. *Store implements it.
type Recorder interface {
	Record(ctx context.Context, e *Entry) error
}

// NewTraceID generates an identifier for one run.
func NewTraceID() string {
	return "tr_" + uuid.New().String()[:12]
}

type traceKey struct{}

type trace struct {
	sessionID string
	traceID   string
}

// WithTrace tags ctx with the session and run it belongs to, so entries
// recorded deeper in the call chain land in the same transcript.
func WithTrace(ctx context.Context, sessionID, traceID string) context.Context {
	return context.WithValue(ctx, traceKey{}, trace{sessionID: sessionID, traceID: traceID})
}

// TraceFromContext returns the session and trace IDs set by WithTrace.
func TraceFromContext(ctx context.Context) (sessionID, traceID string) {
	t, _ := ctx.Value(traceKey{}).(trace)
	return t.sessionID, t.traceID
}
