package stream

import (
	"context"
	"iter"

	"github.com/google/uuid"
)

// Turn is one inbound conversation message.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single inbound call. SessionID keys the checkpointed
// conversation; callers that want isolation must supply distinct IDs.
type Request struct {
	UserID    string
	SessionID string
	Messages  []Turn
}

// Invoker runs the underlying reasoning/tool-use operation.
type Invoker interface {
	// Stream runs the operation and yields its steps as they happen.
	Stream(ctx context.Context, req Request) iter.Seq2[Step, error]
	// Invoke runs the operation to completion and returns its final message.
	Invoke(ctx context.Context, req Request) (Message, error)
}

// FinalMode selects where the terminal answer comes from.
type FinalMode string

const (
	// FinalFromStream takes the answer from the last agent message seen
	// while streaming.
	FinalFromStream FinalMode = "stream"
	// FinalReinvoke runs the whole operation a second time after the stream
	// ends and answers with that run's final message. The last turn is
	// executed twice; kept for callers that depend on the old behavior.
	FinalReinvoke FinalMode = "reinvoke"
)

// ParseFinalMode maps a configuration value to a FinalMode, defaulting to
// FinalFromStream.
func ParseFinalMode(s string) FinalMode {
	if FinalMode(s) == FinalReinvoke {
		return FinalReinvoke
	}
	return FinalFromStream
}

// Events streams the translated events of one run followed by at most one
// terminal answer event. Errors from the invoker are yielded unchanged and
// end the sequence; nothing is retried.
//
// A request without a SessionID is given a fresh one here, so a re-invoke
// runs in the same session as the stream it follows.
func Events(ctx context.Context, inv Invoker, req Request, mode FinalMode) iter.Seq2[Event, error] {
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	return func(yield func(Event, error) bool) {
		var last *Message

		for step, err := range inv.Stream(ctx, req) {
			if err != nil {
				yield(Event{}, err)
				return
			}
			for _, ev := range Translate(step) {
				if !yield(ev, nil) {
					return
				}
			}
			if step.Origin == OriginAgent && len(step.Messages) > 0 {
				last = &step.Messages[len(step.Messages)-1]
			}
		}

		var answer string
		switch mode {
		case FinalReinvoke:
			msg, err := inv.Invoke(ctx, req)
			if err != nil {
				yield(Event{}, err)
				return
			}
			answer = msg.Content
		default:
			// A last message that still asks for tools is not an answer.
			if last != nil && len(last.ToolCalls) == 0 {
				answer = last.Content
			}
		}

		if answer != "" {
			yield(Answer(answer), nil)
		}
	}
}

// Collect drains seq into a slice, stopping at the first error.
func Collect(seq iter.Seq2[Event, error]) ([]Event, error) {
	var out []Event
	for ev, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, ev)
	}
	return out, nil
}
