// Package stream turns the step events of an agent run into the normalized
// tool_call / thinking / tool_result events delivered to callers, followed by
// a single final message.
package stream

import (
	"encoding/json"
	"fmt"
)

// Origin tags which part of the agent graph produced a step.
type Origin string

const (
	OriginAgent Origin = "agent"
	OriginTool  Origin = "tools"
)

// ToolCall is one tool invocation requested by the model.
type ToolCall struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// Message is a single message carried by a step.
type Message struct {
	Content   string
	ToolCalls []ToolCall
}

// Step is one unit of progress emitted during a streamed run.
type Step struct {
	Origin   Origin
	Messages []Message
}

// Kind identifies an output event.
type Kind string

const (
	KindToolCall   Kind = "tool_call"
	KindThinking   Kind = "thinking"
	KindToolResult Kind = "tool_result"
	KindMessage    Kind = "message"
)

// Event is a normalized output event. ToolCall is set for KindToolCall, Text
// for every other kind.
type Event struct {
	Kind     Kind
	ToolCall *ToolCall
	Text     string
}

// Answer returns the terminal event carrying the final answer text.
func Answer(text string) Event {
	return Event{Kind: KindMessage, Text: text}
}

// Terminal reports whether e is the final answer event.
func (e Event) Terminal() bool { return e.Kind == KindMessage }

// MarshalJSON encodes the event as a single-key object keyed by its kind,
// e.g. {"thinking":"..."} or {"tool_call":{"name":...}}.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case KindToolCall:
		if e.ToolCall == nil {
			return nil, fmt.Errorf("tool_call event without a tool call")
		}
		return json.Marshal(map[string]*ToolCall{string(KindToolCall): e.ToolCall})
	case KindThinking, KindToolResult, KindMessage:
		return json.Marshal(map[string]string{string(e.Kind): e.Text})
	default:
		return nil, fmt.Errorf("unknown event kind %q", e.Kind)
	}
}

// UnmarshalJSON decodes the single-key object written by MarshalJSON.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return fmt.Errorf("event must have exactly one key, got %d", len(raw))
	}
	for k, v := range raw {
		switch Kind(k) {
		case KindToolCall:
			var tc ToolCall
			if err := json.Unmarshal(v, &tc); err != nil {
				return fmt.Errorf("decode tool_call: %w", err)
			}
			*e = Event{Kind: KindToolCall, ToolCall: &tc}
		case KindThinking, KindToolResult, KindMessage:
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				return fmt.Errorf("decode %s: %w", k, err)
			}
			*e = Event{Kind: Kind(k), Text: s}
		default:
			return fmt.Errorf("unknown event kind %q", k)
		}
	}
	return nil
}

// Translate maps one step to its output events.
//
// An agent message that requests tools yields one tool_call per invocation in
// the order listed, and its text content is dropped. An agent message without
// tool calls yields a thinking event when it has content. A tool message
// yields a tool_result when it has content. Anything else yields nothing.
func Translate(step Step) []Event {
	var out []Event
	for _, msg := range step.Messages {
		switch step.Origin {
		case OriginAgent:
			if len(msg.ToolCalls) > 0 {
				for i := range msg.ToolCalls {
					tc := msg.ToolCalls[i]
					out = append(out, Event{Kind: KindToolCall, ToolCall: &tc})
				}
				continue
			}
			if msg.Content != "" {
				out = append(out, Event{Kind: KindThinking, Text: msg.Content})
			}
		case OriginTool:
			if msg.Content != "" {
				out = append(out, Event{Kind: KindToolResult, Text: msg.Content})
			}
		}
	}
	return out
}
