package stream

import (
	"encoding/json"
	"strings"

	"google.golang.org/adk/session"
	"google.golang.org/genai"
)

// FromSession converts an ADK runtime event into a step. It reports false
// for events that carry no step: partial chunks, events without content and
// echoes of the user's own turn.
//
// Function responses make a tool step with one message per response. Any
// other model content makes an agent step holding a single message whose
// tool calls are the event's function calls and whose content is its
// non-thought text.
func FromSession(ev *session.Event) (Step, bool) {
	if ev == nil || ev.Partial || ev.Content == nil {
		return Step{}, false
	}

	var (
		calls   []ToolCall
		texts   []string
		results []Message
	)
	for _, p := range ev.Content.Parts {
		if p == nil {
			continue
		}
		switch {
		case p.FunctionCall != nil:
			calls = append(calls, ToolCall{
				ID:   p.FunctionCall.ID,
				Name: p.FunctionCall.Name,
				Args: p.FunctionCall.Args,
			})
		case p.FunctionResponse != nil:
			results = append(results, Message{Content: renderResponse(p.FunctionResponse.Response)})
		case p.Text != "" && !p.Thought:
			texts = append(texts, p.Text)
		}
	}

	if len(results) > 0 {
		return Step{Origin: OriginTool, Messages: results}, true
	}
	if ev.Content.Role == string(genai.RoleUser) {
		return Step{}, false
	}
	return Step{
		Origin:   OriginAgent,
		Messages: []Message{{Content: strings.Join(texts, ""), ToolCalls: calls}},
	}, true
}

// renderResponse flattens a function response into text. Tools that return
// {"result": "..."} are unwrapped; anything else is rendered as JSON.
func renderResponse(resp map[string]any) string {
	if len(resp) == 0 {
		return ""
	}
	if s, ok := resp["result"].(string); ok && len(resp) == 1 {
		return s
	}
	b, err := json.Marshal(resp)
	if err != nil {
		return ""
	}
	return string(b)
}
