package webagent

import (
	"context"
	"iter"
	"sync"

	"webagent/internal/stream"
)

// replayInvoker yields canned steps and records the requests it saw.
type replayInvoker struct {
	steps []stream.Step
	err   error

	mu   sync.Mutex
	reqs []stream.Request
}

func (f *replayInvoker) Stream(ctx context.Context, req stream.Request) iter.Seq2[stream.Step, error] {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	return func(yield func(stream.Step, error) bool) {
		for _, s := range f.steps {
			if !yield(s, nil) {
				return
			}
		}
		if f.err != nil {
			yield(stream.Step{}, f.err)
		}
	}
}

func (f *replayInvoker) Invoke(ctx context.Context, req stream.Request) (stream.Message, error) {
	return stream.Message{Content: "Answer."}, nil
}

func (f *replayInvoker) lastRequest() stream.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reqs[len(f.reqs)-1]
}

func researchSteps() []stream.Step {
	return []stream.Step{
		{Origin: stream.OriginAgent, Messages: []stream.Message{{
			Content:   "Let me search",
			ToolCalls: []stream.ToolCall{{ID: "c1", Name: "search_engine", Args: map[string]any{"query": "espresso"}}},
		}}},
		{Origin: stream.OriginTool, Messages: []stream.Message{{Content: "serp"}}},
		{Origin: stream.OriginAgent, Messages: []stream.Message{{Content: "Answer."}}},
	}
}
