package stream

import (
	"context"
	"errors"
	"iter"
	"testing"
)

// fakeInvoker replays canned steps and returns a canned final message.
type fakeInvoker struct {
	steps     []Step
	streamErr error
	final     Message
	invokeErr error

	streams int
	invokes int
	reqs    []Request
}

func (f *fakeInvoker) Stream(ctx context.Context, req Request) iter.Seq2[Step, error] {
	f.streams++
	f.reqs = append(f.reqs, req)
	return func(yield func(Step, error) bool) {
		for _, s := range f.steps {
			if !yield(s, nil) {
				return
			}
		}
		if f.streamErr != nil {
			yield(Step{}, f.streamErr)
		}
	}
}

func (f *fakeInvoker) Invoke(ctx context.Context, req Request) (Message, error) {
	f.invokes++
	f.reqs = append(f.reqs, req)
	return f.final, f.invokeErr
}

func kinds(evs []Event) []Kind {
	out := make([]Kind, len(evs))
	for i, ev := range evs {
		out[i] = ev.Kind
	}
	return out
}

func TestEvents_PreservesStepOrder(t *testing.T) {
	inv := &fakeInvoker{steps: []Step{
		agentStep(Message{Content: "Let me search"}),
		agentStep(Message{ToolCalls: []ToolCall{{Name: "search_engine"}, {Name: "scrape_as_markdown"}}}),
		toolStep(Message{Content: "serp"}, Message{Content: "page"}),
		agentStep(Message{Content: "Answer."}),
	}}

	got, err := Collect(Events(context.Background(), inv, Request{}, FinalFromStream))
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	want := []Kind{KindThinking, KindToolCall, KindToolCall, KindToolResult, KindToolResult, KindThinking, KindMessage}
	gotKinds := kinds(got)
	if len(gotKinds) != len(want) {
		t.Fatalf("kinds = %v, want %v", gotKinds, want)
	}
	for i := range want {
		if gotKinds[i] != want[i] {
			t.Fatalf("kinds = %v, want %v", gotKinds, want)
		}
	}
	if got[3].Text != "serp" || got[4].Text != "page" {
		t.Errorf("tool results out of order: %q, %q", got[3].Text, got[4].Text)
	}
	if got[len(got)-1].Text != "Answer." {
		t.Errorf("final = %q, want %q", got[len(got)-1].Text, "Answer.")
	}
	if inv.invokes != 0 {
		t.Errorf("FinalFromStream invoked the runtime %d extra times", inv.invokes)
	}
}

func TestEvents_ReinvokeAnswersFromSecondRun(t *testing.T) {
	inv := &fakeInvoker{
		steps: []Step{
			agentStep(Message{ToolCalls: []ToolCall{{Name: "search_engine"}}}),
			toolStep(Message{Content: "result text"}),
			agentStep(Message{Content: "streamed answer"}),
		},
		final: Message{Content: "Answer."},
	}

	got, err := Collect(Events(context.Background(), inv, Request{SessionID: "s1"}, FinalReinvoke))
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if inv.streams != 1 || inv.invokes != 1 {
		t.Errorf("streams=%d invokes=%d, want 1 and 1", inv.streams, inv.invokes)
	}

	var terminals []Event
	for _, ev := range got {
		if ev.Terminal() {
			terminals = append(terminals, ev)
		}
	}
	if len(terminals) != 1 || terminals[0].Text != "Answer." {
		t.Fatalf("terminal events = %+v, want exactly one %q", terminals, "Answer.")
	}
	if !got[len(got)-1].Terminal() {
		t.Error("terminal event is not last")
	}
}

func TestEvents_ReinvokeAnswersRegardlessOfStream(t *testing.T) {
	inv := &fakeInvoker{final: Message{Content: "Answer."}}
	got, err := Collect(Events(context.Background(), inv, Request{}, FinalReinvoke))
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(got) != 1 || got[0].Text != "Answer." || !got[0].Terminal() {
		t.Errorf("events = %+v, want one terminal Answer.", got)
	}
}

func TestEvents_NoAnswerWithoutContent(t *testing.T) {
	inv := &fakeInvoker{steps: []Step{
		agentStep(Message{ToolCalls: []ToolCall{{Name: "search_engine"}}}),
		toolStep(Message{}),
	}}
	got, err := Collect(Events(context.Background(), inv, Request{}, FinalFromStream))
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	for _, ev := range got {
		if ev.Terminal() {
			t.Errorf("unexpected terminal event %+v", ev)
		}
	}
	if len(got) != 1 {
		t.Errorf("events = %+v, want only the tool_call", got)
	}
}

func TestEvents_StreamErrorPropagates(t *testing.T) {
	boom := errors.New("model unavailable")
	inv := &fakeInvoker{
		steps:     []Step{agentStep(Message{Content: "Let me search"})},
		streamErr: boom,
		final:     Message{Content: "Answer."},
	}
	got, err := Collect(Events(context.Background(), inv, Request{}, FinalReinvoke))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if len(got) != 1 || got[0].Kind != KindThinking {
		t.Errorf("events before error = %+v", got)
	}
	if inv.invokes != 0 {
		t.Error("final invocation ran after a stream error")
	}
}

func TestEvents_InvokeErrorPropagates(t *testing.T) {
	boom := errors.New("second run failed")
	inv := &fakeInvoker{invokeErr: boom}
	_, err := Collect(Events(context.Background(), inv, Request{}, FinalReinvoke))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestEvents_ConsumerCanStopEarly(t *testing.T) {
	inv := &fakeInvoker{
		steps: []Step{
			agentStep(Message{Content: "one"}),
			agentStep(Message{Content: "two"}),
		},
		final: Message{Content: "Answer."},
	}
	n := 0
	for range Events(context.Background(), inv, Request{}, FinalReinvoke) {
		n++
		break
	}
	if n != 1 {
		t.Errorf("consumed %d events, want 1", n)
	}
	if inv.invokes != 0 {
		t.Error("final invocation ran after the consumer stopped")
	}
}

func TestParseFinalMode(t *testing.T) {
	cases := map[string]FinalMode{
		"":         FinalFromStream,
		"stream":   FinalFromStream,
		"reinvoke": FinalReinvoke,
		"other":    FinalFromStream,
	}
	for in, want := range cases {
		if got := ParseFinalMode(in); got != want {
			t.Errorf("ParseFinalMode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEvents_AnswerIsLastAgentMessage(t *testing.T) {
	inv := &fakeInvoker{steps: []Step{
		agentStep(Message{Content: "Answer."}),
		agentStep(Message{Content: "checking once more", ToolCalls: []ToolCall{{Name: "search_engine"}}}),
		toolStep(Message{Content: "serp"}),
	}}
	got, err := Collect(Events(context.Background(), inv, Request{}, FinalFromStream))
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	for _, ev := range got {
		if ev.Terminal() {
			t.Errorf("got terminal %q after a later tool round, want none", ev.Text)
		}
	}
	want := []Kind{KindThinking, KindToolCall, KindToolResult}
	if gk := kinds(got); len(gk) != len(want) {
		t.Errorf("kinds = %v, want %v", gk, want)
	}
}

func TestEvents_AnswerAfterToolRound(t *testing.T) {
	inv := &fakeInvoker{steps: []Step{
		agentStep(Message{Content: "Draft."}),
		agentStep(Message{ToolCalls: []ToolCall{{Name: "search_engine"}}}),
		toolStep(Message{Content: "serp"}),
		agentStep(Message{Content: "Final."}),
	}}
	got, err := Collect(Events(context.Background(), inv, Request{}, FinalFromStream))
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	last := got[len(got)-1]
	if !last.Terminal() || last.Text != "Final." {
		t.Errorf("terminal = %+v, want Final.", last)
	}
}

func TestEvents_ReinvokeSharesFilledSession(t *testing.T) {
	inv := &fakeInvoker{
		steps: []Step{agentStep(Message{Content: "Answer."})},
		final: Message{Content: "Answer."},
	}
	if _, err := Collect(Events(context.Background(), inv, Request{}, FinalReinvoke)); err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(inv.reqs) != 2 {
		t.Fatalf("runtime called %d times, want 2", len(inv.reqs))
	}
	if inv.reqs[0].SessionID == "" || inv.reqs[0].SessionID != inv.reqs[1].SessionID {
		t.Errorf("stream session %q, invoke session %q; want one shared session", inv.reqs[0].SessionID, inv.reqs[1].SessionID)
	}
}
