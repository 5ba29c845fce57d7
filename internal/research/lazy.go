package research

import (
	"context"
	"iter"
	"sync"

	"webagent/internal/stream"
)

// Lazy builds the agent on first use and reuses it afterwards. Concurrent
// first callers wait for a single build, each giving up when its own
// context ends. A failed build is not kept; the next caller tries again.
type Lazy struct {
	build func(context.Context) (Agent, error)

	mu       sync.Mutex
	agent    Agent
	building chan struct{} // closed when the running build finishes
}

// NewLazy wraps build. Nothing is constructed until Get, Warm or a run.
func NewLazy(build func(context.Context) (Agent, error)) *Lazy {
	return &Lazy{build: build}
}

// Get returns the agent, building it if needed. The build runs with the
// context of the caller that started it.
func (l *Lazy) Get(ctx context.Context) (Agent, error) {
	for {
		l.mu.Lock()
		if l.agent != nil {
			a := l.agent
			l.mu.Unlock()
			return a, nil
		}
		if l.building == nil {
			done := make(chan struct{})
			l.building = done
			l.mu.Unlock()
			return l.runBuild(ctx, done)
		}
		wait := l.building
		l.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (l *Lazy) runBuild(ctx context.Context, done chan struct{}) (Agent, error) {
	a, err := l.build(ctx)

	l.mu.Lock()
	l.building = nil
	if err == nil {
		l.agent = a
	}
	l.mu.Unlock()
	close(done)

	if err != nil {
		return nil, err
	}
	return a, nil
}

// Warm builds the agent now instead of on the first request.
func (l *Lazy) Warm(ctx context.Context) error {
	_, err := l.Get(ctx)
	return err
}

func (l *Lazy) Stream(ctx context.Context, req stream.Request) iter.Seq2[stream.Step, error] {
	return func(yield func(stream.Step, error) bool) {
		a, err := l.Get(ctx)
		if err != nil {
			yield(stream.Step{}, err)
			return
		}
		for step, err := range a.Stream(ctx, req) {
			if !yield(step, err) || err != nil {
				return
			}
		}
	}
}

func (l *Lazy) Invoke(ctx context.Context, req stream.Request) (stream.Message, error) {
	a, err := l.Get(ctx)
	if err != nil {
		return stream.Message{}, err
	}
	return a.Invoke(ctx, req)
}

// Close releases the agent if it was built.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.agent == nil {
		return nil
	}
	err := l.agent.Close()
	l.agent = nil
	return err
}
