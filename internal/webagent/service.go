package webagent

import (
	"context"
	"iter"
	"log/slog"

	"github.com/google/uuid"

	"webagent/internal/stream"
	"webagent/internal/transcript"
)

// TranscriptReader serves stored transcripts.
type TranscriptReader interface {
	Query(ctx context.Context, opts transcript.QueryOptions) ([]transcript.Entry, error)
}

// Service runs research requests for every front end: A2A, the HTTP
// gateway and the CLI.
type Service struct {
	Agent    stream.Invoker
	Mode     stream.FinalMode
	Metadata Metadata

	// Recorder and Transcripts are nil when transcripts are disabled.
	Recorder    transcript.Recorder
	Transcripts TranscriptReader
}

// Run streams the events of one request. Every run gets a trace ID that
// ties its transcript entries together.
func (s *Service) Run(ctx context.Context, req stream.Request) iter.Seq2[stream.Event, error] {
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	traceID := transcript.NewTraceID()
	ctx = transcript.WithTrace(ctx, req.SessionID, traceID)

	slog.Info("research run", "session", req.SessionID, "trace", traceID, "messages", len(req.Messages), "mode", s.Mode)
	transcript.RecordRequest(ctx, s.Recorder, traceID, req)

	return transcript.Tee(ctx, s.Recorder, req.SessionID, traceID, stream.Events(ctx, s.Agent, req, s.Mode))
}
