package webagent

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"webagent/internal/research"
	"webagent/internal/stream"
	"webagent/internal/transcript"
)

// maxRequestBytes bounds a research request body.
const maxRequestBytes = 1 << 20

// SessionHeader carries the conversation ID on HTTP requests and responses.
const SessionHeader = "X-Session-ID"

// ResearchRequest is the body of POST /api/v1/research. Query is shorthand
// for a single user message.
type ResearchRequest struct {
	Messages  []stream.Turn `json:"messages"`
	Query     string        `json:"query,omitempty"`
	SessionID string        `json:"session_id,omitempty"`
	UserID    string        `json:"user_id,omitempty"`
}

// RegisterRoutes sets up the REST endpoint handlers.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/research", s.handleResearch)
	mux.HandleFunc("GET /api/v1/metadata", s.handleMetadata)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.Transcripts != nil {
		mux.HandleFunc("GET /api/v1/sessions/{id}/transcript", s.handleTranscript)
	}
}

func (s *Service) handleResearch(w http.ResponseWriter, r *http.Request) {
	var body ResearchRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	msgs := body.Messages
	if body.Query != "" {
		msgs = append(msgs, stream.Turn{Role: "user", Content: body.Query})
	}
	if len(msgs) == 0 {
		writeError(w, http.StatusBadRequest, "messages or query is required")
		return
	}

	sessionID := body.SessionID
	if h := r.Header.Get(SessionHeader); h != "" {
		sessionID = h
	}
	req := research.NewRequest(body.UserID, sessionID, msgs)

	enc := newEventWriter(w, strings.Contains(r.Header.Get("Accept"), "text/event-stream"))
	w.Header().Set(SessionHeader, req.SessionID)
	w.WriteHeader(http.StatusOK)

	for ev, err := range s.Run(r.Context(), req) {
		if err != nil {
			slog.Error("research run failed", "session", req.SessionID, "err", err)
			enc.writeError(err)
			return
		}
		if err := enc.write(ev); err != nil {
			slog.Debug("client went away", "session", req.SessionID, "err", err)
			return
		}
	}
}

func (s *Service) handleMetadata(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Metadata)
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) handleTranscript(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	opts := transcript.QueryOptions{
		SessionID: id,
		TraceID:   r.URL.Query().Get("trace_id"),
		Kind:      transcript.Kind(r.URL.Query().Get("kind")),
	}
	entries, err := s.Transcripts.Query(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(entries) == 0 {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no transcript for session %q", id))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// eventWriter writes events as NDJSON or as server-sent events, flushing
// after each one.
type eventWriter struct {
	w     http.ResponseWriter
	sse   bool
	flush func()
}

func newEventWriter(w http.ResponseWriter, sse bool) *eventWriter {
	ew := &eventWriter{w: w, sse: sse, flush: func() {}}
	if f, ok := w.(http.Flusher); ok {
		ew.flush = f.Flush
	}
	if sse {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
	} else {
		w.Header().Set("Content-Type", "application/x-ndjson")
	}
	return ew
}

func (ew *eventWriter) write(ev stream.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return ew.writeRaw(string(ev.Kind), b)
}

func (ew *eventWriter) writeError(err error) {
	b, _ := json.Marshal(map[string]string{"error": err.Error()})
	ew.writeRaw("error", b)
}

func (ew *eventWriter) writeRaw(name string, data []byte) error {
	var err error
	if ew.sse {
		_, err = fmt.Fprintf(ew.w, "event: %s\ndata: %s\n\n", name, data)
	} else {
		_, err = fmt.Fprintf(ew.w, "%s\n", data)
	}
	ew.flush()
	return err
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
