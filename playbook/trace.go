// ABOUTME: Per-step trace records and pluggable trace sinks for run observability.
// ABOUTME: Sinks are a strategy chosen at engine construction: no-op, in-memory buffer, or streaming JSONL.
package playbook

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// TraceEntry records one step transition: what the node read, what it
// wrote, how long it took, and how it ended.
type TraceEntry struct {
	ExecID   string         `json:"exec_id"`
	Step     int            `json:"step"`
	NodeID   string         `json:"node_id"`
	Kind     NodeKind       `json:"kind"`
	Input    map[string]any `json:"input,omitempty"`
	Output   Delta          `json:"output,omitempty"`
	Duration time.Duration  `json:"duration_ns"`
	Outcome  string         `json:"outcome"`
}

// OutcomeOK is the trace outcome for a successful step.
const OutcomeOK = "ok"

// ErrorOutcome renders a failed step's outcome as "error:<reason>".
func ErrorOutcome(reason NodeErrorReason) string {
	return "error:" + string(reason)
}

// TraceSink receives trace entries as the run produces them. Sinks that
// buffer should write out on Flush, called once at run end.
type TraceSink interface {
	Append(entry TraceEntry) error
	Flush() error
}

// NopSink discards all trace entries.
type NopSink struct{}

func (NopSink) Append(TraceEntry) error { return nil }

func (NopSink) Flush() error { return nil }

// MemorySink buffers trace entries in memory for later inspection,
// primarily in tests and the CLI.
type MemorySink struct {
	mu      sync.Mutex
	entries []TraceEntry
}

// Append stores the entry.
func (s *MemorySink) Append(entry TraceEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// Flush is a no-op for the in-memory sink.
func (s *MemorySink) Flush() error { return nil }

// Entries returns a copy of the buffered entries.
func (s *MemorySink) Entries() []TraceEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TraceEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// StreamSink writes each entry as a JSON line the moment it is appended,
// for live debugging of playbook authoring.
type StreamSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewStreamSink creates a streaming JSONL sink over the given writer.
func NewStreamSink(w io.Writer) *StreamSink {
	return &StreamSink{enc: json.NewEncoder(w)}
}

// Append encodes the entry as one JSON line.
func (s *StreamSink) Append(entry TraceEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(entry); err != nil {
		return fmt.Errorf("encode trace entry: %w", err)
	}
	return nil
}

// Flush is a no-op; entries are written as they arrive.
func (s *StreamSink) Flush() error { return nil }

// tracer is the run-scoped trace collector. It keeps the run's own ordered
// entry list (attached to results and RunError) and forwards each entry to
// the configured sink. Sink failures degrade to run warnings; tracing must
// never fail a run.
type tracer struct {
	sink    TraceSink
	entries []TraceEntry
}

func newTracer(sink TraceSink) *tracer {
	if sink == nil {
		sink = NopSink{}
	}
	return &tracer{sink: sink}
}

func (t *tracer) append(st *State, entry TraceEntry) {
	t.entries = append(t.entries, entry)
	if err := t.sink.Append(entry); err != nil {
		st.AddWarning(fmt.Sprintf("trace sink append failed at step %d: %v", entry.Step, err))
	}
}

func (t *tracer) flush(st *State) {
	if err := t.sink.Flush(); err != nil {
		st.AddWarning(fmt.Sprintf("trace sink flush failed: %v", err))
	}
}

// Entries returns the entries recorded so far.
func (t *tracer) Entries() []TraceEntry {
	out := make([]TraceEntry, len(t.entries))
	copy(out, t.entries)
	return out
}
