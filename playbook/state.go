// ABOUTME: Mutable execution state threaded through a playbook run: a guarded KV store plus a step counter.
// ABOUTME: State is created from caller-supplied seed values and mutated only via executor-produced deltas.
package playbook

import (
	"sync"

	"github.com/oklog/ulid/v2"
)

// Delta is the set of state fields a node execution writes. The engine
// applies a delta atomically, and only after the executor succeeds.
type Delta map[string]any

// State is the mutable key-value store owned by a single playbook run.
// It is safe for concurrent reads; writes happen between steps only.
type State struct {
	execID string

	mu       sync.RWMutex
	values   map[string]any
	steps    int
	warnings []string
}

// NewState creates run state seeded with the caller-supplied initial values
// and a fresh ULID execution id.
func NewState(seed map[string]any) *State {
	values := make(map[string]any, len(seed))
	for k, v := range seed {
		values[k] = v
	}
	return &State{
		execID: ulid.Make().String(),
		values: values,
	}
}

// ExecID returns the run-scoped unique execution id.
func (s *State) ExecID() string { return s.execID }

// Get retrieves the value for the given field, reporting whether it exists.
func (s *State) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// GetString retrieves the string value for the given field. Missing fields
// and non-string values yield the empty string.
func (s *State) GetString(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[key].(string); ok {
		return v
	}
	return ""
}

// ApplyDelta merges a node's output delta into the state.
func (s *State) ApplyDelta(delta Delta) {
	if len(delta) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range delta {
		s.values[k] = v
	}
}

// Snapshot returns a shallow copy of all state fields.
func (s *State) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(map[string]any, len(s.values))
	for k, v := range s.values {
		snap[k] = v
	}
	return snap
}

// SnapshotOf returns a shallow copy of the named fields, omitting any that
// are absent. Used for trace input snapshots.
func (s *State) SnapshotOf(keys []string) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := s.values[k]; ok {
			snap[k] = v
		}
	}
	return snap
}

// Steps returns the number of node executions counted so far.
func (s *State) Steps() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.steps
}

// incrementStep advances the monotonic step counter. The engine is the only
// caller; executors never touch it.
func (s *State) incrementStep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps++
	return s.steps
}

// AddWarning records a non-fatal warning surfaced to the caller at run end.
func (s *State) AddWarning(w string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = append(s.warnings, w)
}

// Warnings returns a copy of the warnings recorded during the run.
func (s *State) Warnings() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.warnings))
	copy(out, s.warnings)
	return out
}
