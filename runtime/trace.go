package runtime

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/joeycumines/interleave/scheduler"
)

// ChoiceKind is a type alias onto scheduler.ChoiceKind, re-exported here so
// callers working with runtime.Trace never need to import package scheduler
// just to name the kind of a recorded choice (see DESIGN.md's
// scheduler/trace.go entry for why the type itself must live upstream).
type ChoiceKind = scheduler.ChoiceKind

const (
	ChoiceOperation = scheduler.ChoiceOperation
	ChoiceBool      = scheduler.ChoiceBool
	ChoiceInt       = scheduler.ChoiceInt
)

// TraceEntry is one recorded nondeterministic decision: which operation ran
// next, or what a boolean/integer choice resolved to.
type TraceEntry struct {
	Step  uint64     `json:"step"`
	Kind  ChoiceKind `json:"kind"`
	Value any        `json:"value"`
}

// Trace is an ordered, replayable log of every decision a Scheduler made
// during one iteration. It implements scheduler.TraceRecorder, so a fresh
// Trace can be handed to scheduler.WithTraceRecorder for any iteration
// whose choices should be persisted for later replay/debugging.
type Trace struct {
	mu      sync.Mutex
	Entries []TraceEntry
}

// Record appends one decision. Safe for concurrent use, though in practice
// the scheduler only ever calls it while holding its own step mutex, so
// calls are already serialized.
func (t *Trace) Record(step uint64, kind ChoiceKind, value any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Entries = append(t.Entries, TraceEntry{Step: step, Kind: kind, Value: value})
}

// WriteFile persists the trace as JSON to path.
func (t *Trace) WriteFile(path string) error {
	t.mu.Lock()
	entries := make([]TraceEntry, len(t.Entries))
	copy(entries, t.Entries)
	t.mu.Unlock()

	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// LoadTraceFile reads a trace previously written by WriteFile.
func LoadTraceFile(path string) (*Trace, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []TraceEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, err
	}
	return &Trace{Entries: entries}, nil
}
