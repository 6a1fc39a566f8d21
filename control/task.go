package control

import (
	"sync"

	"github.com/joeycumines/interleave/scheduler"
)

// Result is the value a Task settles with — the return value of a
// controlled operation body, or an error if it panicked. Deliberately `any`:
// this engine has no reflection-driven generic per-type Task[T]; every Task
// carries an `any` result slot (see SPEC_FULL.md §9 on "reflection-driven
// generic dispatch").
type Result = any

// TaskState is the lifecycle state of a Task. A Task starts Pending and
// transitions exactly once to Fulfilled or Rejected.
type TaskState int

const (
	// Pending means the Task's operation has not yet completed.
	Pending TaskState = iota
	// Fulfilled means the operation returned normally.
	Fulfilled
	// Rejected means the operation panicked or was cancelled.
	Rejected
)

func (s TaskState) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Fulfilled:
		return "Fulfilled"
	case Rejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

// Task is the handle returned by Context.Go, representing the eventual
// result of one controlled operation. It is the task-level counterpart of a
// scheduler.Operation: Task adds a settled value/error on top of the
// operation's pure state machine, the same way a promise layers
// resolve/reject on top of nothing but subscriber channels.
type Task struct {
	mu     sync.Mutex
	op     *scheduler.Operation
	state  TaskState
	result Result
	err    error
}

func newTask(op *scheduler.Operation) *Task {
	return &Task{op: op}
}

// Operation returns the scheduler.Operation backing this task. Exposed so
// Controller can register it in wait sets without Task needing to know how
// the scheduler represents blocking.
func (t *Task) Operation() *scheduler.Operation {
	return t.op
}

// State returns the task's current lifecycle state.
func (t *Task) State() TaskState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Result returns the task's fulfillment value, or nil if pending or
// rejected.
func (t *Task) Result() Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result
}

// Err returns the task's rejection cause, or nil if pending or fulfilled.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// settled reports whether the task has already transitioned out of Pending.
func (t *Task) settled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state != Pending
}

func (t *Task) fulfill(v Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Pending {
		return
	}
	t.state = Fulfilled
	t.result = v
}

func (t *Task) reject(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Pending {
		return
	}
	t.state = Rejected
	t.err = err
}
