package scheduler

import (
	"errors"
	"fmt"
)

// ErrExecutionCancelled is the internal unwind signal used to abort every
// suspended operation once an iteration terminates. It must never surface
// past the iteration driver: user code that recovers a panic carrying this
// error must re-panic with it unchanged, and the controller's outermost
// recover swallows it rather than reporting it as a failure.
var ErrExecutionCancelled = errors.New("scheduler: execution cancelled")

// AssertionFailureError reports a user or internal invariant violated via
// Scheduler.Fail or Context.Assert.
type AssertionFailureError struct {
	Message string
}

func (e *AssertionFailureError) Error() string {
	return fmt.Sprintf("assertion failed: %s", e.Message)
}

// DeadlockError reports that no operation was enabled while the test had
// not yet completed.
type DeadlockError struct {
	// Blocked lists the operations that were registered but not completed
	// at the point of deadlock, for diagnostics.
	Blocked []string
}

func (e *DeadlockError) Error() string {
	return fmt.Sprintf("deadlock: no operation enabled, %d operation(s) still blocked", len(e.Blocked))
}

// LivenessViolationError reports that a specification monitor stayed hot
// longer than the configured temperature (look-back window).
type LivenessViolationError struct {
	Monitor string
}

func (e *LivenessViolationError) Error() string {
	return fmt.Sprintf("liveness violation: monitor %q stayed hot past its temperature window", e.Monitor)
}

// BoundReachedError reports that the hard scheduling-step cap was exceeded.
// This is not itself a bug report: it contributes to coverage accounting.
type BoundReachedError struct {
	Steps uint64
}

func (e *BoundReachedError) Error() string {
	return fmt.Sprintf("bound reached: %d scheduling steps", e.Steps)
}

// UncontrolledConcurrencyError reports that user code escaped the
// controlled-primitive sandbox.
type UncontrolledConcurrencyError struct {
	Detail string
}

func (e *UncontrolledConcurrencyError) Error() string {
	return fmt.Sprintf("uncontrolled concurrency: %s", e.Detail)
}

// UnhandledExceptionError wraps a user panic recovered from inside a
// controlled operation, terminating the iteration as a failure.
type UnhandledExceptionError struct {
	Operation string
	Cause     error
}

func (e *UnhandledExceptionError) Error() string {
	return fmt.Sprintf("unhandled exception in operation %q: %v", e.Operation, e.Cause)
}

func (e *UnhandledExceptionError) Unwrap() error {
	return e.Cause
}

// WrapPanic converts a recovered panic value into an error, preserving an
// existing error's cause chain where possible.
func WrapPanic(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", v)
}
