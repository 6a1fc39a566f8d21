package scheduler

import (
	"fmt"
	"sync"
)

// Scheduler is the controlled-concurrency kernel for one test iteration. It
// owns every registered Operation, the single step mutex that guarantees at
// most one operation runs at a time, and the ExplorationStrategy consulted
// at every nondeterministic choice point.
//
// A Scheduler is single-use: construct one per iteration via NewScheduler,
// run the test body to completion or failure, then discard it.
type Scheduler struct {
	mu   sync.Mutex
	cond *sync.Cond

	reg      *registry
	strategy ExplorationStrategy
	logger   *Logger
	recorder TraceRecorder

	hardStepCap uint64
	step        uint64

	// running is the Operation currently holding the step mutex, or nil
	// before the first operation has claimed it and after termination.
	running *Operation

	terminated     bool
	terminationErr error
}

// NewScheduler constructs a Scheduler driven by strategy.
func NewScheduler(strategy ExplorationStrategy, opts ...SchedulerOption) *Scheduler {
	o := resolveSchedulerOptions(opts)
	s := &Scheduler{
		reg:         newRegistry(),
		strategy:    strategy,
		logger:      o.logger,
		recorder:    o.recorder,
		hardStepCap: o.hardStepCap,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// RegisterOperation allocates a new Operation in StatusNone. The caller must
// eventually call StartOperation from the operation's own goroutine.
func (s *Scheduler) RegisterOperation(name string) *Operation {
	return s.reg.register(name)
}

// Step returns the number of nondeterministic choices made so far.
func (s *Scheduler) Step() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Err returns the error that terminated the iteration, or nil if the
// iteration is still running or completed successfully.
func (s *Scheduler) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminationErr
}

// Wait blocks until the iteration has terminated (successfully, or on
// failure/deadlock/bound-reached), and returns the terminating error, if
// any. It must be called from a goroutine that is not itself a registered
// Operation — typically the iteration driver in package runtime.
func (s *Scheduler) Wait() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for !s.terminated {
		s.cond.Wait()
	}
	return s.terminationErr
}

// StartOperation transitions op from StatusNone to StatusEnabled and blocks
// the calling goroutine until the scheduler chooses it to run — unless it is
// the very first operation of the iteration, which claims the step mutex
// immediately without consulting the strategy (there is nothing to choose
// between yet).
//
// Must be called exactly once, from op's own goroutine, as that goroutine's
// first action. A non-nil error means the iteration has already terminated;
// the caller must unwind without running any further user code.
func (s *Scheduler) StartOperation(op *Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if op.status != StatusNone {
		panic(fmt.Sprintf("scheduler: StartOperation called more than once for %s", op))
	}
	op.status = StatusEnabled
	close(op.started)

	if s.terminated {
		return s.unwindLocked()
	}
	if s.running == nil {
		s.running = op
		op.status = StatusRunning
		return nil
	}
	return s.awaitTurnLocked(op)
}

// WaitOperationStart blocks until op has reached StatusEnabled for the first
// time. Safe to call from any goroutine, including ones that are not
// themselves registered operations.
func (s *Scheduler) WaitOperationStart(op *Operation) {
	<-op.started
}

// ScheduleNextOperation is called by the currently running operation to
// voluntarily yield the step mutex: a plain cooperative yield when
// isYielding is true, or the natural end of a run of uninterrupted work
// otherwise. op is left in StatusEnabled (still runnable) unless a caller
// has already placed it into a Blocked* status via BlockOn.
func (s *Scheduler) ScheduleNextOperation(op *Operation, isYielding bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.terminated {
		return s.unwindLocked()
	}
	if op.status == StatusRunning {
		op.status = StatusEnabled
	}
	s.handOffLocked(op, isYielding)
	return s.awaitTurnLocked(op)
}

// NextBool resolves a nondeterministic boolean choice in [0, max) on behalf
// of the currently running operation op.
func (s *Scheduler) NextBool(op *Operation, max int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.terminated {
		return false, s.unwindLocked()
	}
	s.step++
	if s.step > s.hardStepCap {
		s.terminateLocked(&BoundReachedError{Steps: s.step})
		return false, s.unwindLocked()
	}
	v, ok := s.strategy.NextBoolean(op, max)
	if !ok {
		s.terminateLocked(&AssertionFailureError{Message: "exploration strategy exhausted resolving a boolean choice"})
		return false, s.unwindLocked()
	}
	s.recordChoiceLocked(ChoiceBool, v)
	return v, nil
}

// NextInt resolves a nondeterministic integer choice in [0, max) on behalf
// of the currently running operation op.
func (s *Scheduler) NextInt(op *Operation, max int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.terminated {
		return 0, s.unwindLocked()
	}
	s.step++
	if s.step > s.hardStepCap {
		s.terminateLocked(&BoundReachedError{Steps: s.step})
		return 0, s.unwindLocked()
	}
	v, ok := s.strategy.NextInteger(op, max)
	if !ok {
		s.terminateLocked(&AssertionFailureError{Message: "exploration strategy exhausted resolving an integer choice"})
		return 0, s.unwindLocked()
	}
	s.recordChoiceLocked(ChoiceInt, v)
	return v, nil
}

// BlockOn places op into the Blocked* status matching kind, records its
// wait set, and yields the step mutex. waitOn may be empty only for
// WaitResource (an opaque, scheduler-unaware wait released via Unblock).
//
// A dependency that has already completed by the time BlockOn is called is
// resolved immediately rather than added to the wait set: Complete only
// scans the wait sets of operations that are blocked at the moment it runs,
// so a dependency already in StatusCompleted would otherwise never trigger
// unblockDependentsLocked again and op would wait forever.
func (s *Scheduler) BlockOn(op *Operation, kind WaitKind, waitOn ...*Operation) error {
	s.mu.Lock()
	if s.terminated {
		defer s.mu.Unlock()
		return s.unwindLocked()
	}

	switch kind {
	case WaitAll:
		pending := make(map[uint64]*Operation, len(waitOn))
		for _, dep := range waitOn {
			if dep.status != StatusCompleted {
				pending[dep.ID] = dep
			}
		}
		if len(pending) == 0 {
			s.mu.Unlock()
			return s.ScheduleNextOperation(op, false)
		}
		op.waitKind = WaitAll
		op.waitSet = pending
		op.status = StatusBlockedOnWaitAll

	case WaitAny, WaitReceive:
		satisfied := len(waitOn) == 0
		for _, dep := range waitOn {
			if dep.status == StatusCompleted {
				satisfied = true
				break
			}
		}
		if satisfied {
			s.mu.Unlock()
			return s.ScheduleNextOperation(op, false)
		}
		set := make(map[uint64]*Operation, len(waitOn))
		for _, dep := range waitOn {
			set[dep.ID] = dep
		}
		op.waitKind = kind
		op.waitSet = set
		op.status = statusForWait(kind)

	case WaitResource:
		op.waitKind = WaitResource
		op.waitSet = nil
		op.status = StatusBlockedOnResource

	default:
		s.mu.Unlock()
		panic(fmt.Sprintf("scheduler: BlockOn called with invalid wait kind %d", int(kind)))
	}

	s.handOffLocked(op, false)
	err := s.awaitTurnLocked(op)
	s.mu.Unlock()
	return err
}

// Unblock re-enables an operation blocked on an opaque resource (e.g. a
// user-level lock modeled by the test body). It does not itself hand off the
// step mutex: the caller — which must currently hold it — should continue
// running and let a later ScheduleNextOperation/Complete perform the
// hand-off, so the freshly-unblocked operation simply becomes eligible.
func (s *Scheduler) Unblock(op *Operation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if op.status.isBlocked() {
		op.status = StatusEnabled
		op.waitKind = WaitNone
		op.waitSet = nil
	}
}

// Complete marks op as StatusCompleted (absorbing), wakes any operation
// whose wait set is now satisfied, and hands off the step mutex. It must be
// called exactly once, by op's own goroutine, as its final action; the
// caller then returns without calling ScheduleNextOperation again.
func (s *Scheduler) Complete(op *Operation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated {
		return
	}
	op.status = StatusCompleted
	op.waitKind = WaitNone
	op.waitSet = nil
	s.unblockDependentsLocked(op)
	s.handOffLocked(op, false)
}

// Detach marks op completed without treating it as a normal run-to-finish
// operation — used for fire-and-forget work the test body explicitly opts
// out of awaiting. Semantically identical to Complete; kept as a distinct,
// intention-revealing entry point for that case.
func (s *Scheduler) Detach(op *Operation) {
	s.Complete(op)
}

// Fail terminates the iteration immediately with an AssertionFailureError,
// waking every suspended operation so they can unwind.
func (s *Scheduler) Fail(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminateLocked(&AssertionFailureError{Message: msg})
}

// Abort terminates the iteration immediately with err, waking every
// suspended operation so they can unwind. Unlike Fail, err is caller-supplied
// rather than always an AssertionFailureError — used by package control to
// turn a recovered panic into an UnhandledExceptionError.
func (s *Scheduler) Abort(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminateLocked(err)
}

// Operations returns every operation registered so far, in creation order.
func (s *Scheduler) Operations() []*Operation {
	return s.reg.all()
}

// OperationStatus returns op's current status under the step mutex. Unlike
// (*Operation).Status, this is safe to call from a goroutine other than the
// one currently holding the step mutex — e.g. a test polling for a
// suspended state, or a driver reporting progress.
func (s *Scheduler) OperationStatus(op *Operation) OperationStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return op.status
}

func statusForWait(kind WaitKind) OperationStatus {
	switch kind {
	case WaitAll:
		return StatusBlockedOnWaitAll
	case WaitAny:
		return StatusBlockedOnWaitAny
	case WaitReceive:
		return StatusBlockedOnReceive
	case WaitResource:
		return StatusBlockedOnResource
	default:
		panic(fmt.Sprintf("scheduler: BlockOn called with invalid wait kind %d", int(kind)))
	}
}

// handOffLocked computes the enabled set, consults the strategy, and either
// terminates the iteration (no operation enabled) or assigns the step mutex
// to the chosen operation. Must be called with s.mu held.
func (s *Scheduler) handOffLocked(caller *Operation, isYielding bool) {
	if s.terminated {
		return
	}

	enabled := s.reg.enabled()
	if len(enabled) == 0 {
		if s.allCompletedLocked() {
			s.terminateLocked(nil)
		} else {
			s.terminateLocked(&DeadlockError{Blocked: s.blockedNamesLocked()})
		}
		return
	}

	s.step++
	if s.step > s.hardStepCap {
		s.terminateLocked(&BoundReachedError{Steps: s.step})
		return
	}

	next, ok := s.strategy.NextOperation(enabled, caller, isYielding)
	if !ok {
		s.terminateLocked(&AssertionFailureError{Message: "exploration strategy exhausted without resolving the iteration"})
		return
	}

	s.recordChoiceLocked(ChoiceOperation, next.ID)
	next.status = StatusRunning
	s.running = next
	s.cond.Broadcast()
}

// awaitTurnLocked blocks the caller until it is the running operation or the
// iteration has terminated. Must be called with s.mu held.
func (s *Scheduler) awaitTurnLocked(op *Operation) error {
	for s.running != op && !s.terminated {
		s.cond.Wait()
	}
	if s.terminated {
		return s.unwindLocked()
	}
	return nil
}

func (s *Scheduler) unwindLocked() error {
	return ErrExecutionCancelled
}

func (s *Scheduler) terminateLocked(err error) {
	if s.terminated {
		return
	}
	s.terminated = true
	s.terminationErr = err
	s.running = nil
	if err != nil {
		throttledWarn(s.logger, fmt.Sprintf("%T", err), err.Error())
	}
	s.cond.Broadcast()
}

func (s *Scheduler) recordChoiceLocked(kind ChoiceKind, value any) {
	if s.recorder != nil {
		s.recorder.Record(s.step, kind, value)
	}
}

func (s *Scheduler) allCompletedLocked() bool {
	for _, op := range s.reg.all() {
		if op.status != StatusCompleted {
			return false
		}
	}
	return true
}

func (s *Scheduler) blockedNamesLocked() []string {
	var names []string
	for _, op := range s.reg.all() {
		if op.status != StatusCompleted {
			names = append(names, op.String())
		}
	}
	return names
}

// unblockDependentsLocked re-enables any operation whose wait on completed
// is now satisfied. Must be called with s.mu held, after completed's status
// has already been set to StatusCompleted.
func (s *Scheduler) unblockDependentsLocked(completed *Operation) {
	for _, other := range s.reg.all() {
		if !other.status.isBlocked() || len(other.waitSet) == 0 {
			continue
		}
		if _, waiting := other.waitSet[completed.ID]; !waiting {
			continue
		}
		switch other.waitKind {
		case WaitAll:
			delete(other.waitSet, completed.ID)
			if len(other.waitSet) == 0 {
				other.status = StatusEnabled
				other.waitKind = WaitNone
				other.waitSet = nil
			}
		case WaitAny, WaitReceive:
			other.status = StatusEnabled
			other.waitKind = WaitNone
			other.waitSet = nil
		}
	}
}
