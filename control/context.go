package control

import (
	"time"

	"github.com/joeycumines/interleave/scheduler"
)

// Context is the handle a controlled operation's body receives: the drop-in
// target set a binary rewriter would retarget real async calls onto (spawn,
// await, delay, yield, when-all, when-any, wait). There is no package-level
// "current runtime" — Context is threaded explicitly through every spawn
// closure, by design (see SPEC_FULL.md §9 on "global mutable state").
type Context struct {
	ctl   *Controller
	op    *scheduler.Operation
	epoch uint64
}

// Operation returns the scheduler.Operation this Context represents.
func (c *Context) Operation() *scheduler.Operation {
	return c.op
}

// Go spawns work as a new controlled operation and returns its Task only
// once the child has reached StatusEnabled, so the child is always
// observable by the time Go returns. work receives a fresh Context scoped
// to the child operation.
func (c *Context) Go(work func(*Context) Result, opts ...SpawnOption) *Task {
	c.checkEpoch()
	return c.ctl.spawn(work, opts...)
}

// Delay models an abstracted pause with no real-time meaning: the strategy
// under test decides when the returned Task's operation runs relative to
// every other enabled operation. A zero or negative duration is a boundary
// case handled explicitly — it returns an already-fulfilled Task
// synchronously, without registering an operation at all.
func (c *Context) Delay(d time.Duration) *Task {
	c.checkEpoch()
	if d <= 0 {
		return alreadyFulfilledTask()
	}
	return c.ctl.spawn(func(*Context) Result { return nil }, WithName("delay"))
}

// Yield always introduces a new nondeterministic decision point, even when
// only one operation is enabled, exercising interleavings a plain
// continuation wouldn't.
func (c *Context) Yield() {
	c.checkEpoch()
	if err := c.ctl.scheduler.ScheduleNextOperation(c.op, true); err != nil {
		panic(err)
	}
}

// WhenAll returns a Task that settles once every task in tasks has settled.
// Its result is the slice of their results, in argument order. Waiting for
// zero tasks is rejected outright, rather than treated as already complete.
func (c *Context) WhenAll(tasks ...*Task) *Task {
	c.checkEpoch()
	if len(tasks) == 0 {
		panic(&scheduler.AssertionFailureError{Message: "cannot wait for zero tasks"})
	}
	return c.ctl.spawn(func(inner *Context) Result {
		results, err := inner.ctl.waitAll(inner.op, tasks)
		if err != nil {
			panic(err)
		}
		return results
	}, WithName("when_all"))
}

// WhenAny returns a Task that settles as soon as any task in tasks settles,
// with that task's result. Waiting for zero tasks is rejected outright, for
// the same reason as WhenAll.
func (c *Context) WhenAny(tasks ...*Task) *Task {
	c.checkEpoch()
	if len(tasks) == 0 {
		panic(&scheduler.AssertionFailureError{Message: "cannot wait for zero tasks"})
	}
	return c.ctl.spawn(func(inner *Context) Result {
		result, err := inner.ctl.waitAny(inner.op, tasks)
		if err != nil {
			panic(err)
		}
		return result
	}, WithName("when_any"))
}

// Wait blocks the calling operation until t settles, returning its result or
// the cause of an upstream rejection. If t has already settled (or never had
// an operation, as with Delay(0)), its value is returned directly without
// blocking; Wait does not check which operation spawned t.
func (c *Context) Wait(t *Task) (Result, error) {
	c.checkEpoch()
	return c.ctl.wait(c.op, t)
}

// WaitAll blocks until every task in tasks has settled, returning their
// results in order, or the first encountered rejection cause.
func (c *Context) WaitAll(tasks ...*Task) ([]Result, error) {
	c.checkEpoch()
	return c.ctl.waitAll(c.op, tasks)
}

// WaitAny blocks until any task in tasks has settled, returning its result
// or cause.
func (c *Context) WaitAny(tasks ...*Task) (Result, error) {
	c.checkEpoch()
	return c.ctl.waitAny(c.op, tasks)
}

// Assert is this engine's `assert`: a false condition fails the iteration
// immediately via scheduler.Fail, reported as an AssertionFailureError.
func (c *Context) Assert(cond bool, msg string) {
	if !cond {
		c.ctl.scheduler.Fail(msg)
		panic(scheduler.ErrExecutionCancelled)
	}
}

// CancelSignal returns the CancelToken associated with this operation, if
// one was supplied via WithCancelToken when it was spawned, or nil.
func (c *Context) CancelSignal() *CancelToken {
	return c.ctl.cancelTokenFor(c.op)
}

// checkEpoch panics with UncontrolledConcurrencyError if this Context's
// epoch differs from that of the Controller it refers to. Both values come
// from the same Controller when the Context is minted, so every Context
// passes: a Context kept past its iteration still refers to its own,
// terminated Controller and scheduler, and is not detected by this check.
// Assert and CancelSignal do not call it.
func (c *Context) checkEpoch() {
	if c.epoch != c.ctl.epoch {
		panic(&scheduler.UncontrolledConcurrencyError{
			Detail: "context used outside the iteration that created it",
		})
	}
}

func alreadyFulfilledTask() *Task {
	t := newTask(nil)
	t.fulfill(nil)
	return t
}
