package control

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/joeycumines/interleave/scheduler"
)

// SpawnOption configures a single Context.Go call: a small
// unexported interface plus a func adapter, rather than a struct of optional
// fields every caller has to zero out.
type SpawnOption interface {
	applySpawn(*spawnOptions)
}

type spawnOptionFunc func(*spawnOptions)

func (f spawnOptionFunc) applySpawn(o *spawnOptions) { f(o) }

type spawnOptions struct {
	name   string
	cancel *CancelToken
}

// WithName overrides the operation's display name, used in traces and
// deadlock reports. Defaults to "op".
func WithName(name string) SpawnOption {
	return spawnOptionFunc(func(o *spawnOptions) { o.name = name })
}

// WithCancelToken associates a CancelToken with the spawned operation,
// retrievable from its Context via CancelSignal. Purely advisory: see
// CancelToken's doc comment on the accepted-but-best-effort design.
func WithCancelToken(token *CancelToken) SpawnOption {
	return spawnOptionFunc(func(o *spawnOptions) { o.cancel = token })
}

func resolveSpawnOptions(opts []SpawnOption) *spawnOptions {
	o := &spawnOptions{name: "op"}
	for _, opt := range opts {
		opt.applySpawn(o)
	}
	return o
}

// Controller adapts the async primitives a controlled test body calls
// (spawn, await, delay, yield, when-all, when-any, wait) onto a single
// scheduler.Scheduler driving one iteration. One Controller is constructed
// per iteration, stamping that iteration's epoch on every Context it mints
// (see Context.checkEpoch for what that check does and does not catch).
type Controller struct {
	scheduler *scheduler.Scheduler
	epoch     uint64

	mu           sync.Mutex
	cancelTokens map[uint64]*CancelToken
}

var epochCounter atomic.Uint64

// NewController constructs a Controller driving sched for one iteration.
func NewController(sched *scheduler.Scheduler) *Controller {
	return &Controller{
		scheduler:    sched,
		epoch:        epochCounter.Add(1),
		cancelTokens: make(map[uint64]*CancelToken),
	}
}

// Scheduler returns the scheduler.Scheduler this Controller drives.
func (c *Controller) Scheduler() *scheduler.Scheduler {
	return c.scheduler
}

// RootContext returns a Context for the iteration's first operation, already
// registered and started. The runtime driver calls this once per iteration
// before invoking the test body.
func (c *Controller) RootContext(name string) *Context {
	op := c.scheduler.RegisterOperation(name)
	ctx := &Context{ctl: c, op: op, epoch: c.epoch}
	if err := c.scheduler.StartOperation(op); err != nil {
		panic(err)
	}
	return ctx
}

// Finish completes the root operation represented by ctx. The runtime driver
// calls this once the test body returns normally.
func (c *Controller) Finish(ctx *Context) {
	c.scheduler.Complete(ctx.op)
}

func (c *Controller) cancelTokenFor(op *scheduler.Operation) *CancelToken {
	if op == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelTokens[op.ID]
}

// spawn implements the spawn protocol shared by Go/Delay/WhenAll/WhenAny:
//
//  1. register a new operation;
//  2. create its Task;
//  3. launch a goroutine that starts the operation, runs work under panic
//     recovery, and settles the Task;
//  4. block the caller until the child has reached StatusEnabled;
//  5. return the Task.
//
// Step 4 is what makes Go's return value observable to WhenAll/WhenAny
// immediately: the child is guaranteed at least registered and enabled
// before the parent's next scheduling decision, so it always appears in the
// enabled set the strategy chooses from.
func (c *Controller) spawn(work func(*Context) Result, opts ...SpawnOption) *Task {
	o := resolveSpawnOptions(opts)
	op := c.scheduler.RegisterOperation(o.name)
	task := newTask(op)

	if o.cancel != nil {
		c.mu.Lock()
		c.cancelTokens[op.ID] = o.cancel
		c.mu.Unlock()
	}

	go c.runSpawned(op, task, work)

	c.scheduler.WaitOperationStart(op)
	return task
}

func (c *Controller) runSpawned(op *scheduler.Operation, task *Task, work func(*Context) Result) {
	defer func() {
		if r := recover(); r != nil {
			cause := scheduler.WrapPanic(r)
			task.reject(cause)
			if errors.Is(cause, scheduler.ErrExecutionCancelled) {
				return
			}
			c.scheduler.Abort(&scheduler.UnhandledExceptionError{Operation: op.Name, Cause: cause})
		}
	}()

	if err := c.scheduler.StartOperation(op); err != nil {
		task.reject(err)
		return
	}

	ctx := &Context{ctl: c, op: op, epoch: c.epoch}
	result := work(ctx)
	task.fulfill(result)
	c.scheduler.Complete(op)
}

// wait blocks caller until t settles. If t has already settled, the settled
// value is read directly without a further scheduler round-trip; otherwise
// caller blocks via BlockOn(WaitAll) on t's operation. Which operation
// spawned t plays no part in this choice.
func (c *Controller) wait(caller *scheduler.Operation, t *Task) (Result, error) {
	if t.Operation() == nil {
		// Already-fulfilled fast-path task (e.g. Delay(0)): nothing to wait
		// for, no operation was ever registered.
		return t.Result(), t.Err()
	}
	if !t.settled() {
		if err := c.scheduler.BlockOn(caller, scheduler.WaitAll, t.Operation()); err != nil {
			return nil, err
		}
	}
	return t.Result(), t.Err()
}

// waitAll blocks caller until every task in tasks has settled, returning
// results in argument order, or the first rejection's cause.
func (c *Controller) waitAll(caller *scheduler.Operation, tasks []*Task) ([]Result, error) {
	var deps []*scheduler.Operation
	for _, t := range tasks {
		if t.Operation() != nil && !t.settled() {
			deps = append(deps, t.Operation())
		}
	}
	if len(deps) > 0 {
		if err := c.scheduler.BlockOn(caller, scheduler.WaitAll, deps...); err != nil {
			return nil, err
		}
	}

	results := make([]Result, len(tasks))
	for i, t := range tasks {
		if err := t.Err(); err != nil {
			return nil, err
		}
		results[i] = t.Result()
	}
	return results, nil
}

// waitAny blocks caller until any task in tasks has settled, returning that
// task's result or cause. Tasks are checked in argument order once at least
// one has settled, so the winner is deterministic given a deterministic
// schedule even when multiple tasks settle in the same step.
func (c *Controller) waitAny(caller *scheduler.Operation, tasks []*Task) (Result, error) {
	var deps []*scheduler.Operation
	alreadySettled := false
	for _, t := range tasks {
		if t.settled() {
			alreadySettled = true
		} else if t.Operation() != nil {
			deps = append(deps, t.Operation())
		}
	}
	if !alreadySettled && len(deps) > 0 {
		if err := c.scheduler.BlockOn(caller, scheduler.WaitAny, deps...); err != nil {
			return nil, err
		}
	}

	for _, t := range tasks {
		if t.settled() {
			return t.Result(), t.Err()
		}
	}
	return nil, nil
}
