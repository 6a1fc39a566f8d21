package scheduler

// ExplorationStrategy is the pure decision policy consulted by a Scheduler
// at every nondeterministic choice point: which enabled operation runs next,
// and the outcome of a boolean/integer choice.
//
// Defined here rather than in package strategy because Scheduler must hold
// a field of this type and Go has no forward-declared interfaces: putting
// it in strategy would create an import cycle (strategy's implementations
// need *scheduler.Operation, and scheduler would need
// strategy.ExplorationStrategy). Package strategy re-exports this type as
// strategy.ExplorationStrategy via a type alias, so call sites outside this
// module can use either name.
type ExplorationStrategy interface {
	// InitializeIteration resets per-iteration strategy state (e.g. a fresh
	// priority ordering for PCT) and reports whether the strategy has more
	// iterations worth exploring.
	InitializeIteration(iteration int) bool

	// NextOperation chooses which of the enabled operations runs next.
	// enabled is already in ascending-ID order. ok is false when the
	// strategy will not choose (every built-in strategy on an empty enabled
	// set; the liveness wrapper once it has declared a violation); callers
	// must not call this after ok is false without first calling
	// InitializeIteration again. Exhaustion of a search (e.g. a bounded DFS
	// tree fully explored) is reported by InitializeIteration instead.
	NextOperation(enabled []*Operation, current *Operation, isYielding bool) (*Operation, bool)

	// NextBoolean resolves a nondeterministic boolean choice in [0, max).
	NextBoolean(current *Operation, max int) (bool, bool)

	// NextInteger resolves a nondeterministic integer choice in [0, max).
	NextInteger(current *Operation, max int) (int, bool)

	// ScheduledSteps reports the number of choices made so far this
	// iteration.
	ScheduledSteps() int

	// MaxStepsReached reports whether the strategy's own internal step
	// bound (independent of Scheduler's hard cap) has been reached.
	MaxStepsReached() bool

	// IsFair reports whether the strategy guarantees eventual scheduling of
	// every continuously-enabled operation. Scheduler does not call it;
	// enforcement lives in the strategy itself (see strategy.WithFairness).
	IsFair() bool

	// Reset clears all strategy state, as if newly constructed.
	Reset()
}
