// Package scheduler implements the controlled concurrency testing kernel:
// operation registration, the enable/wait state machine, and the single-step
// mutex that guarantees at most one operation runs at a time.
//
// A Scheduler owns every Operation registered during one iteration. Exactly
// one operation holds the step mutex at any instant; all others are
// suspended on the scheduler's condition variable. Every call that consults
// the active ExplorationStrategy — choosing the next operation, or a
// nondeterministic boolean/integer — increments the step counter and is a
// replay anchor.
package scheduler
