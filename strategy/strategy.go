// Package strategy provides pluggable exploration policies: the decision
// procedure a scheduler.Scheduler consults at every scheduling point and
// nondeterministic choice. Each answers a single question — given the
// currently enabled operations, which one runs next? — and is otherwise free
// to keep whatever internal state it needs across an iteration.
package strategy

import "github.com/joeycumines/interleave/scheduler"

// ExplorationStrategy is a type alias onto scheduler.ExplorationStrategy.
// The interface is defined in package scheduler, not here, to avoid an
// import cycle: Scheduler holds a field of this type, while every concrete
// strategy below needs *scheduler.Operation in its own method signatures. A
// type alias keeps call sites reading as strategy.ExplorationStrategy
// without duplicating the interface or introducing a wrapper type.
type ExplorationStrategy = scheduler.ExplorationStrategy

// Operation is a type alias onto scheduler.Operation, so strategy
// implementations and their callers don't need to import package scheduler
// directly just to name the type their own interface methods accept.
type Operation = scheduler.Operation
