package strategy

import "sync"

// fairWrapper guarantees every continuously-enabled operation is eventually
// scheduled, by tracking how many consecutive steps each enabled operation
// has been passed over and forcing it to run once that count crosses
// threshold — overriding whatever the wrapped strategy would otherwise have
// picked.
type fairWrapper struct {
	mu        sync.Mutex
	inner     ExplorationStrategy
	threshold int
	skipped   map[uint64]int
}

// WithFairness wraps inner so that no continuously-enabled operation is
// starved: once an operation has been enabled-but-unscheduled for more than
// threshold consecutive steps, it is forced to run next regardless of what
// inner would have chosen.
func WithFairness(inner ExplorationStrategy, threshold int) ExplorationStrategy {
	if threshold <= 0 {
		threshold = 1
	}
	return &fairWrapper{inner: inner, threshold: threshold, skipped: make(map[uint64]int)}
}

func (w *fairWrapper) InitializeIteration(iteration int) bool {
	w.mu.Lock()
	w.skipped = make(map[uint64]int)
	w.mu.Unlock()
	return w.inner.InitializeIteration(iteration)
}

func (w *fairWrapper) NextOperation(enabled []*Operation, current *Operation, isYielding bool) (*Operation, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var forced *Operation
	for _, op := range enabled {
		if w.skipped[op.ID] > w.threshold {
			forced = op
			break
		}
	}

	chosen, ok := forced, true
	if chosen == nil {
		chosen, ok = w.inner.NextOperation(enabled, current, isYielding)
	}
	if !ok {
		return nil, false
	}

	fresh := make(map[uint64]int, len(enabled))
	for _, op := range enabled {
		if op == chosen {
			fresh[op.ID] = 0
		} else {
			fresh[op.ID] = w.skipped[op.ID] + 1
		}
	}
	w.skipped = fresh
	return chosen, true
}

func (w *fairWrapper) NextBoolean(current *Operation, max int) (bool, bool) {
	return w.inner.NextBoolean(current, max)
}

func (w *fairWrapper) NextInteger(current *Operation, max int) (int, bool) {
	return w.inner.NextInteger(current, max)
}

func (w *fairWrapper) ScheduledSteps() int { return w.inner.ScheduledSteps() }

func (w *fairWrapper) MaxStepsReached() bool { return w.inner.MaxStepsReached() }

func (w *fairWrapper) IsFair() bool { return true }

func (w *fairWrapper) Reset() {
	w.mu.Lock()
	w.skipped = make(map[uint64]int)
	w.mu.Unlock()
	w.inner.Reset()
}
