package strategy

import (
	"math/rand/v2"
	"sort"
	"sync"
)

// pctStrategy implements Probabilistic Concurrency Testing: every enabled
// operation is assigned a distinct priority at first sight, and k
// priority-change points are planted at randomized step positions within the
// iteration. Between change points the highest-priority enabled operation
// always runs; at a change point, the operation that just ran drops to the
// lowest priority, giving later steps a chance to interleave ahead of it —
// the mechanism PCT uses to bias coverage toward bugs that need only a
// handful of ill-timed context switches.
type pctStrategy struct {
	mu  sync.Mutex
	rng *rand.Rand
	seed uint64
	k    int

	priority    map[uint64]int // operation ID -> priority (lower runs first)
	nextPrio    int
	changePoints map[int]struct{}
	step        int
}

// NewPCT constructs a k-priority-change-point PCT strategy seeded
// deterministically.
func NewPCT(seed uint64, k int) ExplorationStrategy {
	if k < 0 {
		k = 0
	}
	s := &pctStrategy{seed: seed, k: k}
	s.resetState(0)
	return s
}

func (s *pctStrategy) resetState(iteration int) {
	s.rng = rand.New(rand.NewPCG(s.seed, s.seed^uint64(iteration)+7))
	s.priority = make(map[uint64]int)
	s.nextPrio = 0
	s.step = 0
	// Change points are planted up front over a generous window; steps
	// beyond the window simply see no further change points, which is fine
	// since a finished iteration stops consulting the strategy anyway.
	const window = 1000
	s.changePoints = make(map[int]struct{}, s.k)
	for len(s.changePoints) < s.k {
		s.changePoints[1+s.rng.IntN(window)] = struct{}{}
	}
}

func (s *pctStrategy) InitializeIteration(iteration int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetState(iteration)
	return true
}

// priorityOf assigns and returns op's priority, assigning a fresh (lowest)
// priority the first time an operation is seen.
func (s *pctStrategy) priorityOf(op *Operation) int {
	p, ok := s.priority[op.ID]
	if !ok {
		p = s.nextPrio
		s.priority[op.ID] = p
		s.nextPrio++
	}
	return p
}

func (s *pctStrategy) NextOperation(enabled []*Operation, current *Operation, isYielding bool) (*Operation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(enabled) == 0 {
		return nil, false
	}
	s.step++

	if current != nil {
		if _, change := s.changePoints[s.step]; change {
			// Demote the operation that just ran to the back of the queue.
			s.priority[current.ID] = s.nextPrio
			s.nextPrio++
		}
	}

	chosen := enabled[0]
	chosenPrio := s.priorityOf(chosen)
	for _, op := range enabled[1:] {
		p := s.priorityOf(op)
		if p < chosenPrio {
			chosen = op
			chosenPrio = p
		}
	}
	return chosen, true
}

func (s *pctStrategy) NextBoolean(current *Operation, max int) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if max <= 0 {
		return false, false
	}
	return s.rng.IntN(max) == 0, true
}

func (s *pctStrategy) NextInteger(current *Operation, max int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if max <= 0 {
		return 0, false
	}
	return s.rng.IntN(max), true
}

func (s *pctStrategy) ScheduledSteps() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

func (s *pctStrategy) MaxStepsReached() bool { return false }

func (s *pctStrategy) IsFair() bool { return false }

func (s *pctStrategy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetState(0)
}

// sortedPriorities is used only by tests wanting a deterministic dump of the
// current priority assignment.
func (s *pctStrategy) sortedPriorities() []uint64 {
	ids := make([]uint64, 0, len(s.priority))
	for id := range s.priority {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return s.priority[ids[i]] < s.priority[ids[j]] })
	return ids
}
