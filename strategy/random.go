package strategy

import (
	"math/rand/v2"
	"sync"
)

// randomStrategy picks uniformly among the enabled set at every step, and
// resolves nondeterministic boolean/integer choices the same way. No PRNG
// library appears anywhere in the retrieved corpus, so this is the one
// place this package reaches for the standard library on purpose:
// math/rand/v2's rand.New(rand.NewPCG(...)) is the idiomatic seedable PRNG a
// library in this corpus would use if it needed one.
type randomStrategy struct {
	mu    sync.Mutex
	rng   *rand.Rand
	seed  uint64
	steps int
}

// NewRandom constructs an ExplorationStrategy that makes every choice
// uniformly at random, seeded deterministically so an iteration can be
// replayed by reusing the same seed.
func NewRandom(seed uint64) ExplorationStrategy {
	s := &randomStrategy{seed: seed}
	s.reseed()
	return s
}

func (s *randomStrategy) reseed() {
	s.rng = rand.New(rand.NewPCG(s.seed, s.seed^0x9e3779b97f4a7c15))
}

func (s *randomStrategy) InitializeIteration(iteration int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = 0
	// Re-derive the per-iteration seed from the base seed and iteration
	// index, so each iteration explores a distinct but reproducible
	// sequence of choices under the same top-level seed.
	s.rng = rand.New(rand.NewPCG(s.seed, s.seed^uint64(iteration)+1))
	return true
}

func (s *randomStrategy) NextOperation(enabled []*Operation, current *Operation, isYielding bool) (*Operation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(enabled) == 0 {
		return nil, false
	}
	s.steps++
	return enabled[s.rng.IntN(len(enabled))], true
}

func (s *randomStrategy) NextBoolean(current *Operation, max int) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if max <= 0 {
		return false, false
	}
	s.steps++
	return s.rng.IntN(max) == 0, true
}

func (s *randomStrategy) NextInteger(current *Operation, max int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if max <= 0 {
		return 0, false
	}
	s.steps++
	return s.rng.IntN(max), true
}

func (s *randomStrategy) ScheduledSteps() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.steps
}

func (s *randomStrategy) MaxStepsReached() bool { return false }

func (s *randomStrategy) IsFair() bool { return false }

func (s *randomStrategy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = 0
	s.reseed()
}
