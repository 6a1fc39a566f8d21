package strategy

import "sync"

// dfsNode records one decision point: how many alternatives were available
// and which one this run chose. Every lower-indexed alternative has already
// been fully explored by a prior iteration.
type dfsNode struct {
	numChoices int
	chosen     int
}

// boundedDFSStrategy deterministically enumerates interleavings via
// depth-bounded systematic backtracking: each iteration replays the prior
// iteration's decision prefix verbatim, then diverges at the first decision
// point (from the end) that still has an untried alternative, exploring a
// fresh suffix from there. This is the classic systematic-testing DFS
// schedule explorer, bounded so it terminates on programs whose decision
// tree is unbounded or too large to fully enumerate.
type boundedDFSStrategy struct {
	mu       sync.Mutex
	maxDepth int

	path      []dfsNode
	cursor    int
	exhausted bool
}

// NewBoundedDFS constructs a deterministic, backtracking exploration
// strategy. maxDepth caps how many decision points are tracked for
// backtracking purposes per iteration; decisions beyond maxDepth are made
// deterministically (lowest alternative) and not replayed, since
// backtracking an unbounded tree would never terminate.
func NewBoundedDFS(maxDepth int) ExplorationStrategy {
	if maxDepth <= 0 {
		maxDepth = 1000
	}
	return &boundedDFSStrategy{maxDepth: maxDepth}
}

func (s *boundedDFSStrategy) InitializeIteration(iteration int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exhausted {
		return false
	}
	if iteration > 0 {
		if !s.backtrack() {
			s.exhausted = true
			return false
		}
	}
	s.cursor = 0
	return true
}

// backtrack advances the decision path to the next unexplored branch,
// dropping exhausted tail nodes first (classic DFS backtracking). Returns
// false once every branch of the tree rooted at depth 0 has been explored.
func (s *boundedDFSStrategy) backtrack() bool {
	for len(s.path) > 0 {
		last := len(s.path) - 1
		node := s.path[last]
		if node.chosen+1 < node.numChoices {
			node.chosen++
			s.path[last] = node
			s.path = s.path[:last+1]
			return true
		}
		s.path = s.path[:last]
	}
	return false
}

// decide resolves the decision at the current cursor position against
// numChoices alternatives, replaying a prior choice if one is recorded at
// this depth, or recording a fresh lowest-alternative choice otherwise. The
// returned index is always in [0, numChoices).
func (s *boundedDFSStrategy) decide(numChoices int) int {
	if numChoices <= 0 {
		return 0
	}
	var idx int
	if s.cursor < len(s.path) {
		idx = s.path[s.cursor].chosen % numChoices
	} else if s.cursor < s.maxDepth {
		s.path = append(s.path, dfsNode{numChoices: numChoices, chosen: 0})
		idx = 0
	} else {
		idx = 0
	}
	s.cursor++
	return idx
}

func (s *boundedDFSStrategy) NextOperation(enabled []*Operation, current *Operation, isYielding bool) (*Operation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(enabled) == 0 {
		return nil, false
	}
	return enabled[s.decide(len(enabled))], true
}

func (s *boundedDFSStrategy) NextBoolean(current *Operation, max int) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if max <= 0 {
		return false, false
	}
	return s.decide(max) == 0, true
}

func (s *boundedDFSStrategy) NextInteger(current *Operation, max int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if max <= 0 {
		return 0, false
	}
	return s.decide(max), true
}

func (s *boundedDFSStrategy) ScheduledSteps() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

func (s *boundedDFSStrategy) MaxStepsReached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exhausted
}

func (s *boundedDFSStrategy) IsFair() bool { return false }

func (s *boundedDFSStrategy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.path = nil
	s.cursor = 0
	s.exhausted = false
}
