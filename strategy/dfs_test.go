package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runDFSIteration replays one full iteration of a two-choice decision,
// returning the sequence of booleans chosen.
func runDFSIteration(t *testing.T, s ExplorationStrategy, iteration int) ([]bool, bool) {
	t.Helper()
	if !s.InitializeIteration(iteration) {
		return nil, false
	}
	var choices []bool
	for i := 0; i < 3; i++ {
		v, ok := s.NextBoolean(nil, 2)
		require.True(t, ok)
		choices = append(choices, v)
	}
	return choices, true
}

func TestBoundedDFS_EnumeratesDistinctSequencesThenExhausts(t *testing.T) {
	s := NewBoundedDFS(3)

	seen := make(map[string]bool)
	iteration := 0
	for {
		choices, ok := runDFSIteration(t, s, iteration)
		if !ok {
			break
		}
		key := boolsKey(choices)
		assert.False(t, seen[key], "sequence %v repeated", choices)
		seen[key] = true
		iteration++
		if iteration > 16 {
			t.Fatal("bounded DFS over 3 binary choices did not terminate")
		}
	}
	assert.Equal(t, 8, len(seen)) // 2^3 distinct sequences of 3 binary choices
}

func boolsKey(bs []bool) string {
	out := make([]byte, len(bs))
	for i, b := range bs {
		if b {
			out[i] = '1'
		} else {
			out[i] = '0'
		}
	}
	return string(out)
}

func TestBoundedDFS_FailsOnEmptyEnabledSet(t *testing.T) {
	s := NewBoundedDFS(3)
	_, ok := s.NextOperation(nil, nil, false)
	assert.False(t, ok)
}

func TestBoundedDFS_ResetClearsExhaustion(t *testing.T) {
	s := NewBoundedDFS(1)
	for iteration := 0; ; iteration++ {
		if !s.InitializeIteration(iteration) {
			break
		}
		s.NextBoolean(nil, 2)
		if iteration > 10 {
			t.Fatal("did not exhaust")
		}
	}
	assert.True(t, s.MaxStepsReached())
	s.Reset()
	assert.False(t, s.MaxStepsReached())
}
