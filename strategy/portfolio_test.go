package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortfolio_RoundRobinsAcrossIterations(t *testing.T) {
	a, b := NewBoundedDFS(4), NewBoundedDFS(4)
	p := NewPortfolio(a, b).(*portfolioStrategy)

	require.True(t, p.InitializeIteration(0))
	assert.Same(t, a, p.current)

	require.True(t, p.InitializeIteration(1))
	assert.Same(t, b, p.current)

	require.True(t, p.InitializeIteration(2))
	assert.Same(t, a, p.current)
}

func TestPortfolio_PanicsOnNoStrategies(t *testing.T) {
	assert.Panics(t, func() { NewPortfolio() })
}

func TestPortfolio_DelegatesToActiveStrategy(t *testing.T) {
	ops := newOps("a", "b")
	p := NewPortfolio(NewRandom(1), NewRandom(2))
	require.True(t, p.InitializeIteration(0))
	op, ok := p.NextOperation(ops, nil, false)
	require.True(t, ok)
	assert.Contains(t, []uint64{ops[0].ID, ops[1].ID}, op.ID)
}
