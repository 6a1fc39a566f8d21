package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMonitor struct {
	name string
	hot  bool
}

func (m *fakeMonitor) Name() string      { return m.name }
func (m *fakeMonitor) OnEvent(event any) {}
func (m *fakeMonitor) IsHot() bool       { return m.hot }

func TestLivenessWrapper_DeclaresViolationAfterWindowStaysHot(t *testing.T) {
	ops := newOps("a")
	monitor := &fakeMonitor{name: "pending-response", hot: true}
	s := WithLiveness(NewRandom(1), []LivenessMonitor{monitor}, 3).(*livenessWrapper)
	require.True(t, s.InitializeIteration(0))

	var current *Operation
	var violated bool
	for i := 0; i < 5; i++ {
		op, ok := s.NextOperation(ops, current, false)
		if !ok {
			violated = true
			break
		}
		current = op
	}

	require.True(t, violated)
	name, reported := s.Violation()
	assert.True(t, reported)
	assert.Equal(t, "pending-response", name)
}

func TestLivenessWrapper_NeverViolatesWhileMonitorGoesCold(t *testing.T) {
	ops := newOps("a")
	monitor := &fakeMonitor{name: "pending-response", hot: false}
	s := WithLiveness(NewRandom(1), []LivenessMonitor{monitor}, 3).(*livenessWrapper)
	require.True(t, s.InitializeIteration(0))

	var current *Operation
	for i := 0; i < 10; i++ {
		op, ok := s.NextOperation(ops, current, false)
		require.True(t, ok)
		current = op
	}
	_, violated := s.Violation()
	assert.False(t, violated)
}

func TestLivenessWrapper_ReinitializingIterationClearsViolation(t *testing.T) {
	ops := newOps("a")
	monitor := &fakeMonitor{name: "m", hot: true}
	s := WithLiveness(NewRandom(1), []LivenessMonitor{monitor}, 2).(*livenessWrapper)
	require.True(t, s.InitializeIteration(0))
	var current *Operation
	for i := 0; i < 4; i++ {
		op, ok := s.NextOperation(ops, current, false)
		if !ok {
			break
		}
		current = op
	}
	_, violated := s.Violation()
	require.True(t, violated)

	monitor.hot = false
	require.True(t, s.InitializeIteration(1))
	_, violated = s.Violation()
	assert.False(t, violated)
}
