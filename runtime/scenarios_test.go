package runtime

import (
	"path/filepath"
	"testing"

	"github.com/joeycumines/interleave/control"
	"github.com/joeycumines/interleave/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenario_DataRaceOnSharedCell is scenario 1: two unsynchronized writers
// race on a shared cell; across enough random iterations the engine must
// land on at least one interleaving where the "wrong" writer goes last.
func TestScenario_DataRaceOnSharedCell(t *testing.T) {
	cell := 0
	body := func(root *control.Context) {
		a := root.Go(func(c *control.Context) control.Result {
			cell = 3
			return nil
		}, control.WithName("writer-3"))
		b := root.Go(func(c *control.Context) control.Result {
			cell = 5
			return nil
		}, control.WithName("writer-5"))
		_, _ = root.WaitAll(a, b)
		root.Assert(cell == 5, "cell must end up 5")
	}

	cfg := NewConfig(
		WithIterations(200),
		WithRandomStrategy(),
		WithSeed(7),
		WithReplayTracePath(filepath.Join(t.TempDir(), "trace.json")),
	)
	report, err := RunTest(cfg, body)
	require.NoError(t, err)
	require.NotNil(t, report.Violation)
	var assertion *scheduler.AssertionFailureError
	assert.ErrorAs(t, report.Violation, &assertion)
	assert.LessOrEqual(t, report.IterationsRun, 200)
}

// TestScenario_ParallelThenWaitOrdering is scenario 2: the parent writes
// after spawning a racing child and only then waits on it, so there is a
// legal interleaving where the child clobbers the parent's write.
func TestScenario_ParallelThenWaitOrdering(t *testing.T) {
	cell := 0
	body := func(root *control.Context) {
		child := root.Go(func(c *control.Context) control.Result {
			cell = 3
			return nil
		}, control.WithName("child"))
		cell = 5
		_, _ = root.Wait(child)
		root.Assert(cell == 5, "parent's write must win")
	}

	cfg := NewConfig(
		WithIterations(50),
		WithDFSStrategy(100),
		WithSeed(1),
		WithReplayTracePath(filepath.Join(t.TempDir(), "trace.json")),
	)
	report, err := RunTest(cfg, body)
	require.NoError(t, err)
	require.NotNil(t, report.Violation)
	var assertion *scheduler.AssertionFailureError
	assert.ErrorAs(t, report.Violation, &assertion)
}

// TestScenario_InterleavingEnumeration is scenario 3: two tasks each log a
// start mark, yield once, then log an end mark; across enough iterations the
// engine must surface all 6 legal interleavings of {>foo <foo >bar <bar}.
//
// The bounded-DFS strategy is used here rather than PCT: PCT plants its
// change points at random absolute step numbers across a 1000-step window,
// so landing one precisely on this body's handful of real decision points is
// too improbable to rely on within a practical iteration count. DFS instead
// backtracks through every alternative at every decision node, which for a
// tree this small guarantees exact, exhaustive coverage of all 6 leaves
// (PCT's own change-point mechanics are covered directly by
// strategy/pct_test.go).
func TestScenario_InterleavingEnumeration(t *testing.T) {
	seen := make(map[string]bool)

	body := func(root *control.Context) {
		var order []string
		foo := root.Go(func(c *control.Context) control.Result {
			order = append(order, ">foo")
			c.Yield()
			order = append(order, "<foo")
			return nil
		}, control.WithName("foo"))
		bar := root.Go(func(c *control.Context) control.Result {
			order = append(order, ">bar")
			c.Yield()
			order = append(order, "<bar")
			return nil
		}, control.WithName("bar"))
		_, _ = root.WaitAll(foo, bar)

		key := order[0]
		for _, e := range order[1:] {
			key += "," + e
		}
		seen[key] = true
	}

	cfg := NewConfig(
		WithIterations(32),
		WithDFSStrategy(20),
		WithSeed(1),
	)
	report, err := RunTest(cfg, body)
	require.NoError(t, err)
	require.Nil(t, report.Violation)
	assert.True(t, report.StoppedEarly, "DFS should exhaust this tiny decision tree well before 32 iterations")

	require.Len(t, seen, 6, "expected all 6 legal interleavings, saw %v", seen)
	for key := range seen {
		assert.True(t, beforeInOrder(key, ">foo", "<foo"))
		assert.True(t, beforeInOrder(key, ">bar", "<bar"))
	}
}

func beforeInOrder(key, first, second string) bool {
	fi, si := -1, -1
	pos := 0
	for _, part := range splitCSV(key) {
		if part == first && fi == -1 {
			fi = pos
		}
		if part == second && si == -1 {
			si = pos
		}
		pos++
	}
	return fi >= 0 && si >= 0 && fi < si
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

// TestScenario_YieldCorrectnessUnderFairScheduling is scenario 4: a task
// that yields repeatedly must still be scheduled periodically alongside a
// peer the base strategy would otherwise always prefer, once fairness is
// enabled.
func TestScenario_YieldCorrectnessUnderFairScheduling(t *testing.T) {
	runOnce := func(fair bool) []string {
		var order []string
		body := func(root *control.Context) {
			busy := root.Go(func(c *control.Context) control.Result {
				for i := 0; i < 20; i++ {
					order = append(order, "busy")
					c.Yield()
				}
				return nil
			}, control.WithName("busy"))
			patient := root.Go(func(c *control.Context) control.Result {
				for i := 0; i < 3; i++ {
					order = append(order, "patient")
					c.Yield()
				}
				return nil
			}, control.WithName("patient"))
			_, _ = root.WaitAll(busy, patient)
		}

		opts := []Option{
			WithIterations(1),
			WithPCTStrategy(0), // zero change points: the first-seen operation
			// (busy, registered first) keeps top priority for the whole run.
			WithSeed(1),
		}
		if fair {
			opts = append(opts, WithFairness(2))
		}
		report, err := RunTest(NewConfig(opts...), body)
		require.NoError(t, err)
		require.Nil(t, report.Violation)
		return order
	}

	unfair := runOnce(false)
	fair := runOnce(true)

	// Without fairness, PCT(k=0) always prefers "busy": every "patient" entry
	// trails every "busy" entry.
	firstPatientUnfair := indexOf(unfair, "patient")
	lastBusyUnfair := lastIndexOf(unfair, "busy")
	assert.Greater(t, firstPatientUnfair, lastBusyUnfair,
		"without fairness, patient should only run after busy drains: %v", unfair)

	// With fairness, patient must be forced in well before busy finishes.
	firstPatientFair := indexOf(fair, "patient")
	lastBusyFair := lastIndexOf(fair, "busy")
	assert.Less(t, firstPatientFair, lastBusyFair,
		"with fairness, patient should interleave before busy drains: %v", fair)
}

func indexOf(s []string, v string) int {
	for i, e := range s {
		if e == v {
			return i
		}
	}
	return -1
}

func lastIndexOf(s []string, v string) int {
	idx := -1
	for i, e := range s {
		if e == v {
			idx = i
		}
	}
	return idx
}

// TestScenario_DeadlockDetection is scenario 5: two tasks each await the
// other's completion, a circular wait the scheduler must report within a
// single iteration.
func TestScenario_DeadlockDetection(t *testing.T) {
	var task1, task2 *control.Task
	body := func(root *control.Context) {
		task1 = root.Go(func(c *control.Context) control.Result {
			_, _ = c.Wait(task2)
			return nil
		}, control.WithName("child1"))
		task2 = root.Go(func(c *control.Context) control.Result {
			_, _ = c.Wait(task1)
			return nil
		}, control.WithName("child2"))
		_, _ = root.Wait(task1)
	}

	cfg := NewConfig(WithIterations(1), WithRandomStrategy(), WithSeed(1))
	report, err := RunTest(cfg, body)
	require.NoError(t, err)
	require.NotNil(t, report.Violation)
	var deadlock *scheduler.DeadlockError
	assert.ErrorAs(t, report.Violation, &deadlock)
	assert.Equal(t, 1, report.IterationsRun)
}

// TestScenario_DeterminismAndReplay is scenario 6: running the same config
// twice against the same racy body must produce identical outcomes and
// identical captured traces.
func TestScenario_DeterminismAndReplay(t *testing.T) {
	body := func(root *control.Context) {
		cell := new(int)
		a := root.Go(func(c *control.Context) control.Result {
			*cell = 3
			return nil
		}, control.WithName("writer-3"))
		b := root.Go(func(c *control.Context) control.Result {
			*cell = 5
			return nil
		}, control.WithName("writer-5"))
		_, _ = root.WaitAll(a, b)
		root.Assert(*cell == 5, "cell must end up 5")
	}

	run := func() *Report {
		cfg := NewConfig(
			WithIterations(50),
			WithRandomStrategy(),
			WithSeed(42),
			WithReplayTracePath(filepath.Join(t.TempDir(), "trace.json")),
		)
		report, err := RunTest(cfg, body)
		require.NoError(t, err)
		return report
	}

	first := run()
	second := run()

	require.NotNil(t, first.Violation)
	require.NotNil(t, second.Violation)
	assert.Equal(t, first.Violation.Error(), second.Violation.Error())
	assert.Equal(t, first.IterationsRun, second.IterationsRun)
	require.NotNil(t, first.Trace)
	require.NotNil(t, second.Trace)
	assert.Equal(t, first.Trace.Entries, second.Trace.Entries)
}
