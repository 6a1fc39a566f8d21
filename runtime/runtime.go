package runtime

import (
	"errors"
	"fmt"

	"github.com/joeycumines/interleave/control"
	"github.com/joeycumines/interleave/scheduler"
)

// violationReporter is implemented by strategy.WithLiveness's wrapper, but
// deliberately not part of scheduler.ExplorationStrategy itself (see
// DESIGN.md's note on this boundary). RunTest type-asserts for it so a
// liveness violation is reported as the specific
// scheduler.LivenessViolationError instead of the generic
// AssertionFailureError the kernel produces when a strategy returns
// (nil, false).
type violationReporter interface {
	Violation() (monitor string, violated bool)
}

// RunTest drives a controlled-concurrency test campaign: body is run once
// per iteration (up to cfg.Iterations times, or until the configured
// strategy exhausts itself or a violation is found), each time against a
// fresh scheduler.Scheduler and control.Controller.
func RunTest(cfg Config, body func(*control.Context)) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	strat, err := cfg.buildStrategy()
	if err != nil {
		return nil, err
	}

	report := &Report{Seed: cfg.Seed}

	for iteration := 0; iteration < cfg.Iterations; iteration++ {
		if !strat.InitializeIteration(iteration) {
			report.StoppedEarly = true
			break
		}

		trace := &Trace{}
		sched := scheduler.NewScheduler(
			strat,
			scheduler.WithLogger(cfg.Logger),
			scheduler.WithHardStepCap(uint64(cfg.MaxSteps.Hard)),
			scheduler.WithTraceRecorder(trace),
		)
		ctl := control.NewController(sched)

		done := make(chan struct{})
		go func() {
			defer close(done)
			defer func() {
				if r := recover(); r != nil {
					cause := scheduler.WrapPanic(r)
					if !errors.Is(cause, scheduler.ErrExecutionCancelled) {
						sched.Abort(&scheduler.UnhandledExceptionError{Operation: "root", Cause: cause})
					}
				}
			}()
			ctx := ctl.RootContext("root")
			body(ctx)
			ctl.Finish(ctx)
		}()

		iterErr := sched.Wait()
		<-done

		report.IterationsRun++
		steps := sched.Step()

		if iterErr == nil {
			if cfg.MaxSteps.Soft > 0 && int(steps) >= cfg.MaxSteps.Soft {
				cfg.Logger.Warning().
					Int("iteration", iteration).
					Uint64("steps", steps).
					Log("scheduling-step soft bound reached")
			}
			continue
		}

		// Hitting the hard step cap ends the iteration but is not a bug
		// report: the campaign moves on to the next iteration.
		var bound *scheduler.BoundReachedError
		if errors.As(iterErr, &bound) {
			continue
		}

		if vr, ok := strat.(violationReporter); ok {
			if monitor, violated := vr.Violation(); violated {
				iterErr = &scheduler.LivenessViolationError{Monitor: monitor}
			}
		}

		report.Violation = iterErr
		report.Trace = trace
		report.Steps = steps

		path := cfg.ReplayTracePath
		if path == "" {
			path = fmt.Sprintf("interleave-trace-iter%d.json", iteration)
		}
		if writeErr := trace.WriteFile(path); writeErr != nil {
			cfg.Logger.Warning().Str("path", path).Err(writeErr).Log("failed to persist failure trace")
		} else {
			report.TracePath = path
		}

		cfg.Logger.Err().
			Int("iteration", iteration).
			Uint64("steps", steps).
			Err(iterErr).
			Log("iteration failed")

		return report, nil
	}

	report.Passed = report.Violation == nil
	return report, nil
}
