package scheduler

// defaultHardStepCap bounds a single iteration's scheduling steps even when
// the caller never configures one, so a livelocked test body cannot spin the
// scheduler forever. runtime.Config exposes a friendlier knob on top of this.
const defaultHardStepCap = 1_000_000

type schedulerOptions struct {
	logger      *Logger
	hardStepCap uint64
	recorder    TraceRecorder
}

// SchedulerOption configures a Scheduler at construction, following the
// same functional-options pattern used throughout this module.
type SchedulerOption interface {
	applyScheduler(*schedulerOptions)
}

type schedulerOptionFunc func(*schedulerOptions)

func (f schedulerOptionFunc) applyScheduler(o *schedulerOptions) { f(o) }

// WithLogger overrides the package-default structured logger for one
// Scheduler instance.
func WithLogger(l *Logger) SchedulerOption {
	return schedulerOptionFunc(func(o *schedulerOptions) { o.logger = l })
}

// WithHardStepCap overrides the hard scheduling-step cap. A value of 0
// leaves the default in place.
func WithHardStepCap(n uint64) SchedulerOption {
	return schedulerOptionFunc(func(o *schedulerOptions) {
		if n > 0 {
			o.hardStepCap = n
		}
	})
}

// WithTraceRecorder attaches a recorder notified of every nondeterministic
// choice point, in order, for trace persistence and replay.
func WithTraceRecorder(r TraceRecorder) SchedulerOption {
	return schedulerOptionFunc(func(o *schedulerOptions) { o.recorder = r })
}

func resolveSchedulerOptions(opts []SchedulerOption) *schedulerOptions {
	o := &schedulerOptions{hardStepCap: defaultHardStepCap}
	for _, opt := range opts {
		opt.applyScheduler(o)
	}
	if o.logger == nil {
		o.logger = getDefaultLogger()
	}
	return o
}
