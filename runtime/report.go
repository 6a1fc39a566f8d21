package runtime

// Report summarizes a completed RunTest campaign: how many iterations ran,
// and — if one of them failed — the violation, its trace, and the seed and
// step count needed to reproduce it.
type Report struct {
	IterationsRun int
	Passed        bool
	Violation     error
	Trace         *Trace
	Seed          uint64
	Steps         uint64
	TracePath     string

	// StoppedEarly is true when the configured strategy declared itself
	// exhausted (InitializeIteration returned false) before IterationsRun
	// reached Config.Iterations — e.g. a bounded-DFS strategy that finished
	// enumerating its decision tree.
	StoppedEarly bool
}

// ExitCode maps the report onto a conventional exit-code table: 0 every
// iteration passed, 1 a violation was found. Configuration errors are
// reported directly as RunTest's error return, never via Report, and map to
// exit code 2 at the process boundary a cmd/ front end would own (out of
// scope here: config/CLI parsing is explicitly not this engine's job).
func (r *Report) ExitCode() int {
	if r.Violation != nil {
		return 1
	}
	return 0
}
