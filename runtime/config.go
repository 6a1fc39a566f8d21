package runtime

import (
	"os"

	"github.com/joeycumines/interleave/scheduler"
	"github.com/joeycumines/interleave/strategy"
	"github.com/joeycumines/logiface"
)

// StrategyKind selects which built-in ExplorationStrategy a StrategySpec
// builds.
type StrategyKind int

const (
	StrategyRandom StrategyKind = iota
	StrategyPCT
	StrategyDFS
	StrategyPortfolio
)

// StrategySpec is the serializable description of a strategy configuration,
// realized as a Go value instead of a config-file grammar (config-file
// parsing is explicitly out of scope; callers construct this directly or
// via the With*Strategy options below).
type StrategySpec struct {
	Kind        StrategyKind
	PCTK        int
	DFSMaxDepth int
	Portfolio   []StrategySpec
}

func (s StrategySpec) build(seed uint64) (strategy.ExplorationStrategy, error) {
	switch s.Kind {
	case StrategyRandom:
		return strategy.NewRandom(seed), nil
	case StrategyPCT:
		return strategy.NewPCT(seed, s.PCTK), nil
	case StrategyDFS:
		return strategy.NewBoundedDFS(s.DFSMaxDepth), nil
	case StrategyPortfolio:
		if len(s.Portfolio) == 0 {
			return nil, configError("portfolio strategy requires at least one member")
		}
		members := make([]strategy.ExplorationStrategy, len(s.Portfolio))
		for i, spec := range s.Portfolio {
			m, err := spec.build(seed + uint64(i))
			if err != nil {
				return nil, err
			}
			members[i] = m
		}
		return strategy.NewPortfolio(members...), nil
	default:
		return nil, configError("unknown strategy kind %d", int(s.Kind))
	}
}

// MaxStepsConfig bounds a single iteration's scheduling steps. Soft is a
// logged-warning threshold; Hard terminates the iteration with a
// scheduler.BoundReachedError (wired to scheduler.WithHardStepCap).
type MaxStepsConfig struct {
	Soft int
	Hard int
}

// Config is runtime.RunTest's full configuration. Constructed via NewConfig
// with functional Options rather than a struct literal with a dozen
// optional zero-valued fields.
type Config struct {
	Iterations           int
	Strategy             StrategySpec
	Seed                 uint64
	MaxSteps             MaxStepsConfig
	Fairness             bool
	FairnessThreshold    int
	LivenessMonitors     []strategy.LivenessMonitor
	LivenessTemperature  int
	ReplayTracePath      string
	Verbosity            logiface.Level
	Logger               *scheduler.Logger
}

// Option configures a Config under construction.
type Option interface {
	applyConfig(*Config)
}

type configOptionFunc func(*Config)

func (f configOptionFunc) applyConfig(c *Config) { f(c) }

// WithIterations sets how many iterations RunTest attempts before stopping
// (absent an earlier violation or strategy exhaustion).
func WithIterations(n int) Option {
	return configOptionFunc(func(c *Config) { c.Iterations = n })
}

// WithSeed sets the base seed passed to whichever strategy is configured.
func WithSeed(seed uint64) Option {
	return configOptionFunc(func(c *Config) { c.Seed = seed })
}

// WithRandomStrategy selects strategy.NewRandom.
func WithRandomStrategy() Option {
	return configOptionFunc(func(c *Config) { c.Strategy = StrategySpec{Kind: StrategyRandom} })
}

// WithPCTStrategy selects strategy.NewPCT with k priority-change points.
func WithPCTStrategy(k int) Option {
	return configOptionFunc(func(c *Config) { c.Strategy = StrategySpec{Kind: StrategyPCT, PCTK: k} })
}

// WithDFSStrategy selects strategy.NewBoundedDFS with the given depth bound.
func WithDFSStrategy(maxDepth int) Option {
	return configOptionFunc(func(c *Config) { c.Strategy = StrategySpec{Kind: StrategyDFS, DFSMaxDepth: maxDepth} })
}

// WithPortfolioStrategy selects strategy.NewPortfolio over the given member
// specs, round-robinning across iterations.
func WithPortfolioStrategy(members ...StrategySpec) Option {
	return configOptionFunc(func(c *Config) { c.Strategy = StrategySpec{Kind: StrategyPortfolio, Portfolio: members} })
}

// WithMaxSteps sets the per-iteration soft/hard scheduling-step bounds.
func WithMaxSteps(soft, hard int) Option {
	return configOptionFunc(func(c *Config) { c.MaxSteps = MaxStepsConfig{Soft: soft, Hard: hard} })
}

// WithFairness enables the fairness wrapper around the configured strategy,
// forcing any operation enabled-but-unscheduled for more than threshold
// consecutive steps to run.
func WithFairness(threshold int) Option {
	return configOptionFunc(func(c *Config) {
		c.Fairness = true
		c.FairnessThreshold = threshold
	})
}

// WithLiveness enables the liveness wrapper with the given monitors and
// look-back window (temperature).
func WithLiveness(monitors []strategy.LivenessMonitor, temperature int) Option {
	return configOptionFunc(func(c *Config) {
		c.LivenessMonitors = monitors
		c.LivenessTemperature = temperature
	})
}

// WithReplayTracePath sets where a failing iteration's trace is written. If
// unset, RunTest derives a path from the iteration index.
func WithReplayTracePath(path string) Option {
	return configOptionFunc(func(c *Config) { c.ReplayTracePath = path })
}

// WithVerbosity sets the minimum level the configured (or default) logger
// emits at.
func WithVerbosity(level logiface.Level) Option {
	return configOptionFunc(func(c *Config) { c.Verbosity = level })
}

// WithLogger overrides the structured logger RunTest reports failures
// through. Defaults to a zerolog-backed logiface logger writing to stderr.
func WithLogger(l *scheduler.Logger) Option {
	return configOptionFunc(func(c *Config) { c.Logger = l })
}

// NewConfig builds a Config from defaults plus the given Options.
func NewConfig(opts ...Option) Config {
	c := Config{
		Iterations: 100,
		Strategy:   StrategySpec{Kind: StrategyRandom},
		Seed:       1,
		MaxSteps:   MaxStepsConfig{Soft: 10_000, Hard: 1_000_000},
		Verbosity:  logiface.LevelInformational,
	}
	for _, o := range opts {
		o.applyConfig(&c)
	}
	if c.Logger == nil {
		c.Logger = scheduler.NewDefaultLogger(os.Stderr, c.Verbosity)
	}
	return c
}

// Validate reports a runtime.ErrConfig-wrapped error for any configuration
// that cannot produce a meaningful run.
func (c Config) Validate() error {
	if c.Iterations <= 0 {
		return configError("Iterations must be > 0, got %d", c.Iterations)
	}
	if c.MaxSteps.Hard <= 0 {
		return configError("MaxSteps.Hard must be > 0, got %d", c.MaxSteps.Hard)
	}
	if c.LivenessTemperature > 0 && len(c.LivenessMonitors) == 0 {
		return configError("LivenessTemperature set without any registered LivenessMonitor")
	}
	if _, err := c.Strategy.build(c.Seed); err != nil {
		return err
	}
	return nil
}

// buildStrategy constructs the fully-wrapped strategy (base strategy, then
// fairness, then liveness) this Config describes.
func (c Config) buildStrategy() (strategy.ExplorationStrategy, error) {
	s, err := c.Strategy.build(c.Seed)
	if err != nil {
		return nil, err
	}
	if c.Fairness {
		s = strategy.WithFairness(s, c.FairnessThreshold)
	}
	if len(c.LivenessMonitors) > 0 {
		s = strategy.WithLiveness(s, c.LivenessMonitors, c.LivenessTemperature)
	}
	return s, nil
}
