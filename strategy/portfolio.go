package strategy

import "sync"

// portfolioStrategy round-robins a fresh base strategy per iteration:
// running several strategies side by side across a campaign's iterations
// tends to find more distinct bugs than committing to any single one.
type portfolioStrategy struct {
	mu         sync.Mutex
	strategies []ExplorationStrategy
	current    ExplorationStrategy
}

// NewPortfolio constructs a strategy that delegates every call for a given
// iteration to strategies[iteration % len(strategies)], switching strategy
// at each InitializeIteration.
func NewPortfolio(strategies ...ExplorationStrategy) ExplorationStrategy {
	if len(strategies) == 0 {
		panic("strategy: NewPortfolio requires at least one strategy")
	}
	return &portfolioStrategy{strategies: strategies, current: strategies[0]}
}

func (p *portfolioStrategy) InitializeIteration(iteration int) bool {
	p.mu.Lock()
	p.current = p.strategies[iteration%len(p.strategies)]
	p.mu.Unlock()
	return p.current.InitializeIteration(iteration)
}

func (p *portfolioStrategy) active() ExplorationStrategy {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *portfolioStrategy) NextOperation(enabled []*Operation, current *Operation, isYielding bool) (*Operation, bool) {
	return p.active().NextOperation(enabled, current, isYielding)
}

func (p *portfolioStrategy) NextBoolean(current *Operation, max int) (bool, bool) {
	return p.active().NextBoolean(current, max)
}

func (p *portfolioStrategy) NextInteger(current *Operation, max int) (int, bool) {
	return p.active().NextInteger(current, max)
}

func (p *portfolioStrategy) ScheduledSteps() int { return p.active().ScheduledSteps() }

func (p *portfolioStrategy) MaxStepsReached() bool { return p.active().MaxStepsReached() }

func (p *portfolioStrategy) IsFair() bool { return p.active().IsFair() }

func (p *portfolioStrategy) Reset() {
	p.mu.Lock()
	p.current = p.strategies[0]
	p.mu.Unlock()
	for _, s := range p.strategies {
		s.Reset()
	}
}
