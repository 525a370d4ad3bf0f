package orchestration

import (
	"log"

	"github.com/MKJM2/cs2620-logical-clocks/sim"
)

// Builder can be used to build an orchestrator.
type Builder struct {
	machineCount int
	rateSpec     sim.RateSpec
	sink         sim.EventSink
	retry        sim.RetryConfig
	seed         int64
	seedSet      bool
	logger       *log.Logger
}

// MakeBuilder creates a builder with default settings.
func MakeBuilder() Builder {
	return Builder{
		rateSpec: sim.UniformRate{Min: 1, Max: 6},
		sink:     sim.NullSink{},
		retry:    sim.DefaultRetryConfig(),
	}
}

// WithMachineCount sets how many machines to simulate.
func (b Builder) WithMachineCount(count int) Builder {
	b.machineCount = count
	return b
}

// WithRateSpec sets how per-machine tick rates are drawn.
func (b Builder) WithRateSpec(spec sim.RateSpec) Builder {
	b.rateSpec = spec
	return b
}

// WithEventSink sets where event records are written.
func (b Builder) WithEventSink(sink sim.EventSink) Builder {
	b.sink = sink
	return b
}

// WithRetryConfig sets the link-establishment budget.
func (b Builder) WithRetryConfig(cfg sim.RetryConfig) Builder {
	b.retry = cfg
	return b
}

// WithSeed makes rate draws and event policies reproducible.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	b.seedSet = true
	return b
}

// WithLogger sets an optional lifecycle logger.
func (b Builder) WithLogger(l *log.Logger) Builder {
	b.logger = l
	return b
}

// Build constructs the topology and the orchestrator supervising it. A bad
// machine count or rate spec yields a *sim.ConfigError before any machine
// starts.
func (b Builder) Build() (*Orchestrator, error) {
	failures := &failureLog{}

	tb := sim.MakeTopologyBuilder().
		WithMachineCount(b.machineCount).
		WithRateSpec(b.rateSpec).
		WithEventSink(b.sink).
		WithFailureReporter(failures).
		WithRetryConfig(b.retry).
		WithLogger(b.logger)
	if b.seedSet {
		tb = tb.WithSeed(b.seed)
	}

	topology, err := tb.Build()
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		topology: topology,
		failures: failures,
		logger:   b.logger,
	}, nil
}
