package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineCollector exposes simulation-engine Prometheus metrics.
type EngineCollector struct {
	gatherer prometheus.Gatherer

	TickDuration      prometheus.Histogram
	ObjectsPropagated prometheus.Gauge
	KeplerFailures    prometheus.Counter
	EphemerisSamples  prometheus.Counter
}

// NewEngineCollector registers engine metrics against the provided registerer.
func NewEngineCollector(reg prometheus.Registerer) (*EngineCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	tickHistogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "engine_tick_duration_seconds",
		Help:    "Duration of full propagation ticks across all orbiting objects.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})
	tickHistogram, err := registerHistogram(reg, tickHistogram, "engine_tick_duration_seconds")
	if err != nil {
		return nil, err
	}

	propagated := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "engine_objects_propagated",
		Help: "Number of objects repositioned during the most recent tick.",
	})
	propagated, err = registerGauge(reg, propagated, "engine_objects_propagated")
	if err != nil {
		return nil, err
	}

	keplerFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engine_kepler_failures_total",
		Help: "Cumulative number of Kepler solver convergence failures during propagation.",
	})
	keplerFailures, err = registerCounter(reg, keplerFailures, "engine_kepler_failures_total")
	if err != nil {
		return nil, err
	}

	ephemeris := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engine_ephemeris_samples_total",
		Help: "Cumulative number of ephemeris records written by the sampler.",
	})
	ephemeris, err = registerCounter(reg, ephemeris, "engine_ephemeris_samples_total")
	if err != nil {
		return nil, err
	}

	return &EngineCollector{
		gatherer:          gatherer,
		TickDuration:      tickHistogram,
		ObjectsPropagated: propagated,
		KeplerFailures:    keplerFailures,
		EphemerisSamples:  ephemeris,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *EngineCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveTick records the duration of one propagation tick.
func (c *EngineCollector) ObserveTick(d time.Duration) {
	if c == nil || c.TickDuration == nil {
		return
	}
	c.TickDuration.Observe(d.Seconds())
}

// SetObjectsPropagated updates the per-tick object count gauge.
func (c *EngineCollector) SetObjectsPropagated(count int) {
	if c == nil || c.ObjectsPropagated == nil {
		return
	}
	c.ObjectsPropagated.Set(float64(count))
}

// IncKeplerFailures increments the solver failure counter.
func (c *EngineCollector) IncKeplerFailures() {
	if c == nil || c.KeplerFailures == nil {
		return
	}
	c.KeplerFailures.Inc()
}

// AddEphemerisSamples adds to the ephemeris record counter.
func (c *EngineCollector) AddEphemerisSamples(n int) {
	if c == nil || c.EphemerisSamples == nil || n <= 0 {
		return
	}
	c.EphemerisSamples.Add(float64(n))
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
