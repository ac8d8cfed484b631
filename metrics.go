package proximity

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes engine Prometheus metrics. Nil *Metrics is valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	BuildPhaseDuration *prometheus.HistogramVec
	IsochronesTotal    *prometheus.CounterVec
	UpdateDuration     prometheus.Histogram
	AffectedNodesTotal prometheus.Counter
	UpdatesSkipped     *prometheus.CounterVec
	UpdatesApplied     prometheus.Counter
}

// NewMetrics registers engine metrics against the provided registerer
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	buildPhase := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "proximity_build_phase_duration_seconds",
		Help:    "Duration of build phase steps.",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 900},
	}, []string{"phase"})
	if err := register(reg, buildPhase, "proximity_build_phase_duration_seconds"); err != nil {
		return nil, err
	}

	isochrones := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "proximity_isochrones_total",
		Help: "Number of bounded isochrone computations.",
	}, []string{"mode"})
	if err := register(reg, isochrones, "proximity_isochrones_total"); err != nil {
		return nil, err
	}

	updateDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "proximity_update_duration_seconds",
		Help:    "Duration of incremental accessibility updates.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})
	if err := register(reg, updateDuration, "proximity_update_duration_seconds"); err != nil {
		return nil, err
	}

	affected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "proximity_affected_nodes_total",
		Help: "Cumulative number of node updates performed by incremental updates.",
	})
	if err := register(reg, affected, "proximity_affected_nodes_total"); err != nil {
		return nil, err
	}

	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "proximity_updates_skipped_total",
		Help: "Number of skipped updates by reason.",
	}, []string{"reason"})
	if err := register(reg, skipped, "proximity_updates_skipped_total"); err != nil {
		return nil, err
	}

	applied := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "proximity_updates_applied_total",
		Help: "Number of applied land-use configurations.",
	})
	if err := register(reg, applied, "proximity_updates_applied_total"); err != nil {
		return nil, err
	}

	return &Metrics{
		gatherer:           gatherer,
		BuildPhaseDuration: buildPhase,
		IsochronesTotal:    isochrones,
		UpdateDuration:     updateDuration,
		AffectedNodesTotal: affected,
		UpdatesSkipped:     skipped,
		UpdatesApplied:     applied,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with metrics
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return nil
	}
	return m.gatherer
}

// ObserveBuildPhase records duration of build phase step
func (m *Metrics) ObserveBuildPhase(phase string, d time.Duration) {
	if m == nil || m.BuildPhaseDuration == nil {
		return
	}
	m.BuildPhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// AddIsochrones increments isochrone counter for given mode
func (m *Metrics) AddIsochrones(mode string, n int) {
	if m == nil || m.IsochronesTotal == nil {
		return
	}
	m.IsochronesTotal.WithLabelValues(mode).Add(float64(n))
}

// ObserveUpdate records applied update
func (m *Metrics) ObserveUpdate(d time.Duration, touched int) {
	if m == nil {
		return
	}
	if m.UpdateDuration != nil {
		m.UpdateDuration.Observe(d.Seconds())
	}
	if m.AffectedNodesTotal != nil {
		m.AffectedNodesTotal.Add(float64(touched))
	}
	if m.UpdatesApplied != nil {
		m.UpdatesApplied.Inc()
	}
}

// IncSkipped increments skipped updates counter
func (m *Metrics) IncSkipped(reason string) {
	if m == nil || m.UpdatesSkipped == nil {
		return
	}
	m.UpdatesSkipped.WithLabelValues(reason).Inc()
}

func register(reg prometheus.Registerer, collector prometheus.Collector, name string) error {
	if err := reg.Register(collector); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return fmt.Errorf("collector %s already registered", name)
		}
		return err
	}
	return nil
}
