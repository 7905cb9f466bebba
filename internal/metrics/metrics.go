// Package metrics exports probe and bridge outcomes as Prometheus
// collectors registered on a caller-supplied registry.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cohort"

// Metrics implements probe.Observer and bridge.Observer.
//
// Thread-safety: safe for concurrent use.
type Metrics struct {
	calls   *prometheus.CounterVec
	latency *prometheus.HistogramVec
	records *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "probe",
			Name:      "calls_total",
			Help:      "Repository calls made by the conformance probe, by method and outcome.",
		}, []string{"method", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "probe",
			Name:      "call_duration_seconds",
			Help:      "Elapsed time of timed repository calls.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"method"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "records_total",
			Help:      "Foreign change records processed by the event bridge, by action and outcome.",
		}, []string{"action", "outcome"}),
	}
	for _, c := range []prometheus.Collector{m.calls, m.latency, m.records} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

// ObserveCall records one probe call.
func (m *Metrics) ObserveCall(method, outcome string, elapsed time.Duration) {
	m.calls.WithLabelValues(method, outcome).Inc()
	m.latency.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveRecord records one bridge record outcome.
func (m *Metrics) ObserveRecord(action, outcome string) {
	m.records.WithLabelValues(action, outcome).Inc()
}
