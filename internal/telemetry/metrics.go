// Package telemetry turns registry lifecycle events into Prometheus metrics.
//
// Metrics:
//   - nsreg_events_total{event} - lifecycle events dispatched
//   - nsreg_include_errors_total{status} - failed loads by status
//   - nsreg_included_identifiers - identifiers included or provided
package telemetry

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/nsreg/internal/events"
)

// Metrics holds the collectors fed by one or more registries.
type Metrics struct {
	EventsTotal        *prometheus.CounterVec
	IncludeErrorsTotal *prometheus.CounterVec
	Included           prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. Passing a
// fresh prometheus.NewRegistry keeps tests and multiple servers apart.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nsreg_events_total",
				Help: "Total number of lifecycle events dispatched",
			},
			[]string{"event"},
		),
		IncludeErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nsreg_include_errors_total",
				Help: "Total number of failed unit loads by status",
			},
			[]string{"status"},
		),
		Included: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "nsreg_included_identifiers",
				Help: "Number of identifiers included or provided",
			},
		),
	}
}

// Source is anything lifecycle listeners can be added to.
type Source interface {
	AddEventListener(name string, fn events.ListenerFunc) *events.Handle
}

// Attach counts every lifecycle event of src.
func (m *Metrics) Attach(src Source) {
	for _, name := range events.Names {
		src.AddEventListener(name, m.Observe)
	}
}

// Observe records one event.
func (m *Metrics) Observe(e *events.Event) {
	m.EventsTotal.WithLabelValues(e.Name).Inc()
	switch e.Name {
	case events.Include, events.Provide:
		m.Included.Inc()
	case events.IncludeError:
		m.IncludeErrorsTotal.WithLabelValues(strconv.Itoa(e.Status)).Inc()
	}
}
