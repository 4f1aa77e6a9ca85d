package search

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bündelt die Prometheus-Kennzahlen der Engine. Ein nil-*Metrics ist
// gültig und zeichnet nichts auf.
type Metrics struct {
	searches     *prometheus.CounterVec
	degradations *prometheus.CounterVec
	level        prometheus.Gauge
	duration     prometheus.Histogram
}

// NewMetrics legt die Kennzahlen an und registriert sie bei reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		searches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "atlas_searches_total",
				Help: "Number of article searches by outcome.",
			},
			[]string{"outcome"},
		),
		degradations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "atlas_text_search_degradations_total",
				Help: "Number of text search ladder step-downs by target level.",
			},
			[]string{"level"},
		),
		level: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "atlas_text_search_level",
			Help: "Currently cached text search ladder level.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "atlas_search_duration_seconds",
			Help:    "Duration of article searches.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.searches, m.degradations, m.level, m.duration)
	}
	return m
}

func (m *Metrics) observe(outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(outcome).Inc()
	m.duration.Observe(time.Since(started).Seconds())
}

func (m *Metrics) degraded(to TextLevel) {
	if m == nil {
		return
	}
	m.degradations.WithLabelValues(to.String()).Inc()
}

func (m *Metrics) setLevel(l TextLevel) {
	if m == nil {
		return
	}
	m.level.Set(float64(l))
}
