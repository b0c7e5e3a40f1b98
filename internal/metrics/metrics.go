// Package metrics exposes Prometheus collectors for the TOC engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "toc"

// Metrics holds all collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	MutationsTotal        *prometheus.CounterVec
	ConflictsTotal        *prometheus.CounterVec
	Attempts              *prometheus.HistogramVec
	StoreOperationSeconds *prometheus.HistogramVec
	AuditDroppedTotal     prometheus.Counter
	PurgedChaptersTotal   prometheus.Counter
	EventPublishTotal     *prometheus.CounterVec
}

// New creates and registers all collectors. Go runtime and process
// collectors are registered too so /metrics is self-contained.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		MutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Total number of TOC mutations by final outcome",
		}, []string{"action", "outcome"}),

		ConflictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflicts_total",
			Help:      "Total number of lost compare-and-set races",
		}, []string{"action"}),

		Attempts: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "attempts",
			Help:      "Read-modify-write attempts per mutation",
			Buckets:   []float64{1, 2, 3, 4, 5, 8, 13},
		}, []string{"action"}),

		StoreOperationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Store operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "status"}),

		AuditDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_dropped_total",
			Help:      "Audit records that could not be written",
		}),

		PurgedChaptersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purged_chapters_total",
			Help:      "Chapters permanently removed by retention purges",
		}),

		EventPublishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_total",
			Help:      "Change events published by status",
		}, []string{"status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.MutationsTotal,
		m.ConflictsTotal,
		m.Attempts,
		m.StoreOperationSeconds,
		m.AuditDroppedTotal,
		m.PurgedChaptersTotal,
		m.EventPublishTotal,
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveMutation(action, outcome string, attempts int) {
	m.MutationsTotal.WithLabelValues(action, outcome).Inc()
	if attempts > 0 {
		m.Attempts.WithLabelValues(action).Observe(float64(attempts))
	}
}

func (m *Metrics) IncConflict(action string) {
	m.ConflictsTotal.WithLabelValues(action).Inc()
}

func (m *Metrics) IncAuditDropped() { m.AuditDroppedTotal.Inc() }

func (m *Metrics) AddPurged(n int) {
	if n > 0 {
		m.PurgedChaptersTotal.Add(float64(n))
	}
}

// ObservePublish counts a change event publish attempt.
func (m *Metrics) ObservePublish(err error) {
	m.EventPublishTotal.WithLabelValues(status(err)).Inc()
}

// ObserveStore records the duration of one store call.
func (m *Metrics) ObserveStore(op string, started time.Time, err error) {
	m.StoreOperationSeconds.WithLabelValues(op, status(err)).Observe(time.Since(started).Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
