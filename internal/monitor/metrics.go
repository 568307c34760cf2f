package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics carries the queue's instrumentation on a private registry so two
// instances (e.g. in tests) never collide.
type Metrics struct {
	registry *prometheus.Registry

	ClaimsTotal     prometheus.Counter
	AcksTotal       prometheus.Counter
	FailuresTotal   *prometheus.CounterVec // outcome: retry|terminal
	ItemsDiscovered prometheus.Counter
	ClassifyErrors  prometheus.Counter
	JobsByStatus    *prometheus.GaugeVec // status: pending|leased|complete|failed
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	m := &Metrics{
		registry: reg,
		ClaimsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanqueue_claims_total",
			Help: "Jobs claimed by workers.",
		}),
		AcksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanqueue_acks_total",
			Help: "Jobs acknowledged as complete.",
		}),
		FailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanqueue_failures_total",
			Help: "Failed job attempts by outcome.",
		}, []string{"outcome"}),
		ItemsDiscovered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanqueue_items_discovered_total",
			Help: "Raw items returned by source discoverers.",
		}),
		ClassifyErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanqueue_classify_errors_total",
			Help: "Failed hand-offs to the classification queue.",
		}),
		JobsByStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scanqueue_jobs",
			Help: "Discovery jobs by status.",
		}, []string{"status"}),
	}
	reg.MustRegister(m.ClaimsTotal, m.AcksTotal, m.FailuresTotal, m.ItemsDiscovered, m.ClassifyErrors, m.JobsByStatus)
	return m
}

// Handler serves the /metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
