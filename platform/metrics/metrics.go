// Package metrics holds the Prometheus collectors for conversion runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for Conversions.
const (
	OutcomeConverted = "converted"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

// Registry owns the collectors and the registry they are exposed from.
type Registry struct {
	reg *prometheus.Registry

	// Conversions counts per-picklist outcomes, labelled by outcome and reason.
	Conversions   *prometheus.CounterVec
	BatchDuration prometheus.Histogram
	ProductCopies *prometheus.CounterVec

	PollerTicks   prometheus.Counter
	PollerSkipped prometheus.Counter
	PollerRunning prometheus.Gauge
}

// NewRegistry registers every collector on a fresh registry.
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	conversions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "picklist_conversions_total",
		Help: "Picklist conversion attempts by outcome and reason.",
	}, []string{"outcome", "reason"})
	batchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "picklist_batch_duration_seconds",
		Help:    "Wall time of a ConvertBatch call.",
		Buckets: prometheus.DefBuckets,
	})
	copies := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_product_copies_total",
		Help: "Products copied from the secondary source by result.",
	}, []string{"result"})
	ticks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "poller_ticks_total",
		Help: "Poller ticks that started a batch.",
	})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "poller_ticks_skipped_total",
		Help: "Poller ticks skipped because a batch was still in flight.",
	})
	running := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "poller_running",
		Help: "1 while the poller is started, 0 otherwise.",
	})

	r.MustRegister(conversions, batchDuration, copies, ticks, skipped, running)
	return &Registry{
		reg:           r,
		Conversions:   conversions,
		BatchDuration: batchDuration,
		ProductCopies: copies,
		PollerTicks:   ticks,
		PollerSkipped: skipped,
		PollerRunning: running,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
