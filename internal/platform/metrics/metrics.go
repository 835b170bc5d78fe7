// Package metrics exposes the Prometheus collectors of the match pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder collects pipeline metrics. A nil *Recorder is a valid no-op.
type Recorder struct {
	registry *prometheus.Registry

	matchesProcessed *prometheus.CounterVec
	scoreRowsMerged  prometheus.Counter
	fetchFailures    *prometheus.CounterVec
	matchDuration    prometheus.Histogram
	httpRequests     *prometheus.CounterVec
}

type Option func(*options)

type options struct {
	namespace      string
	buckets        []float64
	processMetrics bool
}

func WithNamespace(namespace string) Option {
	return func(o *options) {
		if namespace != "" {
			o.namespace = namespace
		}
	}
}

func WithHistogramBuckets(buckets []float64) Option {
	return func(o *options) {
		if len(buckets) > 0 {
			o.buckets = buckets
		}
	}
}

// WithProcessMetrics adds the Go runtime and process collectors.
func WithProcessMetrics() Option {
	return func(o *options) {
		o.processMetrics = true
	}
}

// New registers every collector on a private registry.
func New(opts ...Option) *Recorder {
	o := options{
		namespace: "matchhub",
		buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}
	for _, opt := range opts {
		opt(&o)
	}

	registry := prometheus.NewRegistry()
	if o.processMetrics {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	auto := promauto.With(registry)

	return &Recorder{
		registry: registry,
		matchesProcessed: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Subsystem: "pipeline",
			Name:      "matches_processed_total",
			Help:      "Matches processed by the pipeline, by outcome status",
		}, []string{"status"}),
		scoreRowsMerged: auto.NewCounter(prometheus.CounterOpts{
			Namespace: o.namespace,
			Subsystem: "store",
			Name:      "score_rows_merged_total",
			Help:      "Score rows upserted into the store",
		}),
		fetchFailures: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Subsystem: "osu",
			Name:      "fetch_failures_total",
			Help:      "Failed match fetches from the osu! API, by reason",
		}, []string{"reason"}),
		matchDuration: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: o.namespace,
			Subsystem: "pipeline",
			Name:      "match_duration_seconds",
			Help:      "Fetch, normalize and merge latency of one match",
			Buckets:   o.buckets,
		}),
		httpRequests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served, by route and status code",
		}, []string{"route", "code"}),
	}
}

func (r *Recorder) MatchProcessed(status string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.matchesProcessed.WithLabelValues(status).Inc()
	r.matchDuration.Observe(elapsed.Seconds())
}

func (r *Recorder) ScoreRowsMerged(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.scoreRowsMerged.Add(float64(n))
}

func (r *Recorder) FetchFailed(reason string) {
	if r == nil {
		return
	}
	r.fetchFailures.WithLabelValues(reason).Inc()
}

func (r *Recorder) HTTPRequest(route, code string) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(route, code).Inc()
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.Registry(), promhttp.HandlerOpts{})
}
