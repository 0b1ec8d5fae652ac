// Package metrics exposes Prometheus counters for spelling queries.
//
// Metrics:
//   - speller_queries_total{op}: is-correct, suggest, tokenize, check, banner
//   - speller_suggest_duration_seconds: suggestion search latency
//   - speller_suggestions_returned: result list sizes
//   - speller_archive_loads_total{result}: ok or the load error kind
//   - speller_user_words_total{op}: add and remove on the user dictionary
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	queries      *prometheus.CounterVec
	suggestLat   prometheus.Histogram
	suggestCount prometheus.Histogram
	archiveLoads *prometheus.CounterVec
	userWordOps  *prometheus.CounterVec
	gatherer     prometheus.Gatherer
}

// NewCollector registers the speller metrics on reg. A nil reg gets a fresh
// private registry, which keeps tests independent.
func NewCollector(reg *prometheus.Registry) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	c := &Collector{
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "speller_queries_total",
			Help: "Total number of spelling queries by operation",
		}, []string{"op"}),
		suggestLat: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "speller_suggest_duration_seconds",
			Help:    "Suggestion search latency in seconds",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		suggestCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "speller_suggestions_returned",
			Help:    "Number of suggestions returned per query",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20, 50},
		}),
		archiveLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "speller_archive_loads_total",
			Help: "Archive loads by result",
		}, []string{"result"}),
		userWordOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "speller_user_words_total",
			Help: "User dictionary updates by operation",
		}, []string{"op"}),
		gatherer: reg,
	}
	reg.MustRegister(c.queries, c.suggestLat, c.suggestCount, c.archiveLoads, c.userWordOps)
	return c
}

func (c *Collector) RecordQuery(op string) {
	c.queries.WithLabelValues(op).Inc()
}

// RecordSuggest counts one suggest query with its latency and result size.
func (c *Collector) RecordSuggest(took time.Duration, results int) {
	c.queries.WithLabelValues("suggest").Inc()
	c.suggestLat.Observe(took.Seconds())
	c.suggestCount.Observe(float64(results))
}

// RecordArchiveLoad takes "ok" or a load error kind such as "corrupt".
func (c *Collector) RecordArchiveLoad(result string) {
	c.archiveLoads.WithLabelValues(result).Inc()
}

func (c *Collector) RecordUserWord(op string) {
	c.userWordOps.WithLabelValues(op).Inc()
}

// Handler serves the registry this collector was created on.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
