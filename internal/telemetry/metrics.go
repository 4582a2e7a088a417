package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments for the tracker. A private
// registry keeps the scrape surface limited to what this service exports.
type Metrics struct {
	registry *prometheus.Registry

	checksTotal     *prometheus.CounterVec
	activeKeys      prometheus.Gauge
	upstreamSeconds prometheus.Histogram
	lastBatchUnix   prometheus.Gauge
}

// New registers all instruments on a fresh registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.checksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "balance_sentinel",
		Name:      "checks_total",
		Help:      "Balance checks by outcome (success, failed, skipped).",
	}, []string{"result"})

	m.activeKeys = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "balance_sentinel",
		Name:      "tracked_keys_active",
		Help:      "Number of actively tracked keys at the last batch pass.",
	})

	m.upstreamSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "balance_sentinel",
		Name:      "upstream_request_seconds",
		Help:      "Latency of upstream balance fetches.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	})

	m.lastBatchUnix = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "balance_sentinel",
		Name:      "last_batch_check_timestamp_seconds",
		Help:      "Unix time the batch driver last completed a pass.",
	})

	m.registry.MustRegister(m.checksTotal, m.activeKeys, m.upstreamSeconds, m.lastBatchUnix)
	return m
}

// ObserveCheck records the outcome of one key within a batch pass.
func (m *Metrics) ObserveCheck(result string) {
	m.checksTotal.WithLabelValues(result).Inc()
}

// ObserveUpstream records the latency of one upstream fetch.
func (m *Metrics) ObserveUpstream(d time.Duration) {
	m.upstreamSeconds.Observe(d.Seconds())
}

// SetActiveKeys records the size of the tracked set.
func (m *Metrics) SetActiveKeys(n int) {
	m.activeKeys.Set(float64(n))
}

// SetLastBatch records batch pass completion time.
func (m *Metrics) SetLastBatch(t time.Time) {
	m.lastBatchUnix.Set(float64(t.Unix()))
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
