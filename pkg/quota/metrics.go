package quota

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus collectors for the quota layer.
type Metrics struct {
	cacheLookups *prometheus.CounterVec
	cacheSize    prometheus.Gauge

	spendTotal   prometheus.Counter
	spendDenials prometheus.Counter
	spentToday   prometheus.Gauge

	rateLimitChecks *prometheus.CounterVec

	opDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg
// (prometheus.DefaultRegisterer when nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "callisto_quota_cache_lookups_total",
				Help: "Total cache lookups by result (hit, miss, error)",
			},
			[]string{"result"},
		),
		cacheSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "callisto_quota_cache_entries",
				Help: "Cache entries present at the last sweep",
			},
		),
		spendTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "callisto_quota_spend_usd_total",
				Help: "Cumulative recorded spend in USD",
			},
		),
		spendDenials: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "callisto_quota_spend_denials_total",
				Help: "Total spends denied by the daily cap",
			},
		),
		spentToday: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "callisto_quota_spent_today_usd",
				Help: "Spend accumulated today in USD",
			},
		),
		rateLimitChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "callisto_quota_rate_limit_checks_total",
				Help: "Total rate limit checks by result (allowed, denied, error)",
			},
			[]string{"result"},
		),
		opDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "callisto_quota_op_duration_seconds",
				Help:    "Duration of quota store operations in seconds",
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15), // 1µs to 16ms
			},
			[]string{"operation"},
		),
	}
}

// RecordCacheLookup records a cache lookup outcome.
func (m *Metrics) RecordCacheLookup(result string) {
	m.cacheLookups.WithLabelValues(result).Inc()
}

// SetCacheEntries updates the cache size gauge.
func (m *Metrics) SetCacheEntries(n float64) {
	m.cacheSize.Set(n)
}

// RecordSpend records a committed spend.
func (m *Metrics) RecordSpend(usd float64) {
	m.spendTotal.Add(usd)
}

// RecordSpendDenial records a spend denied by the daily cap.
func (m *Metrics) RecordSpendDenial() {
	m.spendDenials.Inc()
}

// SetSpentToday updates the daily spend gauge.
func (m *Metrics) SetSpentToday(usd float64) {
	m.spentToday.Set(usd)
}

// RecordRateLimitCheck records a rate limit decision.
func (m *Metrics) RecordRateLimitCheck(result string) {
	m.rateLimitChecks.WithLabelValues(result).Inc()
}

// RecordOpDuration records the latency of a store operation.
func (m *Metrics) RecordOpDuration(operation string, seconds float64) {
	m.opDuration.WithLabelValues(operation).Observe(seconds)
}
