// Package metrics provides Prometheus metrics for credential issuance and
// verification.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all credential pipeline metrics.
type Metrics struct {
	IssuedTotal        prometheus.Counter     // Successfully issued credentials
	IssueFailuresTotal *prometheus.CounterVec // Issue failures by stage (validate, sign, store)
	VerificationsTotal *prometheus.CounterVec // Verification verdicts by result
	RevokedTotal       prometheus.Counter     // Revocation operations applied

	StoreLookupDurationSeconds prometheus.Histogram // Store lookup latency
	StoreUnavailableTotal      prometheus.Counter   // Lookups that failed because the store was unreachable

	CacheHitsTotal   prometheus.Counter // Credential cache hits
	CacheMissesTotal prometheus.Counter // Credential cache misses
}

// New creates a Metrics instance with all metrics registered.
func New() *Metrics {
	return &Metrics{
		IssuedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "skillchain_credentials_issued_total",
			Help: "Total number of credentials issued",
		}),

		IssueFailuresTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "skillchain_credential_issue_failures_total",
			Help: "Total number of failed issuance attempts by stage",
		}, []string{"stage"}),

		VerificationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "skillchain_verifications_total",
			Help: "Total number of verification requests by verdict",
		}, []string{"result"}),

		RevokedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "skillchain_credentials_revoked_total",
			Help: "Total number of credentials revoked",
		}),

		StoreLookupDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "skillchain_credential_store_lookup_duration_seconds",
			Help:    "Duration of credential store lookups",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		StoreUnavailableTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "skillchain_credential_store_unavailable_total",
			Help: "Total number of lookups that failed because the store was unreachable",
		}),

		CacheHitsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "skillchain_credential_cache_hits_total",
			Help: "Total number of credential cache hits",
		}),

		CacheMissesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "skillchain_credential_cache_misses_total",
			Help: "Total number of credential cache misses",
		}),
	}
}

// RecordIssued records a successful credential issuance.
func (m *Metrics) RecordIssued() {
	m.IssuedTotal.Inc()
}

// RecordIssueFailure records a failed issuance attempt at the given stage.
func (m *Metrics) RecordIssueFailure(stage string) {
	m.IssueFailuresTotal.WithLabelValues(stage).Inc()
}

// RecordVerification records a verification verdict.
func (m *Metrics) RecordVerification(result string) {
	m.VerificationsTotal.WithLabelValues(result).Inc()
}

// RecordRevoked records a revocation.
func (m *Metrics) RecordRevoked() {
	m.RevokedTotal.Inc()
}

// ObserveStoreLookup records the duration of a store lookup.
func (m *Metrics) ObserveStoreLookup(durationSeconds float64) {
	m.StoreLookupDurationSeconds.Observe(durationSeconds)
}

// RecordStoreUnavailable records a lookup that failed because the store was
// unreachable.
func (m *Metrics) RecordStoreUnavailable() {
	m.StoreUnavailableTotal.Inc()
}

// RecordCacheHit records a credential cache hit.
func (m *Metrics) RecordCacheHit() {
	m.CacheHitsTotal.Inc()
}

// RecordCacheMiss records a credential cache miss.
func (m *Metrics) RecordCacheMiss() {
	m.CacheMissesTotal.Inc()
}
