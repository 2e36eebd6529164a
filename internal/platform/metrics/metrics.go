package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	AccessGranted       prometheus.Counter
	AccessDenied        *prometheus.CounterVec
	ConsentGrants       prometheus.Counter
	ConsentWithdrawals  prometheus.Counter
	AuditAppendFailures prometheus.Counter
	TripwireHits        prometheus.Counter
	RequestDuration     *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		AccessGranted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medgate_access_granted_total",
			Help: "Total number of patient record disclosures that passed all checks",
		}),
		AccessDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "medgate_access_denied_total",
			Help: "Total number of denied access requests, by pipeline stage",
		}, []string{"stage"}),
		ConsentGrants: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medgate_consent_grants_total",
			Help: "Total number of consent grants recorded",
		}),
		ConsentWithdrawals: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medgate_consent_withdrawals_total",
			Help: "Total number of consent withdrawals recorded",
		}),
		AuditAppendFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medgate_audit_append_failures_total",
			Help: "Total number of failed audit trail appends (compliance-critical)",
		}),
		TripwireHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medgate_audit_tripwire_hits_total",
			Help: "Total number of audit field lists that matched a value-shaped pattern",
		}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "medgate_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// IncAccessDenied records a denial at the given pipeline stage
// ("authorization" or "consent").
func (m *Metrics) IncAccessDenied(stage string) {
	if m == nil {
		return
	}
	m.AccessDenied.WithLabelValues(stage).Inc()
}

// IncAccessGranted records one fully authorized disclosure.
func (m *Metrics) IncAccessGranted() {
	if m == nil {
		return
	}
	m.AccessGranted.Inc()
}

// IncConsentGrant records one consent grant.
func (m *Metrics) IncConsentGrant() {
	if m == nil {
		return
	}
	m.ConsentGrants.Inc()
}

// IncConsentWithdrawal records one consent withdrawal.
func (m *Metrics) IncConsentWithdrawal() {
	if m == nil {
		return
	}
	m.ConsentWithdrawals.Inc()
}

// IncAuditAppendFailure records a failed audit append.
func (m *Metrics) IncAuditAppendFailure() {
	if m == nil {
		return
	}
	m.AuditAppendFailures.Inc()
}

// IncTripwireHit records an accessed-fields list that matched a value-shaped
// pattern.
func (m *Metrics) IncTripwireHit() {
	if m == nil {
		return
	}
	m.TripwireHits.Inc()
}

// ObserveRequest records one HTTP request observation.
func (m *Metrics) ObserveRequest(route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(route, status).Observe(d.Seconds())
}
