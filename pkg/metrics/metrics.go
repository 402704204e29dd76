package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// InvitationsIssued counts issued tenant invitations by delivery outcome (sent|failed).
	InvitationsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tendly_invitations_issued_total",
			Help: "Total number of tenant invitations issued",
		},
		[]string{"delivery"},
	)

	// InvitationsRedeemed counts redemption attempts by result
	// (success|not_found|expired|email_mismatch|error).
	InvitationsRedeemed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tendly_invitations_redeemed_total",
			Help: "Total number of invitation redemption attempts",
		},
		[]string{"result"},
	)

	// LeasesTerminated counts landlord-initiated lease terminations.
	LeasesTerminated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tendly_leases_terminated_total",
			Help: "Total number of terminated leases",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tendly_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
