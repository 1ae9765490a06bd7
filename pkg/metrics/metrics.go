package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AuthAttempts counts authentication attempts labelled by outcome.
var AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "sprintdesk",
	Subsystem: "auth",
	Name:      "attempts_total",
	Help:      "Authentication attempts grouped by result.",
}, []string{"result"})

// ActiveCredentials tracks the number of live credential records.
var ActiveCredentials = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "sprintdesk",
	Subsystem: "auth",
	Name:      "active_credentials",
	Help:      "Number of issued credential pairs currently stored.",
})

// PermissionChecks counts role evaluations labelled by decision.
var PermissionChecks = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "sprintdesk",
	Subsystem: "permissions",
	Name:      "checks_total",
	Help:      "Permission evaluations grouped by decision.",
}, []string{"decision"})

// APILatency observes request latency per method, route, and status.
var APILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "sprintdesk",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency distribution.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "path", "status"})

// SweptInvitationCodes counts invitation codes removed by the periodic sweep.
var SweptInvitationCodes = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "sprintdesk",
	Subsystem: "invitations",
	Name:      "swept_codes_total",
	Help:      "Expired invitation codes deleted by the sweeper.",
})
