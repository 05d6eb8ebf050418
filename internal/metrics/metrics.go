// Package metrics registers the console's Prometheus collectors. Everything
// is package-level promauto so handlers can bump counters without plumbing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keydesk_login_attempts_total",
			Help: "Login attempts by role path and outcome.",
		},
		[]string{"role", "outcome"},
	)

	Lockouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "keydesk_lockouts_total",
		Help: "Times the login gate entered the blocked state.",
	})

	SessionTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "keydesk_session_timeouts_total",
		Help: "Sessions force-expired by the countdown.",
	})

	LicensesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keydesk_licenses_created_total",
			Help: "Licenses created, by creator role.",
		},
		[]string{"role"},
	)

	LicensesDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "keydesk_licenses_deleted_total",
		Help: "Licenses moved to the archive.",
	})

	QuotaRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "keydesk_quota_rejections_total",
		Help: "License creations rejected by the manager quota check.",
	})
)
