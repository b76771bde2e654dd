// Package metrics exposes Prometheus collectors for authentication decisions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SignInAttempts counts sign-in attempts by outcome (success, not_found,
	// no_password, invalid_password, not_approved, account_disabled, error).
	SignInAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coldtrace",
		Subsystem: "auth",
		Name:      "signin_attempts_total",
		Help:      "Sign-in attempts by outcome.",
	}, []string{"outcome"})

	// GuardDecisions counts route guard outcomes by state.
	GuardDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coldtrace",
		Subsystem: "auth",
		Name:      "guard_decisions_total",
		Help:      "Route guard decisions by state.",
	}, []string{"state"})

	// AdminMutations counts administrative changes by action.
	AdminMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coldtrace",
		Subsystem: "admin",
		Name:      "mutations_total",
		Help:      "Administrative user and pharmacy mutations by action.",
	}, []string{"action"})
)
