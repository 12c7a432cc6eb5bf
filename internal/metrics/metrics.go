package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "compliance_hub"

const (
	FallbackNoTenantContext        = "no_tenant_context"
	FallbackUnregisteredConnection = "unregistered_connection"

	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	// RouterFallbacks counts tenant scoped operations routed to the shared store.
	RouterFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "fallback_total",
			Help:      "Tenant scoped operations served by the shared connection",
		},
		[]string{"reason"},
	)

	ProvisioningOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provisioning",
			Name:      "outcomes_total",
			Help:      "Tenant provisioning attempts by outcome and materialization strategy",
		},
		[]string{"outcome", "strategy"},
	)

	DistributionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "duration_seconds",
			Help:      "Time spent copying a framework into a tenant store",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	RegisteredConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "registered_connections",
			Help:      "Connections currently known to the router",
		},
	)
)
