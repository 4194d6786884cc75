package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SnapshotsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "backoffice", Name: "snapshots_created_total", Help: "Number of snapshots created by type."},
		[]string{"type"},
	)
	RestoresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "backoffice", Name: "restores_total", Help: "Number of restore attempts by outcome."},
		[]string{"outcome"},
	)
	ArchivesDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "backoffice", Name: "archives_deleted_total", Help: "Number of archives removed by retention cleanup."},
	)
	UpgradeDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "backoffice", Name: "upgrade_decisions_total", Help: "Number of upgrade-request decisions by outcome."},
		[]string{"outcome"},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "backoffice", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "backoffice", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(SnapshotsCreated)
	reg.MustRegister(RestoresTotal)
	reg.MustRegister(ArchivesDeleted)
	reg.MustRegister(UpgradeDecisions)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}
