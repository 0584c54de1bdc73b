package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "folio", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "folio", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	DocumentSaves = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "folio", Name: "document_saves_total", Help: "Number of in-memory document replacements."},
	)
	PersistResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "folio", Name: "document_persist_total", Help: "Durable persist attempts by target and result."},
		[]string{"target", "result"},
	)
	PersistDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "folio", Name: "document_persist_seconds", Help: "Durable persist latency by target.", Buckets: prometheus.DefBuckets},
		[]string{"target"},
	)
	DeployRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "folio", Name: "deploy_runs_total", Help: "Deploy workflow runs by outcome."},
		[]string{"outcome"},
	)
	DeployPushAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "folio", Name: "deploy_push_attempts_total", Help: "Number of push attempts made by the deploy workflow."},
	)
	ChatRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "folio", Name: "chat_requests_total", Help: "Chat relay requests by outcome."},
		[]string{"outcome"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(DocumentSaves)
	reg.MustRegister(PersistResults)
	reg.MustRegister(PersistDuration)
	reg.MustRegister(DeployRuns)
	reg.MustRegister(DeployPushAttempts)
	reg.MustRegister(ChatRequests)
}
