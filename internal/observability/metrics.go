package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Command outcomes recorded by CommandsTotal.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeRejected = "rejected"
	OutcomeInvalid  = "invalid"
	OutcomeFallback = "fallback"
)

var (
	// CommandsTotal counts post interaction commands by command and outcome.
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engagement_commands_total",
		Help: "Total number of post interaction commands by outcome",
	}, []string{"command", "outcome"})

	// RollbacksTotal counts optimistic mutations reverted after a remote failure.
	RollbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engagement_rollbacks_total",
		Help: "Total number of optimistic updates rolled back",
	}, []string{"command"})

	// RemoteCallLatency records remote interaction service latency.
	RemoteCallLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "engagement_remote_call_latency_seconds",
		Help:    "Remote interaction service call latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"command"})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engagement_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "engagement_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// ActivePostWatchers is the number of open post event sockets.
	ActivePostWatchers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "engagement_active_post_watchers",
		Help: "Number of open WebSocket connections watching a post",
	})

	// WebSocketBackpressureDrops counts events dropped for slow sockets.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engagement_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"reason"})

	// PostEventsPublished counts realtime post events by type.
	PostEventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engagement_post_events_published_total",
		Help: "Total number of post events published",
	}, []string{"event_type"})
)

// RecordCommand increments the command counter.
func RecordCommand(command, outcome string) {
	CommandsTotal.WithLabelValues(command, outcome).Inc()
}

// RecordRollback increments the rollback counter.
func RecordRollback(command string) {
	RollbacksTotal.WithLabelValues(command).Inc()
}

// TrackRemoteCall returns a function that records remote call latency when called (e.g. defer).
func TrackRemoteCall(command string) func() {
	start := time.Now()
	return func() {
		RemoteCallLatency.WithLabelValues(command).Observe(time.Since(start).Seconds())
	}
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
