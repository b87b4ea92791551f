package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsProcessed counts engine operations by type and outcome.
	OperationsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reward_ledger_operations_total",
		Help: "Operations processed by the engine, by type and status.",
	}, []string{"type", "status"})

	// OperationDuration measures end-to-end engine processing latency.
	OperationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reward_ledger_operation_duration_seconds",
		Help:    "Engine processing latency per operation.",
		Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14),
	})

	// NotificationsDropped counts envelopes dropped from the full
	// projection channel. Projections catch up from the log, so a drop
	// is lag, not loss.
	NotificationsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reward_ledger_notifications_dropped_total",
		Help: "Envelopes dropped because the projection channel was full.",
	})

	// PersistQueueDepth tracks the persist channel backlog.
	PersistQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reward_ledger_persist_queue_depth",
		Help: "Envelopes waiting to be written to the reward log.",
	})

	// PersistFlushRetries counts failed log-flush attempts.
	PersistFlushRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reward_ledger_persist_flush_retries_total",
		Help: "Reward log flush attempts that failed and were retried.",
	})

	// CurrentSequence exports the engine's last committed sequence.
	CurrentSequence = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reward_ledger_sequence",
		Help: "Last committed engine sequence number.",
	})

	// RewardRate exports the live streaming rate.
	RewardRate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reward_ledger_reward_rate",
		Help: "Current reward streaming rate in units per second.",
	})

	// PeriodFinishAt exports the unix second the current period ends.
	PeriodFinishAt = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reward_ledger_period_finish_at",
		Help: "Unix timestamp at which the current period ends.",
	})

	// UnallocatedShares exports the sink's share balance.
	UnallocatedShares = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reward_ledger_unallocated_shares",
		Help: "Shares currently held by the sink.",
	})

	// IdempotencyHits counts duplicate operations by detection tier.
	IdempotencyHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reward_ledger_idempotency_hits_total",
		Help: "Duplicate operations rejected, by detection tier.",
	}, []string{"tier"})

	// ProjectionSequence exports the last sequence applied by the
	// projection worker.
	ProjectionSequence = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reward_ledger_projection_sequence",
		Help: "Last sequence applied to read-side projections.",
	})

	// SnapshotDuration measures full-state snapshot latency.
	SnapshotDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reward_ledger_snapshot_duration_seconds",
		Help:    "Time to capture and persist a full state snapshot.",
		Buckets: prometheus.DefBuckets,
	})
)
