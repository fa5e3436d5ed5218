package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Realtime metrics
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "closedesk_connections_active",
			Help: "Currently connected realtime sessions",
		},
	)

	EventsRouted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "closedesk_events_routed_total",
			Help: "Realtime events routed, by room kind",
		},
		[]string{"room_kind"}, // "role", "user" or "task"
	)

	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "closedesk_events_dropped_total",
			Help: "Events dropped because a client send buffer was full",
		},
	)

	ForwardsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "closedesk_forwards_dropped_total",
			Help: "Events not forwarded because the forward queue was full",
		},
	)

	// Lifecycle metrics
	TransitionsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "closedesk_transitions_total",
			Help: "Accepted transaction status transitions",
		},
		[]string{"to_status"},
	)

	TransitionConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "closedesk_transition_conflicts_total",
			Help: "Transitions rejected by the optimistic-concurrency check",
		},
	)

	TasksCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "closedesk_tasks_completed_total",
			Help: "Tasks moved to completed",
		},
	)

	MessagesPosted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "closedesk_messages_posted_total",
			Help: "Task messages posted",
		},
	)

	// Automation metrics
	SweepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "closedesk_sweep_duration_seconds",
			Help:    "Automation sweep duration",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"job"}, // "reminders" or "risk"
	)

	RemindersSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "closedesk_reminders_sent_total",
			Help: "Pending-document reminder emails sent",
		},
	)

	AtRiskDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "closedesk_at_risk_detected_total",
			Help: "Transactions flagged at risk of missing their closing date",
		},
	)

	NotificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "closedesk_notification_failures_total",
			Help: "Outbound email failures, by kind",
		},
		[]string{"kind"}, // "status_change", "reminder" or "risk_alert"
	)
)
