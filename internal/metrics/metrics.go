// Package metrics holds the prometheus collectors of both bots.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpdatesTotal counts inbound events by bot and event kind.
	UpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "familybudget_updates_total",
		Help: "Inbound telegram events processed.",
	}, []string{"bot", "kind"})

	// HandlerErrors counts events whose handler failed or panicked.
	HandlerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "familybudget_handler_errors_total",
		Help: "Events whose handler returned an error.",
	}, []string{"bot", "kind"})

	// RateLimited counts events dropped by the per-user limiter.
	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "familybudget_rate_limited_total",
		Help: "Inbound events rejected by the per-user rate limiter.",
	})

	TransactionsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "familybudget_transactions_created_total",
		Help: "Expenses and incomes recorded.",
	}, []string{"kind"})

	SummariesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "familybudget_monthly_summaries_sent_total",
		Help: "Monthly summaries delivered, one per user and family.",
	})

	SummariesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "familybudget_monthly_summaries_failed_total",
		Help: "Monthly summary deliveries that failed and will be retried.",
	})

	NotificationsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "familybudget_notifications_failed_total",
		Help: "Peer notifications that could not be delivered.",
	})

	SchedulerTickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "familybudget_scheduler_tick_seconds",
		Help:    "Duration of monthly summary scheduler ticks.",
		Buckets: prometheus.DefBuckets,
	})
)
