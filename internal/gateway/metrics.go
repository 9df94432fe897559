package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	webhookRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lineagent_webhook_requests_total",
		Help: "Webhook requests by result (ok, bad_signature, bad_payload).",
	}, []string{"result"})

	eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lineagent_events_dropped_total",
		Help: "Webhook events dropped because the inbound queue was full.",
	})

	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lineagent_turns_total",
		Help: "Completed turns by outcome (answer, no_answer, timeout, error).",
	}, []string{"outcome"})

	turnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lineagent_turn_duration_seconds",
		Help:    "Wall-clock duration of a turn including queueing in its lane.",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 90},
	})

	repliesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lineagent_replies_total",
		Help: "Reply outcomes by transport (reply, push, failed, dropped).",
	}, []string{"transport"})
)
