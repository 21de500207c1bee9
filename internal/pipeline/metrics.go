package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsrag_queries_total",
		Help: "Queries processed, by operation and outcome.",
	}, []string{"op", "outcome"})

	conversationWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsrag_conversation_write_failures_total",
		Help: "Best-effort conversation appends that failed and were dropped.",
	})
)
