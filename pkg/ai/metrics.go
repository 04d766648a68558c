package ai

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	completionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sae",
		Subsystem: "ai",
		Name:      "completion_duration_seconds",
		Help:      "Duration of AI feedback completion requests",
	}, []string{"provider", "model"})

	completionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sae",
		Subsystem: "ai",
		Name:      "completion_failures_total",
		Help:      "Number of AI feedback completion failures",
	}, []string{"provider", "model"})
)
