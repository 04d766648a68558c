package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce      sync.Once
	requestsTotal     *prometheus.CounterVec
	latencySeconds    *prometheus.HistogramVec
	errorsTotal       *prometheus.CounterVec
	feedbackDurations *prometheus.HistogramVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sae_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		latencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sae_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sae_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		feedbackDurations = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sae_feedback_generation_seconds",
			Help:    "Wall time spent generating AI feedback per provider.",
			Buckets: []float64{1, 2.5, 5, 10, 20, 40, 80},
		}, []string{"provider"})

		prometheus.MustRegister(requestsTotal, latencySeconds, errorsTotal, feedbackDurations)
	})
}

// Requests exposes the counter for API requests.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsTotal
}

// Latency exposes the latency histogram for API requests.
func Latency() *prometheus.HistogramVec {
	RegisterMetrics()
	return latencySeconds
}

// Errors exposes the counter for API error responses.
func Errors() *prometheus.CounterVec {
	RegisterMetrics()
	return errorsTotal
}

// FeedbackDuration exposes the histogram of AI feedback generation times.
func FeedbackDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return feedbackDurations
}
