package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/uca-sae/sae-go-api/pkg/lti"
)

var launchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "sae",
	Subsystem: "lti",
	Name:      "launches_total",
	Help:      "LTI launches processed, by launcher role.",
}, []string{"role"})

func recordLaunch(launch lti.Launch) {
	role := "student"
	switch {
	case launch.IsInstructor():
		role = "instructor"
	case launch.IsAdmin():
		role = "admin"
	}
	launchesTotal.WithLabelValues(role).Inc()
}
