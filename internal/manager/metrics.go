package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	transitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "localassist",
		Subsystem: "manager",
		Name:      "transitions_total",
		Help:      "Load state transitions by target phase",
	}, []string{"phase"})
	loadSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "localassist",
		Subsystem: "manager",
		Name:      "select_seconds",
		Help:      "Duration of successful selections, including download and load",
		Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 1800},
	})
)

func init() {
	prometheus.MustRegister(transitions, loadSeconds)
}
