package resource

import "github.com/prometheus/client_golang/prometheus"

var (
	cpuPercent = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "localassist",
		Subsystem: "resource",
		Name:      "cpu_percent",
		Help:      "Host CPU utilization between the last two samples",
	})
	memoryUsed = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "localassist",
		Subsystem: "resource",
		Name:      "memory_used_bytes",
		Help:      "Host memory in use",
	})
	memoryTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "localassist",
		Subsystem: "resource",
		Name:      "memory_total_bytes",
		Help:      "Host physical memory",
	})
)

func init() {
	prometheus.MustRegister(cpuPercent, memoryUsed, memoryTotal)
}

func observe(s Sample) {
	cpuPercent.Set(s.CPUPercent)
	memoryUsed.Set(float64(s.UsedMemoryBytes))
	memoryTotal.Set(float64(s.TotalMemoryBytes))
}
