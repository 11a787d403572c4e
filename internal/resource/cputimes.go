package resource

import "github.com/shirou/gopsutil/v4/cpu"

// cpuTimeCounters splits cumulative CPU seconds into busy and total, counting
// iowait as idle the way /proc/stat sampling does.
func cpuTimeCounters(t cpu.TimesStat) (busy, total float64) {
	idle := t.Idle + t.Iowait
	busy = t.User + t.Nice + t.System + t.Irq + t.Softirq + t.Steal
	return busy, busy + idle
}
