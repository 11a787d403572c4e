//go:build darwin

package resource

import (
	"errors"

	"github.com/shirou/gopsutil/v4/cpu"
	"golang.org/x/sys/unix"
)

// sysctlSampler reads memory via sysctl and aggregate CPU times via the
// host processor statistics.
type sysctlSampler struct{}

// NewHostSampler returns the sysctl-backed sampler.
func NewHostSampler() Sampler { return sysctlSampler{} }

func (sysctlSampler) Read() (Counters, error) {
	times, err := cpu.Times(false)
	if err != nil {
		return Counters{}, err
	}
	if len(times) == 0 {
		return Counters{}, errors.New("cpu times: no aggregate entry")
	}
	busy, all := cpuTimeCounters(times[0])

	total, err := unix.SysctlUint64("hw.memsize")
	if err != nil {
		return Counters{}, err
	}
	pageSize, err := unix.SysctlUint32("hw.pagesize")
	if err != nil {
		return Counters{}, err
	}
	free, err := unix.SysctlUint32("vm.page_free_count")
	if err != nil {
		return Counters{}, err
	}
	freeBytes := uint64(free) * uint64(pageSize)
	var used uint64
	if total > freeBytes {
		used = total - freeBytes
	}
	return Counters{CPUBusy: busy, CPUTotal: all, UsedMemoryBytes: used, TotalMemoryBytes: total}, nil
}
