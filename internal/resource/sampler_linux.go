//go:build linux

package resource

import (
	"errors"

	"github.com/prometheus/procfs"
)

type procSampler struct {
	fs  procfs.FS
	err error
}

// NewHostSampler reads /proc/stat and /proc/meminfo.
func NewHostSampler() Sampler {
	fs, err := procfs.NewDefaultFS()
	return &procSampler{fs: fs, err: err}
}

func (s *procSampler) Read() (Counters, error) {
	if s.err != nil {
		return Counters{}, s.err
	}
	st, err := s.fs.Stat()
	if err != nil {
		return Counters{}, err
	}
	mi, err := s.fs.Meminfo()
	if err != nil {
		return Counters{}, err
	}
	cpu := st.CPUTotal
	idle := cpu.Idle + cpu.Iowait
	busy := cpu.User + cpu.Nice + cpu.System + cpu.IRQ + cpu.SoftIRQ + cpu.Steal
	if mi.MemTotal == nil {
		return Counters{}, errors.New("meminfo: MemTotal missing")
	}
	total := *mi.MemTotal * 1024
	var avail uint64
	switch {
	case mi.MemAvailable != nil:
		avail = *mi.MemAvailable * 1024
	case mi.MemFree != nil:
		avail = *mi.MemFree * 1024
	}
	var used uint64
	if total > avail {
		used = total - avail
	}
	return Counters{
		CPUBusy:          busy,
		CPUTotal:         busy + idle,
		UsedMemoryBytes:  used,
		TotalMemoryBytes: total,
	}, nil
}
