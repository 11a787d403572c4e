// Package resource samples CPU and memory utilization and turns a guardrail
// policy into a memory budget for model loads.
package resource

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultInterval = 2 * time.Second

// ErrUnsupported is returned by samplers on platforms without a counter source.
var ErrUnsupported = errors.New("resource sampling not supported on this platform")

// Counters are raw cumulative readings. CPU values are in any consistent
// tick unit; only deltas matter.
type Counters struct {
	CPUBusy          float64
	CPUTotal         float64
	UsedMemoryBytes  uint64
	TotalMemoryBytes uint64
}

// Sampler reads raw counters from the host.
type Sampler interface {
	Read() (Counters, error)
}

// Sample is one processed measurement.
type Sample struct {
	CPUPercent       float64
	UsedMemoryBytes  uint64
	TotalMemoryBytes uint64
	At               time.Time
}

// MemoryPercent returns used/total as a percentage.
func (s Sample) MemoryPercent() float64 {
	if s.TotalMemoryBytes == 0 {
		return 0
	}
	return float64(s.UsedMemoryBytes) * 100 / float64(s.TotalMemoryBytes)
}

// Config configures a Monitor.
type Config struct {
	Sampler  Sampler
	Interval time.Duration
	Logger   zerolog.Logger
}

// Monitor keeps the latest host sample.
type Monitor struct {
	sampler  Sampler
	interval time.Duration
	log      zerolog.Logger

	mu     sync.RWMutex
	prev   *Counters
	latest Sample
}

// NewMonitor builds a Monitor; a nil sampler uses the platform sampler.
func NewMonitor(cfg Config) *Monitor {
	m := &Monitor{sampler: cfg.Sampler, interval: cfg.Interval, log: cfg.Logger}
	if m.sampler == nil {
		m.sampler = NewHostSampler()
	}
	if m.interval <= 0 {
		m.interval = defaultInterval
	}
	return m
}

// SampleNow reads counters once and updates the latest sample. CPU percent
// is the busy-tick delta over the total-tick delta since the previous read;
// the first read has no delta and reports 0.
func (m *Monitor) SampleNow() (Sample, error) {
	c, err := m.sampler.Read()
	if err != nil {
		return Sample{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var cpu float64
	if m.prev != nil {
		dBusy := c.CPUBusy - m.prev.CPUBusy
		dTotal := c.CPUTotal - m.prev.CPUTotal
		if dTotal > 0 && dBusy >= 0 {
			cpu = dBusy * 100 / dTotal
		}
	}
	m.prev = &c
	m.latest = Sample{
		CPUPercent:       cpu,
		UsedMemoryBytes:  c.UsedMemoryBytes,
		TotalMemoryBytes: c.TotalMemoryBytes,
		At:               time.Now(),
	}
	observe(m.latest)
	return m.latest, nil
}

// Latest returns the most recent sample (zero value before the first one).
func (m *Monitor) Latest() Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}

// Run samples on a fixed interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	if _, err := m.SampleNow(); err != nil {
		m.log.Warn().Str("event", "sample_error").Err(err).Msg("resource sample failed")
	}
	t := time.NewTicker(m.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if _, err := m.SampleNow(); err != nil {
				m.log.Debug().Str("event", "sample_error").Err(err).Msg("resource sample failed")
			}
		}
	}
}

// Admit checks requiredBytes against the policy using the latest total
// memory reading, sampling once if nothing has been read yet. When total
// memory cannot be determined the load is allowed.
func (m *Monitor) Admit(requiredBytes uint64, p Policy) Decision {
	total := m.Latest().TotalMemoryBytes
	if total == 0 {
		if s, err := m.SampleNow(); err == nil {
			total = s.TotalMemoryBytes
		}
	}
	if total == 0 {
		m.log.Warn().Str("event", "admit_unknown_total").Msg("total memory unknown; admitting load")
		return Decision{Allowed: true}
	}
	return Admit(requiredBytes, total, p)
}
