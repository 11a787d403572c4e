package resource

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSampler struct {
	mu    sync.Mutex
	reads []Counters
	err   error
	n     int
}

func (f *fakeSampler) Read() (Counters, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return Counters{}, f.err
	}
	c := f.reads[len(f.reads)-1]
	if f.n < len(f.reads) {
		c = f.reads[f.n]
	}
	f.n++
	return c, nil
}

func TestResolvedPercentageTable(t *testing.T) {
	cases := []struct {
		p    Policy
		want int
	}{
		{Policy{Level: LevelOff}, 100},
		{Policy{Level: LevelRelaxed}, 80},
		{Policy{Level: LevelBalanced}, 60},
		{Policy{Level: LevelStrict}, 40},
		{Policy{Level: LevelCustom, CustomPercent: 73}, 73},
		{Policy{Level: LevelCustom, CustomPercent: 0}, 0},
		{Policy{Level: LevelCustom, CustomPercent: 150}, 100},
		{Policy{Level: LevelCustom, CustomPercent: -3}, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ResolvedPercentage(tc.p), "%+v", tc.p)
	}
}

func TestBudgetBytes(t *testing.T) {
	assert.Equal(t, uint64(6_400_000_000), BudgetBytes(Policy{Level: LevelStrict}, 16_000_000_000))
	assert.Equal(t, uint64(16_000_000_000), BudgetBytes(Policy{Level: LevelOff}, 16_000_000_000))
}

func TestAdmitDeniesOverBudgetUnlessOff(t *testing.T) {
	d := Admit(8_000_000_000, 16_000_000_000, Policy{Level: LevelStrict})
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "guardrail strict")

	assert.True(t, Admit(8_000_000_000, 16_000_000_000, Policy{Level: LevelBalanced}).Allowed)
	assert.True(t, Admit(32_000_000_000, 16_000_000_000, Policy{Level: LevelOff}).Allowed)
	assert.True(t, Admit(6_400_000_000, 16_000_000_000, Policy{Level: LevelStrict}).Allowed, "equal to budget fits")
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel(" Strict ")
	require.NoError(t, err)
	assert.Equal(t, LevelStrict, l)
	l, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, LevelBalanced, l)
	_, err = ParseLevel("extreme")
	assert.Error(t, err)
}

func TestSampleNowComputesCPUDelta(t *testing.T) {
	fs := &fakeSampler{reads: []Counters{
		{CPUBusy: 100, CPUTotal: 400, UsedMemoryBytes: 1, TotalMemoryBytes: 4},
		{CPUBusy: 150, CPUTotal: 500, UsedMemoryBytes: 2, TotalMemoryBytes: 4},
	}}
	m := NewMonitor(Config{Sampler: fs})

	first, err := m.SampleNow()
	require.NoError(t, err)
	assert.Zero(t, first.CPUPercent, "first sample has no delta")

	second, err := m.SampleNow()
	require.NoError(t, err)
	assert.InDelta(t, 50.0, second.CPUPercent, 0.001)
	assert.InDelta(t, 50.0, second.MemoryPercent(), 0.001)
	assert.Equal(t, second, m.Latest())
}

func TestCPUTimeCounters(t *testing.T) {
	busy, total := cpuTimeCounters(cpu.TimesStat{User: 10, System: 5, Nice: 1, Irq: 1, Softirq: 1, Steal: 2, Idle: 70, Iowait: 10})
	assert.InDelta(t, 20.0, busy, 0.001)
	assert.InDelta(t, 100.0, total, 0.001)
}

func TestMonitorAdmitScenarioStrict(t *testing.T) {
	fs := &fakeSampler{reads: []Counters{{TotalMemoryBytes: 16_000_000_000}}}
	m := NewMonitor(Config{Sampler: fs})
	d := m.Admit(8_000_000_000, Policy{Level: LevelStrict})
	assert.False(t, d.Allowed)
	assert.Equal(t, uint64(6_400_000_000), d.BudgetBytes)
}

func TestMonitorAdmitAllowsWhenTotalUnknown(t *testing.T) {
	m := NewMonitor(Config{Sampler: &fakeSampler{err: errors.New("no proc")}})
	assert.True(t, m.Admit(1<<40, Policy{Level: LevelStrict}).Allowed)
}

func TestRunSamplesUntilCanceled(t *testing.T) {
	fs := &fakeSampler{reads: []Counters{{TotalMemoryBytes: 10}}}
	m := NewMonitor(Config{Sampler: fs, Interval: 5 * time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	require.NoError(t, m.Run(ctx))
	fs.mu.Lock()
	n := fs.n
	fs.mu.Unlock()
	assert.GreaterOrEqual(t, n, 2)
	assert.Equal(t, uint64(10), m.Latest().TotalMemoryBytes)
}
