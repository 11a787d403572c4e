//go:build darwin

package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostSamplerReportsCPU(t *testing.T) {
	c, err := NewHostSampler().Read()
	require.NoError(t, err)
	assert.Greater(t, c.CPUTotal, 0.0)
	assert.LessOrEqual(t, c.CPUBusy, c.CPUTotal)
	assert.Greater(t, c.TotalMemoryBytes, uint64(0))
}
