//go:build !linux && !darwin

package resource

type unsupportedSampler struct{}

// NewHostSampler returns a sampler that always fails on this platform.
func NewHostSampler() Sampler { return unsupportedSampler{} }

func (unsupportedSampler) Read() (Counters, error) { return Counters{}, ErrUnsupported }
