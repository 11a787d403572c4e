package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	// ErrUnknownTool is returned for calls naming no registered capability.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrInvalidParameters is returned when a required parameter is missing
	// or has the wrong type.
	ErrInvalidParameters = errors.New("invalid parameters")
	// ErrToolFailed wraps errors returned by a capability.
	ErrToolFailed = errors.New("tool failed")
	// ErrUnavailable is returned by capabilities whose backend is not configured.
	ErrUnavailable = errors.New("capability unavailable")
)

// Capability is a host function the model may call.
type Capability interface {
	Name() string
	// Required lists the parameters that must be present.
	Required() []string
	Execute(ctx context.Context, p Params) (string, error)
}

// Result is the outcome of one call. Err is nil on success.
type Result struct {
	ID     string
	Name   string
	Output string
	Err    error
}

// Text is the string spliced into the conversation.
func (r Result) Text() string {
	if r.Err != nil {
		return "Error: " + r.Err.Error()
	}
	return r.Output
}

// Dispatcher routes calls to registered capabilities.
type Dispatcher struct {
	mu   sync.RWMutex
	caps map[string]Capability
	log  zerolog.Logger
}

// NewDispatcher registers caps; later registrations replace earlier ones.
func NewDispatcher(log zerolog.Logger, caps ...Capability) *Dispatcher {
	d := &Dispatcher{caps: make(map[string]Capability, len(caps)), log: log}
	for _, c := range caps {
		d.Register(c)
	}
	return d
}

// Register adds or replaces a capability.
func (d *Dispatcher) Register(c Capability) {
	d.mu.Lock()
	d.caps[c.Name()] = c
	d.mu.Unlock()
}

// Names lists registered capabilities in sorted order.
func (d *Dispatcher) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.caps))
	for n := range d.caps {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Execute runs one call. Errors are carried in the Result; they never abort
// the caller.
func (d *Dispatcher) Execute(ctx context.Context, c Call) Result {
	res := Result{ID: c.ID, Name: c.Name}
	d.mu.RLock()
	capb, ok := d.caps[c.Name]
	d.mu.RUnlock()
	if !ok {
		res.Err = fmt.Errorf("%w: %s", ErrUnknownTool, c.Name)
		d.log.Warn().Str("event", "tool_unknown").Str("tool", c.Name).Str("id", c.ID).Msg("unknown tool")
		return res
	}
	for _, key := range capb.Required() {
		if !c.Params.Has(key) {
			res.Err = fmt.Errorf("%w: %s requires %q", ErrInvalidParameters, c.Name, key)
			d.log.Warn().Str("event", "tool_invalid_params").Str("tool", c.Name).Str("id", c.ID).Str("param", key).Msg("missing parameter")
			return res
		}
	}
	out, err := capb.Execute(ctx, c.Params)
	switch {
	case err == nil:
		res.Output = out
		d.log.Debug().Str("event", "tool_done").Str("tool", c.Name).Str("id", c.ID).Msg("tool executed")
	case errors.Is(err, ErrInvalidParameters):
		res.Err = err
	default:
		res.Err = fmt.Errorf("%w: %s: %w", ErrToolFailed, c.Name, err)
		d.log.Warn().Str("event", "tool_failed").Str("tool", c.Name).Str("id", c.ID).Err(err).Msg("tool failed")
	}
	return res
}

// Render executes every directive in text in source order and returns the
// text with each block replaced by its result.
func (d *Dispatcher) Render(ctx context.Context, text string) (string, []Result) {
	segs := Parse(text)
	var (
		b       strings.Builder
		results []Result
	)
	for _, s := range segs {
		if s.Call == nil {
			b.WriteString(s.Text)
			continue
		}
		r := d.Execute(ctx, *s.Call)
		results = append(results, r)
		b.WriteString(r.Text())
	}
	return b.String(), results
}

// Reconstruct joins segments, substituting results for calls in order.
// It is the inverse of Parse when results echo the original blocks.
func Reconstruct(segs []Segment, results []string) string {
	var b strings.Builder
	k := 0
	for _, s := range segs {
		if s.Call == nil {
			b.WriteString(s.Text)
			continue
		}
		if k < len(results) {
			b.WriteString(results[k])
		}
		k++
	}
	return b.String()
}
