package download

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Report is one progress observation.
type Report struct {
	ID       string
	Model    string
	Fraction float64
}

// Tracker turns raw fractions into a monotonic, rate-limited report stream
// for one download. A new tracker starts a new download id at fraction 0.
type Tracker struct {
	mu    sync.Mutex
	id    string
	model string
	last  float64
	done  bool
	lim   *rate.Limiter
	emit  func(Report)
}

// NewTracker emits the initial 0 report. every bounds the report rate;
// zero disables limiting.
func NewTracker(model string, every time.Duration, emit func(Report)) *Tracker {
	lim := rate.NewLimiter(rate.Inf, 1)
	if every > 0 {
		lim = rate.NewLimiter(rate.Every(every), 1)
	}
	t := &Tracker{id: uuid.NewString(), model: model, lim: lim, emit: emit}
	// consume the burst token with the start report
	lim.Allow()
	t.send(0)
	return t
}

// ID returns the download id.
func (t *Tracker) ID() string { return t.id }

// Last returns the last emitted fraction.
func (t *Tracker) Last() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// Report records a fraction. Values that would move backwards, values at or
// past completion, and reports over the rate limit are dropped. Reports are
// emitted under the tracker lock so concurrent callers cannot reorder them.
func (t *Tracker) Report(f float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done || f <= t.last || f >= 1 || !t.lim.Allow() {
		return
	}
	t.last = f
	t.send(f)
}

// Done emits the final 1.0 report once.
func (t *Tracker) Done() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	t.done = true
	t.last = 1
	t.send(1)
}

func (t *Tracker) send(f float64) {
	if t.emit != nil {
		t.emit(Report{ID: t.id, Model: t.model, Fraction: f})
	}
}
