package manager

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"localassist/internal/catalog"
	"localassist/internal/registry"
	"localassist/internal/resource"
	"localassist/internal/runtime"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultProgressEvery = 100 * time.Millisecond
)

// Admitter gates loads against the resource guardrail.
type Admitter interface {
	Admit(requiredBytes uint64, p resource.Policy) resource.Decision
}

// Fetcher downloads descriptor files into the store.
type Fetcher interface {
	Fetch(ctx context.Context, store *registry.Store, d catalog.Descriptor, onProgress func(float64)) error
}

// Config encapsulates all collaborators and tunables for Manager construction.
type Config struct {
	Store   *registry.Store
	Fetcher Fetcher
	Runtime runtime.Runtime
	// Admitter may be nil, in which case every load is admitted.
	Admitter Admitter
	// Policy returns the guardrail policy at admission time.
	Policy    func() resource.Policy
	Publisher EventPublisher
	Logger    zerolog.Logger
	// ProgressEvery bounds the download progress report rate. Zero uses the
	// default; a negative value disables limiting.
	ProgressEvery time.Duration
}

// New constructs a Manager from Config.
func New(cfg Config) *Manager {
	if cfg.ProgressEvery == 0 {
		cfg.ProgressEvery = defaultProgressEvery
	}
	if cfg.Policy == nil {
		cfg.Policy = func() resource.Policy { return resource.Policy{Level: resource.LevelBalanced} }
	}
	pub := cfg.Publisher
	if pub == nil {
		pub = noopPublisher{}
	}
	return &Manager{
		cfg:       cfg,
		log:       cfg.Logger,
		publisher: pub,
		state:     LoadState{Phase: PhaseIdle},
	}
}
