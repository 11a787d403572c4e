// Package orchestrator is the conversation façade: it composes the lifecycle
// manager, the generation engine and the tool dispatcher, serializes
// messages and publishes a single status value to subscribers.
package orchestrator

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"localassist/internal/catalog"
	"localassist/internal/engine"
	"localassist/internal/manager"
	"localassist/internal/registry"
	"localassist/internal/settings"
	"localassist/internal/tools"
	"localassist/pkg/types"
)

// ErrBusy is returned when a message is already being generated.
var ErrBusy = errors.New("a message is already in flight")

// IsBusy reports whether err is a busy rejection.
func IsBusy(err error) bool { return errors.Is(err, ErrBusy) || errors.Is(err, engine.ErrBusy) }

// Phase is the user-facing activity.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseDownloading Phase = "downloading"
	PhaseLoading     Phase = "loading"
	PhaseThinking    Phase = "thinking"
	PhaseGenerating  Phase = "generating"
	PhaseCancelled   Phase = "cancelled"
)

// Config wires the orchestrator's collaborators.
type Config struct {
	Catalog  *catalog.Catalog
	Store    *registry.Store
	Manager  *manager.Manager
	Engine   *engine.Engine
	Tools    *tools.Dispatcher
	Settings *settings.Service
	Logger   zerolog.Logger
}

// Orchestrator serializes conversation operations.
type Orchestrator struct {
	cat   *catalog.Catalog
	store *registry.Store
	mgr   *manager.Manager
	eng   *engine.Engine
	tools *tools.Dispatcher
	set   *settings.Service
	log   zerolog.Logger

	// busy is the single in-flight slot shared by sends and switches.
	// stopSend cancels the current send; it is nil during a switch.
	busyMu   sync.Mutex
	busy     bool
	stopSend context.CancelFunc

	mu         sync.Mutex
	generating bool
	genPhase   Phase
	lastOutput string
	status     types.Status
	subs       map[int]chan types.Status
	nextSub    int
}

// New builds an Orchestrator and starts tracking manager state changes.
func New(cfg Config) *Orchestrator {
	o := &Orchestrator{
		cat:   cfg.Catalog,
		store: cfg.Store,
		mgr:   cfg.Manager,
		eng:   cfg.Engine,
		tools: cfg.Tools,
		set:   cfg.Settings,
		log:   cfg.Logger,
		subs:  map[int]chan types.Status{},
	}
	o.mgr.OnStateChange(func(manager.LoadState) { o.refresh() })
	o.status = o.compute()
	return o
}

// Status returns the current status snapshot.
func (o *Orchestrator) Status() types.Status { return o.compute() }

// Subscribe returns a channel carrying status snapshots. The channel holds
// only the newest value, so slow readers skip intermediate states. The
// returned func unsubscribes and closes the channel.
func (o *Orchestrator) Subscribe() (<-chan types.Status, func()) {
	ch := make(chan types.Status, 1)
	o.mu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = ch
	ch <- o.status
	o.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.subs, id)
			close(ch)
			o.mu.Unlock()
		})
	}
}

// Models lists the catalog with install state.
func (o *Orchestrator) Models() []types.Model {
	all := o.cat.All()
	out := make([]types.Model, 0, len(all))
	for _, d := range all {
		out = append(out, types.Model{
			Name:        d.Name,
			DisplayName: d.DisplayName,
			Provider:    d.Provider,
			Category:    string(d.Category),
			SizeBytes:   d.SizeBytes,
			Installed:   o.store != nil && o.store.Installed(d),
		})
	}
	return out
}

// Ready reports whether a model is loaded.
func (o *Orchestrator) Ready() bool { return o.mgr.Ready() }

func (o *Orchestrator) compute() types.Status {
	ls := o.mgr.State()
	pr := o.mgr.Progress()
	o.mu.Lock()
	gen, gp, last := o.generating, o.genPhase, o.lastOutput
	o.mu.Unlock()

	st := types.Status{
		LoadPhase:  string(ls.Phase),
		Model:      ls.Model,
		Generating: gen,
		LastOutput: last,
		Progress:   pr.Fraction,
		DownloadID: pr.ID,
		Error:      ls.Reason,
	}
	switch {
	case gen:
		st.Phase = string(gp)
	case ls.Phase == manager.PhaseDownloading:
		st.Phase = string(PhaseDownloading)
		st.Progress = ls.Fraction
		st.DownloadID = ls.DownloadID
	case pr.Active:
		st.Phase = string(PhaseDownloading)
	case ls.Phase == manager.PhaseLoading:
		st.Phase = string(PhaseLoading)
	case gp == PhaseCancelled:
		st.Phase = string(PhaseCancelled)
	default:
		st.Phase = string(PhaseIdle)
	}
	if pr.Err != "" && st.Error == "" && !pr.Active {
		st.Error = pr.Err
	}
	return st
}

// refresh recomputes the status and hands it to every subscriber, replacing
// any value they have not read yet.
func (o *Orchestrator) refresh() {
	st := o.compute()
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status = st
	for _, ch := range o.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- st:
		default:
		}
	}
}

func (o *Orchestrator) setGen(generating bool, phase Phase, last *string) {
	o.mu.Lock()
	o.generating = generating
	o.genPhase = phase
	if last != nil {
		o.lastOutput = *last
	}
	o.mu.Unlock()
	o.refresh()
}

func newRequestID() string { return uuid.NewString() }
