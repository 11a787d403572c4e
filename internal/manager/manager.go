package manager

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"localassist/internal/catalog"
	"localassist/internal/runtime"
)

// Manager owns the single active model session.
type Manager struct {
	cfg       Config
	log       zerolog.Logger
	publisher EventPublisher

	// trMu serializes transitions; held for the whole of Select/Prefetch.
	trMu sync.Mutex

	mu        sync.RWMutex
	state     LoadState
	session   runtime.Session
	loaded    catalog.Descriptor
	selected  *catalog.Descriptor
	cancel    context.CancelFunc
	progress  Progress
	observers []func(LoadState)
}

// SetEventPublisher replaces the event sink.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	m.mu.Lock()
	m.publisher = p
	m.mu.Unlock()
}

// OnStateChange registers fn to run after every LoadState replacement and
// progress report. fn runs on the transitioning goroutine and must not block.
func (m *Manager) OnStateChange(fn func(LoadState)) {
	m.mu.Lock()
	m.observers = append(m.observers, fn)
	m.mu.Unlock()
}

// State returns the current LoadState.
func (m *Manager) State() LoadState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Progress returns the latest download progress.
func (m *Manager) Progress() Progress {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.progress
}

// Ready reports whether a session is loaded.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session != nil && m.state.Phase == PhaseLoaded
}

// Selected returns the most recently selected descriptor.
func (m *Manager) Selected() (catalog.Descriptor, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.selected == nil {
		return catalog.Descriptor{}, false
	}
	return *m.selected, true
}

// Session returns the live session and its descriptor.
func (m *Manager) Session() (runtime.Session, catalog.Descriptor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil || m.state.Phase != PhaseLoaded {
		return nil, catalog.Descriptor{}, ErrModelNotReady
	}
	return m.session, m.loaded, nil
}

func (m *Manager) setState(s LoadState) {
	m.mu.Lock()
	m.state = s
	obs := append([]func(LoadState){}, m.observers...)
	m.mu.Unlock()
	transitions.WithLabelValues(string(s.Phase)).Inc()
	for _, fn := range obs {
		fn(s)
	}
}

func (m *Manager) notify() {
	m.mu.RLock()
	s := m.state
	obs := append([]func(LoadState){}, m.observers...)
	m.mu.RUnlock()
	for _, fn := range obs {
		fn(s)
	}
}

func (m *Manager) publish(name, model string, fields map[string]any) {
	if fields == nil {
		fields = map[string]any{}
	}
	m.mu.RLock()
	pub := m.publisher
	m.mu.RUnlock()
	pub.Publish(Event{Name: name, ModelID: model, Fields: fields})
}
