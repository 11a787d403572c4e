package manager

import (
	"context"
	"fmt"

	"localassist/internal/catalog"
)

// Prefetch downloads d's files without activating it. LoadState is left
// alone; progress is reported through Progress, observers and events.
// It is a no-op when the runtime needs no files or d is installed.
func (m *Manager) Prefetch(ctx context.Context, d catalog.Descriptor) error {
	m.trMu.Lock()
	defer m.trMu.Unlock()
	if !m.cfg.Runtime.RequiresFiles() || m.cfg.Store == nil || m.cfg.Store.Installed(d) {
		return nil
	}
	tctx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()
	defer func() {
		cancel()
		m.mu.Lock()
		m.cancel = nil
		m.mu.Unlock()
	}()

	m.log.Info().Str("event", "prefetch_start").Str("model", d.Name).Msg("prefetch")
	if err := m.download(tctx, d, false); err != nil {
		m.notify()
		if tctx.Err() != nil {
			m.publish(EventCanceled, d.Name, nil)
			return tctx.Err()
		}
		m.publish(EventDownloadFailed, d.Name, map[string]any{"error": err.Error()})
		m.log.Error().Str("event", EventDownloadFailed).Str("model", d.Name).Err(err).Msg("prefetch failed")
		return fmt.Errorf("%w: %w", ErrDownload, err)
	}
	return nil
}

// Cancel aborts the in-flight download or load, if any. It reports whether
// a transition was running.
func (m *Manager) Cancel() bool {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()
	if cancel == nil {
		return false
	}
	cancel()
	return true
}
