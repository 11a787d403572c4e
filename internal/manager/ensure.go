package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"localassist/internal/catalog"
	"localassist/internal/download"
)

// Select makes d the active model: admission, download when files are
// missing, then load. A concurrent transition is waited for first.
// Guardrail denial and failures leave LoadState Failed; cancellation leaves
// it Idle.
func (m *Manager) Select(ctx context.Context, d catalog.Descriptor) error {
	m.trMu.Lock()
	defer m.trMu.Unlock()
	return m.selectLocked(ctx, d)
}

// SwitchTo unloads the current model (best-effort) and selects d.
func (m *Manager) SwitchTo(ctx context.Context, d catalog.Descriptor) error {
	m.trMu.Lock()
	defer m.trMu.Unlock()
	if cur := m.State(); cur.Phase == PhaseLoaded && cur.Model == d.Name {
		return nil
	}
	m.log.Info().Str("event", "switch_start").Str("model", d.Name).Str("from", m.State().Model).Msg("switching model")
	m.release()
	return m.selectLocked(ctx, d)
}

// EnsureLoaded reloads the last selected descriptor when no session is live.
func (m *Manager) EnsureLoaded(ctx context.Context) (catalog.Descriptor, error) {
	m.trMu.Lock()
	defer m.trMu.Unlock()
	m.mu.RLock()
	sel := m.selected
	live := m.session != nil && m.state.Phase == PhaseLoaded
	loaded := m.loaded
	m.mu.RUnlock()
	if live {
		return loaded, nil
	}
	if sel == nil {
		return catalog.Descriptor{}, ErrNoSelection
	}
	d := *sel
	return d, m.selectLocked(ctx, d)
}

func (m *Manager) selectLocked(ctx context.Context, d catalog.Descriptor) error {
	start := time.Now()
	m.mu.Lock()
	sel := d
	m.selected = &sel
	same := m.session != nil && m.loaded.Name == d.Name && m.state.Phase == PhaseLoaded
	m.mu.Unlock()
	if same {
		return nil
	}
	m.log.Info().Str("event", EventSelectStart).Str("model", d.Name).Msg("select")
	m.publish(EventSelectStart, d.Name, nil)
	m.release()

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

	required := uint64(0)
	if d.SizeBytes > 0 {
		required = uint64(d.SizeBytes)
	}
	if m.cfg.Admitter != nil {
		dec := m.cfg.Admitter.Admit(required, m.cfg.Policy())
		if !dec.Allowed {
			m.log.Warn().Str("event", EventGuardrailDeny).Str("model", d.Name).Str("reason", dec.Reason).Msg("load denied")
			m.publish(EventGuardrailDeny, d.Name, map[string]any{"reason": dec.Reason, "budget_bytes": dec.BudgetBytes})
			m.setState(LoadState{Phase: PhaseFailed, Model: d.Name, Reason: dec.Reason})
			return fmt.Errorf("%w: %s", ErrGuardrail, dec.Reason)
		}
	}

	path := ""
	if m.cfg.Runtime.RequiresFiles() {
		if m.cfg.Store == nil {
			return m.fail(d, ErrLoad, errors.New("no model store configured"))
		}
		if !m.cfg.Store.Installed(d) {
			if err := m.download(tctx, d, true); err != nil {
				if tctx.Err() != nil {
					return m.canceled(d, tctx.Err())
				}
				m.publish(EventDownloadFailed, d.Name, map[string]any{"error": err.Error()})
				return m.fail(d, ErrDownload, err)
			}
		}
		path = m.cfg.Store.Path(d)
	}

	m.publish(EventLoadStart, d.Name, nil)
	m.setState(LoadState{Phase: PhaseLoading, Model: d.Name})
	sess, err := m.cfg.Runtime.Load(tctx, d, path)
	if err == nil && tctx.Err() != nil {
		_ = sess.Close()
		err = tctx.Err()
	}
	if err != nil {
		if tctx.Err() != nil {
			return m.canceled(d, tctx.Err())
		}
		m.publish(EventLoadFailed, d.Name, map[string]any{"error": err.Error()})
		return m.fail(d, ErrLoad, err)
	}

	m.mu.Lock()
	m.session = sess
	m.loaded = d
	m.mu.Unlock()
	m.setState(LoadState{Phase: PhaseLoaded, Model: d.Name})
	dur := time.Since(start)
	loadSeconds.Observe(dur.Seconds())
	m.log.Info().Str("event", EventLoadReady).Str("model", d.Name).Dur("dur", dur).Msg("model loaded")
	m.publish(EventLoadReady, d.Name, map[string]any{"dur_ms": int(dur / time.Millisecond)})
	return nil
}

// download fetches d's files. When active, progress is mirrored into the
// Downloading LoadState.
func (m *Manager) download(ctx context.Context, d catalog.Descriptor, active bool) error {
	if m.cfg.Fetcher == nil {
		return errors.New("no downloader configured")
	}
	tr := download.NewTracker(d.Name, m.cfg.ProgressEvery, func(r download.Report) {
		m.mu.Lock()
		fresh := m.progress.ID != r.ID
		m.progress = Progress{ID: r.ID, Model: r.Model, Fraction: r.Fraction, Active: r.Fraction < 1}
		m.mu.Unlock()
		if fresh {
			m.log.Info().Str("event", EventDownloadStart).Str("model", d.Name).Str("download_id", r.ID).Msg("download started")
			m.publish(EventDownloadStart, d.Name, map[string]any{"download_id": r.ID})
		}
		if active {
			m.setState(LoadState{Phase: PhaseDownloading, Model: d.Name, Fraction: r.Fraction, DownloadID: r.ID})
		} else {
			m.notify()
		}
	})
	if err := m.cfg.Fetcher.Fetch(ctx, m.cfg.Store, d, tr.Report); err != nil {
		m.mu.Lock()
		m.progress.Active = false
		m.progress.Err = err.Error()
		m.mu.Unlock()
		return err
	}
	tr.Done()
	m.publish(EventDownloadDone, d.Name, map[string]any{"download_id": tr.ID()})
	return nil
}

func (m *Manager) fail(d catalog.Descriptor, kind, err error) error {
	reason := fmt.Sprintf("%v: %v", kind, err)
	m.log.Error().Str("event", "select_failed").Str("model", d.Name).Err(err).Msg(kind.Error())
	m.setState(LoadState{Phase: PhaseFailed, Model: d.Name, Reason: reason})
	return fmt.Errorf("%w: %w", kind, err)
}

func (m *Manager) canceled(d catalog.Descriptor, err error) error {
	m.log.Info().Str("event", EventCanceled).Str("model", d.Name).Msg("transition canceled")
	m.publish(EventCanceled, d.Name, nil)
	m.mu.Lock()
	m.progress.Active = false
	m.mu.Unlock()
	m.setState(LoadState{Phase: PhaseIdle})
	return err
}
