package manager

// Unload cancels any running transition, closes the session and returns to
// Idle. The selection is forgotten, so EnsureLoaded fails until the next
// Select.
func (m *Manager) Unload() {
	m.Cancel()
	m.trMu.Lock()
	defer m.trMu.Unlock()
	m.mu.Lock()
	m.selected = nil
	m.mu.Unlock()
	m.release()
	m.setState(LoadState{Phase: PhaseIdle})
}

// Invalidate drops a session that faulted during generation. The state
// becomes Failed and the next EnsureLoaded reloads the selection.
func (m *Manager) Invalidate(reason string) {
	m.mu.Lock()
	sess := m.session
	model := m.loaded.Name
	if sess == nil {
		m.mu.Unlock()
		return
	}
	m.session = nil
	m.mu.Unlock()
	if err := sess.Close(); err != nil {
		m.log.Warn().Str("event", "unload_error").Str("model", model).Err(err).Msg("close faulted session")
	}
	m.log.Warn().Str("event", EventInvalidated).Str("model", model).Str("reason", reason).Msg("session invalidated")
	m.publish(EventInvalidated, model, map[string]any{"reason": reason})
	m.setState(LoadState{Phase: PhaseFailed, Model: model, Reason: "session invalid: " + reason})
}

// release closes the current session. Close errors are logged, not returned.
func (m *Manager) release() {
	m.mu.Lock()
	sess := m.session
	model := m.loaded.Name
	m.session = nil
	m.mu.Unlock()
	if sess == nil {
		return
	}
	m.publish(EventUnloadStart, model, nil)
	if err := sess.Close(); err != nil {
		m.log.Warn().Str("event", "unload_error").Str("model", model).Err(err).Msg("unload failed; continuing")
	}
	m.setState(LoadState{Phase: PhaseIdle})
	m.publish(EventUnloadDone, model, nil)
}
