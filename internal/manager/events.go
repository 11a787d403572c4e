package manager

// Event represents a manager lifecycle event.
// Minimal and stable: name + model name and optional fields via key/values.
type Event struct {
	Name    string
	ModelID string
	Fields  map[string]any
}

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// Event names.
const (
	EventSelectStart    = "select_start"
	EventGuardrailDeny  = "guardrail_deny"
	EventDownloadStart  = "download_start"
	EventDownloadDone   = "download_done"
	EventDownloadFailed = "download_failed"
	EventLoadStart      = "load_start"
	EventLoadReady      = "load_ready"
	EventLoadFailed     = "load_failed"
	EventCanceled       = "transition_canceled"
	EventUnloadStart    = "unload_start"
	EventUnloadDone     = "unload_done"
	EventInvalidated    = "session_invalidated"
)
