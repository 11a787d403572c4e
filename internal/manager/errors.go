package manager

import "errors"

var (
	// ErrGuardrail is returned when admission denies a load.
	ErrGuardrail = errors.New("guardrail denied load")
	// ErrDownload wraps download failures.
	ErrDownload = errors.New("download failed")
	// ErrLoad wraps runtime load failures.
	ErrLoad = errors.New("load failed")
	// ErrModelNotReady is returned when no session is loaded.
	ErrModelNotReady = errors.New("model not ready")
	// ErrNoSelection is returned by EnsureLoaded before any Select.
	ErrNoSelection = errors.New("no model selected")
)

// IsGuardrail reports whether err is a guardrail denial (HTTP 422).
func IsGuardrail(err error) bool { return errors.Is(err, ErrGuardrail) }

// IsModelNotReady reports whether err means no model is loaded.
func IsModelNotReady(err error) bool {
	return errors.Is(err, ErrModelNotReady) || errors.Is(err, ErrNoSelection)
}

// IsDownload reports whether err is a download failure.
func IsDownload(err error) bool { return errors.Is(err, ErrDownload) }

// IsLoad reports whether err is a load failure.
func IsLoad(err error) bool { return errors.Is(err, ErrLoad) }
