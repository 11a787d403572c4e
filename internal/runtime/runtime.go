// Package runtime defines how model weights are loaded into a generation
// session, with concrete runtimes for in-process llama.cpp and for remote
// OpenAI-compatible endpoints.
package runtime

import (
	"context"
	"errors"

	"localassist/internal/catalog"
	"localassist/pkg/types"
)

// Runtime loads a model into a session.
type Runtime interface {
	// Load prepares a session for the model. path is the weights file and is
	// empty when RequiresFiles reports false. Implementations must return
	// promptly once ctx is canceled.
	Load(ctx context.Context, d catalog.Descriptor, path string) (Session, error)
	// RequiresFiles reports whether model files must be present locally.
	RequiresFiles() bool
}

// Session represents a loaded model.
type Session interface {
	// Generate streams tokens for the conversation. onToken is invoked for
	// each token; a non-nil return stops generation and is returned as-is.
	// Implementations must return when the context is canceled.
	Generate(ctx context.Context, turns []types.PromptTurn, params Params, onToken func(string) error) (FinalResult, error)
	// Close releases any resources associated with the session.
	Close() error
}

// Params captures generation parameters passed to the session.
type Params struct {
	Temperature   float32
	TopP          float32
	TopK          int
	MaxTokens     int
	Stop          []string
	Seed          int
	RepeatPenalty float32
}

// defaultContextSize bounds an unlimited completion when no context size is
// configured.
const defaultContextSize = 2048

// tokenBudget returns the completion cap for a local model. A non-positive
// maxTokens means unlimited, which the context window bounds.
func tokenBudget(maxTokens, ctxSize int) int {
	switch {
	case maxTokens > 0:
		return maxTokens
	case ctxSize > 0:
		return ctxSize
	default:
		return defaultContextSize
	}
}

// FinalResult summarizes the generation after streaming.
type FinalResult struct {
	Content      string
	Usage        Usage
	FinishReason string
}

// Usage contains token accounting.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// dependencyUnavailableError signals a missing runtime dependency (e.g. a
// binary built without llama support) so callers can report it distinctly.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing runtime dependency.
func IsDependencyUnavailable(err error) bool {
	var d dependencyUnavailableError
	return errors.As(err, &d)
}

// LlamaBuilt reports whether the binary includes the in-process llama runtime.
func LlamaBuilt() bool { return llamaBuilt }
