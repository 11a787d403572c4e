// Package runtimetest provides a scripted runtime for tests.
package runtimetest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"localassist/internal/catalog"
	"localassist/internal/runtime"
	"localassist/pkg/types"
)

// Runtime is a scripted runtime.Runtime. Sessions emit Tokens in order.
type Runtime struct {
	mu sync.Mutex
	// Tokens emitted by every Generate call unless Script is set.
	Tokens []string
	// Script, when set, chooses tokens per call from the prompt turns.
	Script func(turns []types.PromptTurn) []string
	// LoadErr is returned by Load when non-nil.
	LoadErr error
	// GenErr is returned by Generate after FailAfter tokens when non-nil.
	GenErr    error
	FailAfter int
	// Files reports RequiresFiles.
	Files bool
	// LoadGate, when non-nil, blocks Load until closed or ctx ends.
	LoadGate chan struct{}
	// TokenGate, when non-nil, receives once before each token is emitted.
	TokenGate chan struct{}
	// CloseErr is returned by session Close when non-nil.
	CloseErr error

	loads    []string
	closed   int
	lastSeen []types.PromptTurn
}

var _ runtime.Runtime = (*Runtime)(nil)

// RequiresFiles implements runtime.Runtime.
func (r *Runtime) RequiresFiles() bool { return r.Files }

// Load implements runtime.Runtime.
func (r *Runtime) Load(ctx context.Context, d catalog.Descriptor, _ string) (runtime.Session, error) {
	if r.LoadGate != nil {
		select {
		case <-r.LoadGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.LoadErr != nil {
		return nil, r.LoadErr
	}
	r.loads = append(r.loads, d.Name)
	return &session{rt: r}, nil
}

// Loads returns the model names loaded so far.
func (r *Runtime) Loads() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.loads...)
}

// Closed returns how many sessions were closed.
func (r *Runtime) Closed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// LastTurns returns the turns seen by the most recent Generate call.
func (r *Runtime) LastTurns() []types.PromptTurn {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.PromptTurn(nil), r.lastSeen...)
}

// ErrFault is a convenience generation error.
var ErrFault = errors.New("runtime fault")

type session struct{ rt *Runtime }

func (s *session) Generate(ctx context.Context, turns []types.PromptTurn, _ runtime.Params, onToken func(string) error) (runtime.FinalResult, error) {
	s.rt.mu.Lock()
	s.rt.lastSeen = append([]types.PromptTurn(nil), turns...)
	toks := s.rt.Tokens
	if s.rt.Script != nil {
		toks = s.rt.Script(turns)
	}
	genErr, failAfter, gate := s.rt.GenErr, s.rt.FailAfter, s.rt.TokenGate
	s.rt.mu.Unlock()

	var sb strings.Builder
	for i, tok := range toks {
		if genErr != nil && i >= failAfter {
			return runtime.FinalResult{Content: sb.String()}, genErr
		}
		if gate != nil {
			select {
			case <-gate:
			case <-ctx.Done():
				return runtime.FinalResult{Content: sb.String()}, ctx.Err()
			}
		}
		if err := ctx.Err(); err != nil {
			return runtime.FinalResult{Content: sb.String()}, err
		}
		sb.WriteString(tok)
		if err := onToken(tok); err != nil {
			return runtime.FinalResult{Content: sb.String()}, err
		}
	}
	if genErr != nil {
		return runtime.FinalResult{Content: sb.String()}, genErr
	}
	return runtime.FinalResult{Content: sb.String(), FinishReason: "stop"}, nil
}

func (s *session) Close() error {
	s.rt.mu.Lock()
	s.rt.closed++
	err := s.rt.CloseErr
	s.rt.mu.Unlock()
	return err
}
