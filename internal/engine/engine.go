// Package engine runs one streaming generation pass against the loaded
// session, grouping tokens into batches with a cooperative cancel point at
// every batch boundary.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"localassist/internal/catalog"
	"localassist/internal/runtime"
	"localassist/pkg/types"
)

const (
	defaultBatchSize     = 1
	defaultFragmentEvery = 4
)

var (
	// ErrModelNotReady is returned when no session is loaded.
	ErrModelNotReady = errors.New("model not ready")
	// ErrBusy is returned when a generation is already running.
	ErrBusy = errors.New("generation already in progress")
	// ErrInvalidHistory is returned for malformed prompt histories.
	ErrInvalidHistory = errors.New("invalid prompt history")
	// ErrGenerationFault wraps backend failures during generation.
	ErrGenerationFault = errors.New("generation fault")

	// errStop ends the runtime stream from inside the token callback.
	errStop = errors.New("stop generation")
)

// IsGenerationFault reports whether err came from the backend.
func IsGenerationFault(err error) bool { return errors.Is(err, ErrGenerationFault) }

// SessionSource yields the live session.
type SessionSource interface {
	Session() (runtime.Session, catalog.Descriptor, error)
}

// Params are per-call generation options.
type Params struct {
	Temperature float32
	TopP        float32
	TopK        int
	// MaxTokens caps generated tokens; zero means unlimited.
	MaxTokens int
	Stop      []string
	Seed      int
}

// Fragment is one throttled increment of output.
type Fragment struct {
	Text string
	// Thinking reports whether the accumulated text is inside a reasoning block.
	Thinking bool
}

// Result is the outcome of a generation. A cancelled or truncated pass is
// still a successful result.
type Result struct {
	Text         string
	Tokens       int
	Cancelled    bool
	FinishReason string
	Model        string
}

// Config tunes an Engine.
type Config struct {
	// BatchSize is the number of tokens between cancel/limit checks.
	BatchSize int
	// FragmentEvery is the number of tokens between fragment emissions.
	FragmentEvery int
	Logger        zerolog.Logger
}

// Engine runs at most one generation at a time.
type Engine struct {
	src           SessionSource
	batchSize     int
	fragmentEvery int
	log           zerolog.Logger

	mu        sync.Mutex
	running   bool
	cancelled bool
}

// New builds an Engine reading sessions from src.
func New(src SessionSource, cfg Config) *Engine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.FragmentEvery <= 0 {
		cfg.FragmentEvery = defaultFragmentEvery
	}
	return &Engine{src: src, batchSize: cfg.BatchSize, fragmentEvery: cfg.FragmentEvery, log: cfg.Logger}
}

// Running reports whether a generation is in progress.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Cancel requests the running generation to stop at the next batch
// boundary. It is a no-op when nothing is running.
func (e *Engine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		e.cancelled = true
	}
}

// claim marks a generation as running and clears any stale cancel request
// in one step, so a Cancel observed after claim always applies.
func (e *Engine) claim() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return false
	}
	e.running, e.cancelled = true, false
	return true
}

func (e *Engine) release() {
	e.mu.Lock()
	e.running, e.cancelled = false, false
	e.mu.Unlock()
}

func (e *Engine) stopRequested() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancelled
}

// ValidateHistory checks that a system turn, if any, comes first and that
// every role is known.
func ValidateHistory(history []types.PromptTurn) error {
	if len(history) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidHistory)
	}
	for i, t := range history {
		switch t.Role {
		case types.RoleSystem:
			if i != 0 {
				return fmt.Errorf("%w: system turn at position %d", ErrInvalidHistory, i)
			}
		case types.RoleUser, types.RoleAssistant, types.RoleTool:
		default:
			return fmt.Errorf("%w: unknown role %q", ErrInvalidHistory, t.Role)
		}
	}
	return nil
}

// Generate streams a reply to history. onFragment receives throttled
// increments; the returned Text equals their concatenation plus any tokens
// produced after the last fragment.
func (e *Engine) Generate(ctx context.Context, history []types.PromptTurn, p Params, onFragment func(Fragment)) (Result, error) {
	if err := ValidateHistory(history); err != nil {
		return Result{}, err
	}
	sess, d, err := e.src.Session()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrModelNotReady, err)
	}
	if !e.claim() {
		return Result{}, ErrBusy
	}
	defer e.release()

	gctx, stop := context.WithCancel(ctx)
	defer stop()

	var (
		buf       strings.Builder
		emitted   int
		tokens    int
		inBatch   int
		pending   int
		cancelled bool
		limited   bool
	)
	flush := func() {
		if pending == 0 {
			return
		}
		text := buf.String()
		frag := text[emitted:]
		emitted = len(text)
		pending = 0
		if onFragment != nil {
			onFragment(Fragment{Text: frag, Thinking: InThinking(text)})
		}
	}
	onToken := func(tok string) error {
		buf.WriteString(tok)
		tokens++
		inBatch++
		pending++
		if inBatch < e.batchSize {
			return nil
		}
		// batch boundary
		inBatch = 0
		if pending >= e.fragmentEvery {
			flush()
		}
		if e.stopRequested() || ctx.Err() != nil {
			cancelled = true
			return errStop
		}
		if p.MaxTokens > 0 && tokens >= p.MaxTokens {
			limited = true
			return errStop
		}
		return nil
	}

	fin, genErr := sess.Generate(gctx, history, runtime.Params{
		Temperature: p.Temperature,
		TopP:        p.TopP,
		TopK:        p.TopK,
		MaxTokens:   p.MaxTokens,
		Stop:        p.Stop,
		Seed:        p.Seed,
	}, onToken)
	tokensTotal.Add(float64(tokens))

	res := Result{Text: buf.String(), Tokens: tokens, Model: d.Name, FinishReason: fin.FinishReason}
	switch {
	case errors.Is(genErr, errStop):
		res.Cancelled = cancelled
		if limited {
			res.FinishReason = "length"
		} else {
			res.FinishReason = "cancelled"
		}
		return res, nil
	case genErr != nil && ctx.Err() != nil:
		res.Cancelled = true
		res.FinishReason = "cancelled"
		return res, nil
	case genErr != nil:
		e.log.Error().Str("event", "generate_fault").Str("model", d.Name).Int("tokens", tokens).Err(genErr).Msg("generation failed")
		return res, fmt.Errorf("%w: %w", ErrGenerationFault, genErr)
	}
	if res.FinishReason == "" {
		res.FinishReason = "stop"
	}
	e.log.Debug().Str("event", "generate_done").Str("model", d.Name).Int("tokens", tokens).Msg("generation finished")
	return res, nil
}

var tokensTotal = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "localassist",
	Subsystem: "engine",
	Name:      "tokens_total",
	Help:      "Tokens generated",
})

func init() { prometheus.MustRegister(tokensTotal) }
