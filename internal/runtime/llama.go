//go:build llama

package runtime

import (
	"context"
	"errors"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"

	"localassist/internal/catalog"
	"localassist/pkg/types"
)

// llamaBuilt indicates this binary was compiled with real llama support.
const llamaBuilt = true

// llamaRuntime holds global config used to initialize a model instance.
type llamaRuntime struct {
	ctxSize int
	threads int
}

// NewLlama returns the in-process go-llama.cpp runtime.
func NewLlama(ctxSize, threads int) Runtime {
	return &llamaRuntime{ctxSize: ctxSize, threads: threads}
}

func (r *llamaRuntime) RequiresFiles() bool { return true }

// llamaSession owns the loaded model.
type llamaSession struct {
	model   *llama.LLama
	threads int
	ctxSize int
}

func (r *llamaRuntime) Load(ctx context.Context, d catalog.Descriptor, path string) (Session, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("model path is empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := llama.New(path, llama.SetContext(r.ctxSize))
	if err != nil {
		return nil, err
	}
	// llama.New cannot be interrupted; drop the model if the caller gave up meanwhile.
	if err := ctx.Err(); err != nil {
		m.Free()
		return nil, err
	}
	return &llamaSession{model: m, threads: r.threads, ctxSize: r.ctxSize}, nil
}

func (s *llamaSession) Generate(ctx context.Context, turns []types.PromptTurn, params Params, onToken func(string) error) (FinalResult, error) {
	if s.model == nil {
		return FinalResult{}, errors.New("llama model not initialized")
	}
	var cbErr error
	completion := 0
	s.model.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		if err := onToken(tok); err != nil {
			cbErr = err
			return false
		}
		completion++
		return true
	})
	text, err := s.model.Predict(FormatChatML(turns), predictOptions(params, s.threads, s.ctxSize)...)
	if cbErr != nil {
		return FinalResult{Content: text}, cbErr
	}
	if err != nil {
		if ctx.Err() != nil {
			return FinalResult{}, ctx.Err()
		}
		return FinalResult{}, err
	}
	return FinalResult{
		Content:      text,
		Usage:        Usage{CompletionTokens: completion, TotalTokens: completion},
		FinishReason: "stop",
	}, nil
}

func (s *llamaSession) Close() error {
	if s.model != nil {
		s.model.Free()
		s.model = nil
	}
	return nil
}

func zn(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func zf(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}

// predictOptions converts our params into go-llama.cpp options.
func predictOptions(p Params, threads, ctxSize int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(tokenBudget(p.MaxTokens, ctxSize)),
		llama.SetThreads(max(1, threads)),
		llama.SetTopP(zf(p.TopP, llama.DefaultOptions.TopP)),
		llama.SetTopK(zn(p.TopK, llama.DefaultOptions.TopK)),
		llama.SetTemperature(zf(p.Temperature, llama.DefaultOptions.Temperature)),
		llama.SetPenalty(zf(p.RepeatPenalty, llama.DefaultOptions.Penalty)),
		llama.SetStopWords(append([]string{ChatMLStop}, p.Stop...)...),
	}
	if p.Seed != 0 {
		po = append(po, llama.SetSeed(p.Seed))
	}
	return po
}
