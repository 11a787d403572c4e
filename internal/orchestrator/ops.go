package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"localassist/internal/catalog"
	"localassist/internal/engine"
	"localassist/internal/manager"
	"localassist/internal/resource"
	"localassist/internal/settings"
	"localassist/internal/tools"
	"localassist/pkg/types"
)

// SendOptions override generation defaults for one message.
type SendOptions struct {
	MaxTokens   int
	Temperature float32
	// OnFragment receives streamed increments.
	OnFragment func(engine.Fragment)
}

// Reply is the outcome of SendMessage.
type Reply struct {
	ID string
	// Text is the displayable message with tool results substituted.
	Text string
	// Raw is the model output as generated.
	Raw string
	// Thinking holds reasoning blocks found in Raw.
	Thinking  string
	Cancelled bool
	Tokens    int
	Model     string
	Tools     []tools.Result
	// History is the input history followed by the assistant turn and one
	// tool turn per executed directive.
	History []types.PromptTurn
}

// SendMessage generates a reply to history. Only one message may be in
// flight; a concurrent call fails fast with ErrBusy.
func (o *Orchestrator) SendMessage(ctx context.Context, history []types.PromptTurn, opts SendOptions) (Reply, error) {
	sctx, release, err := o.claim(ctx, true)
	if err != nil {
		return Reply{}, err
	}
	defer release()

	id := newRequestID()
	log := o.log.With().Str("request_id", id).Logger()
	if err := engine.ValidateHistory(history); err != nil {
		return Reply{ID: id}, err
	}
	if err := o.ensureModel(ctx); err != nil {
		log.Warn().Str("event", "send_not_ready").Err(err).Msg("model unavailable")
		o.refresh()
		return Reply{ID: id}, err
	}
	if sctx.Err() != nil && ctx.Err() == nil {
		// stopped while the model was loading
		empty := ""
		o.setGen(false, PhaseCancelled, &empty)
		log.Info().Str("event", "send_done").Bool("cancelled", true).Msg("stopped before generation")
		return Reply{ID: id, Cancelled: true, History: append([]types.PromptTurn(nil), history...)}, nil
	}

	cur := o.set.Current()
	params := engine.Params{Temperature: cur.Temperature, MaxTokens: cur.MaxTokens}
	if opts.MaxTokens > 0 {
		params.MaxTokens = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		params.Temperature = opts.Temperature
	}

	empty := ""
	o.setGen(true, PhaseGenerating, &empty)
	log.Info().Str("event", "send_start").Int("turns", len(history)).Msg("generating")
	res, err := o.eng.Generate(sctx, history, params, func(f engine.Fragment) {
		phase := PhaseGenerating
		if f.Thinking {
			phase = PhaseThinking
		}
		o.mu.Lock()
		o.genPhase = phase
		o.lastOutput += f.Text
		o.mu.Unlock()
		o.refresh()
		if opts.OnFragment != nil {
			opts.OnFragment(f)
		}
	})
	if err != nil {
		if engine.IsGenerationFault(err) {
			o.mgr.Invalidate(err.Error())
		}
		o.setGen(false, PhaseIdle, &res.Text)
		log.Error().Str("event", "send_failed").Err(err).Msg("generation failed")
		return Reply{ID: id, Raw: res.Text, Model: res.Model}, err
	}

	reply := Reply{
		ID:        id,
		Raw:       res.Text,
		Text:      res.Text,
		Cancelled: res.Cancelled,
		Tokens:    res.Tokens,
		Model:     res.Model,
	}
	reply.Thinking, _ = engine.SplitThinking(res.Text)
	if !res.Cancelled && o.tools != nil {
		reply.Text, reply.Tools = o.tools.Render(ctx, res.Text)
	}
	reply.History = extendHistory(history, res.Text, reply.Tools)

	final := PhaseIdle
	if res.Cancelled {
		final = PhaseCancelled
	}
	o.setGen(false, final, &reply.Text)
	log.Info().Str("event", "send_done").Int("tokens", res.Tokens).Bool("cancelled", res.Cancelled).Int("tools", len(reply.Tools)).Msg("reply ready")
	return reply, nil
}

func extendHistory(history []types.PromptTurn, raw string, results []tools.Result) []types.PromptTurn {
	out := make([]types.PromptTurn, 0, len(history)+1+len(results))
	out = append(out, history...)
	out = append(out, types.PromptTurn{Role: types.RoleAssistant, Content: raw})
	for _, r := range results {
		out = append(out, types.PromptTurn{Role: types.RoleTool, Content: fmt.Sprintf("%s (%s): %s", r.Name, r.ID, r.Text())})
	}
	return out
}

// ensureModel reloads the selection, or selects the configured core model
// when nothing has been selected yet.
func (o *Orchestrator) ensureModel(ctx context.Context) error {
	_, err := o.mgr.EnsureLoaded(ctx)
	if !errors.Is(err, manager.ErrNoSelection) {
		return err
	}
	d := o.descriptorFor(o.set.Current().Model(catalog.CategoryCore), catalog.CategoryCore)
	return o.mgr.Select(ctx, d)
}

func (o *Orchestrator) descriptorFor(name string, cat catalog.Category) catalog.Descriptor {
	d, fellBack := o.cat.Resolve(name, cat)
	if fellBack && strings.TrimSpace(name) != "" {
		o.log.Warn().Str("event", "model_fallback").Str("requested", name).Str("model", d.Name).Msg("unknown model; using category default")
	}
	return d
}

// claim takes the in-flight slot. When stoppable, the returned context is
// cancelled by StopGeneration; release frees the slot.
func (o *Orchestrator) claim(ctx context.Context, stoppable bool) (context.Context, func(), error) {
	o.busyMu.Lock()
	defer o.busyMu.Unlock()
	if o.busy {
		return nil, nil, ErrBusy
	}
	o.busy = true
	sctx, cancel := context.WithCancel(ctx)
	if stoppable {
		o.stopSend = cancel
	}
	return sctx, func() {
		o.busyMu.Lock()
		o.busy, o.stopSend = false, nil
		o.busyMu.Unlock()
		cancel()
	}, nil
}

// StopGeneration stops the message in flight. A stop issued while the model
// is still downloading or loading skips generation once the load completes;
// a running generation stops at its next batch boundary. It is a no-op when
// nothing is in flight.
func (o *Orchestrator) StopGeneration() {
	o.busyMu.Lock()
	stop := o.stopSend
	o.busyMu.Unlock()
	if stop != nil {
		stop()
	}
	o.eng.Cancel()
}

// activatable reports whether models of cat can serve chat generation.
func activatable(cat catalog.Category) bool {
	switch cat {
	case catalog.CategoryAudio, catalog.CategoryEmbedding:
		return false
	default:
		return true
	}
}

// SwitchModel persists name as the selection for its category and, for chat
// categories, makes it the active model. Unknown names fall back to the core
// default. Switching while a message is in flight fails with ErrBusy.
func (o *Orchestrator) SwitchModel(ctx context.Context, name string) error {
	_, release, err := o.claim(ctx, false)
	if err != nil {
		return err
	}
	defer release()
	d := o.descriptorFor(name, catalog.CategoryCore)
	if err := o.set.Update(func(s *settings.Settings) { s.Models[d.Category] = d.Name }); err != nil {
		return fmt.Errorf("persist selection: %w", err)
	}
	if !activatable(d.Category) {
		o.log.Info().Str("event", "selection_saved").Str("model", d.Name).Str("category", string(d.Category)).Msg("selection saved")
		return nil
	}
	o.mu.Lock()
	o.genPhase = PhaseIdle
	o.mu.Unlock()
	return o.mgr.SwitchTo(ctx, d)
}

// DownloadModel fetches a model's files without activating it.
func (o *Orchestrator) DownloadModel(ctx context.Context, name string) error {
	d, err := o.cat.ByName(name)
	if err != nil {
		return err
	}
	return o.mgr.Prefetch(ctx, d)
}

// CancelLoad aborts an in-flight download or load. It reports whether
// anything was running.
func (o *Orchestrator) CancelLoad() bool { return o.mgr.Cancel() }

// SetGuardrail persists a guardrail policy; it applies to the next load.
func (o *Orchestrator) SetGuardrail(level string, customPercent int) (resource.Policy, error) {
	lvl, err := resource.ParseLevel(level)
	if err != nil {
		return resource.Policy{}, err
	}
	if err := o.set.Update(func(s *settings.Settings) {
		s.Guardrail = lvl
		if lvl == resource.LevelCustom {
			s.CustomPercent = customPercent
		}
	}); err != nil {
		return resource.Policy{}, err
	}
	return o.set.Policy(), nil
}
