package runtime

import (
	"context"
	"strings"

	"localassist/internal/catalog"
	"localassist/internal/remote"
	"localassist/pkg/types"
)

// remoteRuntime serves generation from an OpenAI-compatible endpoint. The
// catalog name is sent as the model id unless Model overrides it.
type remoteRuntime struct {
	client func() *remote.Client
	model  string
}

// NewRemote returns a Runtime backed by the client that client returns at
// each Load, so endpoint changes apply to the next load. When model is
// empty the descriptor name is used.
func NewRemote(client func() *remote.Client, model string) Runtime {
	return &remoteRuntime{client: client, model: strings.TrimSpace(model)}
}

func (r *remoteRuntime) RequiresFiles() bool { return false }

func (r *remoteRuntime) Load(ctx context.Context, d catalog.Descriptor, _ string) (Session, error) {
	var cl *remote.Client
	if r.client != nil {
		cl = r.client()
	}
	if cl == nil {
		return nil, ErrDependencyUnavailable("remote runtime not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m := r.model
	if m == "" {
		m = d.Name
	}
	return &remoteSession{client: cl, model: m}, nil
}

type remoteSession struct {
	client *remote.Client
	model  string
}

func (s *remoteSession) Generate(ctx context.Context, turns []types.PromptTurn, p Params, onToken func(string) error) (FinalResult, error) {
	var sb strings.Builder
	finish, err := s.client.StreamChat(ctx, s.model, turns, remote.ChatOptions{
		Temperature: p.Temperature,
		TopP:        p.TopP,
		MaxTokens:   p.MaxTokens,
		Stop:        p.Stop,
		Seed:        p.Seed,
	}, func(tok string) error {
		sb.WriteString(tok)
		return onToken(tok)
	})
	return FinalResult{Content: sb.String(), FinishReason: finish}, err
}

func (s *remoteSession) Close() error { return nil }
