//go:build !llama

package runtime

// No-CGO stub for the llama runtime, compiled when the 'llama' build tag is
// NOT set so default builds and CI stay CGO-free. The real runtime lives in
// llama.go.

import (
	"context"

	"localassist/internal/catalog"
)

const llamaBuilt = false

type llamaRuntime struct {
	ctxSize int
	threads int
}

// NewLlama returns a runtime that refuses to load without the 'llama' tag.
func NewLlama(ctxSize, threads int) Runtime {
	return &llamaRuntime{ctxSize: ctxSize, threads: threads}
}

func (r *llamaRuntime) RequiresFiles() bool { return true }

func (r *llamaRuntime) Load(ctx context.Context, d catalog.Descriptor, path string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")
}
