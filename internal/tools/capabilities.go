package tools

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"localassist/internal/common/fsutil"
)

// Transcriber converts an audio file to text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// ImageDescriber describes an image file.
type ImageDescriber interface {
	DescribeImage(ctx context.Context, path, prompt string) (string, error)
}

// Reasoner answers a prompt with a reasoning model.
type Reasoner interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Builtin returns the host capabilities. Nil backends yield capabilities
// that report ErrUnavailable.
func Builtin(t Transcriber, i ImageDescriber, r Reasoner) []Capability {
	return []Capability{
		listFiles{},
		transcribeAudio{backend: t},
		describeImage{backend: i},
		explainReasoning{backend: r},
	}
}

type listFiles struct{}

func (listFiles) Name() string       { return "list_files" }
func (listFiles) Required() []string { return []string{"directory"} }

func (listFiles) Execute(ctx context.Context, p Params) (string, error) {
	dir, err := p.Str("directory")
	if err != nil {
		return "", err
	}
	dir, err = fsutil.ExpandHome(dir)
	if err != nil {
		return "", err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	hidden := p.BoolOr("include_hidden", false)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n := e.Name()
		if !hidden && strings.HasPrefix(n, ".") {
			continue
		}
		if e.IsDir() {
			n += "/"
		}
		names = append(names, n)
	}
	if len(names) == 0 {
		return "(empty directory)", nil
	}
	sort.Strings(names)
	return strings.Join(names, "\n"), nil
}

type transcribeAudio struct{ backend Transcriber }

func (transcribeAudio) Name() string       { return "transcribe_audio" }
func (transcribeAudio) Required() []string { return []string{"path"} }

func (c transcribeAudio) Execute(ctx context.Context, p Params) (string, error) {
	path, err := filePath(p)
	if err != nil {
		return "", err
	}
	if c.backend == nil {
		return "", fmt.Errorf("%w: no transcription backend configured", ErrUnavailable)
	}
	return c.backend.Transcribe(ctx, path)
}

type describeImage struct{ backend ImageDescriber }

func (describeImage) Name() string       { return "describe_image" }
func (describeImage) Required() []string { return []string{"path"} }

func (c describeImage) Execute(ctx context.Context, p Params) (string, error) {
	path, err := filePath(p)
	if err != nil {
		return "", err
	}
	if c.backend == nil {
		return "", fmt.Errorf("%w: no vision backend configured", ErrUnavailable)
	}
	return c.backend.DescribeImage(ctx, path, p.StringOr("prompt", ""))
}

type explainReasoning struct{ backend Reasoner }

const reasoningSystem = "Explain the reasoning needed to solve the problem step by step, then state the answer."

func (explainReasoning) Name() string       { return "explain_reasoning" }
func (explainReasoning) Required() []string { return []string{"problem"} }

func (c explainReasoning) Execute(ctx context.Context, p Params) (string, error) {
	problem, err := p.Str("problem")
	if err != nil {
		return "", err
	}
	if c.backend == nil {
		return "", fmt.Errorf("%w: no reasoning backend configured", ErrUnavailable)
	}
	return c.backend.Complete(ctx, reasoningSystem, problem)
}

func filePath(p Params) (string, error) {
	path, err := p.Str("path")
	if err != nil {
		return "", err
	}
	path, err = fsutil.ExpandHome(path)
	if err != nil {
		return "", err
	}
	fi, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if fi.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	return path, nil
}
