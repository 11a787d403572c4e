package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"localassist/internal/catalog"
	"localassist/internal/config"
	"localassist/internal/orchestrator"
	"localassist/internal/resource"
	"localassist/internal/settings"
	"localassist/internal/tools"
	"localassist/pkg/types"
)

func TestApplySeed_RejectsInvalidWithoutWriting(t *testing.T) {
	svc, err := settings.NewService(settings.NewMemoryStore(), settings.Defaults())
	require.NoError(t, err)

	err = applySeed(svc, config.Seed{Guardrail: "strict", Models: map[string]string{"bogus": "x"}})
	require.Error(t, err)
	assert.Equal(t, resource.LevelBalanced, svc.Current().Guardrail)

	require.NoError(t, applySeed(svc, config.Seed{Guardrail: "strict", Models: map[string]string{"core": "qwen3-4b"}}))
	assert.Equal(t, resource.LevelStrict, svc.Current().Guardrail)
	assert.Equal(t, "qwen3-4b", svc.Current().Model(catalog.CategoryCore))
}

func TestResolveConfig_FileThenFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "localassist.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: \":9999\"\nruntime: remote\nmodels_dir: /srv/models\n"), 0o644))

	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--config", path, "--models-dir", filepath.Join(dir, "m")}))
	cfg, err := resolveConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, "remote", cfg.Runtime)
	assert.Equal(t, filepath.Join(dir, "m"), cfg.ModelsDir)
	configPath = ""
}

func TestResolveConfig_UnknownRuntime(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--runtime", "gpu"}))
	_, err := resolveConfig(cmd)
	assert.Error(t, err)
	runtimeKind = "llama"
}

func TestBuild_WiresComponents(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Config{
		ModelsDir: filepath.Join(dir, "models"),
		DataDir:   filepath.Join(dir, "data"),
		Runtime:   "remote",
		Settings:  config.Seed{Guardrail: "relaxed"},
	}
	d, err := build(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer d.Close()

	assert.Len(t, d.orch.Models(), len(catalog.Builtin().All()))
	assert.Equal(t, resource.LevelRelaxed, d.settings.Policy().Level)
	rep := d.manager.SanityCheck()
	assert.False(t, rep.RequiresFiles)
	assert.True(t, rep.OK())
}

func TestBuild_RemoteRuntimeFollowsSettings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"pong\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"index\":0,\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	dir := t.TempDir()
	d, err := build(config.Config{
		ModelsDir: filepath.Join(dir, "models"),
		DataDir:   filepath.Join(dir, "data"),
		Runtime:   "remote",
	}, zerolog.Nop())
	require.NoError(t, err)
	defer d.Close()

	// configured after startup
	require.NoError(t, d.settings.Update(func(s *settings.Settings) { s.RemoteURL = srv.URL + "/v1" }))

	reply, err := d.orch.SendMessage(context.Background(), []types.PromptTurn{{Role: types.RoleUser, Content: "ping"}}, orchestrator.SendOptions{})
	require.NoError(t, err)
	assert.Equal(t, "pong", reply.Raw)
}

func TestRemoteBackend_TracksSettings(t *testing.T) {
	b := newRemoteBackend(settings.Defaults())
	assert.Nil(t, b.client())
	_, err := b.Complete(context.Background(), "", "why")
	assert.ErrorIs(t, err, tools.ErrUnavailable)

	s := settings.Defaults()
	s.RemoteURL = "http://127.0.0.1:1/v1"
	b.update(s)
	first := b.client()
	require.NotNil(t, first)
	b.update(s)
	assert.Same(t, first, b.client())

	s.RemoteURL = ""
	b.update(s)
	assert.Nil(t, b.client())
}
