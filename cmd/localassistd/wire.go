package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"localassist/internal/catalog"
	"localassist/internal/common/fsutil"
	"localassist/internal/config"
	"localassist/internal/download"
	"localassist/internal/engine"
	"localassist/internal/manager"
	"localassist/internal/orchestrator"
	"localassist/internal/registry"
	"localassist/internal/remote"
	"localassist/internal/resource"
	"localassist/internal/runtime"
	"localassist/internal/settings"
	"localassist/internal/tools"
)

// daemon holds the wired components.
type daemon struct {
	cfg      config.Config
	log      zerolog.Logger
	cat      *catalog.Catalog
	store    *registry.Store
	settings *settings.Service
	monitor  *resource.Monitor
	manager  *manager.Manager
	orch     *orchestrator.Orchestrator
	backend  *remoteBackend
}

// resolveConfig merges the config file with flags. Explicit flags win;
// flag defaults fill fields the file leaves empty.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if configPath != "" {
		c, err := config.Load(configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config %s: %w", configPath, err)
		}
		cfg = c
	}
	pick := func(name, flagVal string, dst *string) {
		if cmd.Flags().Changed(name) || *dst == "" {
			*dst = flagVal
		}
	}
	pick("models-dir", modelsDir, &cfg.ModelsDir)
	pick("data-dir", dataDir, &cfg.DataDir)
	pick("catalog", catalogOverlay, &cfg.CatalogOverlay)
	pick("log-level", logLevel, &cfg.LogLevel)
	pick("addr", addr, &cfg.Addr)
	pick("download-base-url", downloadBaseURL, &cfg.DownloadBaseURL)
	pick("runtime", runtimeKind, &cfg.Runtime)
	pick("remote-model", remoteModel, &cfg.RemoteModel)
	if cmd.Flags().Changed("cors-origins") || len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = splitCSV(corsOrigins)
	}
	switch cfg.Runtime {
	case "llama", "remote":
	default:
		return cfg, fmt.Errorf("unknown runtime %q (want llama or remote)", cfg.Runtime)
	}
	return cfg, nil
}

// applySeed validates seed against a copy of the current settings before
// storing it, so a bad value leaves the store untouched.
func applySeed(svc *settings.Service, seed config.Seed) error {
	next := svc.Current()
	if err := seed.Apply(&next); err != nil {
		return err
	}
	return svc.Update(func(s *settings.Settings) { *s = next })
}

func loadCatalog(overlay string) (*catalog.Catalog, error) {
	cat := catalog.Builtin()
	if overlay == "" {
		return cat, nil
	}
	extra, err := catalog.LoadOverlay(overlay)
	if err != nil {
		return nil, err
	}
	return cat.Merge(extra)
}

// build wires every component from cfg. The caller owns Close.
func build(cfg config.Config, log zerolog.Logger) (*daemon, error) {
	d := &daemon{cfg: cfg, log: log}

	cat, err := loadCatalog(cfg.CatalogOverlay)
	if err != nil {
		return nil, err
	}
	d.cat = cat

	if d.store, err = registry.NewStore(cfg.ModelsDir); err != nil {
		return nil, err
	}

	dir, err := fsutil.ExpandHome(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	kv, err := settings.OpenBadger(dir, log.With().Str("component", "settings").Logger())
	if err != nil {
		return nil, err
	}
	if d.settings, err = settings.NewService(kv, settings.Defaults()); err != nil {
		_ = kv.Close()
		return nil, err
	}
	if err := applySeed(d.settings, cfg.Settings); err != nil {
		_ = d.settings.Close()
		return nil, fmt.Errorf("apply settings from config: %w", err)
	}

	d.monitor = resource.NewMonitor(resource.Config{
		Interval: time.Duration(cfg.SampleMS) * time.Millisecond,
		Logger:   log.With().Str("component", "resource").Logger(),
	})

	cur := d.settings.Current()
	d.backend = newRemoteBackend(cur)
	d.settings.OnChange(d.backend.update)

	var (
		rt    runtime.Runtime
		admit manager.Admitter
	)
	if cfg.Runtime == "remote" {
		// The model runs elsewhere; local memory does not bound it.
		rt = runtime.NewRemote(d.backend.client, cfg.RemoteModel)
	} else {
		rt = runtime.NewLlama(cfg.LlamaCtx, cfg.LlamaThreads)
		admit = d.monitor
	}

	d.manager = manager.New(manager.Config{
		Store:    d.store,
		Fetcher:  download.NewFetcher(cfg.DownloadBaseURL, nil),
		Runtime:  rt,
		Admitter: admit,
		Policy:   d.settings.Policy,
		Logger:   log.With().Str("component", "manager").Logger(),
	})
	d.manager.SetEventPublisher(logPublisher{log: log.With().Str("component", "lifecycle").Logger()})

	eng := engine.New(d.manager, engine.Config{
		BatchSize:     cfg.BatchSize,
		FragmentEvery: cfg.FragmentEvery,
		Logger:        log.With().Str("component", "engine").Logger(),
	})
	dispatcher := tools.NewDispatcher(log.With().Str("component", "tools").Logger(),
		tools.Builtin(d.backend, d.backend, d.backend)...)

	d.orch = orchestrator.New(orchestrator.Config{
		Catalog:  cat,
		Store:    d.store,
		Manager:  d.manager,
		Engine:   eng,
		Tools:    dispatcher,
		Settings: d.settings,
		Logger:   log.With().Str("component", "orchestrator").Logger(),
	})
	return d, nil
}

// Close releases the session and the settings database.
func (d *daemon) Close() error {
	d.manager.Unload()
	return d.settings.Close()
}

// logPublisher forwards lifecycle events to the log.
type logPublisher struct {
	log zerolog.Logger
}

func (p logPublisher) Publish(e manager.Event) {
	ev := p.log.Debug().Str("event", e.Name).Str("model", e.ModelID)
	if len(e.Fields) > 0 {
		ev = ev.Interface("fields", e.Fields)
	}
	ev.Msg("lifecycle event")
}

// remoteBackend serves the remote-backed host capabilities with a client
// rebuilt whenever the remote settings change.
type remoteBackend struct {
	mu  sync.RWMutex
	url string
	key string
	cl  *remote.Client
}

var errNoRemote = fmt.Errorf("%w: remote endpoint not configured", tools.ErrUnavailable)

func newRemoteBackend(s settings.Settings) *remoteBackend {
	b := &remoteBackend{}
	b.update(s)
	return b
}

func (b *remoteBackend) update(s settings.Settings) {
	url := strings.TrimSpace(s.RemoteURL)
	b.mu.Lock()
	defer b.mu.Unlock()
	if url == b.url && s.RemoteAPIKey == b.key && (b.cl != nil) == (url != "") {
		return
	}
	b.url, b.key = url, s.RemoteAPIKey
	b.cl = nil
	if url != "" {
		b.cl = remote.New(remote.Config{BaseURL: url, APIKey: s.RemoteAPIKey, HTTPClient: &http.Client{Timeout: 5 * time.Minute}})
	}
}

func (b *remoteBackend) client() *remote.Client {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cl
}

func (b *remoteBackend) Transcribe(ctx context.Context, path string) (string, error) {
	c := b.client()
	if c == nil {
		return "", errNoRemote
	}
	return c.Transcribe(ctx, path)
}

func (b *remoteBackend) DescribeImage(ctx context.Context, path, prompt string) (string, error) {
	c := b.client()
	if c == nil {
		return "", errNoRemote
	}
	return c.DescribeImage(ctx, path, prompt)
}

func (b *remoteBackend) Complete(ctx context.Context, system, prompt string) (string, error) {
	c := b.client()
	if c == nil {
		return "", errNoRemote
	}
	return c.Complete(ctx, system, prompt)
}
