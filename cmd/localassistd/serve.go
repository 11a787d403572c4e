package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"localassist/internal/config"
	"localassist/internal/httpapi"
)

const shutdownGrace = 5 * time.Second

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cfg.LogLevel, logJSON)
	d, err := build(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := d.Close(); err != nil {
			log.Warn().Str("event", "close_failed").Err(err).Msg("close failed")
		}
	}()
	d.report()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	httpapi.SetBaseContext(ctx)
	if len(cfg.CORSOrigins) > 0 {
		httpapi.SetCORSOptions(true, cfg.CORSOrigins,
			[]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			[]string{"Content-Type", "X-Log-Level"})
	}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(d.orch),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.monitor.Run(gctx) })
	if configPath != "" {
		g.Go(func() error { return config.Watch(gctx, configPath, log, d.reload) })
	}
	g.Go(func() error {
		log.Info().Str("event", "listen").Str("addr", cfg.Addr).Str("models_dir", d.store.Root()).
			Str("runtime", cfg.Runtime).Msg("localassistd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Warn().Str("event", "shutdown_error").Err(err).Msg("graceful shutdown error")
		}
		return nil
	})
	err = g.Wait()
	log.Info().Str("event", "stopped").Msg("localassistd stopped")
	return err
}

// report logs startup checks and installed models.
func (d *daemon) report() {
	rep := d.manager.SanityCheck()
	ev := d.log.Info()
	if !rep.OK() {
		ev = d.log.Warn().Str("problem", rep.Error)
	}
	ev.Str("event", "sanity").Bool("llama_built", rep.LlamaBuilt).Bool("requires_files", rep.RequiresFiles).
		Str("models_dir", rep.ModelsDir).Msg("runtime check")

	installed, err := d.store.Scan(d.cat)
	if err != nil {
		d.log.Warn().Str("event", "scan_failed").Err(err).Msg("model scan failed")
		return
	}
	d.log.Info().Str("event", "scan").Strs("installed", installed).Msg("installed models")
}

// reload applies a changed config file. Only the settings seed and the log
// level take effect without a restart.
func (d *daemon) reload(cfg config.Config) {
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && cfg.LogLevel != "" {
		zerolog.SetGlobalLevel(lvl)
	}
	if err := applySeed(d.settings, cfg.Settings); err != nil {
		d.log.Warn().Str("event", "settings_reload_failed").Err(err).Msg("settings from config rejected")
		return
	}
	d.log.Info().Str("event", "settings_reloaded").Msg("settings updated from config")
}
