package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watch reloads path whenever it changes and passes the result to onChange.
// The parent directory is watched so editors that replace the file are
// noticed. Parse errors are logged and the previous config stays in effect.
// Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, log zerolog.Logger, onChange func(Config)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			cfg, err := Load(abs)
			if err != nil {
				log.Warn().Str("event", "config_reload_failed").Str("path", abs).Err(err).Msg("config reload failed")
				continue
			}
			log.Info().Str("event", "config_reloaded").Str("path", abs).Msg("config reloaded")
			onChange(cfg)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Str("event", "config_watch_error").Err(err).Msg("config watcher error")
		}
	}
}
