// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watch reloads the file at path whenever it changes and hands every valid
// result to onChange. Invalid edits are logged and skipped. Watch blocks
// until ctx is done.
//
// The parent directory is watched rather than the file so that editors
// replacing the file by rename are noticed.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	defer func() {
		_ = w.Close()
	}()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch config %s: %w", filepath.Dir(abs), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			cfg, err := Load(abs)
			if err != nil {
				log.Ctx(ctx).Warn().Err(err).Str("path", abs).Msg("ignoring invalid config change")
				continue
			}
			log.Ctx(ctx).Info().Str("path", abs).Int("devices", len(cfg.Devices)).Msg("config reloaded")
			onChange(cfg)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Ctx(ctx).Debug().Err(err).Msg("fsnotify error")
		}
	}
}
