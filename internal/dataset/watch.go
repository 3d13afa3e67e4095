// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package dataset

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ManuGH/salesinsights/internal/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events editors and exporters emit
// while rewriting a file.
const DefaultDebounce = 500 * time.Millisecond

// Watch reloads the dataset whenever the CSV is written, created or renamed
// into place. It blocks until ctx is cancelled. The parent directory is
// watched so atomic replace-by-rename is seen.
func (s *Store) Watch(ctx context.Context, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify.NewWatcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	abs, err := filepath.Abs(s.path)
	if err != nil {
		return fmt.Errorf("resolve dataset path: %w", err)
	}
	dir := filepath.Dir(abs)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch directory %s: %w", dir, err)
	}
	target := filepath.Base(abs)

	logger := s.logger.With().Str(log.FieldComponent, "dataset-watch").Str(log.FieldSource, abs).Logger()
	logger.Info().Str(log.FieldEvent, "dataset.watch_started").Msg("watching dataset for changes")

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher channel closed")
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(debounce)
		case <-timer.C:
			logger.Debug().Str(log.FieldEvent, "dataset.changed").Msg("dataset changed on disk")
			// Failures are logged by Reload; the previous dataset stays active.
			_ = s.Reload(ctx)
		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			logger.Warn().Err(err).Msg("fsnotify watcher error")
		}
	}
}
