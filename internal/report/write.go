// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package report

import (
	"context"
	"fmt"
	"io"

	"github.com/ManuGH/salesinsights/internal/log"
	"github.com/google/renameio/v2"
)

// WriteFile renders into a temporary file next to path and atomically
// replaces path once render succeeded. Readers never see a partial report.
func WriteFile(ctx context.Context, path string, render func(io.Writer) error) error {
	logger := log.FromContext(ctx)

	pendingFile, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending report file: %w", err)
	}
	defer func() {
		// No-op after a successful CloseAtomicallyReplace.
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending report file")
		}
	}()

	if err := render(pendingFile); err != nil {
		return err
	}

	// fsync + rename
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace report file: %w", err)
	}
	return nil
}
