// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"github.com/ManuGH/salesinsights/internal/daemon"
	"github.com/ManuGH/salesinsights/internal/log"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var listen string
	var noWatch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard and the JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.ListenAddr = listen
			}
			if noWatch {
				cfg.Dataset.Watch = false
			}

			ctx, stop := daemon.WaitForShutdown()
			defer stop()

			rt, err := daemon.Bootstrap(ctx, cfg)
			if err != nil {
				return err
			}

			logger := log.WithComponent("daemon")
			logger.Info().
				Str(log.FieldEvent, "daemon.starting").
				Str("listen", cfg.Server.ListenAddr).
				Str("dataset", cfg.Dataset.Path).
				Msg("starting salesinsights")

			if err := rt.Run(ctx); !daemon.IsShutdown(err) {
				return err
			}
			logger.Info().Str(log.FieldEvent, "daemon.stopped").Msg("salesinsights stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides server.listenAddr)")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not reload the dataset when the file changes")
	return cmd
}
