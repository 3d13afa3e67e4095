// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Command salesinsights serves the sales dashboard and runs one-off analyses.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/ManuGH/salesinsights/internal/config"
	"github.com/ManuGH/salesinsights/internal/log"
	"github.com/ManuGH/salesinsights/internal/version"
	"github.com/spf13/cobra"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	dataset    string
	provider   string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "salesinsights",
		Short: "Sales KPI dashboard with AI-generated business insights",
		Long: `salesinsights loads a sales CSV export, computes revenue KPIs and rankings,
and asks an LLM (OpenAI, Gemini or the offline heuristic) for insights.

Run "salesinsights serve" to start the dashboard.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to YAML config file (default $SALES_CONFIG)")
	root.PersistentFlags().StringVar(&opts.dataset, "dataset", "", "sales CSV path (overrides dataset.path)")
	root.PersistentFlags().StringVar(&opts.provider, "provider", "", "insights provider: auto, openai, gemini or heuristic")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (overrides log.level)")

	serve := newServeCmd(opts)
	// Without a subcommand the binary serves, like a container entrypoint expects.
	root.RunE = serve.RunE
	root.Args = cobra.NoArgs

	root.AddCommand(
		serve,
		newSummaryCmd(opts),
		newInsightsCmd(opts),
		newReportCmd(opts),
		newConfigCmd(opts),
		newHealthcheckCmd(opts),
		newVersionCmd(),
	)
	return root
}

// loadConfig resolves defaults, file, environment and flags, in that order,
// and validates the result.
func loadConfig(opts *rootOptions) (config.AppConfig, error) {
	path := strings.TrimSpace(opts.configPath)
	if path == "" {
		path = strings.TrimSpace(os.Getenv(config.EnvPrefix + "CONFIG"))
	}

	loader := config.NewLoader(path, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		return cfg, err
	}

	overridden := false
	if opts.dataset != "" {
		cfg.Dataset.Path = opts.dataset
		overridden = true
	}
	if opts.provider != "" {
		cfg.Insights.Provider = strings.ToLower(opts.provider)
		overridden = true
	}
	if opts.logLevel != "" {
		cfg.Log.Level = strings.ToLower(opts.logLevel)
		overridden = true
	}
	if overridden {
		if err := config.Validate(cfg); err != nil {
			return cfg, fmt.Errorf("config validation failed: %w", err)
		}
	}
	return cfg, nil
}

// configureCLILogging keeps one-off commands quiet on stdout; logs go to stderr.
func configureCLILogging(cfg config.AppConfig) {
	level := cfg.Log.Level
	if level == "" || level == "info" {
		level = "warn"
	}
	log.Configure(log.Config{
		Level:   level,
		Output:  os.Stderr,
		Service: "salesinsights",
		Version: cfg.Version,
		Pretty:  true,
	})
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
