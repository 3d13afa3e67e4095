// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ManuGH/salesinsights/internal/config"
	"github.com/ManuGH/salesinsights/internal/daemon"
	"github.com/ManuGH/salesinsights/internal/dataset"
	"github.com/ManuGH/salesinsights/internal/insights"
	"github.com/ManuGH/salesinsights/internal/log"
	"github.com/ManuGH/salesinsights/internal/report"
	"github.com/ManuGH/salesinsights/internal/sales"
	"github.com/spf13/cobra"
)

// offline is a loaded dataset plus the config it was read with, shared by the
// commands that analyse the CSV without starting the server.
type offline struct {
	cfg   config.AppConfig
	store *dataset.Store
}

func openOffline(ctx context.Context, opts *rootOptions) (*offline, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	configureCLILogging(cfg)

	loadOpts, err := daemon.LoadOptions(cfg.Dataset)
	if err != nil {
		return nil, err
	}
	store := dataset.NewStore(dataset.Options{
		Path:   cfg.Dataset.Path,
		Load:   loadOpts,
		Logger: log.WithComponent("dataset"),
	})
	if err := store.Reload(ctx); err != nil {
		return nil, err
	}
	return &offline{cfg: cfg, store: store}, nil
}

// view returns the dataset restricted to city; unknown cities are an error.
func (o *offline) view(city string) (*sales.Dataset, string, error) {
	ds, err := o.store.Current()
	if err != nil {
		return nil, "", err
	}
	city = strings.TrimSpace(city)
	if sales.IsAllCities(city) {
		return ds, sales.AllCities, nil
	}
	filtered := sales.Filter(ds, city)
	if !ds.HasCity || filtered.Len() == 0 {
		return nil, "", fmt.Errorf("%w: %q", insights.ErrUnknownCity, city)
	}
	return filtered, city, nil
}

func (o *offline) topN(flag int) int {
	if flag > 0 {
		return flag
	}
	return o.cfg.Dataset.TopN
}

// generate runs one insight generation without cache or history.
func (o *offline) generate(ctx context.Context, city string) (*insights.Insight, error) {
	logger := log.WithComponent("insights")
	svc := insights.NewService(insights.ServiceConfig{
		Source:    o.store,
		Generator: daemon.NewGenerator(ctx, o.cfg.Insights, logger),
		TopN:      o.cfg.Dataset.TopN,
		Logger:    logger,
	})
	return svc.Generate(ctx, insights.Request{City: city})
}

func newSummaryCmd(opts *rootOptions) *cobra.Command {
	var city string
	var top int

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the KPI summary of the sales dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o, err := openOffline(cmd.Context(), opts)
			if err != nil {
				return err
			}
			ds, _, err := o.view(city)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), sales.Summary(ds, o.topN(top)))
			return err
		},
	}
	cmd.Flags().StringVar(&city, "city", sales.AllCities, "restrict the summary to one city")
	cmd.Flags().IntVar(&top, "top", 0, "number of ranked products and cities (default dataset.topN)")
	return cmd
}

func newInsightsCmd(opts *rootOptions) *cobra.Command {
	var city string

	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Generate business insights for the sales dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			o, err := openOffline(ctx, opts)
			if err != nil {
				return err
			}
			if timeout := o.cfg.Insights.Timeout; timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			in, err := o.generate(ctx, city)
			if err != nil {
				return withHint(err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# Insights for %s (%s/%s)\n\n", in.City, in.Provider, in.Model)
			fmt.Fprintln(out, in.Text)
			return nil
		},
	}
	cmd.Flags().StringVar(&city, "city", sales.AllCities, "restrict the analysis to one city")
	return cmd
}

func newReportCmd(opts *rootOptions) *cobra.Command {
	var (
		city         string
		format       string
		outPath      string
		withInsights bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the dashboard as a static HTML or Markdown report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			format = strings.ToLower(format)
			if format != "html" && format != "markdown" && format != "md" {
				return fmt.Errorf("unsupported report format %q (want html or markdown)", format)
			}

			o, err := openOffline(ctx, opts)
			if err != nil {
				return err
			}
			if _, city, err = o.view(city); err != nil {
				return err
			}
			full, err := o.store.Current()
			if err != nil {
				return err
			}
			// KPIs and the city ranking cover the full dataset, like the dashboard.
			ov := sales.Analyze(full, sales.AnalyzeOptions{City: city, TopN: o.cfg.Dataset.TopN})

			var in *insights.Insight
			var genErr error
			if withInsights {
				in, genErr = o.generate(ctx, city)
				if genErr != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "Warning:", withHint(genErr))
				}
			}

			render := func(w io.Writer) error {
				if format == "html" {
					ropts := report.Options{
						Caption: o.cfg.Dataset.Path,
						TopN:    o.cfg.Dataset.TopN,
						Insight: in,
						Version: o.cfg.Version,
					}
					if genErr != nil {
						ropts.InsightError = genErr.Error()
					}
					return report.RenderHTML(w, ov, ropts)
				}
				return report.RenderMarkdown(w, ov, in)
			}

			if outPath == "" || outPath == "-" {
				return render(cmd.OutOrStdout())
			}
			if err := report.WriteFile(ctx, outPath, render); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&city, "city", sales.AllCities, "restrict the report to one city")
	cmd.Flags().StringVarP(&format, "format", "f", "html", "report format: html or markdown")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&withInsights, "with-insights", false, "generate insights and include them in the report")
	return cmd
}

// withHint appends the provider hint of a failed generation.
func withHint(err error) error {
	var genErr *insights.GenerationError
	if errors.As(err, &genErr) && genErr.Hint != "" {
		return fmt.Errorf("%w\nhint: %s", err, genErr.Hint)
	}
	return err
}

