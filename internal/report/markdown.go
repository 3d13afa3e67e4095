// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ManuGH/salesinsights/internal/insights"
	"github.com/ManuGH/salesinsights/internal/sales"
)

// RenderMarkdown writes a self-contained Markdown report: KPIs, rankings, the
// monthly trend and, when in is non-nil, the generated insights.
func RenderMarkdown(w io.Writer, ov sales.Overview, in *insights.Insight) error {
	bw := bufio.NewWriter(w)
	city := ov.City
	if city == "" {
		city = sales.AllCities
	}

	fmt.Fprintf(bw, "# %s\n\n", DefaultTitle)
	fmt.Fprintf(bw, "_City filter: %s_\n\n", city)

	bw.WriteString("## Key Metrics\n\n| Metric | Value |\n|---|---:|\n")
	for _, k := range kpiCards(ov.KPIs) {
		fmt.Fprintf(bw, "| %s | %s |\n", k.Label, k.Value)
	}

	fmt.Fprintf(bw, "\n## Monthly Revenue Trend (%s)\n\n", city)
	if len(ov.MonthlyRevenue) == 0 {
		bw.WriteString("No revenue recorded for this selection.\n")
	} else {
		bw.WriteString("| Month | Revenue |\n|---|---:|\n")
		for _, m := range ov.MonthlyRevenue {
			fmt.Fprintf(bw, "| %s | %s |\n", m.YearMonth, sales.FormatMoney(m.Revenue, 2))
		}
	}

	fmt.Fprintf(bw, "\n## Top Products by Revenue (%s)\n\n", city)
	writeRanking(bw, "Product", ov.TopProducts)

	if ov.HasCity {
		bw.WriteString("\n## Top Cities by Revenue\n\n")
		writeRanking(bw, "City", ov.TopCities)
	}

	if in != nil {
		bw.WriteString("\n## AI-Generated Sales Insights\n\n")
		fmt.Fprintf(bw, "_Generated by %s/%s on %s_\n\n", in.Provider, in.Model, in.CreatedAt.Format("2006-01-02 15:04 MST"))
		bw.WriteString(strings.TrimSpace(in.Text))
		bw.WriteString("\n")
	}

	fmt.Fprintf(bw, "\n---\n%d rows read, %d dropped.\n", ov.Stats.RowsRead, ov.Stats.RowsDropped)

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	return nil
}

func writeRanking(bw *bufio.Writer, label string, items []sales.Ranked) {
	if len(items) == 0 {
		bw.WriteString("No revenue recorded for this selection.\n")
		return
	}
	fmt.Fprintf(bw, "| # | %s | Revenue |\n|---:|---|---:|\n", label)
	for i, it := range items {
		fmt.Fprintf(bw, "| %d | %s | %s |\n", i+1, escapeCell(it.Name), sales.FormatMoney(it.Revenue, 2))
	}
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
