// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package insights

import (
	"context"
	"fmt"
	"strings"

	"github.com/ManuGH/salesinsights/internal/sales"
)

// Heuristic derives a rule-based analysis from the KPI overview. It needs no
// network access and always produces the same text for the same data.
type Heuristic struct{}

// NewHeuristic returns the offline generator.
func NewHeuristic() *Heuristic { return &Heuristic{} }

func (*Heuristic) Name() string  { return "heuristic" }
func (*Heuristic) Model() string { return "heuristic" }

func (*Heuristic) Generate(ctx context.Context, in Input) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ov := in.Overview
	if ov.KPIs.TotalTransactions == 0 {
		return "No sales transactions are available for this selection, so no insights can be derived.", nil
	}

	var b strings.Builder
	section := func(title string, items []string) {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "## %s\n", title)
		for _, it := range items {
			fmt.Fprintf(&b, "- %s\n", it)
		}
	}

	section("Key Insights", keyInsights(ov))
	section("Potential Risks", risks(ov))
	section("Opportunities for Growth", opportunities(ov))
	section("Actionable Recommendations", recommendations(ov))
	return strings.TrimSuffix(b.String(), "\n"), nil
}

func share(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total * 100
}

func money(v float64) string { return sales.FormatMoney(v, 2) }

func keyInsights(ov sales.Overview) []string {
	k := ov.KPIs
	out := []string{
		fmt.Sprintf("Revenue totals %s across %s transactions, an average order value of %s.",
			money(k.TotalRevenue), sales.FormatCount(k.TotalTransactions), money(k.AvgOrderValue)),
	}

	if len(ov.TopProducts) > 0 {
		p := ov.TopProducts[0]
		out = append(out, fmt.Sprintf("%s is the best-selling product with %s (%.1f%% of revenue).",
			p.Name, money(p.Revenue), share(p.Revenue, k.TotalRevenue)))
	} else {
		out = append(out, "No product names are recorded, so product performance cannot be ranked.")
	}

	if len(ov.TopCities) > 0 {
		c := ov.TopCities[0]
		out = append(out, fmt.Sprintf("%s leads all cities with %s (%.1f%% of revenue).",
			c.Name, money(c.Revenue), share(c.Revenue, k.TotalRevenue)))
	} else {
		out = append(out, "The dataset has no city breakdown, so regional performance is not visible.")
	}

	best, worst := extremes(ov.MonthlyRevenue)
	if best.YearMonth != "" {
		out = append(out, fmt.Sprintf("%s was the strongest month (%s); %s the weakest (%s).",
			best.YearMonth, money(best.Revenue), worst.YearMonth, money(worst.Revenue)))
	}

	if last, prev, ok := lastTwo(ov.MonthlyRevenue); ok {
		out = append(out, fmt.Sprintf("Revenue moved %+.1f%% from %s to %s.",
			change(prev.Revenue, last.Revenue), prev.YearMonth, last.YearMonth))
	} else {
		items := 0.0
		if k.TotalTransactions > 0 {
			items = k.TotalItemsSold / float64(k.TotalTransactions)
		}
		out = append(out, fmt.Sprintf("Customers buy %.1f items per order on average.", items))
	}
	return out
}

func risks(ov sales.Overview) []string {
	k := ov.KPIs
	out := make([]string, 0, 3)

	if len(ov.TopProducts) > 0 {
		s := share(ov.TopProducts[0].Revenue, k.TotalRevenue)
		if s >= 50 {
			out = append(out, fmt.Sprintf("Heavy reliance on %s (%.1f%% of revenue) makes results sensitive to a single product.", ov.TopProducts[0].Name, s))
		} else {
			out = append(out, fmt.Sprintf("Revenue is spread across products (top product %.1f%%); slow movers may tie up stock.", s))
		}
	} else {
		out = append(out, "Missing product data limits assortment decisions.")
	}

	if last, prev, ok := lastTwo(ov.MonthlyRevenue); ok && last.Revenue < prev.Revenue {
		out = append(out, fmt.Sprintf("The latest month (%s) fell %.1f%% short of the month before.", last.YearMonth, -change(prev.Revenue, last.Revenue)))
	} else {
		best, worst := extremes(ov.MonthlyRevenue)
		out = append(out, fmt.Sprintf("Monthly revenue swings between %s and %s, which complicates planning.", money(worst.Revenue), money(best.Revenue)))
	}

	if ov.Stats.RowsDropped > 0 {
		out = append(out, fmt.Sprintf("%d of %d rows were discarded as invalid, so totals may understate actual sales.", ov.Stats.RowsDropped, ov.Stats.RowsRead))
	} else {
		out = append(out, "Results rest on a single export; without targets or prior-year data, underperformance is hard to spot.")
	}
	return out
}

func opportunities(ov sales.Overview) []string {
	out := make([]string, 0, 3)
	if len(ov.TopProducts) > 1 {
		out = append(out, fmt.Sprintf("%s is the runner-up product; targeted promotion could close the gap to %s.", ov.TopProducts[1].Name, ov.TopProducts[0].Name))
	} else {
		out = append(out, "Broadening the assortment beyond the current best seller would diversify revenue.")
	}
	if n := len(ov.TopCities); n > 1 {
		out = append(out, fmt.Sprintf("%s trails the leading cities and is a candidate for local campaigns.", ov.TopCities[n-1].Name))
	} else {
		out = append(out, "Capturing customer location would reveal regional growth markets.")
	}
	out = append(out, fmt.Sprintf("Bundles and upsells can lift the %s average order value.", money(ov.KPIs.AvgOrderValue)))
	return out
}

func recommendations(ov sales.Overview) []string {
	best, _ := extremes(ov.MonthlyRevenue)
	out := []string{}
	if len(ov.TopProducts) > 0 {
		out = append(out, fmt.Sprintf("Secure stock and visibility for %s.", ov.TopProducts[0].Name))
	} else {
		out = append(out, "Record product names on every transaction.")
	}
	if len(ov.TopCities) > 0 {
		out = append(out, fmt.Sprintf("Use %s as the template market for campaigns in other cities.", ov.TopCities[0].Name))
	} else {
		out = append(out, "Add a city column to the sales export.")
	}
	if best.YearMonth != "" {
		out = append(out, fmt.Sprintf("Review what drove %s and repeat it in weaker months.", best.YearMonth))
	}
	out = append(out,
		"Set a monthly revenue target and track it on this dashboard.",
		"Test a minimum-basket incentive to raise order value.",
	)
	if len(out) > 5 {
		out = out[:5]
	}
	return out
}

func extremes(months []sales.MonthPoint) (best, worst sales.MonthPoint) {
	for i, m := range months {
		if i == 0 || m.Revenue > best.Revenue {
			best = m
		}
		if i == 0 || m.Revenue < worst.Revenue {
			worst = m
		}
	}
	return best, worst
}

func lastTwo(months []sales.MonthPoint) (last, prev sales.MonthPoint, ok bool) {
	if len(months) < 2 {
		return last, prev, false
	}
	return months[len(months)-1], months[len(months)-2], true
}

func change(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from * 100
}
