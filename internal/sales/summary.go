// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package sales

import (
	"fmt"
	"strings"
)

// Summary renders the KPI summary fed to the insight generator. The city
// section is only present when the dataset has a city column.
func Summary(ds *Dataset, topN int) string {
	if topN <= 0 {
		topN = DefaultTopN
	}
	k := ComputeKPIs(ds)

	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line("=== High-Level Sales Summary ===")
	line("Total revenue: %s", FormatMoney(k.TotalRevenue, 2))
	line("Total transactions: %d", k.TotalTransactions)
	line("Average order value: %s", FormatMoney(k.AvgOrderValue, 2))
	line("Total items sold: %s", FormatNumber(k.TotalItemsSold, 0))

	line("\n=== Top %d Products by Revenue ===", topN)
	for _, p := range TopProducts(ds, topN) {
		line("- %s: %s", p.Name, FormatMoney(p.Revenue, 2))
	}

	if ds != nil && ds.HasCity {
		line("\n=== Top %d Cities by Revenue ===", topN)
		for _, c := range TopCities(ds, topN) {
			line("- %s: %s", c.Name, FormatMoney(c.Revenue, 2))
		}
	}

	line("\n=== Monthly Revenue (chronological) ===")
	for _, m := range MonthlyRevenue(ds) {
		line("- %s: %s", m.YearMonth, FormatMoney(m.Revenue, 2))
	}

	return strings.TrimSuffix(b.String(), "\n")
}
