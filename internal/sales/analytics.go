// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package sales

import (
	"cmp"
	"slices"
	"strings"
)

// AllCities is the filter value that disables city filtering.
const AllCities = "All"

// DefaultTopN is the ranking depth used by the dashboard and the summary.
const DefaultTopN = 5

// KPIs are the headline numbers shown above the charts.
type KPIs struct {
	TotalRevenue      float64 `json:"total_revenue"`
	TotalTransactions int     `json:"total_transactions"`
	AvgOrderValue     float64 `json:"avg_order_value"`
	TotalItemsSold    float64 `json:"total_items_sold"`
}

// Ranked is one entry of a top-N revenue ranking.
type Ranked struct {
	Name    string  `json:"name"`
	Revenue float64 `json:"revenue"`
}

// MonthPoint is the revenue of one calendar month (YYYY-MM).
type MonthPoint struct {
	YearMonth string  `json:"year_month"`
	Revenue   float64 `json:"revenue"`
}

// ComputeKPIs aggregates the headline numbers. The average order value is the
// mean revenue per transaction row and zero for an empty dataset.
func ComputeKPIs(ds *Dataset) KPIs {
	var k KPIs
	if ds == nil {
		return k
	}
	for _, r := range ds.Records {
		k.TotalRevenue += r.Revenue
		k.TotalItemsSold += r.Quantity
	}
	k.TotalTransactions = len(ds.Records)
	if k.TotalTransactions > 0 {
		k.AvgOrderValue = k.TotalRevenue / float64(k.TotalTransactions)
	}
	return k
}

// TopProducts ranks products by summed revenue. n <= 0 returns every product.
func TopProducts(ds *Dataset, n int) []Ranked {
	if ds == nil {
		return nil
	}
	return rank(ds.Records, func(r Record) string { return r.Product }, n)
}

// TopCities ranks cities by summed revenue, or returns nil when the dataset has
// no city column.
func TopCities(ds *Dataset, n int) []Ranked {
	if ds == nil || !ds.HasCity {
		return nil
	}
	return rank(ds.Records, func(r Record) string { return r.City }, n)
}

// rank sums revenue per non-empty key, orders by revenue descending with ties
// broken by name, and keeps the first n entries.
func rank(records []Record, key func(Record) string, n int) []Ranked {
	totals := make(map[string]float64)
	for _, r := range records {
		k := key(r)
		if k == "" {
			continue
		}
		totals[k] += r.Revenue
	}

	out := make([]Ranked, 0, len(totals))
	for name, revenue := range totals {
		out = append(out, Ranked{Name: name, Revenue: revenue})
	}
	slices.SortFunc(out, func(a, b Ranked) int {
		if c := cmp.Compare(b.Revenue, a.Revenue); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// MonthlyRevenue sums revenue per calendar month in chronological order.
func MonthlyRevenue(ds *Dataset) []MonthPoint {
	if ds == nil {
		return nil
	}
	totals := make(map[string]float64)
	for _, r := range ds.Records {
		totals[r.YearMonth] += r.Revenue
	}
	out := make([]MonthPoint, 0, len(totals))
	for ym, revenue := range totals {
		out = append(out, MonthPoint{YearMonth: ym, Revenue: revenue})
	}
	slices.SortFunc(out, func(a, b MonthPoint) int {
		return strings.Compare(a.YearMonth, b.YearMonth)
	})
	return out
}

// Cities returns the sorted distinct city names, used as filter options.
func Cities(ds *Dataset) []string {
	if ds == nil || !ds.HasCity {
		return nil
	}
	seen := make(map[string]struct{})
	for _, r := range ds.Records {
		if r.City == "" {
			continue
		}
		seen[r.City] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

// IsAllCities reports whether city selects the unfiltered dataset.
func IsAllCities(city string) bool {
	city = strings.TrimSpace(city)
	return city == "" || strings.EqualFold(city, AllCities)
}

// Filter returns the rows of a single city. "" and "All" return ds itself, as
// does a dataset without a city column. An unknown city yields an empty dataset.
func Filter(ds *Dataset, city string) *Dataset {
	if ds == nil || IsAllCities(city) || !ds.HasCity {
		return ds
	}
	city = strings.TrimSpace(city)
	out := &Dataset{
		HasCity: ds.HasCity,
		Columns: ds.Columns,
		Stats:   ds.Stats,
	}
	for _, r := range ds.Records {
		if r.City == city {
			out.Records = append(out.Records, r)
		}
	}
	return out
}

// AnalyzeOptions selects the dashboard view.
type AnalyzeOptions struct {
	City string
	TopN int
}

// Overview is everything the dashboard renders for one view.
type Overview struct {
	City           string       `json:"city"`
	HasCity        bool         `json:"has_city"`
	KPIs           KPIs         `json:"kpis"`
	MonthlyRevenue []MonthPoint `json:"monthly_revenue"`
	TopProducts    []Ranked     `json:"top_products"`
	TopCities      []Ranked     `json:"top_cities,omitempty"`
	Cities         []string     `json:"cities,omitempty"`
	Stats          IngestStats  `json:"stats"`
}

// Analyze builds the dashboard model. KPIs and the city ranking always cover
// the full dataset; the monthly trend and product ranking follow the city filter.
func Analyze(ds *Dataset, opts AnalyzeOptions) Overview {
	topN := opts.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}
	city := strings.TrimSpace(opts.City)
	if IsAllCities(city) {
		city = AllCities
	}

	filtered := Filter(ds, city)
	ov := Overview{
		City:           city,
		KPIs:           ComputeKPIs(ds),
		MonthlyRevenue: MonthlyRevenue(filtered),
		TopProducts:    TopProducts(filtered, topN),
		TopCities:      TopCities(ds, topN),
		Cities:         Cities(ds),
	}
	if ds != nil {
		ov.HasCity = ds.HasCity
		ov.Stats = ds.Stats
	}
	return ov
}
