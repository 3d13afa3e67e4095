// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package report renders the sales dashboard as HTML (with inline SVG charts)
// and as a Markdown report.
package report

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/ManuGH/salesinsights/internal/insights"
	"github.com/ManuGH/salesinsights/internal/sales"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const (
	DefaultTitle   = "AI-Powered Sales Insights Dashboard"
	DefaultCaption = "Interactive sales analytics with AI-generated business insights"
)

var dashboardTmpl = template.Must(template.New("dashboard.html.tmpl").Funcs(template.FuncMap{
	"add":  func(a, b float64) float64 { return a + b },
	"sub":  func(a, b float64) float64 { return a - b },
	"sub1": func(a, b int) int { return a - b },
	"half": func(v int) float64 { return float64(v) / 2 },
	"mod": func(a, b int) int {
		if b <= 0 {
			return 0
		}
		return a % b
	},
}).ParseFS(templateFS, "templates/dashboard.html.tmpl"))

// Options carries everything the dashboard shows besides the overview.
type Options struct {
	Title        string
	Caption      string
	TopN         int
	Insight      *insights.Insight
	InsightError string
	InsightHint  string
	Provider     string
	Model        string
	Version      string
}

type kpiCard struct {
	Label string
	Value string
}

type cityOption struct {
	Name     string
	Selected bool
}

type dashboardView struct {
	Title, Caption string
	City           string
	HasCity        bool
	CityOptions    []cityOption
	KPIs           []kpiCard
	Stats          sales.IngestStats

	TrendTitle    string
	Trend         LineChart
	ProductsTitle string
	Products      BarChart
	CitiesTitle   string
	CityChart     BarChart

	Insight      *insights.Insight
	InsightError string
	InsightHint  string
	Provider     string
	Model        string
	Version      string
}

// kpiCards formats the headline numbers the way the dashboard shows them:
// revenue without cents, transactions and items with separators, AOV with cents.
func kpiCards(k sales.KPIs) []kpiCard {
	return []kpiCard{
		{Label: "Total Revenue", Value: sales.FormatMoney(k.TotalRevenue, 0)},
		{Label: "Total Transactions", Value: sales.FormatCount(k.TotalTransactions)},
		{Label: "Avg Order Value", Value: sales.FormatMoney(k.AvgOrderValue, 2)},
		{Label: "Total Items Sold", Value: sales.FormatNumber(k.TotalItemsSold, 0)},
	}
}

func newDashboardView(ov sales.Overview, opts Options) dashboardView {
	topN := opts.TopN
	if topN <= 0 {
		topN = sales.DefaultTopN
	}
	city := ov.City
	if city == "" {
		city = sales.AllCities
	}

	v := dashboardView{
		Title:         opts.Title,
		Caption:       opts.Caption,
		City:          city,
		HasCity:       ov.HasCity,
		KPIs:          kpiCards(ov.KPIs),
		Stats:         ov.Stats,
		TrendTitle:    fmt.Sprintf("Monthly Revenue Trend (%s)", city),
		Trend:         newLineChart(ov.MonthlyRevenue),
		ProductsTitle: fmt.Sprintf("Top %d Products by Revenue (%s)", topN, city),
		Products:      newBarChart(ov.TopProducts),
		CitiesTitle:   fmt.Sprintf("Top %d Cities by Revenue", topN),
		CityChart:     newBarChart(ov.TopCities),
		Insight:       opts.Insight,
		InsightError:  opts.InsightError,
		InsightHint:   opts.InsightHint,
		Provider:      opts.Provider,
		Model:         opts.Model,
		Version:       opts.Version,
	}
	if v.Title == "" {
		v.Title = DefaultTitle
	}
	if v.Caption == "" {
		v.Caption = DefaultCaption
	}

	v.CityOptions = append(v.CityOptions, cityOption{Name: sales.AllCities, Selected: city == sales.AllCities})
	for _, c := range ov.Cities {
		v.CityOptions = append(v.CityOptions, cityOption{Name: c, Selected: c == city})
	}
	return v
}

// RenderHTML writes the dashboard page for ov.
func RenderHTML(w io.Writer, ov sales.Overview, opts Options) error {
	if err := dashboardTmpl.Execute(w, newDashboardView(ov, opts)); err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}
	return nil
}
