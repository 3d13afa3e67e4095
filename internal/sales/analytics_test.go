// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package sales

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadSample(t *testing.T) *Dataset {
	t.Helper()
	ds, err := Load(strings.NewReader(sampleCSV), LoadOptions{})
	require.NoError(t, err)
	return ds
}

var floatApprox = cmpopts.EquateApprox(0, 1e-9)

func TestComputeKPIs(t *testing.T) {
	k := ComputeKPIs(loadSample(t))

	assert.InDelta(t, 1495.5, k.TotalRevenue, 1e-9)
	assert.Equal(t, 5, k.TotalTransactions)
	assert.InDelta(t, 299.1, k.AvgOrderValue, 1e-9)
	assert.InDelta(t, 11, k.TotalItemsSold, 1e-9)
}

func TestComputeKPIs_Empty(t *testing.T) {
	assert.Equal(t, KPIs{}, ComputeKPIs(&Dataset{}))
	assert.Equal(t, KPIs{}, ComputeKPIs(nil))
}

func TestTopProducts(t *testing.T) {
	got := TopProducts(loadSample(t), 5)
	want := []Ranked{
		{Name: "Gadget", Revenue: 1240},
		{Name: "Widget", Revenue: 250.5},
	}
	if diff := cmp.Diff(want, got, floatApprox); diff != "" {
		t.Errorf("TopProducts mismatch (-want +got):\n%s", diff)
	}
}

func TestRank_TieBreakAndLimit(t *testing.T) {
	ds := &Dataset{HasCity: true, Records: []Record{
		{Product: "b", City: "X", Revenue: 10},
		{Product: "a", City: "Y", Revenue: 10},
		{Product: "c", City: "Z", Revenue: 30},
		{Product: "d", City: "Z", Revenue: 1},
	}}

	got := TopProducts(ds, 3)
	want := []Ranked{{"c", 30}, {"a", 10}, {"b", 10}}
	if diff := cmp.Diff(want, got, floatApprox); diff != "" {
		t.Errorf("TopProducts mismatch (-want +got):\n%s", diff)
	}

	assert.Len(t, TopProducts(ds, 0), 4, "n <= 0 returns all entries")
	cities := TopCities(ds, 1)
	require.Len(t, cities, 1)
	assert.Equal(t, Ranked{Name: "Z", Revenue: 31}, cities[0])
}

func TestMonthlyRevenue_Chronological(t *testing.T) {
	got := MonthlyRevenue(loadSample(t))
	want := []MonthPoint{
		{YearMonth: "2024-01", Revenue: 140.5},
		{YearMonth: "2024-02", Revenue: 150},
		{YearMonth: "2024-03", Revenue: 1205},
	}
	if diff := cmp.Diff(want, got, floatApprox); diff != "" {
		t.Errorf("MonthlyRevenue mismatch (-want +got):\n%s", diff)
	}
}

func TestCities(t *testing.T) {
	assert.Equal(t, []string{"Berlin", "Hamburg", "Munich"}, Cities(loadSample(t)))
}

func TestFilter(t *testing.T) {
	ds := loadSample(t)

	assert.Same(t, ds, Filter(ds, ""))
	assert.Same(t, ds, Filter(ds, "all"))
	assert.Same(t, ds, Filter(ds, AllCities))

	berlin := Filter(ds, "Berlin")
	assert.Equal(t, 3, berlin.Len())
	for _, r := range berlin.Records {
		assert.Equal(t, "Berlin", r.City)
	}
	assert.Equal(t, 5, ds.Len(), "input must not be modified")

	unknown := Filter(ds, "Atlantis")
	assert.Equal(t, 0, unknown.Len())
	assert.Equal(t, KPIs{}, ComputeKPIs(unknown))
}

func TestAnalyze_FilterScope(t *testing.T) {
	ds := loadSample(t)
	ov := Analyze(ds, AnalyzeOptions{City: "Hamburg"})

	assert.Equal(t, "Hamburg", ov.City)
	// KPIs and city ranking ignore the filter
	assert.Equal(t, 5, ov.KPIs.TotalTransactions)
	assert.Len(t, ov.TopCities, 3)
	// trend and product ranking follow it
	require.Len(t, ov.MonthlyRevenue, 1)
	assert.Equal(t, "2024-01", ov.MonthlyRevenue[0].YearMonth)
	require.Len(t, ov.TopProducts, 1)
	assert.Equal(t, "Gadget", ov.TopProducts[0].Name)

	all := Analyze(ds, AnalyzeOptions{})
	assert.Equal(t, AllCities, all.City)
	assert.Len(t, all.MonthlyRevenue, 3)
	assert.Equal(t, []string{"Berlin", "Hamburg", "Munich"}, all.Cities)
}
