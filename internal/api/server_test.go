// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ManuGH/salesinsights/internal/config"
	"github.com/ManuGH/salesinsights/internal/dataset"
	"github.com/ManuGH/salesinsights/internal/insights"
	"github.com/ManuGH/salesinsights/internal/sales"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCSV = `Date,Product,City,Total Items,Total Cost
2024-01-05,Widget,Berlin,2,100.50
2024-01-20,Gadget,Hamburg,1,40
2024-02-03,Widget,Berlin,3,150
2024-03-01,Gadget,Berlin,4,1200
2024-03-15,Gizmo,Munich,1,5
`

type testEnv struct {
	srv   *Server
	store *dataset.Store
	svc   *insights.Service
	path  string
}

func newTestEnv(t *testing.T, load bool) *testEnv {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte(testCSV), 0o600))

	store := dataset.NewStore(dataset.Options{Path: path, Logger: zerolog.Nop()})
	if load {
		require.NoError(t, store.Reload(context.Background()))
	}
	svc := insights.NewService(insights.ServiceConfig{
		Source:    store,
		Generator: insights.NewHeuristic(),
		Logger:    zerolog.Nop(),
	})

	cfg := config.AppConfig{Version: "test"}
	cfg.RateLimit.InsightsPerMinute = 100
	return &testEnv{
		srv:   New(Deps{Config: cfg, Dataset: store, Insights: svc}),
		store: store,
		svc:   svc,
		path:  path,
	}
}

func (e *testEnv) do(t *testing.T, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestOverview(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodGet, "/api/v1/overview?city=Berlin&top=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	ov := decode[sales.Overview](t, rec)
	assert.Equal(t, "Berlin", ov.City)
	assert.Equal(t, 5, ov.KPIs.TotalTransactions)
	assert.Len(t, ov.TopProducts, 2)
	assert.Equal(t, "Gadget", ov.TopProducts[0].Name)
	assert.Equal(t, []string{"Berlin", "Hamburg", "Munich"}, ov.Cities)
}

func TestOverview_BadParams(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodGet, "/api/v1/overview?top=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeBadRequest, decode[APIError](t, rec).Code)

	rec = env.do(t, http.MethodGet, "/api/v1/overview?city=Paris", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[APIError](t, rec)
	assert.Equal(t, codeUnknownCity, body.Code)
	assert.NotEmpty(t, body.RequestID)
}

func TestReadEndpoints(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodGet, "/api/v1/kpis", "")
	require.Equal(t, http.StatusOK, rec.Code)
	kpis := decode[sales.KPIs](t, rec)
	assert.InDelta(t, 1495.5, kpis.TotalRevenue, 1e-9)
	assert.InDelta(t, 299.1, kpis.AvgOrderValue, 1e-9)

	rec = env.do(t, http.MethodGet, "/api/v1/revenue/monthly?city=Berlin", "")
	require.Equal(t, http.StatusOK, rec.Code)
	monthly := decode[struct {
		City   string             `json:"city"`
		Months []sales.MonthPoint `json:"months"`
	}](t, rec)
	want := []sales.MonthPoint{
		{YearMonth: "2024-01", Revenue: 100.5},
		{YearMonth: "2024-02", Revenue: 150},
		{YearMonth: "2024-03", Revenue: 1200},
	}
	if diff := cmp.Diff(want, monthly.Months); diff != "" {
		t.Errorf("monthly revenue mismatch (-want +got):\n%s", diff)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/products/top?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	products := decode[struct {
		Products []sales.Ranked `json:"products"`
	}](t, rec)
	assert.Equal(t, []sales.Ranked{{Name: "Gadget", Revenue: 1240}}, products.Products)

	rec = env.do(t, http.MethodGet, "/api/v1/cities/top?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cities := decode[struct {
		Cities []sales.Ranked `json:"cities"`
	}](t, rec)
	require.Len(t, cities.Cities, 2)
	assert.Equal(t, "Berlin", cities.Cities[0].Name)

	rec = env.do(t, http.MethodGet, "/api/v1/cities/top?limit=500", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/cities", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"has_city":true,"cities":["Berlin","Hamburg","Munich"]}`, rec.Body.String())
}

func TestSummary(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodGet, "/api/v1/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Total revenue: $1,495.50")
}

func TestDatasetNotLoaded(t *testing.T) {
	env := newTestEnv(t, false)

	for _, target := range []string{"/api/v1/overview", "/api/v1/kpis", "/api/v1/summary"} {
		rec := env.do(t, http.MethodGet, target, "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, target)
		assert.Equal(t, codeDatasetUnavailable, decode[APIError](t, rec).Code)
	}

	rec := env.do(t, http.MethodPost, "/api/v1/insights", `{"city":""}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = env.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDatasetReloadAndStatus(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodGet, "/api/v1/dataset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[dataset.Status](t, rec).Loaded)

	rec = env.do(t, http.MethodPost, "/api/v1/dataset/reload", "")
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[dataset.Status](t, rec)
	assert.True(t, st.Loaded)
	assert.Equal(t, 5, st.Rows)

	require.NoError(t, os.WriteFile(env.path, []byte("Foo,Bar\n1,2\n"), 0o600))
	rec = env.do(t, http.MethodPost, "/api/v1/dataset/reload", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, codeDatasetInvalid, decode[APIError](t, rec).Code)

	// The previous dataset keeps serving.
	rec = env.do(t, http.MethodGet, "/api/v1/kpis", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInsightsLifecycle(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodPost, "/api/v1/insights", `{"city":"Berlin"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	first := decode[insights.Insight](t, rec)
	assert.Equal(t, "Berlin", first.City)
	assert.Equal(t, "heuristic", first.Provider)
	assert.False(t, first.Cached)
	assert.Contains(t, first.Text, "## Key Insights")

	rec = env.do(t, http.MethodPost, "/api/v1/insights", `{"city":"Berlin"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	second := decode[insights.Insight](t, rec)
	assert.True(t, second.Cached)
	assert.Equal(t, first.ID, second.ID)

	rec = env.do(t, http.MethodPost, "/api/v1/insights", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sales.AllCities, decode[insights.Insight](t, rec).City)

	rec = env.do(t, http.MethodPost, "/api/v1/insights", `{"city":"Paris"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeUnknownCity, decode[APIError](t, rec).Code)

	rec = env.do(t, http.MethodPost, "/api/v1/insights", `{"town":"Berlin"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// No history store is configured.
	rec = env.do(t, http.MethodGet, "/api/v1/insights", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"insights":[]}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/v1/insights/"+first.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/insights?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInsightsWithHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte(testCSV), 0o600))
	store := dataset.NewStore(dataset.Options{Path: path, Logger: zerolog.Nop()})
	require.NoError(t, store.Reload(context.Background()))

	hist, err := insights.OpenSQLiteHistory(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = hist.Close() })

	svc := insights.NewService(insights.ServiceConfig{
		Source:    store,
		Generator: insights.NewHeuristic(),
		History:   hist,
		Logger:    zerolog.Nop(),
	})
	srv := New(Deps{Config: config.AppConfig{}, Dataset: store, Insights: svc})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/insights", strings.NewReader(`{"city":"Hamburg"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	created := decode[insights.Insight](t, rec)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/insights/"+created.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[insights.Insight](t, rec)
	assert.Equal(t, created.Text, got.Text)
	assert.Equal(t, "Hamburg", got.City)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/insights?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Insights []insights.Insight `json:"insights"`
	}](t, rec)
	require.Len(t, list.Insights, 1)
	assert.Equal(t, created.ID, list.Insights[0].ID)
}

type failingGenerator struct{}

func (failingGenerator) Name() string  { return "openai" }
func (failingGenerator) Model() string { return "gpt-test" }
func (failingGenerator) Generate(context.Context, insights.Input) (string, error) {
	return "", insights.ErrUnauthorized
}

func TestInsights_ProviderFailure(t *testing.T) {
	env := newTestEnv(t, true)
	svc := insights.NewService(insights.ServiceConfig{
		Source:    env.store,
		Generator: failingGenerator{},
		Logger:    zerolog.Nop(),
	})
	srv := New(Deps{Config: config.AppConfig{}, Dataset: env.store, Insights: svc})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/insights", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := decode[APIError](t, rec)
	assert.Equal(t, codeGenerationFailed, body.Code)
	assert.Contains(t, body.Hint, "OPENAI_API_KEY")

	// The dashboard shows the failure inline.
	form := url.Values{"city": {"All"}}
	req := httptest.NewRequest(http.MethodPost, "http://example.com/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", "http://example.com")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Error generating AI insights")
	assert.Contains(t, rec.Body.String(), "OPENAI_API_KEY")
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodGet, "/?city=Berlin", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	page := rec.Body.String()
	assert.Contains(t, page, "AI-Powered Sales Insights Dashboard")
	assert.Contains(t, page, "Monthly Revenue Trend (Berlin)")
	assert.Contains(t, page, "$1,496")
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))

	// Unknown cities fall back to the full view.
	rec = env.do(t, http.MethodGet, "/?city=Paris", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Monthly Revenue Trend (All)")
}

func TestDashboard_GenerateForm(t *testing.T) {
	env := newTestEnv(t, true)

	form := url.Values{"city": {"Berlin"}}
	post := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "http://example.com/", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		rec := httptest.NewRecorder()
		env.srv.Handler().ServeHTTP(rec, req)
		return rec
	}

	rec := env.do(t, http.MethodGet, "/?city=Berlin", "")
	assert.NotContains(t, rec.Body.String(), "Key Insights")

	rec = post("https://evil.example")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = post("http://example.com")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Key Insights")

	// The latest insight is shown on later page views.
	_, ok := env.svc.Latest("Berlin")
	require.True(t, ok)
	rec = env.do(t, http.MethodGet, "/?city=Berlin", "")
	assert.Contains(t, rec.Body.String(), "Key Insights")
	rec = env.do(t, http.MethodGet, "/?city=Hamburg", "")
	assert.NotContains(t, rec.Body.String(), "Key Insights")
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNotFoundAndMethod(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodGet, "/api/v1/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, codeNotFound, decode[APIError](t, rec).Code)

	rec = env.do(t, http.MethodDelete, "/api/v1/kpis", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestClassify(t *testing.T) {
	status, body := classify(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, codeInternal, body.Code)

	status, _ = classify(context.DeadlineExceeded)
	assert.Equal(t, http.StatusGatewayTimeout, status)

	status, body = classify(&insights.GenerationError{Provider: "openai", Err: fmt.Errorf("%w: retry in 30s", insights.ErrProviderUnavailable)})
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, codeProviderUnavailable, body.Code)
}
