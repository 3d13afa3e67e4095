// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/salesinsights/internal/cache"
	"github.com/ManuGH/salesinsights/internal/dataset"
	"github.com/ManuGH/salesinsights/internal/insights"
	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const salesCSV = `Date,Product,City,Total Items,Total Cost
2024-01-05,Widget,Berlin,2,100.50
2024-02-03,Gadget,Hamburg,1,40
`

// deployment mirrors how the daemon wires readiness for one sales file.
type deployment struct {
	path  string
	store *dataset.Store
	hm    *Manager
}

func newDeployment(t *testing.T, body string) *deployment {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	store := dataset.NewStore(dataset.Options{Path: path, Logger: zerolog.Nop()})

	hm := NewManager("test")
	hm.RegisterChecker(NewDatasetChecker(func() DatasetState {
		st := store.Status()
		return DatasetState{Loaded: st.Loaded, Rows: st.Rows, LoadedAt: st.LoadedAt, LastError: st.LastError}
	}))
	hm.RegisterChecker(NewFileChecker("dataset_file", path))
	return &deployment{path: path, store: store, hm: hm}
}

func (d *deployment) readyz(t *testing.T) (int, ReadinessResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	d.hm.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestReadiness_FollowsDatasetLifecycle(t *testing.T) {
	d := newDeployment(t, salesCSV)
	ctx := context.Background()

	code, resp := d.readyz(t)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.False(t, resp.Ready)
	assert.Equal(t, "no dataset loaded yet", resp.Checks["dataset"].Message)

	require.NoError(t, d.store.Reload(ctx))
	code, resp = d.readyz(t)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Ready)
	assert.Equal(t, StatusHealthy, resp.Status)

	// A broken export keeps the previous dataset serving.
	require.NoError(t, os.WriteFile(d.path, []byte("Foo,Bar\n1,2\n"), 0o600))
	require.Error(t, d.store.Reload(ctx))
	code, resp = d.readyz(t)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Contains(t, resp.Checks["dataset"].Error, `no "date" column found`)

	require.NoError(t, os.WriteFile(d.path, []byte(salesCSV), 0o600))
	require.NoError(t, d.store.Reload(ctx))
	_, resp = d.readyz(t)
	assert.Equal(t, StatusHealthy, resp.Status)

	require.NoError(t, os.Remove(d.path))
	code, resp = d.readyz(t)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "file not found", resp.Checks["dataset_file"].Error)
}

func TestReadiness_ExportWithoutValidRows(t *testing.T) {
	for name, body := range map[string]string{
		"header only": "Date,Product,City,Total Items,Total Cost\n",
		"all invalid": "Date,Product,City,Total Items,Total Cost\nsoon,Widget,Berlin,two,100\n",
	} {
		t.Run(name, func(t *testing.T) {
			d := newDeployment(t, body)
			require.Error(t, d.store.Reload(context.Background()))

			code, resp := d.readyz(t)
			assert.Equal(t, http.StatusServiceUnavailable, code)
			assert.Equal(t, StatusUnhealthy, resp.Checks["dataset"].Status)
			assert.Contains(t, resp.Checks["dataset"].Error, "empty sales input")
		})
	}
}

func TestDatasetChecker(t *testing.T) {
	tests := []struct {
		name   string
		state  DatasetState
		status Status
		msg    string
	}{
		{"never loaded", DatasetState{}, StatusUnhealthy, "no dataset loaded yet"},
		{"failed first load", DatasetState{LastError: "open sales data: no such file"}, StatusUnhealthy, "no dataset loaded yet"},
		{"stale after failed reload", DatasetState{Loaded: true, Rows: 10, LastError: "missing column"}, StatusDegraded, "serving previous dataset"},
		{"loaded", DatasetState{Loaded: true, Rows: 10, LoadedAt: time.Now()}, StatusHealthy, "dataset loaded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewDatasetChecker(func() DatasetState { return tt.state })
			assert.Equal(t, "dataset", c.Name())
			res := c.Check(context.Background())
			assert.Equal(t, tt.status, res.Status)
			assert.Equal(t, tt.msg, res.Message)
			assert.Equal(t, tt.state.LastError, res.Error)
		})
	}
}

func TestFileChecker(t *testing.T) {
	dir := t.TempDir()
	full := filepath.Join(dir, "sales.csv")
	require.NoError(t, os.WriteFile(full, []byte(salesCSV), 0o600))
	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))

	tests := []struct {
		path   string
		status Status
		errMsg string
	}{
		{full, StatusHealthy, ""},
		{empty, StatusDegraded, ""},
		{filepath.Join(dir, "absent.csv"), StatusUnhealthy, "file not found"},
		{dir, StatusUnhealthy, "expected file, got directory"},
		{"", StatusHealthy, ""},
	}
	for _, tt := range tests {
		res := NewFileChecker("dataset_file", tt.path).Check(context.Background())
		assert.Equal(t, tt.status, res.Status, tt.path)
		assert.Equal(t, tt.errMsg, res.Error, tt.path)
	}
}

func TestPingChecker_History(t *testing.T) {
	ctx := context.Background()
	h, err := insights.OpenSQLiteHistory(ctx, filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)

	hm := NewManager("test")
	hm.RegisterChecker(NewPingChecker("history", false, h.Ping))
	assert.True(t, hm.Ready(ctx).Ready)

	// A closed history store is a hard failure.
	require.NoError(t, h.Close())
	resp := hm.Ready(ctx)
	assert.False(t, resp.Ready)
	assert.Equal(t, StatusUnhealthy, resp.Checks["history"].Status)
	assert.NotEmpty(t, resp.Checks["history"].Error)
}

func TestPingChecker_RedisIsOptional(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: mr.Addr()}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })

	hm := NewManager("test")
	hm.timeout = time.Second
	hm.RegisterChecker(NewPingChecker("redis", true, rc.HealthCheck))
	assert.Equal(t, StatusHealthy, hm.Ready(ctx).Status)

	mr.Close()
	resp := hm.Ready(ctx)
	assert.True(t, resp.Ready, "losing the insight cache must not take the dashboard down")
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Equal(t, "redis", NewPingChecker("redis", true, rc.HealthCheck).Name())
}

func TestHealth_LivenessIgnoresComponents(t *testing.T) {
	d := newDeployment(t, salesCSV)

	rec := httptest.NewRecorder()
	d.hm.ServeHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "test", resp.Version)
	assert.Nil(t, resp.Checks)

	rec = httptest.NewRecorder()
	d.hm.ServeHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz?verbose=true", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.Len(t, resp.Checks, 2)
}

func TestManager_NoCheckersIsReady(t *testing.T) {
	resp := NewManager("test").Ready(context.Background())
	assert.True(t, resp.Ready)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Nil(t, resp.Checks)
}

func TestManager_CheckTimeout(t *testing.T) {
	m := NewManager("test")
	m.timeout = 20 * time.Millisecond
	m.RegisterChecker(NewPingChecker("history", false, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	resp := m.Ready(context.Background())
	assert.False(t, resp.Ready)
	assert.Contains(t, resp.Checks["history"].Error, "deadline exceeded")
}

type failingWriter struct{ *httptest.ResponseRecorder }

func (w *failingWriter) Write([]byte) (int, error) { return 0, assert.AnError }

func TestServe_WriteFailureDoesNotPanic(t *testing.T) {
	d := newDeployment(t, salesCSV)
	w := &failingWriter{ResponseRecorder: httptest.NewRecorder()}
	assert.NotPanics(t, func() {
		d.hm.ServeReady(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		d.hm.ServeHealth(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	})
}
