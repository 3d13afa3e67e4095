// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package dataset

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ManuGH/salesinsights/internal/sales"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const csvV1 = `Date,Product,City,Total Items,Total Cost
2024-01-05,Widget,Berlin,2,100.50
2024-02-03,Gadget,Hamburg,1,40
`

const csvV2 = csvV1 + `2024-03-01,Gizmo,Munich,4,20
`

func writeCSV(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func newTestStore(t *testing.T, body string) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.csv")
	writeCSV(t, path, body)
	return NewStore(Options{Path: path, Logger: zerolog.Nop()}), path
}

func TestStore_NotLoaded(t *testing.T) {
	s, _ := newTestStore(t, csvV1)
	_, err := s.Current()
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.False(t, s.Status().Loaded)
}

func TestStore_ReloadAndStatus(t *testing.T) {
	s, path := newTestStore(t, csvV1)
	var notified atomic.Int32
	s.OnReload(func(context.Context, *sales.Dataset) { notified.Add(1) })

	require.NoError(t, s.Reload(context.Background()))
	ds, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())

	st := s.Status()
	assert.True(t, st.Loaded)
	assert.Equal(t, path, st.Source)
	assert.Equal(t, 2, st.Rows)
	assert.True(t, st.HasCity)
	assert.False(t, st.LoadedAt.IsZero())
	assert.Empty(t, st.LastError)
	assert.Equal(t, int32(1), notified.Load())
}

func TestStore_FailedReloadKeepsPrevious(t *testing.T) {
	s, path := newTestStore(t, csvV1)
	require.NoError(t, s.Reload(context.Background()))

	writeCSV(t, path, "Foo,Bar\n1,2\n")
	err := s.Reload(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, sales.ErrMissingColumn)

	ds, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
	assert.NotEmpty(t, s.Status().LastError)
}

func TestStore_MissingFile(t *testing.T) {
	s := NewStore(Options{Path: filepath.Join(t.TempDir(), "absent.csv"), Logger: zerolog.Nop()})
	require.Error(t, s.Reload(context.Background()))
	_, err := s.Current()
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestStore_HeaderOnlyFileIsNotLoaded(t *testing.T) {
	for name, body := range map[string]string{
		"header only":  "Date,Product,City,Total Items,Total Cost\n",
		"invalid rows": "Date,Product,City,Total Items,Total Cost\nyesterday,Widget,Berlin,2,100\n",
	} {
		t.Run(name, func(t *testing.T) {
			s, _ := newTestStore(t, body)
			err := s.Reload(context.Background())
			require.ErrorIs(t, err, sales.ErrEmptyInput)

			_, err = s.Current()
			assert.ErrorIs(t, err, ErrNotLoaded)
			assert.ErrorIs(t, err, sales.ErrEmptyInput)

			st := s.Status()
			assert.False(t, st.Loaded)
			assert.NotEmpty(t, st.LastError)
		})
	}
}

func TestStore_WatchReloadsOnChange(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s, path := newTestStore(t, csvV1)
	require.NoError(t, s.Reload(context.Background()))

	reloaded := make(chan int, 4)
	s.OnReload(func(_ context.Context, ds *sales.Dataset) { reloaded <- ds.Len() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx, 20*time.Millisecond) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	writeCSV(t, path, csvV2)

	select {
	case n := <-reloaded:
		assert.Equal(t, 3, n)
	case <-time.After(5 * time.Second):
		t.Fatal("dataset was not reloaded after the file changed")
	}

	cancel()
	require.NoError(t, <-done)
}
