// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package insights

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestHistory(t *testing.T, path string) *SQLiteHistory {
	t.Helper()
	h, err := OpenSQLiteHistory(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func TestSQLiteHistory_SaveListGet(t *testing.T) {
	ctx := context.Background()
	h := openTestHistory(t, filepath.Join(t.TempDir(), "history.db"))

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, h.Save(ctx, &Insight{
			ID:          id,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
			Provider:    "heuristic",
			Model:       "heuristic",
			City:        "All",
			SummaryHash: "hash-" + id,
			Text:        "text " + id,
		}))
	}

	list, err := h.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c", list[0].ID)
	assert.Equal(t, "b", list[1].ID)

	got, err := h.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "text a", got.Text)
	assert.Equal(t, base, got.CreatedAt)
	assert.False(t, got.Cached)

	_, err = h.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, h.Ping(ctx))
	assert.NoError(t, h.Verify(ctx))
}

func TestSQLiteHistory_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "history.db")

	h, err := OpenSQLiteHistory(ctx, path)
	require.NoError(t, err)
	require.NoError(t, h.Save(ctx, &Insight{ID: "x", CreatedAt: time.Now(), Provider: "p", Model: "m", Text: "kept"}))
	// Saving the same id twice is a no-op.
	require.NoError(t, h.Save(ctx, &Insight{ID: "x", CreatedAt: time.Now(), Provider: "p", Model: "m", Text: "other"}))
	require.NoError(t, h.Close())

	h2 := openTestHistory(t, path)
	got, err := h2.Get(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "kept", got.Text)
}
