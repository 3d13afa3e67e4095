// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package insights

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/salesinsights/internal/persistence/sqlite"
)

const historySchemaVersion = 1

// ErrNotFound is returned when an insight id is unknown.
var ErrNotFound = errors.New("insight not found")

// HistoryStore keeps generated insights for later retrieval.
type HistoryStore interface {
	Save(ctx context.Context, in *Insight) error
	List(ctx context.Context, limit int) ([]Insight, error)
	Get(ctx context.Context, id string) (*Insight, error)
	Close() error
}

// SQLiteHistory implements HistoryStore using SQLite.
type SQLiteHistory struct {
	DB *sql.DB
}

// OpenSQLiteHistory opens (and migrates) the history database at path.
func OpenSQLiteHistory(ctx context.Context, path string) (*SQLiteHistory, error) {
	db, err := sqlite.Open(ctx, path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}

	h := &SQLiteHistory{DB: db}
	if err := h.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("insight history: migration failed: %w", err)
	}
	return h, nil
}

func (h *SQLiteHistory) migrate(ctx context.Context) error {
	var current int
	if err := h.DB.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return err
	}
	if current >= historySchemaVersion {
		return nil
	}

	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS insights (
		id TEXT PRIMARY KEY,
		created_at_ms INTEGER NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		city TEXT NOT NULL DEFAULT '',
		summary_hash TEXT NOT NULL,
		body TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_insights_created ON insights(created_at_ms);
	`
	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", historySchemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

func (h *SQLiteHistory) Save(ctx context.Context, in *Insight) error {
	query := `
	INSERT INTO insights (id, created_at_ms, provider, model, city, summary_hash, body)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO NOTHING
	`
	_, err := h.DB.ExecContext(ctx, query,
		in.ID, in.CreatedAt.UnixMilli(), in.Provider, in.Model, in.City, in.SummaryHash, in.Text,
	)
	return err
}

// List returns up to limit insights, newest first. limit <= 0 means 50.
func (h *SQLiteHistory) List(ctx context.Context, limit int) ([]Insight, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := h.DB.QueryContext(ctx, `
	SELECT id, created_at_ms, provider, model, city, summary_hash, body
	FROM insights ORDER BY created_at_ms DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]Insight, 0, limit)
	for rows.Next() {
		in, err := scanInsight(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *in)
	}
	return out, rows.Err()
}

func (h *SQLiteHistory) Get(ctx context.Context, id string) (*Insight, error) {
	row := h.DB.QueryRowContext(ctx, `
	SELECT id, created_at_ms, provider, model, city, summary_hash, body
	FROM insights WHERE id = ?`, id)
	in, err := scanInsight(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return in, err
}

// Ping verifies the database answers; used by readiness checks.
func (h *SQLiteHistory) Ping(ctx context.Context) error {
	return h.DB.PingContext(ctx)
}

// Verify runs a quick integrity check.
func (h *SQLiteHistory) Verify(ctx context.Context) error {
	issues, err := sqlite.VerifyIntegrity(ctx, h.DB, "quick")
	if err != nil {
		return err
	}
	if len(issues) > 0 {
		return fmt.Errorf("insight history integrity: %v", issues)
	}
	return nil
}

func (h *SQLiteHistory) Close() error {
	return h.DB.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInsight(s scanner) (*Insight, error) {
	var in Insight
	var createdMs int64
	if err := s.Scan(&in.ID, &createdMs, &in.Provider, &in.Model, &in.City, &in.SummaryHash, &in.Text); err != nil {
		return nil, err
	}
	in.CreatedAt = time.UnixMilli(createdMs).UTC()
	return &in, nil
}
