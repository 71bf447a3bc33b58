// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package journal persists a record of every task run the host performs.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

const runTable = "task_runs"

// Entry is one recorded run.
type Entry struct {
	ID           string
	RequestID    string
	TaskName     string
	OperatorType string
	Status       string
	ErrorCode    string
	Error        string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Journal stores run entries in SQLite.
type Journal struct {
	db     *sql.DB
	closer func() error
}

// Open opens (or creates) the journal database at path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	j, err := New(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	j.closer = db.Close
	return j, nil
}

// New wraps an existing database and ensures the schema. The caller keeps
// ownership of db.
func New(db *sql.DB) (*Journal, error) {
	if db == nil {
		return nil, fmt.Errorf("journal: db is nil")
	}
	if err := ensureSchema(db); err != nil {
		return nil, fmt.Errorf("journal: schema: %w", err)
	}
	return &Journal{db: db}, nil
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			request_id TEXT NOT NULL,
			task_name TEXT NOT NULL,
			operator_type TEXT NOT NULL,
			status TEXT NOT NULL,
			error_code TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			started_at INTEGER NOT NULL,
			finished_at INTEGER NOT NULL
		);`, runTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_started ON %s(started_at);`, runTable, runTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_request ON %s(request_id);`, runTable, runTable),
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Record stores e. An empty ID is replaced with a generated one, which is
// returned.
func (j *Journal) Record(ctx context.Context, e Entry) (string, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := j.db.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s
		(id, request_id, task_name, operator_type, status, error_code, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, runTable),
		e.ID, e.RequestID, e.TaskName, e.OperatorType, e.Status, e.ErrorCode, e.Error,
		e.StartedAt.UTC().UnixMilli(), e.FinishedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return "", fmt.Errorf("journal: record %s: %w", e.RequestID, err)
	}
	return e.ID, nil
}

// List returns up to limit entries, most recent first. limit <= 0 means all.
func (j *Journal) List(ctx context.Context, limit int) ([]Entry, error) {
	query := fmt.Sprintf(`SELECT id, request_id, task_name, operator_type, status, error_code, error, started_at, finished_at
		FROM %s ORDER BY started_at DESC, rowid DESC`, runTable)
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                   Entry
			started, finished int64
		)
		if err := rows.Scan(&e.ID, &e.RequestID, &e.TaskName, &e.OperatorType, &e.Status,
			&e.ErrorCode, &e.Error, &started, &finished); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		e.StartedAt = time.UnixMilli(started).UTC()
		e.FinishedAt = time.UnixMilli(finished).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	return out, nil
}

// Close releases the database if the journal opened it.
func (j *Journal) Close() error {
	if j.closer == nil {
		return nil
	}
	return j.closer()
}
