// Package sqlite provides a SQLite-backed task ledger.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ewilliams-labs/cadence/internal/core/domain"
	_ "github.com/mattn/go-sqlite3" // Import the driver anonymously
)

// Adapter implements ports.TaskStore for SQLite. Only status records are
// stored; results stay in memory.
type Adapter struct {
	db *sql.DB
}

// NewAdapter creates a connection and runs the schema migration
func NewAdapter(storagePath string) (*Adapter, error) {
	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	adapter := &Adapter{db: db}
	if err := adapter.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return adapter, nil
}

// Close ensures the DB connection is closed gracefully
func (a *Adapter) Close() error {
	return a.db.Close()
}

func (a *Adapter) Create(ctx context.Context, rec domain.TaskRecord) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO tasks (id, kind, status, error, created_at, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, string(rec.Kind), string(rec.Status), rec.Error,
		formatTime(rec.CreatedAt), formatTimePtr(rec.StartedAt), formatTimePtr(rec.FinishedAt))
	if err != nil {
		return fmt.Errorf("failed to create task %s: %w", rec.ID, err)
	}
	return nil
}

func (a *Adapter) Get(ctx context.Context, id string) (domain.TaskRecord, error) {
	return scanRecord(a.db.QueryRowContext(ctx, selectTask+" WHERE id = ?", id))
}

// Transition loads, updates and writes the record in one transaction.
func (a *Adapter) Transition(ctx context.Context, id string, next domain.TaskStatus, errMsg string, at time.Time) (domain.TaskRecord, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.TaskRecord{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Safety net: auto-rollback if we error before commit

	rec, err := scanRecord(tx.QueryRowContext(ctx, selectTask+" WHERE id = ?", id))
	if err != nil {
		return domain.TaskRecord{}, err
	}
	if err := rec.Apply(next, errMsg, at); err != nil {
		return domain.TaskRecord{}, fmt.Errorf("task %s %s -> %s: %w", id, rec.Status, next, err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE tasks SET status = ?, error = ?, started_at = ?, finished_at = ?
		WHERE id = ?
	`, string(rec.Status), rec.Error, formatTimePtr(rec.StartedAt), formatTimePtr(rec.FinishedAt), id); err != nil {
		return domain.TaskRecord{}, fmt.Errorf("failed to update task %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return domain.TaskRecord{}, fmt.Errorf("transaction commit failed: %w", err)
	}
	return rec, nil
}

func (a *Adapter) List(ctx context.Context, limit int) ([]domain.TaskRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := a.db.QueryContext(ctx, selectTask+" ORDER BY created_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var out []domain.TaskRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}
	return out, nil
}

const selectTask = `SELECT id, kind, status, IFNULL(error, ''), created_at, started_at, finished_at FROM tasks`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (domain.TaskRecord, error) {
	var (
		rec               domain.TaskRecord
		kind, status      string
		created           string
		started, finished sql.NullString
	)
	if err := row.Scan(&rec.ID, &kind, &status, &rec.Error, &created, &started, &finished); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.TaskRecord{}, domain.ErrNotFound
		}
		return domain.TaskRecord{}, fmt.Errorf("failed to scan task: %w", err)
	}
	rec.Kind = domain.TaskKind(kind)
	rec.Status = domain.TaskStatus(status)

	var err error
	if rec.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return domain.TaskRecord{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if rec.StartedAt, err = parseTimePtr(started); err != nil {
		return domain.TaskRecord{}, fmt.Errorf("failed to parse started_at: %w", err)
	}
	if rec.FinishedAt, err = parseTimePtr(finished); err != nil {
		return domain.TaskRecord{}, fmt.Errorf("failed to parse finished_at: %w", err)
	}
	return rec, nil
}

// timeLayout is fixed-width so timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (a *Adapter) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		started_at TEXT,
		finished_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks (created_at);
	`
	if _, err := a.db.Exec(query); err != nil {
		return err
	}

	if _, err := a.db.Exec("ALTER TABLE tasks ADD COLUMN error TEXT"); err != nil {
		if !isDuplicateColumnError(err) {
			return err
		}
	}
	return nil
}

func isDuplicateColumnError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "duplicate column") || strings.Contains(err.Error(), "already exists"))
}
