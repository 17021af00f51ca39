package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"ciclo/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists the whole aggregate as one opaque JSON
// snapshot per account. No incremental format: the engine's contract is
// snapshot after every mutation, restore verbatim at startup.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveSnapshot upserts the serialized aggregate for one account.
func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, accountID string, state core.State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO snapshots (account_id, payload, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(account_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		accountID, string(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	slog.DebugContext(ctx, "Snapshot saved",
		"account_id", accountID,
		"bytes", len(payload))
	return nil
}

// LoadSnapshot returns the stored aggregate for an account. The second
// return value is false when no snapshot exists yet (fresh install).
// A snapshot that cannot be decoded is reported as corrupt, not skipped.
func (r *SQLiteRepository) LoadSnapshot(ctx context.Context, accountID string) (core.State, bool, error) {
	var payload string
	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM snapshots WHERE account_id = ?`, accountID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return core.State{}, false, nil
	}
	if err != nil {
		return core.State{}, false, fmt.Errorf("load snapshot: %w", err)
	}

	var state core.State
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		return core.State{}, false, fmt.Errorf("%w: decode snapshot for account %s: %v", core.ErrCorruptSnapshot, accountID, err)
	}

	slog.InfoContext(ctx, "Snapshot loaded",
		"account_id", accountID,
		"cycles", len(state.Cycles))
	return state, true, nil
}
