package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rusenback/idlemon/internal/model"
)

var (
	// ErrNotFound is returned by Load when no record exists for the key
	ErrNotFound = errors.New("monitoring state not found")
	// ErrConflict is returned by Save when the record changed since it was loaded
	ErrConflict = errors.New("monitoring state version conflict")
)

// SQLiteStore persists monitoring state in a local SQLite database.
// Each key holds one row; the version column makes every write conditional.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and creates if needed) the database at path
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection serialises writers inside the process
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

// createTables creates the database schema
func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS monitor_state (
		key TEXT PRIMARY KEY,
		last_players_seen INTEGER NOT NULL,
		consecutive_empty_checks INTEGER NOT NULL DEFAULT 0,
		consecutive_failures INTEGER NOT NULL DEFAULT 0,
		last_check_time INTEGER,
		version INTEGER NOT NULL
	);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Load returns the record for key or ErrNotFound
func (s *SQLiteStore) Load(ctx context.Context, key string) (model.MonitoringState, error) {
	var (
		lastSeen  int64
		lastCheck sql.NullInt64
		version   int64
		st        model.MonitoringState
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT last_players_seen, consecutive_empty_checks, consecutive_failures,
		       last_check_time, version
		FROM monitor_state WHERE key = ?
	`, key).Scan(&lastSeen, &st.ConsecutiveEmptyChecks, &st.ConsecutiveProbeFailures, &lastCheck, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.MonitoringState{}, ErrNotFound
		}
		return model.MonitoringState{}, fmt.Errorf("query monitoring state %q: %w", key, err)
	}

	st.LastPlayersSeenAt = time.UnixMilli(lastSeen).UTC()
	if lastCheck.Valid {
		st.LastCheckTime = time.UnixMilli(lastCheck.Int64).UTC()
	}
	st.Version = strconv.FormatInt(version, 10)
	return st, nil
}

// Save writes state if its Version still matches the stored row. An empty
// Version means the caller expects no row to exist yet.
func (s *SQLiteStore) Save(ctx context.Context, key string, state *model.MonitoringState) error {
	var lastCheck sql.NullInt64
	if !state.LastCheckTime.IsZero() {
		lastCheck = sql.NullInt64{Int64: state.LastCheckTime.UnixMilli(), Valid: true}
	}

	if state.Version == "" {
		result, err := s.db.ExecContext(ctx, `
			INSERT INTO monitor_state
			(key, last_players_seen, consecutive_empty_checks, consecutive_failures, last_check_time, version)
			VALUES (?, ?, ?, ?, ?, 1)
			ON CONFLICT(key) DO NOTHING
		`, key, state.LastPlayersSeenAt.UnixMilli(), state.ConsecutiveEmptyChecks, state.ConsecutiveProbeFailures, lastCheck)
		if err != nil {
			return fmt.Errorf("insert monitoring state %q: %w", key, err)
		}
		if err := expectOneRow(result); err != nil {
			return err
		}
		state.Version = "1"
		return nil
	}

	version, err := strconv.ParseInt(state.Version, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid state version %q: %w", state.Version, err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE monitor_state SET
			last_players_seen = ?,
			consecutive_empty_checks = ?,
			consecutive_failures = ?,
			last_check_time = ?,
			version = version + 1
		WHERE key = ? AND version = ?
	`, state.LastPlayersSeenAt.UnixMilli(), state.ConsecutiveEmptyChecks, state.ConsecutiveProbeFailures, lastCheck, key, version)
	if err != nil {
		return fmt.Errorf("update monitoring state %q: %w", key, err)
	}
	if err := expectOneRow(result); err != nil {
		return err
	}
	state.Version = strconv.FormatInt(version+1, 10)
	return nil
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// Close closes the storage
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
