package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite-backed Store implementation.
//
// Designed for development and single-process hosts that want the
// transition log to survive a restart without standing up a database
// server. Uses WAL mode for concurrent reads and a busy timeout so
// concurrent hosts touching different dialogs don't spuriously fail on
// SQLITE_BUSY.
//
// Schema:
//   - dialog_transitions: append-only transition log
//   - dialog_metadata: one row per dialog, JSON-encoded metadata map
//   - dialog_snapshots: one row per dialog, frozen script definition
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if necessary) a SQLite database at path
// and ensures its schema exists. Pass ":memory:" for an ephemeral
// database useful in tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("dialog/store: open sqlite: %w", err)
	}

	// SQLite supports one writer at a time; keep the pool to a single
	// connection so WAL checkpoints and busy_timeout behave predictably.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("dialog/store: %s: %w", pragma, err)
		}
	}

	store := &SQLiteStore{db: db}
	if err := store.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS dialog_transitions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			dialog_key TEXT NOT NULL,
			happened_at TIMESTAMP NOT NULL,
			state_id TEXT NOT NULL,
			prior_state_id TEXT,
			reason TEXT NOT NULL,
			metadata TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transitions_dialog ON dialog_transitions(dialog_key, happened_at)`,
		`CREATE INDEX IF NOT EXISTS idx_transitions_state ON dialog_transitions(dialog_key, state_id)`,
		`CREATE TABLE IF NOT EXISTS dialog_metadata (
			dialog_key TEXT PRIMARY KEY,
			metadata TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS dialog_snapshots (
			dialog_key TEXT PRIMARY KEY,
			snapshot TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("dialog/store: create schema: %w", err)
		}
	}
	return nil
}

// Close releases the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AppendTransition inserts rec into dialog_transitions.
func (s *SQLiteStore) AppendTransition(ctx context.Context, rec TransitionRecord) error {
	metaJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("dialog/store: marshal metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO dialog_transitions (dialog_key, happened_at, state_id, prior_state_id, reason, metadata)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.DialogKey, rec.When.UTC().Format(time.RFC3339Nano), rec.StateID, rec.PriorStateID, rec.Reason, string(metaJSON))
	if err != nil {
		return fmt.Errorf("dialog/store: append transition: %w", err)
	}
	return nil
}

// LastTransition returns the transition with the greatest happened_at for dialogKey.
func (s *SQLiteStore) LastTransition(ctx context.Context, dialogKey string) (TransitionRecord, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT happened_at, state_id, prior_state_id, reason, metadata
		 FROM dialog_transitions WHERE dialog_key = ? ORDER BY happened_at DESC, id DESC LIMIT 1`,
		dialogKey)
	rec, err := scanTransition(row, dialogKey)
	if err == sql.ErrNoRows {
		return TransitionRecord{}, false, nil
	}
	if err != nil {
		return TransitionRecord{}, false, fmt.Errorf("dialog/store: last transition: %w", err)
	}
	return rec, true, nil
}

// PriorTransitions filters dialogKey's log by state_id and, optionally,
// prior_state_id and reason.
func (s *SQLiteStore) PriorTransitions(ctx context.Context, dialogKey, newStateID string, priorStateID *string, reason string) ([]TransitionRecord, error) {
	query := `SELECT happened_at, state_id, prior_state_id, reason, metadata
		FROM dialog_transitions WHERE dialog_key = ? AND state_id = ?`
	args := []any{dialogKey, newStateID}
	if priorStateID != nil {
		query += " AND prior_state_id = ?"
		args = append(args, *priorStateID)
	}
	if reason != "" {
		query += " AND reason = ?"
		args = append(args, reason)
	}
	query += " ORDER BY happened_at ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("dialog/store: prior transitions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []TransitionRecord
	for rows.Next() {
		rec, err := scanTransitionRows(rows, dialogKey)
		if err != nil {
			return nil, fmt.Errorf("dialog/store: scan transition: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransition(row rowScanner, dialogKey string) (TransitionRecord, error) {
	return scanTransitionRows(row, dialogKey)
}

func scanTransitionRows(row rowScanner, dialogKey string) (TransitionRecord, error) {
	var (
		happenedAt   string
		stateID      string
		priorStateID sql.NullString
		reason       string
		metaJSON     string
	)
	if err := row.Scan(&happenedAt, &stateID, &priorStateID, &reason, &metaJSON); err != nil {
		return TransitionRecord{}, err
	}
	when, err := time.Parse(time.RFC3339Nano, happenedAt)
	if err != nil {
		return TransitionRecord{}, fmt.Errorf("parse happened_at: %w", err)
	}
	var metadata map[string]any
	if err := json.Unmarshal([]byte(metaJSON), &metadata); err != nil {
		return TransitionRecord{}, fmt.Errorf("unmarshal metadata: %w", err)
	}
	rec := TransitionRecord{
		DialogKey: dialogKey,
		When:      when,
		StateID:   stateID,
		Reason:    reason,
		Metadata:  metadata,
	}
	if priorStateID.Valid {
		v := priorStateID.String
		rec.PriorStateID = &v
	}
	return rec, nil
}

// LoadMetadata returns dialogKey's stored metadata map.
func (s *SQLiteStore) LoadMetadata(ctx context.Context, dialogKey string) (map[string]any, bool, error) {
	var metaJSON string
	err := s.db.QueryRowContext(ctx, `SELECT metadata FROM dialog_metadata WHERE dialog_key = ?`, dialogKey).Scan(&metaJSON)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("dialog/store: load metadata: %w", err)
	}
	var metadata map[string]any
	if err := json.Unmarshal([]byte(metaJSON), &metadata); err != nil {
		return nil, false, fmt.Errorf("dialog/store: unmarshal metadata: %w", err)
	}
	return metadata, true, nil
}

// SaveMetadata upserts dialogKey's metadata map.
func (s *SQLiteStore) SaveMetadata(ctx context.Context, dialogKey string, metadata map[string]any) error {
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("dialog/store: marshal metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO dialog_metadata (dialog_key, metadata) VALUES (?, ?)
		 ON CONFLICT(dialog_key) DO UPDATE SET metadata = excluded.metadata`,
		dialogKey, string(metaJSON))
	if err != nil {
		return fmt.Errorf("dialog/store: save metadata: %w", err)
	}
	return nil
}

// LoadSnapshot returns dialogKey's frozen script definition.
func (s *SQLiteStore) LoadSnapshot(ctx context.Context, dialogKey string) (json.RawMessage, bool, error) {
	var snapJSON string
	err := s.db.QueryRowContext(ctx, `SELECT snapshot FROM dialog_snapshots WHERE dialog_key = ?`, dialogKey).Scan(&snapJSON)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("dialog/store: load snapshot: %w", err)
	}
	return json.RawMessage(snapJSON), true, nil
}

// SaveSnapshot stores snapshot as dialogKey's frozen script definition.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, dialogKey string, snapshot json.RawMessage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dialog_snapshots (dialog_key, snapshot) VALUES (?, ?)
		 ON CONFLICT(dialog_key) DO UPDATE SET snapshot = excluded.snapshot`,
		dialogKey, string(snapshot))
	if err != nil {
		return fmt.Errorf("dialog/store: save snapshot: %w", err)
	}
	return nil
}
