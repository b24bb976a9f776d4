package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL-backed Store implementation for multi-process
// hosts that need a shared transition log.
//
// dsn follows the go-sql-driver/mysql DSN format and should include
// parseTime=true so TIMESTAMP columns scan directly into time.Time.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore opens a connection pool against dsn and ensures the
// schema exists.
func NewMySQLStore(ctx context.Context, dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("dialog/store: open mysql: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("dialog/store: ping mysql: %w", err)
	}

	store := &MySQLStore{db: db}
	if err := store.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *MySQLStore) createTables(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS dialog_transitions (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			dialog_key VARCHAR(255) NOT NULL,
			happened_at DATETIME(6) NOT NULL,
			state_id VARCHAR(255) NOT NULL,
			prior_state_id VARCHAR(255) NULL,
			reason VARCHAR(128) NOT NULL,
			metadata JSON NOT NULL,
			INDEX idx_transitions_dialog (dialog_key, happened_at),
			INDEX idx_transitions_state (dialog_key, state_id)
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS dialog_metadata (
			dialog_key VARCHAR(255) PRIMARY KEY,
			metadata JSON NOT NULL
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS dialog_snapshots (
			dialog_key VARCHAR(255) PRIMARY KEY,
			snapshot JSON NOT NULL
		) ENGINE=InnoDB`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("dialog/store: create schema: %w", err)
		}
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}

// AppendTransition inserts rec into dialog_transitions.
func (s *MySQLStore) AppendTransition(ctx context.Context, rec TransitionRecord) error {
	metaJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("dialog/store: marshal metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO dialog_transitions (dialog_key, happened_at, state_id, prior_state_id, reason, metadata)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.DialogKey, rec.When.UTC(), rec.StateID, rec.PriorStateID, rec.Reason, metaJSON)
	if err != nil {
		return fmt.Errorf("dialog/store: append transition: %w", err)
	}
	return nil
}

// LastTransition returns the most recent transition for dialogKey.
func (s *MySQLStore) LastTransition(ctx context.Context, dialogKey string) (TransitionRecord, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT happened_at, state_id, prior_state_id, reason, metadata
		 FROM dialog_transitions WHERE dialog_key = ? ORDER BY happened_at DESC, id DESC LIMIT 1`,
		dialogKey)
	rec, err := scanMySQLTransition(row, dialogKey)
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
func (s *MySQLStore) PriorTransitions(ctx context.Context, dialogKey, newStateID string, priorStateID *string, reason string) ([]TransitionRecord, error) {
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
		rec, err := scanMySQLTransitionRows(rows, dialogKey)
		if err != nil {
			return nil, fmt.Errorf("dialog/store: scan transition: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanMySQLTransition(row rowScanner, dialogKey string) (TransitionRecord, error) {
	return scanMySQLTransitionRows(row, dialogKey)
}

func scanMySQLTransitionRows(row rowScanner, dialogKey string) (TransitionRecord, error) {
	var (
		when         time.Time
		stateID      string
		priorStateID sql.NullString
		reason       string
		metaJSON     []byte
	)
	if err := row.Scan(&when, &stateID, &priorStateID, &reason, &metaJSON); err != nil {
		return TransitionRecord{}, err
	}
	var metadata map[string]any
	if err := json.Unmarshal(metaJSON, &metadata); err != nil {
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
func (s *MySQLStore) LoadMetadata(ctx context.Context, dialogKey string) (map[string]any, bool, error) {
	var metaJSON []byte
	err := s.db.QueryRowContext(ctx, `SELECT metadata FROM dialog_metadata WHERE dialog_key = ?`, dialogKey).Scan(&metaJSON)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("dialog/store: load metadata: %w", err)
	}
	var metadata map[string]any
	if err := json.Unmarshal(metaJSON, &metadata); err != nil {
		return nil, false, fmt.Errorf("dialog/store: unmarshal metadata: %w", err)
	}
	return metadata, true, nil
}

// SaveMetadata upserts dialogKey's metadata map.
func (s *MySQLStore) SaveMetadata(ctx context.Context, dialogKey string, metadata map[string]any) error {
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("dialog/store: marshal metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO dialog_metadata (dialog_key, metadata) VALUES (?, ?)
		 ON DUPLICATE KEY UPDATE metadata = VALUES(metadata)`,
		dialogKey, metaJSON)
	if err != nil {
		return fmt.Errorf("dialog/store: save metadata: %w", err)
	}
	return nil
}

// LoadSnapshot returns dialogKey's frozen script definition.
func (s *MySQLStore) LoadSnapshot(ctx context.Context, dialogKey string) (json.RawMessage, bool, error) {
	var snapJSON []byte
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
func (s *MySQLStore) SaveSnapshot(ctx context.Context, dialogKey string, snapshot json.RawMessage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dialog_snapshots (dialog_key, snapshot) VALUES (?, ?)
		 ON DUPLICATE KEY UPDATE snapshot = VALUES(snapshot)`,
		dialogKey, []byte(snapshot))
	if err != nil {
		return fmt.Errorf("dialog/store: save snapshot: %w", err)
	}
	return nil
}
