// Package store provides storage backends for InterviewPipe.
//
// This file implements the PostgreSQL-backed store for shared deployments.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/BTreeMap/InterviewPipe/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants.
const (
	// DefaultMaxOpenConns is the maximum number of open connections to the database.
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the maximum number of idle connections in the pool.
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the maximum amount of time a connection may be reused.
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists sessions and results in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL store from the provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("store.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("store.NewPostgresStore: DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("store.NewPostgresStore: failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("store.NewPostgresStore: ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("store.NewPostgresStore: failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Info("store.NewPostgresStore: Postgres store ready")
	return &PostgresStore{db: db}, nil
}

// SaveSession upserts the session document as JSONB.
func (s *PostgresStore) SaveSession(sess *models.Session) error {
	doc, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", sess.ID, err)
	}
	_, err = s.db.Exec(`INSERT INTO sessions (id, phase, concluded, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET phase=EXCLUDED.phase, concluded=EXCLUDED.concluded, data=EXCLUDED.data, updated_at=EXCLUDED.updated_at`,
		sess.ID, string(sess.Phase), sess.Concluded, string(doc), sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore.SaveSession: insert failed", "error", err, "sessionID", sess.ID)
		return fmt.Errorf("failed to save session %s: %w", sess.ID, err)
	}
	slog.Debug("PostgresStore.SaveSession: session saved", "sessionID", sess.ID, "phase", sess.Phase)
	return nil
}

// GetSession loads one session document.
func (s *PostgresStore) GetSession(id string) (*models.Session, error) {
	var doc string
	err := s.db.QueryRow(`SELECT data FROM sessions WHERE id = $1`, id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		slog.Error("PostgresStore.GetSession: query failed", "error", err, "sessionID", id)
		return nil, fmt.Errorf("failed to query session %s: %w", id, err)
	}
	var sess models.Session
	if err := json.Unmarshal([]byte(doc), &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", id, err)
	}
	return &sess, nil
}

// ListSessions returns all sessions ordered by creation time.
func (s *PostgresStore) ListSessions() ([]*models.Session, error) {
	rows, err := s.db.Query(`SELECT data FROM sessions ORDER BY created_at`)
	if err != nil {
		slog.Error("PostgresStore.ListSessions: query failed", "error", err)
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		var sess models.Session
		if err := json.Unmarshal([]byte(doc), &sess); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session row: %w", err)
		}
		sessions = append(sessions, &sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}
	slog.Debug("PostgresStore.ListSessions: sessions listed", "count", len(sessions))
	return sessions, nil
}

// DeleteSession removes the session and its result.
func (s *PostgresStore) DeleteSession(id string) error {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		slog.Error("PostgresStore.DeleteSession: delete failed", "error", err, "sessionID", id)
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrSessionNotFound
	}
	if _, err := s.db.Exec(`DELETE FROM results WHERE session_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete result for session %s: %w", id, err)
	}
	return nil
}

// SaveResult upserts the final interview result for a session.
func (s *PostgresStore) SaveResult(r models.InterviewResult) error {
	doc, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal result for %s: %w", r.SessionID, err)
	}
	_, err = s.db.Exec(`INSERT INTO results (session_id, data, completed_at) VALUES ($1, $2, $3)
		ON CONFLICT (session_id) DO UPDATE SET data=EXCLUDED.data, completed_at=EXCLUDED.completed_at`,
		r.SessionID, string(doc), r.CompletedAt)
	if err != nil {
		slog.Error("PostgresStore.SaveResult: insert failed", "error", err, "sessionID", r.SessionID)
		return fmt.Errorf("failed to save result for %s: %w", r.SessionID, err)
	}
	slog.Debug("PostgresStore.SaveResult: result saved", "sessionID", r.SessionID)
	return nil
}

// GetResult loads the stored interview result for a session.
func (s *PostgresStore) GetResult(sessionID string) (*models.InterviewResult, error) {
	var doc string
	err := s.db.QueryRow(`SELECT data FROM results WHERE session_id = $1`, sessionID).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, models.ErrResultNotFound
	}
	if err != nil {
		slog.Error("PostgresStore.GetResult: query failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to query result for %s: %w", sessionID, err)
	}
	var r models.InterviewResult
	if err := json.Unmarshal([]byte(doc), &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result for %s: %w", sessionID, err)
	}
	return &r, nil
}

// Close closes the database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
