// Package store provides storage backends for InterviewPipe.
//
// This file implements the SQLite-backed store for single-node installs.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/BTreeMap/InterviewPipe/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the permissions for created database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists sessions and results in an SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates an SQLite store. The DSN is the database file
// path; missing parent directories are created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("store.NewSQLiteStore: creating SQLite store", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("store.NewSQLiteStore: DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(cfg.DSN)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("store.NewSQLiteStore: failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		slog.Error("store.NewSQLiteStore: failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("store.NewSQLiteStore: ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("store.NewSQLiteStore: failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Info("store.NewSQLiteStore: SQLite store ready", "path", cfg.DSN)
	return &SQLiteStore{db: db}, nil
}

// SaveSession upserts the session document as JSON.
func (s *SQLiteStore) SaveSession(sess *models.Session) error {
	doc, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", sess.ID, err)
	}
	_, err = s.db.Exec(`INSERT INTO sessions (id, phase, concluded, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET phase=excluded.phase, concluded=excluded.concluded, data=excluded.data, updated_at=excluded.updated_at`,
		sess.ID, string(sess.Phase), sess.Concluded, string(doc), sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore.SaveSession: insert failed", "error", err, "sessionID", sess.ID)
		return fmt.Errorf("failed to save session %s: %w", sess.ID, err)
	}
	slog.Debug("SQLiteStore.SaveSession: session saved", "sessionID", sess.ID, "phase", sess.Phase)
	return nil
}

// GetSession loads one session document.
func (s *SQLiteStore) GetSession(id string) (*models.Session, error) {
	var doc string
	err := s.db.QueryRow(`SELECT data FROM sessions WHERE id = ?`, id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		slog.Error("SQLiteStore.GetSession: query failed", "error", err, "sessionID", id)
		return nil, fmt.Errorf("failed to query session %s: %w", id, err)
	}
	var sess models.Session
	if err := json.Unmarshal([]byte(doc), &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", id, err)
	}
	return &sess, nil
}

// ListSessions returns all sessions ordered by creation time.
func (s *SQLiteStore) ListSessions() ([]*models.Session, error) {
	rows, err := s.db.Query(`SELECT data FROM sessions ORDER BY created_at`)
	if err != nil {
		slog.Error("SQLiteStore.ListSessions: query failed", "error", err)
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
	slog.Debug("SQLiteStore.ListSessions: sessions listed", "count", len(sessions))
	return sessions, nil
}

// DeleteSession removes the session and its result.
func (s *SQLiteStore) DeleteSession(id string) error {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		slog.Error("SQLiteStore.DeleteSession: delete failed", "error", err, "sessionID", id)
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrSessionNotFound
	}
	if _, err := s.db.Exec(`DELETE FROM results WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete result for session %s: %w", id, err)
	}
	return nil
}

// SaveResult upserts the final interview result for a session.
func (s *SQLiteStore) SaveResult(r models.InterviewResult) error {
	doc, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal result for %s: %w", r.SessionID, err)
	}
	_, err = s.db.Exec(`INSERT INTO results (session_id, data, completed_at) VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET data=excluded.data, completed_at=excluded.completed_at`,
		r.SessionID, string(doc), r.CompletedAt)
	if err != nil {
		slog.Error("SQLiteStore.SaveResult: insert failed", "error", err, "sessionID", r.SessionID)
		return fmt.Errorf("failed to save result for %s: %w", r.SessionID, err)
	}
	slog.Debug("SQLiteStore.SaveResult: result saved", "sessionID", r.SessionID)
	return nil
}

// GetResult loads the stored interview result for a session.
func (s *SQLiteStore) GetResult(sessionID string) (*models.InterviewResult, error) {
	var doc string
	err := s.db.QueryRow(`SELECT data FROM results WHERE session_id = ?`, sessionID).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, models.ErrResultNotFound
	}
	if err != nil {
		slog.Error("SQLiteStore.GetResult: query failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to query result for %s: %w", sessionID, err)
	}
	var r models.InterviewResult
	if err := json.Unmarshal([]byte(doc), &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result for %s: %w", sessionID, err)
	}
	return &r, nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
