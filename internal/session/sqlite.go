package session

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteService is the sqlite-backed session store, the counterpart of
// the hosted runtime's database session service.
type SQLiteService struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	app_name   TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(app_name, user_id, updated_at);

CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL REFERENCES sessions(id),
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, id);
`

// NewSQLiteService opens (and if needed initializes) the database at path.
func NewSQLiteService(path string) (*SQLiteService, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent turns.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init session schema: %w", err)
	}
	return &SQLiteService{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteService) Close() error {
	return s.db.Close()
}

// CreateSession creates a new session row with a generated id.
func (s *SQLiteService) CreateSession(ctx context.Context, appName, userID string) (*Session, error) {
	now := time.Now().UTC()
	sess := &Session{
		ID:        uuid.NewString(),
		AppName:   appName,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, app_name, user_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.AppName, sess.UserID, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// ListSessions returns a user's sessions, most recently updated first.
func (s *SQLiteService) ListSessions(ctx context.Context, appName, userID string) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, app_name, user_id, created_at, updated_at
		 FROM sessions WHERE app_name = ? AND user_id = ?
		 ORDER BY updated_at DESC`,
		appName, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var result []*Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.AppName, &sess.UserID, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, &sess)
	}
	return result, rows.Err()
}

// AppendMessage records one message and bumps the session's updated_at.
func (s *SQLiteService) AppendMessage(ctx context.Context, sessionID, role, content string) error {
	now := time.Now().UTC()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO messages (session_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, role, content, now); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ? WHERE id = ?`, now, sessionID); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return tx.Commit()
}

// History returns the last limit messages in chronological order.
func (s *SQLiteService) History(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, created_at FROM messages
		 WHERE session_id = ? ORDER BY id DESC LIMIT ?`,
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var reversed []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		reversed = append(reversed, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Query is newest-first; callers want oldest-first.
	result := make([]Message, len(reversed))
	for i, m := range reversed {
		result[len(reversed)-1-i] = m
	}
	return result, nil
}
