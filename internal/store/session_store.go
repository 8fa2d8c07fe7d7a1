package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/soyeahso/bakebot/internal/domain"
)

// SessionRecord is a saved widget session with its page key.
type SessionRecord struct {
	Page      string         `json:"page"`
	Session   domain.Session `json:"session"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// SessionStore saves widget sessions by page key. It implements
// session.Persister.
type SessionStore struct {
	db *DB
}

// NewSessionStore creates a session store using the given database.
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

// SaveSession upserts the session of a page.
func (s *SessionStore) SaveSession(page string, sess domain.Session) error {
	var metadata sql.NullString
	if len(sess.Metadata) > 0 {
		data, err := json.Marshal(sess.Metadata)
		if err != nil {
			return fmt.Errorf("encoding session metadata: %w", err)
		}
		metadata = sql.NullString{String: string(data), Valid: true}
	}

	now := time.Now().UTC().Format(time.DateTime)
	_, err := s.db.sql.Exec(
		`INSERT INTO widget_sessions (page, session_id, thread_id, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(page) DO UPDATE SET
		   session_id = excluded.session_id,
		   thread_id = excluded.thread_id,
		   metadata = excluded.metadata,
		   updated_at = excluded.updated_at`,
		page, sess.SessionID, sess.ThreadID, metadata, now, now,
	)
	return err
}

// LoadSession returns the saved session of a page.
func (s *SessionStore) LoadSession(page string) (domain.Session, bool, error) {
	row := s.db.sql.QueryRow(
		`SELECT page, session_id, thread_id, metadata, updated_at FROM widget_sessions WHERE page = ?`, page,
	)
	rec, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, err
	}
	return rec.Session, true, nil
}

// DeleteSession forgets the session of a page.
func (s *SessionStore) DeleteSession(page string) error {
	_, err := s.db.sql.Exec(`DELETE FROM widget_sessions WHERE page = ?`, page)
	return err
}

// List returns saved sessions, most recently updated first.
func (s *SessionStore) List(limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.sql.Query(
		`SELECT page, session_id, thread_id, metadata, updated_at
		 FROM widget_sessions ORDER BY updated_at DESC, page LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (SessionRecord, error) {
	var rec SessionRecord
	var metadata sql.NullString
	var updatedAt string
	if err := row.Scan(&rec.Page, &rec.Session.SessionID, &rec.Session.ThreadID, &metadata, &updatedAt); err != nil {
		return rec, err
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &rec.Session.Metadata); err != nil {
			return rec, fmt.Errorf("decoding session metadata: %w", err)
		}
	}
	rec.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)
	return rec, nil
}
