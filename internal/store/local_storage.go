package store

import (
	"database/sql"
	"errors"
	"time"
)

// LocalStorage is a key/value store scoped to one origin, the way a browser
// scopes localStorage. It satisfies widget.LocalStorage.
type LocalStorage struct {
	db     *DB
	origin string
}

// NewLocalStorage returns the storage of an origin.
func NewLocalStorage(db *DB, origin string) *LocalStorage {
	return &LocalStorage{db: db, origin: origin}
}

// GetItem returns the value stored under key.
func (l *LocalStorage) GetItem(key string) (string, bool, error) {
	var value string
	err := l.db.sql.QueryRow(
		`SELECT value FROM local_storage WHERE origin = ? AND key = ?`, l.origin, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetItem stores value under key, replacing any previous value.
func (l *LocalStorage) SetItem(key, value string) error {
	_, err := l.db.sql.Exec(
		`INSERT INTO local_storage (origin, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(origin, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		l.origin, key, value, time.Now().UTC().Format(time.DateTime),
	)
	return err
}

// RemoveItem deletes key.
func (l *LocalStorage) RemoveItem(key string) error {
	_, err := l.db.sql.Exec(`DELETE FROM local_storage WHERE origin = ? AND key = ?`, l.origin, key)
	return err
}

// Keys lists the origin's keys in order.
func (l *LocalStorage) Keys() ([]string, error) {
	rows, err := l.db.sql.Query(`SELECT key FROM local_storage WHERE origin = ? ORDER BY key`, l.origin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
