package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"marketsync/internal/errors"
	"marketsync/internal/models"
)

// SQLiteStore implements StateStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the persisted-state database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "initializing schema")
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Singleton session row; id is always 1.
	CREATE TABLE IF NOT EXISTS session (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		access_token TEXT NOT NULL,
		user_id TEXT NOT NULL,
		expires_at DATETIME NOT NULL
	);

	-- Singleton preferences row stored as JSON; id is always 1.
	CREATE TABLE IF NOT EXISTS preferences (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		data TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveSession stores the session, replacing any previous one.
func (s *SQLiteStore) SaveSession(ctx context.Context, sess models.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session (id, access_token, user_id, expires_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			access_token = excluded.access_token,
			user_id = excluded.user_id,
			expires_at = excluded.expires_at`,
		sess.AccessToken, sess.UserID, sess.ExpiresAt)
	if err != nil {
		return errors.Wrap(errors.ErrDatabaseError, err.Error())
	}
	return nil
}

// LoadSession returns the persisted session, or a zero session when none
// has been stored.
func (s *SQLiteStore) LoadSession(ctx context.Context) (models.Session, error) {
	var sess models.Session
	err := s.db.QueryRowContext(ctx,
		`SELECT access_token, user_id, expires_at FROM session WHERE id = 1`).
		Scan(&sess.AccessToken, &sess.UserID, &sess.ExpiresAt)
	if err == sql.ErrNoRows {
		return models.Session{}, nil
	}
	if err != nil {
		return models.Session{}, errors.Wrap(errors.ErrDatabaseError, err.Error())
	}
	return sess, nil
}

// ClearSession removes any persisted session.
func (s *SQLiteStore) ClearSession(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session WHERE id = 1`); err != nil {
		return errors.Wrap(errors.ErrDatabaseError, err.Error())
	}
	return nil
}

// SavePreferences stores UI preferences, replacing any previous value.
func (s *SQLiteStore) SavePreferences(ctx context.Context, p models.Preferences) error {
	data, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "encoding preferences")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO preferences (id, data, updated_at)
		VALUES (1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			data = excluded.data,
			updated_at = CURRENT_TIMESTAMP`,
		string(data))
	if err != nil {
		return errors.Wrap(errors.ErrDatabaseError, err.Error())
	}
	return nil
}

// LoadPreferences returns the persisted preferences, or zero preferences
// when none have been stored.
func (s *SQLiteStore) LoadPreferences(ctx context.Context) (models.Preferences, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM preferences WHERE id = 1`).Scan(&data)
	if err == sql.ErrNoRows {
		return models.Preferences{}, nil
	}
	if err != nil {
		return models.Preferences{}, errors.Wrap(errors.ErrDatabaseError, err.Error())
	}

	var p models.Preferences
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return models.Preferences{}, errors.Wrap(err, "decoding preferences")
	}
	return p, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ensure SQLiteStore implements StateStore.
var _ StateStore = (*SQLiteStore)(nil)
