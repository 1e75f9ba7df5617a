package session

import (
	"database/sql"
	"time"

	"coindeck/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ Storage = (*SQLiteStorage)(nil)

// Fixed well-known keys for the persisted credential.
const (
	keyToken        = "auth_token"
	keyTokenExpires = "auth_token_expires"
)

// SQLiteStorage implements Storage backed by a small key/value table in a
// SQLite database.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (or creates) a SQLite database at dbPath and ensures
// the kv table exists.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStorage{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// SaveCredential writes the token and its expiration under the fixed keys.
func (s *SQLiteStorage) SaveCredential(cred *domain.Credential) error {
	expires := ""
	if !cred.ExpiresAt.IsZero() {
		expires = cred.ExpiresAt.Format(time.RFC3339)
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	upsert := `INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	if _, err := tx.Exec(upsert, keyToken, cred.Token); err != nil {
		return err
	}
	if _, err := tx.Exec(upsert, keyTokenExpires, expires); err != nil {
		return err
	}
	return tx.Commit()
}

// LoadCredential reads the persisted credential, returning (nil, nil) when
// none is stored.
func (s *SQLiteStorage) LoadCredential() (*domain.Credential, error) {
	var token string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, keyToken).Scan(&token)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, nil
	}

	cred := &domain.Credential{Token: token}
	var expires string
	err = s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, keyTokenExpires).Scan(&expires)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if expires != "" {
		if t, perr := time.Parse(time.RFC3339, expires); perr == nil {
			cred.ExpiresAt = t
		}
	}
	return cred, nil
}

// ClearCredential removes the persisted token and expiration.
func (s *SQLiteStorage) ClearCredential() error {
	_, err := s.db.Exec(`DELETE FROM kv WHERE key IN (?, ?)`, keyToken, keyTokenExpires)
	return err
}
