package session

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/chacha20poly1305"

	// Import sqlite driver
	_ "modernc.org/sqlite"
)

// ErrTokenNotFound is returned by Load when no session has been persisted.
var ErrTokenNotFound = errors.New("no persisted session")

const tokenSchema = `
CREATE TABLE IF NOT EXISTS session (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    user_id TEXT NOT NULL,
    token BLOB NOT NULL,
    updated_at INTEGER NOT NULL
);
`

// TokenStore persists the bearer credential so the session survives app
// restarts. The token is sealed with ChaCha20-Poly1305 before it touches
// disk; the owning user ID is bound in as additional authenticated data so
// a row cannot be replayed for a different identity.
type TokenStore struct {
	db   *sql.DB
	aead cipher.AEAD
}

// OpenTokenStore opens (or creates) the session database and key file under
// dir and returns a ready store.
func OpenTokenStore(dir string) (*TokenStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	key, err := loadOrCreateKey(filepath.Join(dir, "session.key"))
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "session.db"))
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping session db: %w", err)
	}
	if _, err := db.Exec(tokenSchema); err != nil {
		return nil, fmt.Errorf("create session schema: %w", err)
	}

	return NewTokenStore(db, key)
}

// NewTokenStore builds a store over an existing database handle. The schema
// must already exist; OpenTokenStore is the normal entry point.
func NewTokenStore(db *sql.DB, key []byte) (*TokenStore, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("create AEAD: %w", err)
	}
	return &TokenStore{db: db, aead: aead}, nil
}

// Save persists the credential for userID, replacing any previous row.
func (s *TokenStore) Save(ctx context.Context, userID, token string) error {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(token), []byte(userID))

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO session (id, user_id, token, updated_at)
        VALUES (1, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            user_id = excluded.user_id,
            token = excluded.token,
            updated_at = excluded.updated_at
    `, userID, sealed, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Load returns the persisted identity and credential, or ErrTokenNotFound.
func (s *TokenStore) Load(ctx context.Context) (userID, token string, err error) {
	var sealed []byte
	err = s.db.QueryRowContext(ctx,
		`SELECT user_id, token FROM session WHERE id = 1`,
	).Scan(&userID, &sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", ErrTokenNotFound
	}
	if err != nil {
		return "", "", fmt.Errorf("load session: %w", err)
	}

	if len(sealed) < s.aead.NonceSize() {
		return "", "", errors.New("persisted session is corrupt")
	}
	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, []byte(userID))
	if err != nil {
		return "", "", fmt.Errorf("unseal session: %w", err)
	}
	return userID, string(plain), nil
}

// Clear deletes the persisted session, if any.
func (s *TokenStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session WHERE id = 1`); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *TokenStore) Close() error {
	return s.db.Close()
}

// loadOrCreateKey reads the sealing key from path, generating a fresh one on
// first run.
func loadOrCreateKey(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	if err == nil {
		if len(key) != chacha20poly1305.KeySize {
			return nil, errors.New("session key file is corrupt")
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read session key: %w", err)
	}

	key = make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate session key: %w", err)
	}
	if err := os.WriteFile(path, key, 0600); err != nil {
		return nil, fmt.Errorf("write session key: %w", err)
	}
	return key, nil
}
