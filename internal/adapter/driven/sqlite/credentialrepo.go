package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ericfisherdev/promptvault/internal/domain/model"
	"github.com/ericfisherdev/promptvault/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port.
// Credential values are encrypted with AES-256-GCM before write and decrypted
// after read.
type CredentialRepo struct {
	db  *DB
	key []byte // 32-byte AES-256 key; nil when encryption is disabled.
}

// NewCredentialRepo creates a new CredentialRepo. key must be 32 bytes for
// AES-256-GCM, or nil to disable credential storage (all operations will
// return ErrEncryptionKeyNotSet).
func NewCredentialRepo(db *DB, key []byte) *CredentialRepo {
	return &CredentialRepo{db: db, key: key}
}

// Set stores or replaces the credential identified by (service, key).
func (r *CredentialRepo) Set(ctx context.Context, service, key, plaintext string) error {
	encrypted, err := r.encrypt(plaintext)
	if err != nil {
		return err
	}

	const query = `INSERT OR REPLACE INTO credentials (service, key, value, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)`
	_, err = r.db.Writer.ExecContext(ctx, query, service, key, encrypted)
	if err != nil {
		return fmt.Errorf("set credential %s/%s: %w", service, key, err)
	}
	return nil
}

// Get retrieves the plaintext credential for (service, key).
// Returns ("", nil) if no such credential exists.
func (r *CredentialRepo) Get(ctx context.Context, service, key string) (string, error) {
	if r.key == nil {
		return "", driven.ErrEncryptionKeyNotSet
	}

	const query = `SELECT value FROM credentials WHERE service = ? AND key = ?`
	var encrypted string
	err := r.db.Reader.QueryRowContext(ctx, query, service, key).Scan(&encrypted)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get credential %s/%s: %w", service, key, err)
	}

	plaintext, err := r.decrypt(encrypted)
	if err != nil {
		return "", fmt.Errorf("decrypt credential %s/%s: %w", service, key, err)
	}
	return plaintext, nil
}

// List returns all stored credentials with decrypted values.
func (r *CredentialRepo) List(ctx context.Context) ([]model.StoredCredential, error) {
	if r.key == nil {
		return nil, driven.ErrEncryptionKeyNotSet
	}

	const query = `SELECT id, service, key, value, updated_at FROM credentials ORDER BY service, key`
	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var creds []model.StoredCredential
	for rows.Next() {
		var cred model.StoredCredential
		var encrypted string
		var updatedAt string
		if err := rows.Scan(&cred.ID, &cred.Service, &cred.Key, &encrypted, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}

		plaintext, err := r.decrypt(encrypted)
		if err != nil {
			return nil, fmt.Errorf("decrypt credential %s/%s: %w", cred.Service, cred.Key, err)
		}
		cred.Value = plaintext

		cred.UpdatedAt, err = parseTime(updatedAt)
		if err != nil {
			return nil, fmt.Errorf("parse updated_at for credential %s/%s: %w", cred.Service, cred.Key, err)
		}

		creds = append(creds, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}

	return creds, nil
}

// Delete removes the credential for (service, key).
func (r *CredentialRepo) Delete(ctx context.Context, service, key string) error {
	const query = `DELETE FROM credentials WHERE service = ? AND key = ?`
	_, err := r.db.Writer.ExecContext(ctx, query, service, key)
	if err != nil {
		return fmt.Errorf("delete credential %s/%s: %w", service, key, err)
	}
	return nil
}

// encrypt encrypts plaintext using AES-256-GCM and returns a base64-encoded
// string containing the nonce (12 bytes) prepended to the ciphertext.
func (r *CredentialRepo) encrypt(plaintext string) (string, error) {
	if r.key == nil {
		return "", driven.ErrEncryptionKeyNotSet
	}

	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, producing: nonce || ciphertext || tag.
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decrypt decrypts a base64-encoded AES-256-GCM ciphertext.
func (r *CredentialRepo) decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("gcm.Open: %w", err)
	}

	return string(plaintext), nil
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
