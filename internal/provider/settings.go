package provider

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/resonate-app/resonate/internal/encryption"
)

// Credential field names per provider.
const (
	FieldClientID     = "client_id"
	FieldClientSecret = "client_secret"
	FieldToken        = "token"
)

// CredentialFields returns the credential fields a provider requires.
func CredentialFields(name Name) []string {
	switch name {
	case NameSpotify:
		return []string{FieldClientID, FieldClientSecret}
	case NameDiscogs:
		return []string{FieldToken}
	default:
		return nil
	}
}

// SettingsService manages provider credentials in the settings table.
// Values are encrypted at rest. Overrides (from config or environment)
// take precedence over stored values and are never written to the
// database.
type SettingsService struct {
	db        *sql.DB
	encryptor *encryption.Encryptor

	mu        sync.RWMutex
	overrides map[string]string
}

// NewSettingsService creates a new SettingsService.
func NewSettingsService(db *sql.DB, encryptor *encryption.Encryptor) *SettingsService {
	return &SettingsService{
		db:        db,
		encryptor: encryptor,
		overrides: make(map[string]string),
	}
}

func credentialKey(name Name, field string) string {
	return fmt.Sprintf("provider.%s.%s", name, field)
}

// SetOverride registers an environment-provided credential that shadows
// any stored value.
func (s *SettingsService) SetOverride(name Name, field, value string) {
	if value == "" {
		return
	}
	s.mu.Lock()
	s.overrides[credentialKey(name, field)] = value
	s.mu.Unlock()
}

// GetCredential returns the credential for a provider field, preferring
// overrides. Returns empty string if nothing is configured.
func (s *SettingsService) GetCredential(ctx context.Context, name Name, field string) (string, error) {
	key := credentialKey(name, field)

	s.mu.RLock()
	v, ok := s.overrides[key]
	s.mu.RUnlock()
	if ok {
		return v, nil
	}

	var stored string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading credential %s: %w", key, err)
	}
	if stored == "" {
		return "", nil
	}

	plain, err := s.encryptor.Decrypt(stored)
	if err != nil {
		return "", fmt.Errorf("decrypting credential %s: %w", key, err)
	}
	return plain, nil
}

// SetCredential encrypts and stores a credential value.
func (s *SettingsService) SetCredential(ctx context.Context, name Name, field, value string) error {
	sealed, err := s.encryptor.Encrypt(value)
	if err != nil {
		return fmt.Errorf("encrypting credential: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		credentialKey(name, field), sealed)
	if err != nil {
		return fmt.Errorf("storing credential: %w", err)
	}
	return nil
}

// DeleteCredential removes a stored credential. Overrides are unaffected.
func (s *SettingsService) DeleteCredential(ctx context.Context, name Name, field string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, credentialKey(name, field)); err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}
	return nil
}

// Configured reports whether every credential field the provider requires
// has a value.
func (s *SettingsService) Configured(ctx context.Context, name Name) (bool, error) {
	for _, field := range CredentialFields(name) {
		v, err := s.GetCredential(ctx, name, field)
		if err != nil {
			return false, err
		}
		if v == "" {
			return false, nil
		}
	}
	return true, nil
}
