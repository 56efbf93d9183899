package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrNoCredentials is returned when no credentials are stored for a provider.
var ErrNoCredentials = errors.New("no stored credentials")

// Credentials is one provider's stored credential payload. Which keys
// are present depends on the provider (key/secret vs. token/account).
type Credentials struct {
	APIKey    string `json:"api_key,omitempty"`
	APISecret string `json:"api_secret,omitempty"`
	APIToken  string `json:"api_token,omitempty"`
	AccountID string `json:"account_id,omitempty"`
}

// CredentialStore persists provider credentials, independent of the
// migration state.
type CredentialStore struct {
	db *sqlx.DB
}

// NewCredentialStore creates a credential store over db.
func NewCredentialStore(db *sqlx.DB) *CredentialStore {
	return &CredentialStore{db: db}
}

// Save stores (or replaces) the credentials for a provider.
func (s *CredentialStore) Save(ctx context.Context, provider string, creds Credentials) error {
	payload, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO credentials (provider, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(provider) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		provider, string(payload), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save credentials for %s: %w", provider, err)
	}
	return nil
}

// Load returns the stored credentials for a provider.
func (s *CredentialStore) Load(ctx context.Context, provider string) (*Credentials, error) {
	var payload string
	err := s.db.GetContext(ctx, &payload, `SELECT payload FROM credentials WHERE provider = ?`, provider)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w for %s", ErrNoCredentials, provider)
		}
		return nil, fmt.Errorf("failed to load credentials for %s: %w", provider, err)
	}

	var creds Credentials
	if err = json.Unmarshal([]byte(payload), &creds); err != nil {
		return nil, fmt.Errorf("failed to decode credentials for %s: %w", provider, err)
	}
	return &creds, nil
}

// Delete removes the stored credentials for a provider.
func (s *CredentialStore) Delete(ctx context.Context, provider string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE provider = ?`, provider); err != nil {
		return fmt.Errorf("failed to delete credentials for %s: %w", provider, err)
	}
	return nil
}
