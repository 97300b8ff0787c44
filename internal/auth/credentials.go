// Package auth holds the stored session and decides when the access token
// must be refreshed. Refreshes are single-flighted so concurrent callers
// share one upstream call.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Env fallbacks, used when no credentials file exists. Mirrors the web
// client's session-storage-first, local-storage-fallback lookup.
const (
	EnvAccessToken  = "MINDMARKS_ACCESS_TOKEN"
	EnvRefreshToken = "MINDMARKS_REFRESH_TOKEN"
)

// Credentials is the on-disk session record.
type Credentials struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type,omitempty"`
	Email        string    `json:"email,omitempty"`
	SavedAt      time.Time `json:"saved_at"`
}

// CredentialStore reads and writes the credentials file.
type CredentialStore struct {
	path string
}

// NewCredentialStore creates a store for the given file path.
func NewCredentialStore(path string) *CredentialStore {
	return &CredentialStore{path: path}
}

// Path returns the credentials file location.
func (s *CredentialStore) Path() string {
	return s.path
}

// Load reads stored credentials. When the file is absent it falls back to
// the environment; with neither present it returns nil without error.
func (s *CredentialStore) Load() (*Credentials, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		if tok := os.Getenv(EnvAccessToken); tok != "" {
			return &Credentials{
				AccessToken:  tok,
				RefreshToken: os.Getenv(EnvRefreshToken),
			}, nil
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("auth: read credentials: %w", err)
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("auth: parse credentials: %w", err)
	}
	return &creds, nil
}

// Save writes credentials atomically with owner-only permissions.
func (s *CredentialStore) Save(creds *Credentials) error {
	if creds.SavedAt.IsZero() {
		creds.SavedAt = time.Now()
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("auth: encode credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("auth: create credentials dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("auth: write credentials: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("auth: commit credentials: %w", err)
	}
	return nil
}

// Clear removes the credentials file. A missing file is not an error.
func (s *CredentialStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("auth: clear credentials: %w", err)
	}
	return nil
}
