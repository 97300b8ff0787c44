package auth

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mindmarks/mindmarks-go/internal/apperr"
)

// refreshKey is the singleflight key: there is only ever one kind of
// refresh, so one in-flight call covers all callers.
const refreshKey = "refresh"

// Manager holds the current session and serialises refresh attempts.
// It is safe for concurrent use.
type Manager struct {
	store      *CredentialStore
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	group singleflight.Group

	mu    sync.RWMutex
	creds *Credentials
}

// NewManager creates a Manager backed by the given credential store,
// talking to the backend at baseURL for token refresh.
func NewManager(store *CredentialStore, baseURL string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:      store,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// load returns the cached credentials, reading the store on first use.
func (m *Manager) load() *Credentials {
	m.mu.RLock()
	creds := m.creds
	m.mu.RUnlock()
	if creds != nil {
		return creds
	}

	loaded, err := m.store.Load()
	if err != nil {
		m.logger.Warn("auth: loading credentials failed", slog.String("error", err.Error()))
		return nil
	}
	if loaded == nil {
		return nil
	}
	m.mu.Lock()
	if m.creds == nil {
		m.creds = loaded
	}
	creds = m.creds
	m.mu.Unlock()
	return creds
}

// AccessToken returns the current access token, or "" when signed out.
func (m *Manager) AccessToken() string {
	if creds := m.load(); creds != nil {
		return creds.AccessToken
	}
	return ""
}

// Email returns the signed-in user's email, when known.
func (m *Manager) Email() string {
	if creds := m.load(); creds != nil {
		return creds.Email
	}
	return ""
}

// SetSession replaces the session after a successful login or register.
func (m *Manager) SetSession(creds *Credentials) error {
	m.mu.Lock()
	m.creds = creds
	m.mu.Unlock()
	return m.store.Save(creds)
}

// ClearSession drops the in-memory session and the stored credentials.
func (m *Manager) ClearSession() error {
	m.mu.Lock()
	m.creds = nil
	m.mu.Unlock()
	return m.store.Clear()
}

// Reload discards the in-memory session so the next access re-reads the
// store. Used by the credentials watcher when another process rewrites
// the file.
func (m *Manager) Reload() {
	m.mu.Lock()
	m.creds = nil
	m.mu.Unlock()
}

// IsExpiringSoon reports whether the access token expires within buffer.
// A token with no readable expiry claim reads as expiring, so callers
// fail safe toward refreshing.
func (m *Manager) IsExpiringSoon(buffer time.Duration) bool {
	creds := m.load()
	if creds == nil || creds.AccessToken == "" {
		return true
	}
	exp, ok := tokenExpiry(creds.AccessToken)
	if !ok {
		return true
	}
	return time.Until(exp) <= buffer
}

// tokenExpiry decodes the exp claim from a JWT without verifying the
// signature; the client only needs the timestamp, the backend verifies.
func tokenExpiry(token string) (time.Time, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return time.Time{}, false
	}
	var claims struct {
		Exp int64 `json:"exp"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil || claims.Exp == 0 {
		return time.Time{}, false
	}
	return time.Unix(claims.Exp, 0), true
}

// Refresh exchanges the refresh token for a new access token. Concurrent
// callers collapse into one upstream call and all observe the same
// result. A failed refresh clears the session entirely: a dangling
// access token without a working refresh path cannot recover.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	token, err, _ := m.group.Do(refreshKey, func() (any, error) {
		return m.doRefresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

func (m *Manager) doRefresh(ctx context.Context) (string, error) {
	creds := m.load()
	if creds == nil || creds.RefreshToken == "" {
		return "", apperr.ErrUnauthorized
	}

	body, err := json.Marshal(map[string]string{"refresh_token": creds.RefreshToken})
	if err != nil {
		return "", fmt.Errorf("auth: encode refresh request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		m.baseURL+"/api/v1/auth/refresh", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("auth: build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: refresh: %v", apperr.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		m.logger.Info("auth: refresh rejected, clearing session",
			slog.Int("status", resp.StatusCode))
		if err := m.ClearSession(); err != nil {
			m.logger.Warn("auth: clearing session failed", slog.String("error", err.Error()))
		}
		return "", apperr.ErrUnauthorized
	}

	var tok struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("auth: decode refresh response: %w", err)
	}

	next := &Credentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Email:        creds.Email,
	}
	if next.RefreshToken == "" {
		next.RefreshToken = creds.RefreshToken
	}
	if err := m.SetSession(next); err != nil {
		m.logger.Warn("auth: persisting refreshed session failed",
			slog.String("error", err.Error()))
	}
	return tok.AccessToken, nil
}
