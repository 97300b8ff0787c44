package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mindmarks/mindmarks-go/internal/apperr"
	"github.com/mindmarks/mindmarks-go/internal/mindmarkstest"
)

func newTestManager(t *testing.T, baseURL string, creds *Credentials) *Manager {
	t.Helper()
	store := NewCredentialStore(filepath.Join(t.TempDir(), "credentials.json"))
	if creds != nil {
		if err := store.Save(creds); err != nil {
			t.Fatalf("seeding credentials failed: %v", err)
		}
	}
	return NewManager(store, baseURL, nil)
}

func TestManager_IsExpiringSoon(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		buffer time.Duration
		want   bool
	}{
		{
			name:   "far expiry",
			token:  mindmarkstest.MakeJWT("u1", time.Now().Add(time.Hour)),
			buffer: 5 * time.Minute,
			want:   false,
		},
		{
			name:   "inside buffer",
			token:  mindmarkstest.MakeJWT("u1", time.Now().Add(2*time.Minute)),
			buffer: 5 * time.Minute,
			want:   true,
		},
		{
			name:   "already expired",
			token:  mindmarkstest.MakeJWT("u1", time.Now().Add(-time.Minute)),
			buffer: 5 * time.Minute,
			want:   true,
		},
		{
			name:   "unreadable token",
			token:  "not-a-jwt",
			buffer: 5 * time.Minute,
			want:   true,
		},
		{
			// header.payload.sig with no exp claim
			name:   "no expiry claim",
			token:  "e30." + base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"u1"}`)) + ".sig",
			buffer: 5 * time.Minute,
			want:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t, "http://localhost", &Credentials{
				AccessToken:  tt.token,
				RefreshToken: "r",
			})
			if got := m.IsExpiringSoon(tt.buffer); got != tt.want {
				t.Errorf("IsExpiringSoon = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestManager_IsExpiringSoon_NoSession(t *testing.T) {
	m := newTestManager(t, "http://localhost", nil)
	if !m.IsExpiringSoon(time.Minute) {
		t.Error("no session should read as expiring")
	}
}

func TestManager_Refresh_SingleFlight(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token":  mindmarkstest.MakeJWT("u1", time.Now().Add(time.Hour)),
			"refresh_token": "next-refresh",
			"token_type":    "bearer",
		})
	}))
	defer srv.Close()

	m := newTestManager(t, srv.URL, &Credentials{AccessToken: "old", RefreshToken: "r"})

	const workers = 5
	var wg sync.WaitGroup
	tokens := make([]string, workers)
	errs := make([]error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tokens[i], errs[i] = m.Refresh(context.Background())
		}()
	}
	// Let every caller reach the in-flight refresh before it completes.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("upstream refresh calls = %d, want 1", got)
	}
	for i := range workers {
		if errs[i] != nil {
			t.Fatalf("worker %d: refresh failed: %v", i, errs[i])
		}
		if tokens[i] != tokens[0] {
			t.Errorf("worker %d got a different token", i)
		}
	}
}

func TestManager_Refresh_RejectedClearsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Refresh token has expired"})
	}))
	defer srv.Close()

	m := newTestManager(t, srv.URL, &Credentials{AccessToken: "old", RefreshToken: "stale"})

	_, err := m.Refresh(context.Background())
	if !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if tok := m.AccessToken(); tok != "" {
		t.Errorf("access token should be cleared, got %q", tok)
	}
	if _, statErr := os.Stat(m.store.Path()); !os.IsNotExist(statErr) {
		t.Error("credentials file should be removed after rejected refresh")
	}
}

func TestManager_Refresh_NoSession(t *testing.T) {
	m := newTestManager(t, "http://localhost", nil)
	if _, err := m.Refresh(context.Background()); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestManager_Refresh_KeepsRefreshTokenWhenOmitted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token": mindmarkstest.MakeJWT("u1", time.Now().Add(time.Hour)),
			"token_type":   "bearer",
		})
	}))
	defer srv.Close()

	m := newTestManager(t, srv.URL, &Credentials{
		AccessToken:  "old",
		RefreshToken: "keep-me",
		Email:        "reader@example.com",
	})

	if _, err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	creds, err := m.store.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if creds.RefreshToken != "keep-me" {
		t.Errorf("refresh token = %q, want the previous one kept", creds.RefreshToken)
	}
	if creds.Email != "reader@example.com" {
		t.Errorf("email = %q, should survive refresh", creds.Email)
	}
}

func TestManager_SetAndClearSession(t *testing.T) {
	m := newTestManager(t, "http://localhost", nil)
	if err := m.SetSession(&Credentials{AccessToken: "tok", Email: "a@b.c"}); err != nil {
		t.Fatalf("set session failed: %v", err)
	}
	if m.AccessToken() != "tok" || m.Email() != "a@b.c" {
		t.Error("session not visible after SetSession")
	}
	if err := m.ClearSession(); err != nil {
		t.Fatalf("clear session failed: %v", err)
	}
	if m.AccessToken() != "" {
		t.Error("session should be empty after ClearSession")
	}
}
