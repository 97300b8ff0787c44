// Package mindmarkstest provides a fake Mindmarks backend for tests: an
// in-memory HTTP server speaking the backend's wire format, with hooks
// for failure injection and call counting.
package mindmarkstest

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// WireUser mirrors the backend's embedded user object.
type WireUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// WireItem mirrors the backend's content list projection.
type WireItem struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Type        string     `json:"type"`
	StartAt     time.Time  `json:"start_at"`
	EndAt       *time.Time `json:"end_at,omitempty"`
	Column      string     `json:"column"`
	Owner       *WireUser  `json:"owner,omitempty"`
	Description string     `json:"description,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	URL         string     `json:"url,omitempty"`
	Progress    *float64   `json:"progress,omitempty"`
	Priority    string     `json:"priority,omitempty"`
}

// WirePage mirrors the backend's full content document.
type WirePage struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Type              string     `json:"type"`
	URL               string     `json:"url,omitempty"`
	Summary           string     `json:"summary,omitempty"`
	Tags              []string   `json:"tags,omitempty"`
	Status            string     `json:"status"`
	Priority          string     `json:"priority,omitempty"`
	Content           []any      `json:"content"`
	KeyTakeaways      []string   `json:"key_takeaways,omitempty"`
	Progress          *float64   `json:"progress,omitempty"`
	Author            string     `json:"author,omitempty"`
	PublishedDate     *time.Time `json:"published_date,omitempty"`
	EstimatedReadTime string     `json:"estimated_read_time,omitempty"`
	Rating            *float64   `json:"rating,omitempty"`
	IsPublic          bool       `json:"is_public"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	CreatedBy         *WireUser  `json:"created_by,omitempty"`
}

type account struct {
	id       string
	email    string
	password string
	fullName string
}

// Backend is the fake server state. All exported counters are guarded by
// the backend's own lock; read them through their accessor methods.
type Backend struct {
	mu sync.Mutex

	accounts     map[string]*account
	pages        map[string]*WirePage
	order        []string
	accessToken  string
	refreshToken string

	refreshCalls int
	listCalls    int
	failStatus   int
	failBody     string
	failCount    int

	router chi.Router
}

// NewBackend creates a fake backend with one seeded account
// (reader@example.com / correct-horse).
func NewBackend() *Backend {
	b := &Backend{
		accounts: make(map[string]*account),
		pages:    make(map[string]*WirePage),
	}
	b.accounts["reader@example.com"] = &account{
		id:       uuid.NewString(),
		email:    "reader@example.com",
		password: "correct-horse",
		fullName: "Avid Reader",
	}

	r := chi.NewRouter()
	r.Post("/api/v1/auth/login", b.handleLogin)
	r.Post("/api/v1/auth/register", b.handleRegister)
	r.Post("/api/v1/auth/refresh", b.handleRefresh)
	r.Get("/api/v1/users/me", b.handleMe)
	r.Get("/api/v1/content/me", b.handleList)
	r.Post("/api/v1/content", b.handleCreate)
	r.Get("/api/v1/content/{id}", b.handleGet)
	r.Patch("/api/v1/content/{id}", b.handlePatch)
	r.Delete("/api/v1/content/{id}", b.handleDelete)
	b.router = r
	return b
}

// Start runs the backend on an httptest server and returns its base URL.
func (b *Backend) Start(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(b.router)
	t.Cleanup(srv.Close)
	return srv.URL
}

// Handler exposes the router for in-process use.
func (b *Backend) Handler() http.Handler {
	return b.router
}

// MakeJWT builds an unsigned JWT with the given expiry, shaped like the
// backend's access tokens.
func MakeJWT(sub string, exp time.Time) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload, _ := json.Marshal(map[string]any{"sub": sub, "exp": exp.Unix()})
	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + ".sig"
}

// FailNext makes the next n content requests fail with the given status
// and body.
func (b *Backend) FailNext(n, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failCount = n
	b.failStatus = status
	b.failBody = body
}

// RotateToken invalidates the current access token without touching the
// refresh token, so the next authenticated request sees a 401 and a
// refresh succeeds.
func (b *Backend) RotateToken() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accessToken = ""
}

// RevokeRefreshToken makes subsequent refresh attempts fail.
func (b *Backend) RevokeRefreshToken() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshToken = ""
	b.accessToken = ""
}

// RefreshCalls reports how many refresh requests the backend served.
func (b *Backend) RefreshCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refreshCalls
}

// ListCalls reports how many list requests the backend served.
func (b *Backend) ListCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listCalls
}

// Seed inserts a content record directly.
func (b *Backend) Seed(page WirePage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if page.ID == "" {
		page.ID = uuid.NewString()
	}
	if page.Status == "" {
		page.Status = "planned"
	}
	if page.CreatedAt.IsZero() {
		page.CreatedAt = time.Now()
	}
	b.pages[page.ID] = &page
	b.order = append(b.order, page.ID)
}

// Tokens returns the currently issued token pair.
func (b *Backend) Tokens() (access, refresh string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accessToken, b.refreshToken
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func detail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

// failInjected reports and consumes one injected failure.
func (b *Backend) failInjected(w http.ResponseWriter) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failCount <= 0 {
		return false
	}
	b.failCount--
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.failStatus)
	_, _ = w.Write([]byte(b.failBody))
	return true
}

// authorized checks the bearer token. Caller must not hold the lock.
func (b *Backend) authorized(r *http.Request) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	return b.accessToken != "" && got == b.accessToken
}

func (b *Backend) issueTokens(sub string) (string, string) {
	access := MakeJWT(sub, time.Now().Add(30*time.Minute))
	refresh := uuid.NewString()
	b.accessToken = access
	b.refreshToken = refresh
	return access, refresh
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		detail(w, http.StatusBadRequest, "invalid form")
		return
	}
	email := r.PostFormValue("username")
	password := r.PostFormValue("password")

	b.mu.Lock()
	defer b.mu.Unlock()
	acct, ok := b.accounts[email]
	if !ok || acct.password != password {
		detail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	access, refresh := b.issueTokens(acct.id)
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "bearer",
	})
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		detail(w, http.StatusBadRequest, "invalid body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.accounts[in.Email]; exists {
		detail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	acct := &account{
		id:       uuid.NewString(),
		email:    in.Email,
		password: in.Password,
		fullName: in.FullName,
	}
	b.accounts[in.Email] = acct
	writeJSON(w, http.StatusCreated, map[string]any{
		"id": acct.id, "email": acct.email, "full_name": acct.fullName, "is_active": true,
	})
}

func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshCalls++
	if b.refreshToken == "" || in.RefreshToken != b.refreshToken {
		detail(w, http.StatusUnauthorized, "Refresh token has expired")
		return
	}
	var sub string
	for _, acct := range b.accounts {
		sub = acct.id
		break
	}
	access, refresh := b.issueTokens(sub)
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "bearer",
	})
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(r) {
		detail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, acct := range b.accounts {
		writeJSON(w, http.StatusOK, map[string]any{
			"id": acct.id, "email": acct.email, "full_name": acct.fullName, "is_active": true,
		})
		return
	}
	detail(w, http.StatusNotFound, "no accounts")
}

func (b *Backend) itemFromPage(p *WirePage) WireItem {
	var owner *WireUser
	if p.CreatedBy != nil {
		owner = p.CreatedBy
	}
	return WireItem{
		ID:          p.ID,
		Name:        p.Title,
		Type:        p.Type,
		StartAt:     p.CreatedAt,
		Column:      p.Status,
		Owner:       owner,
		Description: p.Summary,
		Tags:        p.Tags,
		URL:         p.URL,
		Progress:    p.Progress,
		Priority:    p.Priority,
	}
}

func (b *Backend) handleList(w http.ResponseWriter, r *http.Request) {
	if b.failInjected(w) {
		return
	}
	if !b.authorized(r) {
		detail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listCalls++
	items := make([]WireItem, 0, len(b.order))
	for _, id := range b.order {
		items = append(items, b.itemFromPage(b.pages[id]))
	}
	writeJSON(w, http.StatusOK, items)
}

func (b *Backend) handleCreate(w http.ResponseWriter, r *http.Request) {
	if b.failInjected(w) {
		return
	}
	if !b.authorized(r) {
		detail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	var in WirePage
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		detail(w, http.StatusBadRequest, "invalid body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	in.ID = uuid.NewString()
	in.CreatedAt = time.Now()
	in.UpdatedAt = in.CreatedAt
	if in.Status == "" {
		in.Status = "planned"
	}
	for _, acct := range b.accounts {
		in.CreatedBy = &WireUser{ID: acct.id, Name: acct.fullName}
		break
	}
	b.pages[in.ID] = &in
	b.order = append(b.order, in.ID)

	writeJSON(w, http.StatusOK, map[string]any{
		"id":           in.ID,
		"content":      b.itemFromPage(&in),
		"content_page": in,
	})
}

func (b *Backend) handleGet(w http.ResponseWriter, r *http.Request) {
	if b.failInjected(w) {
		return
	}
	if !b.authorized(r) {
		detail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	page, ok := b.pages[chi.URLParam(r, "id")]
	if !ok {
		detail(w, http.StatusNotFound, "Content not found")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (b *Backend) handlePatch(w http.ResponseWriter, r *http.Request) {
	if b.failInjected(w) {
		return
	}
	if !b.authorized(r) {
		detail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	var patch map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		detail(w, http.StatusBadRequest, "invalid body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	page, ok := b.pages[chi.URLParam(r, "id")]
	if !ok {
		detail(w, http.StatusNotFound, "Content not found")
		return
	}

	// Re-encode the page, overlay the patch keys, decode back. Keeps the
	// fake honest about partial-update semantics.
	full, _ := json.Marshal(page)
	var merged map[string]json.RawMessage
	_ = json.Unmarshal(full, &merged)
	for k, v := range patch {
		merged[k] = v
	}
	data, _ := json.Marshal(merged)
	var updated WirePage
	if err := json.Unmarshal(data, &updated); err != nil {
		detail(w, http.StatusBadRequest, fmt.Sprintf("bad patch: %v", err))
		return
	}
	updated.UpdatedAt = time.Now()
	b.pages[updated.ID] = &updated
	writeJSON(w, http.StatusOK, updated)
}

func (b *Backend) handleDelete(w http.ResponseWriter, r *http.Request) {
	if b.failInjected(w) {
		return
	}
	if !b.authorized(r) {
		detail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	id := chi.URLParam(r, "id")
	if _, ok := b.pages[id]; !ok {
		detail(w, http.StatusNotFound, "Content not found")
		return
	}
	delete(b.pages, id)
	for i, oid := range b.order {
		if oid == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
