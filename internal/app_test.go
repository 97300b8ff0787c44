package internal

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/mindmarks/mindmarks-go/internal/content"
	"github.com/mindmarks/mindmarks-go/internal/mindmarkstest"
	"github.com/mindmarks/mindmarks-go/internal/models"
)

func newTestApp(t *testing.T, baseURL string) *App {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.API.BaseURL = baseURL
	cfg.API.Retries = 1
	cfg.Auth.CredentialsPath = filepath.Join(dir, "credentials.json")
	cfg.Snapshot.Path = filepath.Join(dir, "snapshot.db")
	cfg.Cache.PageTTLSeconds = 1

	app, err := NewApp(WithConfig(cfg))
	if err != nil {
		t.Fatalf("new app failed: %v", err)
	}
	t.Cleanup(app.Close)
	return app
}

func TestApp_LoginListAddMove(t *testing.T) {
	backend := mindmarkstest.NewBackend()
	app := newTestApp(t, backend.Start(t))
	ctx := context.Background()

	if err := app.Login(ctx, "reader@example.com", "correct-horse"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if app.Auth.Email() != "reader@example.com" {
		t.Errorf("email = %q", app.Auth.Email())
	}

	item, err := app.Add(ctx, content.CreateInput{
		Title: "The Go Programming Language",
		Type:  models.TypeBook,
	})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	items, err := app.List(ctx, false)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(items) != 1 || items[0].ID != item.ID {
		t.Fatalf("items = %+v, want the created item", items)
	}

	moved, err := app.Move(ctx, item.ID, models.ColumnInProgress)
	if err != nil {
		t.Fatalf("move failed: %v", err)
	}
	if moved.Column != models.ColumnInProgress {
		t.Errorf("column = %q, want in-progress", moved.Column)
	}

	if _, err := app.Move(ctx, item.ID, "limbo"); err == nil {
		t.Error("unknown column should be rejected before any network call")
	}
}

func TestApp_SyncAndOfflineList(t *testing.T) {
	backend := mindmarkstest.NewBackend()
	app := newTestApp(t, backend.Start(t))
	ctx := context.Background()

	if err := app.Login(ctx, "reader@example.com", "correct-horse"); err != nil {
		t.Fatal(err)
	}
	if _, err := app.Add(ctx, content.CreateInput{Title: "Offline Book", Type: models.TypeBook}); err != nil {
		t.Fatal(err)
	}

	n, err := app.Sync(ctx)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if n != 1 {
		t.Errorf("synced = %d, want 1", n)
	}

	items, err := app.List(ctx, true)
	if err != nil {
		t.Fatalf("offline list failed: %v", err)
	}
	if len(items) != 1 || items[0].Name != "Offline Book" {
		t.Errorf("offline items = %+v", items)
	}
}

func TestApp_ShowFallsBackToSnapshot(t *testing.T) {
	backend := mindmarkstest.NewBackend()
	srv := httptest.NewServer(backend.Handler())
	app := newTestApp(t, srv.URL)
	ctx := context.Background()

	if err := app.Login(ctx, "reader@example.com", "correct-horse"); err != nil {
		t.Fatal(err)
	}
	item, err := app.Add(ctx, content.CreateInput{Title: "Cached Page", Type: models.TypeArticle})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := app.Sync(ctx); err != nil {
		t.Fatal(err)
	}

	// Let the in-memory page cache expire, then take the backend away.
	time.Sleep(1100 * time.Millisecond)
	srv.Close()

	page, err := app.Show(ctx, item.ID)
	if err != nil {
		t.Fatalf("show should serve the snapshot when offline: %v", err)
	}
	if page == nil || page.Title != "Cached Page" {
		t.Errorf("page = %+v, want the snapshot copy", page)
	}
}

func TestApp_LogoutClearsSession(t *testing.T) {
	backend := mindmarkstest.NewBackend()
	app := newTestApp(t, backend.Start(t))
	ctx := context.Background()

	if err := app.Login(ctx, "reader@example.com", "correct-horse"); err != nil {
		t.Fatal(err)
	}
	if err := app.Logout(); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if app.Auth.AccessToken() != "" {
		t.Error("token should be gone after logout")
	}
	if _, err := app.List(ctx, false); err == nil {
		t.Error("list without a session should fail")
	}
}
