// Package internal wires the Mindmarks client: configuration, session,
// HTTP client, content store, and offline snapshot.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mindmarks/mindmarks-go/internal/apperr"
	"github.com/mindmarks/mindmarks-go/internal/auth"
	"github.com/mindmarks/mindmarks-go/internal/content"
	"github.com/mindmarks/mindmarks-go/internal/httpc"
	"github.com/mindmarks/mindmarks-go/internal/models"
	"github.com/mindmarks/mindmarks-go/internal/scrape"
	"github.com/mindmarks/mindmarks-go/internal/snapshot"
	"github.com/mindmarks/mindmarks-go/internal/store"
)

// App is the assembled Mindmarks client.
type App struct {
	Config *Config
	Logger *slog.Logger
	Auth   *auth.Manager
	API    *content.API
	Store  *store.Store
}

// NewApp builds the client from options.
func NewApp(opts ...Option) (*App, error) {
	app := &App{}
	for _, opt := range opts {
		opt(app)
	}
	if app.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.Config

	if app.Logger == nil {
		app.Logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(app.Logger)

	creds := auth.NewCredentialStore(os.ExpandEnv(cfg.Auth.CredentialsPath))
	app.Auth = auth.NewManager(creds, cfg.API.BaseURL, app.Logger)

	client := httpc.New(cfg.API.BaseURL, app.Auth, app.Logger, httpc.Options{
		Retries:       cfg.API.Retries,
		Timeout:       time.Duration(cfg.API.TimeoutSeconds) * time.Second,
		RefreshBuffer: time.Duration(cfg.API.RefreshBufferMinutes) * time.Minute,
	})
	app.API = content.NewAPI(client)

	app.Store = store.New(app.API, app.Auth, app.Logger, store.Options{
		ListTTL:  time.Duration(cfg.Cache.ListTTLSeconds) * time.Second,
		PageTTL:  time.Duration(cfg.Cache.PageTTLSeconds) * time.Second,
		MaxPages: cfg.Cache.MaxPages,
	})

	app.Logger.Debug("client configured",
		slog.String("base_url", cfg.API.BaseURL),
		slog.String("credentials_path", creds.Path()))
	return app, nil
}

// Close releases the app's resources.
func (a *App) Close() {
	a.Store.Close()
}

// Login signs in and persists the session.
func (a *App) Login(ctx context.Context, email, password string) error {
	session, err := a.API.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return a.Auth.SetSession(&auth.Credentials{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		TokenType:    session.TokenType,
		Email:        email,
	})
}

// Register creates an account and signs in.
func (a *App) Register(ctx context.Context, email, password, fullName string) error {
	if _, err := a.API.Register(ctx, email, password, fullName); err != nil {
		return err
	}
	return a.Login(ctx, email, password)
}

// Logout clears the stored session.
func (a *App) Logout() error {
	return a.Auth.ClearSession()
}

// openSnapshot opens the offline snapshot database.
func (a *App) openSnapshot() (*snapshot.DB, error) {
	path := os.ExpandEnv(a.Config.Snapshot.Path)
	return snapshot.Open(path)
}

// List returns the content list. With offline set it reads the last
// synced snapshot instead of the network; online results are written
// back to the snapshot best-effort.
func (a *App) List(ctx context.Context, offline bool) ([]models.ContentItem, error) {
	if offline {
		db, err := a.openSnapshot()
		if err != nil {
			return nil, err
		}
		defer db.Close()
		items, syncedAt, err := db.Items()
		if err != nil {
			return nil, err
		}
		if !syncedAt.IsZero() {
			a.Logger.Info("serving offline snapshot",
				slog.Time("synced_at", syncedAt))
		}
		return items, nil
	}

	items, err := a.Store.List(ctx)
	if err != nil {
		return nil, err
	}
	if db, snapErr := a.openSnapshot(); snapErr == nil {
		if putErr := db.PutItems(items); putErr != nil {
			a.Logger.Warn("snapshot write failed", slog.String("error", putErr.Error()))
		}
		db.Close()
	}
	return items, nil
}

// Sync refreshes the list, downloads every page, and stores the result
// in the offline snapshot. Page fetches run concurrently, bounded.
func (a *App) Sync(ctx context.Context) (int, error) {
	a.Store.Invalidate()
	items, err := a.Store.List(ctx)
	if err != nil {
		return 0, err
	}

	db, err := a.openSnapshot()
	if err != nil {
		return 0, err
	}
	defer db.Close()

	if err := db.PutItems(items); err != nil {
		return 0, err
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, item := range items {
		g.Go(func() error {
			page, err := a.Store.Page(gCtx, item.ID)
			if err != nil {
				return fmt.Errorf("sync page %s: %w", item.ID, err)
			}
			if page == nil {
				return nil
			}
			return db.PutPage(*page)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	if err := db.Prune(30 * 24 * time.Hour); err != nil {
		a.Logger.Warn("snapshot prune failed", slog.String("error", err.Error()))
	}
	return len(items), nil
}

// Add creates a content record.
func (a *App) Add(ctx context.Context, in content.CreateInput) (*models.ContentItem, error) {
	return a.Store.Add(ctx, in)
}

// ImportURL scrapes a web page and creates an article pre-filled with
// its content.
func (a *App) ImportURL(ctx context.Context, url, selector string) (*models.ContentItem, error) {
	result, err := scrape.Page(ctx, url, selector)
	if err != nil {
		return nil, err
	}
	title := result.Title
	if title == "" {
		title = url
	}
	return a.Store.Add(ctx, content.CreateInput{
		Title:   title,
		Type:    models.TypeArticle,
		URL:     url,
		Content: result.Blocks(),
	})
}

// Move reassigns an item to a board column.
func (a *App) Move(ctx context.Context, id, column string) (*models.ContentItem, error) {
	if _, ok := models.StatusForColumn(column); !ok {
		return nil, fmt.Errorf("unknown column %q (want %s, %s, or %s)",
			column, models.ColumnPlanned, models.ColumnInProgress, models.ColumnDone)
	}
	return a.Store.Update(ctx, id, store.ItemUpdate{Column: &column})
}

// Remove deletes a content record.
func (a *App) Remove(ctx context.Context, id string) error {
	return a.Store.Remove(ctx, id)
}

// Show fetches the full page for one content id, falling back to the
// offline snapshot when the backend is unreachable.
func (a *App) Show(ctx context.Context, id string) (*models.ContentPage, error) {
	page, err := a.Store.Page(ctx, id)
	if err == nil {
		return page, nil
	}
	if errors.Is(err, apperr.ErrNetwork) || errors.Is(err, context.DeadlineExceeded) {
		db, snapErr := a.openSnapshot()
		if snapErr == nil {
			defer db.Close()
			if cached, cacheErr := db.Page(id); cacheErr == nil && cached != nil {
				a.Logger.Info("serving page from offline snapshot", slog.String("id", id))
				return cached, nil
			}
		}
	}
	return nil, err
}
