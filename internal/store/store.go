// Package store maintains the client-side view of the user's content: a
// cached list, a bounded per-id page cache, and optimistic mutations that
// roll back when the server rejects them.
package store

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/mindmarks/mindmarks-go/internal/apperr"
	"github.com/mindmarks/mindmarks-go/internal/content"
	"github.com/mindmarks/mindmarks-go/internal/models"
)

// ContentAPI is the backend surface the store depends on. *content.API
// satisfies it; tests substitute fakes.
type ContentAPI interface {
	Me(ctx context.Context) (*content.Account, error)
	ListMine(ctx context.Context) ([]models.ContentItem, error)
	Create(ctx context.Context, in content.CreateInput) (*models.ContentItem, *models.ContentPage, error)
	GetPage(ctx context.Context, id string) (*models.ContentPage, error)
	Update(ctx context.Context, id string, update content.PageUpdate) (*models.ContentPage, error)
	Delete(ctx context.Context, id string) error
}

// TokenReader reports whether a session exists. *auth.Manager satisfies it.
type TokenReader interface {
	AccessToken() string
}

// fetchState is the explicit request-state machine for the list fetch.
// It replaces the boolean in-flight/initialized flag pair: transitions
// are idle → inFlight → settled, and a re-entrant fetch while inFlight
// joins the in-flight call instead of issuing a duplicate.
type fetchState int

const (
	fetchIdle fetchState = iota
	fetchInFlight
	fetchSettled
)

// listKey is the singleflight key for list fetches.
const listKey = "list"

type pageEntry struct {
	page      models.ContentPage
	fetchedAt time.Time
}

// Options tune cache lifetimes and bounds.
type Options struct {
	// ListTTL is how long a fetched list is served without revalidation.
	ListTTL time.Duration
	// PageTTL is how long a fetched page is served from cache.
	PageTTL time.Duration
	// MaxPages bounds the page cache; the stalest entry is evicted.
	MaxPages int
}

// Store is the authoritative client-side content state.
// It is safe for concurrent use.
type Store struct {
	api    ContentAPI
	tokens TokenReader
	logger *slog.Logger

	listTTL  time.Duration
	pageTTL  time.Duration
	maxPages int

	group  singleflight.Group
	events *broker

	mu     sync.RWMutex
	state  fetchState
	items  []models.ContentItem
	listAt time.Time
	pages  map[string]pageEntry
	user   *models.User
}

// New creates a Store over the given API and token source.
func New(api ContentAPI, tokens TokenReader, logger *slog.Logger, opts Options) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ListTTL <= 0 {
		opts.ListTTL = time.Minute
	}
	if opts.PageTTL <= 0 {
		opts.PageTTL = 30 * time.Second
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 64
	}
	return &Store{
		api:      api,
		tokens:   tokens,
		logger:   logger,
		listTTL:  opts.ListTTL,
		pageTTL:  opts.PageTTL,
		maxPages: opts.MaxPages,
		events:   newBroker(0),
		pages:    make(map[string]pageEntry),
	}
}

// Close stops the event broker.
func (s *Store) Close() {
	s.events.close()
}

// Subscribe returns a channel of cache change events. The channel is
// closed on Unsubscribe or Close.
func (s *Store) Subscribe() chan Event {
	return s.events.subscribe()
}

// Unsubscribe releases a subscription.
func (s *Store) Unsubscribe(ch chan Event) {
	s.events.unsubscribe(ch)
}

// currentUser resolves the signed-in user, fetching it once and caching
// it. Without a stored token it fails immediately with apperr.ErrNoUser,
// before any network call.
func (s *Store) currentUser(ctx context.Context) (models.User, error) {
	s.mu.RLock()
	cached := s.user
	s.mu.RUnlock()
	if cached != nil {
		return *cached, nil
	}
	if s.tokens.AccessToken() == "" {
		return models.User{}, apperr.ErrNoUser
	}
	acct, err := s.api.Me(ctx)
	if err != nil {
		return models.User{}, err
	}
	user := acct.User()
	s.mu.Lock()
	s.user = &user
	s.mu.Unlock()
	return user, nil
}

// List returns the user's content, fetching from the backend when the
// cache is empty or stale. Concurrent callers collapse into one fetch.
func (s *Store) List(ctx context.Context) ([]models.ContentItem, error) {
	if s.tokens.AccessToken() == "" {
		return nil, apperr.ErrNoUser
	}

	s.mu.RLock()
	fresh := s.state == fetchSettled && time.Since(s.listAt) < s.listTTL
	items := snapshotItems(s.items)
	s.mu.RUnlock()
	if fresh {
		return items, nil
	}

	result, err, _ := s.group.Do(listKey, func() (any, error) {
		// Re-check under the flight: a caller that queued behind the
		// winning fetch sees its freshly settled result.
		s.mu.RLock()
		if s.state == fetchSettled && time.Since(s.listAt) < s.listTTL {
			cached := snapshotItems(s.items)
			s.mu.RUnlock()
			return cached, nil
		}
		s.mu.RUnlock()

		s.mu.Lock()
		s.state = fetchInFlight
		s.mu.Unlock()

		fetched, err := s.api.ListMine(ctx)
		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			s.logger.Warn("store: list fetch failed", slog.String("error", err.Error()))
			if s.listAt.IsZero() {
				s.state = fetchIdle
			} else {
				s.state = fetchSettled
			}
			return nil, err
		}
		s.items = fetched
		s.listAt = time.Now()
		s.state = fetchSettled
		s.events.publish(Event{Type: EventRefreshed})
		return snapshotItems(fetched), nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]models.ContentItem), nil
}

// Items returns the current cached list without fetching.
func (s *Store) Items() []models.ContentItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotItems(s.items)
}

// Invalidate marks the list stale so the next List refetches.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.listAt = time.Time{}
	if s.state == fetchSettled {
		s.state = fetchIdle
	}
	s.mu.Unlock()
}

// Add creates a content record. The list gains an optimistic placeholder
// under a temporary id immediately; on success the placeholder is
// replaced by the server record, on failure the list reverts to its
// pre-mutation snapshot.
func (s *Store) Add(ctx context.Context, in content.CreateInput) (*models.ContentItem, error) {
	owner, err := s.currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = models.StatusPlanned
	}
	tempID := "temp-" + uuid.NewString()
	placeholder := models.ContentItem{
		ID:          tempID,
		Name:        in.Title,
		Type:        in.Type,
		StartAt:     time.Now(),
		Column:      models.ColumnForStatus(status),
		Owner:       owner,
		Description: in.Summary,
		Tags:        in.Tags,
		URL:         in.URL,
		Priority:    in.Priority,
	}

	var created *models.ContentItem
	var page *models.ContentPage
	err = optimistic(&s.mu,
		func() []models.ContentItem { return snapshotItems(s.items) },
		func() { s.items = append(s.items, placeholder) },
		func() error {
			var attemptErr error
			created, page, attemptErr = s.api.Create(ctx, in)
			return attemptErr
		},
		func(snap []models.ContentItem) { s.items = snap },
	)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == tempID {
			s.items[i] = *created
			break
		}
	}
	if page != nil {
		s.cachePageLocked(*page)
	}
	s.mu.Unlock()
	s.events.publish(Event{Type: EventAdded, ID: created.ID})
	return created, nil
}

// ItemUpdate carries partial item fields. Nil means "leave alone".
// Column is translated to the underlying status field.
type ItemUpdate struct {
	Name        *string
	Column      *string
	Description *string
	Tags        *[]string
	URL         *string
	Priority    *models.ContentPriority
	Progress    *float64
}

func (u ItemUpdate) toPageUpdate() (content.PageUpdate, error) {
	out := content.PageUpdate{
		Title:    u.Name,
		Summary:  u.Description,
		Tags:     u.Tags,
		URL:      u.URL,
		Priority: u.Priority,
		Progress: u.Progress,
	}
	if u.Column != nil {
		status, ok := models.StatusForColumn(*u.Column)
		if !ok {
			return out, errors.New("store: unknown board column " + *u.Column)
		}
		out.Status = &status
	}
	return out, nil
}

func (u ItemUpdate) applyTo(item *models.ContentItem) {
	if u.Name != nil {
		item.Name = *u.Name
	}
	if u.Column != nil {
		item.Column = *u.Column
	}
	if u.Description != nil {
		item.Description = *u.Description
	}
	if u.Tags != nil {
		item.Tags = *u.Tags
	}
	if u.URL != nil {
		item.URL = *u.URL
	}
	if u.Priority != nil {
		item.Priority = *u.Priority
	}
	if u.Progress != nil {
		item.Progress = u.Progress
	}
}

// Update merges partial fields into the cached item immediately, then
// patches the backend. On success the cache takes the server-confirmed
// record; on failure it reverts.
func (s *Store) Update(ctx context.Context, id string, update ItemUpdate) (*models.ContentItem, error) {
	owner, err := s.currentUser(ctx)
	if err != nil {
		return nil, err
	}
	patch, err := update.toPageUpdate()
	if err != nil {
		return nil, err
	}

	var confirmed *models.ContentPage
	err = optimistic(&s.mu,
		func() []models.ContentItem { return snapshotItems(s.items) },
		func() {
			for i := range s.items {
				if s.items[i].ID == id {
					update.applyTo(&s.items[i])
					break
				}
			}
		},
		func() error {
			var attemptErr error
			confirmed, attemptErr = s.api.Update(ctx, id, patch)
			return attemptErr
		},
		func(snap []models.ContentItem) { s.items = snap },
	)
	if err != nil {
		return nil, err
	}

	item := models.ItemFromPage(*confirmed, owner)
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i] = item
			break
		}
	}
	s.cachePageLocked(*confirmed)
	s.mu.Unlock()
	s.events.publish(Event{Type: EventUpdated, ID: id})
	return &item, nil
}

// Remove deletes a content record, removing it from the cached list
// immediately and re-inserting it if the delete fails. A concurrent
// delete that already removed the record server-side counts as success.
func (s *Store) Remove(ctx context.Context, id string) error {
	if _, err := s.currentUser(ctx); err != nil {
		return err
	}

	err := optimistic(&s.mu,
		func() []models.ContentItem { return snapshotItems(s.items) },
		func() {
			s.items = slices.DeleteFunc(s.items, func(it models.ContentItem) bool {
				return it.ID == id
			})
			delete(s.pages, id)
		},
		func() error {
			err := s.api.Delete(ctx, id)
			if errors.Is(err, apperr.ErrNotFound) {
				return nil
			}
			return err
		},
		func(snap []models.ContentItem) { s.items = snap },
	)
	if err != nil {
		return err
	}
	s.events.publish(Event{Type: EventRemoved, ID: id})
	return nil
}

// Page returns the full document for one content id, from cache when
// fresh. A missing record yields (nil, nil).
func (s *Store) Page(ctx context.Context, id string) (*models.ContentPage, error) {
	if _, err := s.currentUser(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	entry, ok := s.pages[id]
	s.mu.RUnlock()
	if ok && time.Since(entry.fetchedAt) < s.pageTTL {
		page := entry.page
		return &page, nil
	}

	page, err := s.api.GetPage(ctx, id)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, nil
	}
	s.mu.Lock()
	s.cachePageLocked(*page)
	s.mu.Unlock()
	return page, nil
}

// UpdatePage patches the full document, applying the change to the cached
// page (and the list projection) optimistically.
func (s *Store) UpdatePage(ctx context.Context, id string, update content.PageUpdate) (*models.ContentPage, error) {
	owner, err := s.currentUser(ctx)
	if err != nil {
		return nil, err
	}

	type snap struct {
		items []models.ContentItem
		entry pageEntry
		had   bool
	}

	var confirmed *models.ContentPage
	err = optimistic(&s.mu,
		func() snap {
			entry, had := s.pages[id]
			return snap{items: snapshotItems(s.items), entry: entry, had: had}
		},
		func() {
			if entry, ok := s.pages[id]; ok {
				mergePage(&entry.page, update)
				s.pages[id] = entry
				item := models.ItemFromPage(entry.page, owner)
				for i := range s.items {
					if s.items[i].ID == id {
						s.items[i] = item
						break
					}
				}
			}
		},
		func() error {
			var attemptErr error
			confirmed, attemptErr = s.api.Update(ctx, id, update)
			return attemptErr
		},
		func(sn snap) {
			s.items = sn.items
			if sn.had {
				s.pages[id] = sn.entry
			} else {
				delete(s.pages, id)
			}
		},
	)
	if err != nil {
		return nil, err
	}

	item := models.ItemFromPage(*confirmed, owner)
	s.mu.Lock()
	s.cachePageLocked(*confirmed)
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i] = item
			break
		}
	}
	s.mu.Unlock()
	s.events.publish(Event{Type: EventUpdated, ID: id})
	return confirmed, nil
}

// cachePageLocked stores a page, evicting the stalest entry when the
// cache is full. Caller holds mu.
func (s *Store) cachePageLocked(page models.ContentPage) {
	if len(s.pages) >= s.maxPages {
		var oldestID string
		var oldestAt time.Time
		for id, entry := range s.pages {
			if oldestID == "" || entry.fetchedAt.Before(oldestAt) {
				oldestID = id
				oldestAt = entry.fetchedAt
			}
		}
		if oldestID != "" && oldestID != page.ID {
			delete(s.pages, oldestID)
		}
	}
	s.pages[page.ID] = pageEntry{page: page, fetchedAt: time.Now()}
}

func snapshotItems(items []models.ContentItem) []models.ContentItem {
	return slices.Clone(items)
}

// mergePage applies set fields of a PageUpdate onto a cached page for
// optimistic display.
func mergePage(p *models.ContentPage, u content.PageUpdate) {
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Type != nil {
		p.Type = *u.Type
	}
	if u.URL != nil {
		p.URL = *u.URL
	}
	if u.Summary != nil {
		p.Summary = *u.Summary
	}
	if u.Tags != nil {
		p.Tags = *u.Tags
	}
	if u.Status != nil {
		p.Status = models.NormalizeStatus(string(*u.Status))
	}
	if u.Priority != nil {
		p.Priority = *u.Priority
	}
	if u.Content != nil {
		p.Content = *u.Content
	}
	if u.KeyTakeaways != nil {
		p.KeyTakeaways = *u.KeyTakeaways
	}
	if u.Progress != nil {
		p.Progress = u.Progress
	}
	if u.Author != nil {
		p.Author = *u.Author
	}
	if u.Rating != nil {
		p.Rating = u.Rating
	}
	if u.IsPublic != nil {
		p.IsPublic = *u.IsPublic
	}
}
