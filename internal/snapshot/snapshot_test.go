package snapshot

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mindmarks/mindmarks-go/internal/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "snapshot.db"))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestItems_RoundTripKeepsOrder(t *testing.T) {
	db := openTestDB(t)

	in := []models.ContentItem{
		{ID: "c", Name: "Third", Column: models.ColumnDone},
		{ID: "a", Name: "First", Column: models.ColumnPlanned, Tags: []string{"go"}},
		{ID: "b", Name: "Second", Column: models.ColumnInProgress},
	}
	if err := db.PutItems(in); err != nil {
		t.Fatalf("put items failed: %v", err)
	}

	out, syncedAt, err := db.Items()
	if err != nil {
		t.Fatalf("items failed: %v", err)
	}
	if syncedAt.IsZero() {
		t.Error("synced time should be recorded")
	}
	if len(out) != 3 {
		t.Fatalf("items = %d, want 3", len(out))
	}
	for i := range in {
		if out[i].ID != in[i].ID {
			t.Errorf("position %d = %q, want %q (board order must survive)", i, out[i].ID, in[i].ID)
		}
	}
	if out[1].Tags[0] != "go" {
		t.Error("item fields should round-trip")
	}
}

func TestPutItems_ReplacesPreviousList(t *testing.T) {
	db := openTestDB(t)

	if err := db.PutItems([]models.ContentItem{{ID: "old", Name: "Old"}}); err != nil {
		t.Fatal(err)
	}
	if err := db.PutItems([]models.ContentItem{{ID: "new", Name: "New"}}); err != nil {
		t.Fatal(err)
	}

	out, _, err := db.Items()
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].ID != "new" {
		t.Errorf("items = %+v, want only the new list", out)
	}
}

func TestItems_EmptyDatabase(t *testing.T) {
	db := openTestDB(t)
	out, syncedAt, err := db.Items()
	if err != nil {
		t.Fatal(err)
	}
	if out != nil || !syncedAt.IsZero() {
		t.Errorf("items = %v, syncedAt = %v; want nil and zero", out, syncedAt)
	}
}

func TestPage_RoundTripAndUpsert(t *testing.T) {
	db := openTestDB(t)

	page := models.ContentPage{
		ID:     "p1",
		Title:  "Original",
		Type:   models.TypeBook,
		Status: models.StatusPlanned,
		Content: []models.Block{
			{Type: "paragraph", Content: "hello"},
		},
	}
	if err := db.PutPage(page); err != nil {
		t.Fatalf("put page failed: %v", err)
	}

	got, err := db.Page("p1")
	if err != nil {
		t.Fatalf("page failed: %v", err)
	}
	if got == nil || got.Title != "Original" || len(got.Content) != 1 {
		t.Errorf("unexpected page: %+v", got)
	}

	page.Title = "Updated"
	if err := db.PutPage(page); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	got, err = db.Page("p1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Updated" {
		t.Errorf("title = %q, want Updated", got.Title)
	}
}

func TestPage_MissingIsNil(t *testing.T) {
	db := openTestDB(t)
	got, err := db.Page("ghost")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("page = %+v, want nil", got)
	}
}

func TestPrune_DropsOrphanedPages(t *testing.T) {
	db := openTestDB(t)

	if err := db.PutItems([]models.ContentItem{{ID: "kept", Name: "Kept"}}); err != nil {
		t.Fatal(err)
	}
	if err := db.PutPage(models.ContentPage{ID: "kept", Title: "Kept"}); err != nil {
		t.Fatal(err)
	}
	if err := db.PutPage(models.ContentPage{ID: "orphan", Title: "Orphan"}); err != nil {
		t.Fatal(err)
	}

	if err := db.Prune(24 * time.Hour); err != nil {
		t.Fatalf("prune failed: %v", err)
	}

	if got, _ := db.Page("kept"); got == nil {
		t.Error("page with a live item should survive prune")
	}
	if got, _ := db.Page("orphan"); got != nil {
		t.Error("orphaned page should be pruned")
	}
}
