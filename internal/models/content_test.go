package models

import (
	"testing"
	"time"
)

func TestColumnForStatus(t *testing.T) {
	tests := []struct {
		status ContentStatus
		want   string
	}{
		{StatusPlanned, ColumnPlanned},
		{StatusInProgress, ColumnInProgress},
		{StatusCompleted, ColumnDone},
		{StatusArchived, ColumnDone},
		{"in_progress", ColumnInProgress},
		{"done", ColumnDone},
		{"", ColumnPlanned},
		{"mystery", ColumnPlanned},
	}
	for _, tt := range tests {
		if got := ColumnForStatus(tt.status); got != tt.want {
			t.Errorf("ColumnForStatus(%q) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestStatusForColumn(t *testing.T) {
	tests := []struct {
		column string
		want   ContentStatus
		ok     bool
	}{
		{ColumnPlanned, StatusPlanned, true},
		{ColumnInProgress, StatusInProgress, true},
		{ColumnDone, StatusCompleted, true},
		{"parked", "", false},
	}
	for _, tt := range tests {
		got, ok := StatusForColumn(tt.column)
		if got != tt.want || ok != tt.ok {
			t.Errorf("StatusForColumn(%q) = %q, %v; want %q, %v", tt.column, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNormalizeStatus(t *testing.T) {
	if got := NormalizeStatus("in_progress"); got != StatusInProgress {
		t.Errorf("in_progress = %q", got)
	}
	if got := NormalizeStatus("done"); got != StatusCompleted {
		t.Errorf("done = %q", got)
	}
	if got := NormalizeStatus("archived"); got != StatusArchived {
		t.Errorf("archived = %q", got)
	}
}

func TestItemFromPage(t *testing.T) {
	created := time.Now()
	page := ContentPage{
		ID:        "p1",
		Title:     "The Pragmatic Programmer",
		Type:      TypeBook,
		Status:    StatusInProgress,
		Summary:   "Read before bed",
		Tags:      []string{"craft"},
		CreatedAt: created,
	}
	fallback := User{ID: "u1", Name: "Avid Reader"}

	item := ItemFromPage(page, fallback)
	if item.ID != "p1" || item.Name != "The Pragmatic Programmer" {
		t.Errorf("unexpected item: %+v", item)
	}
	if item.Column != ColumnInProgress {
		t.Errorf("column = %q, want in-progress", item.Column)
	}
	if item.Description != "Read before bed" {
		t.Errorf("description = %q", item.Description)
	}
	if !item.StartAt.Equal(created) {
		t.Error("start at should mirror creation time")
	}
	if item.Owner.ID != "u1" {
		t.Errorf("owner = %+v, want the fallback user", item.Owner)
	}

	// A page that knows its creator overrides the fallback owner.
	page.CreatedBy = &User{ID: "u2", Name: "Someone Else"}
	item = ItemFromPage(page, fallback)
	if item.Owner.ID != "u2" {
		t.Errorf("owner = %+v, want the page creator", item.Owner)
	}
}

func TestValidType(t *testing.T) {
	for _, typ := range []ContentType{TypeBook, TypeArticle, TypeVideo, TypePodcast, TypeCourse, TypeOther} {
		if !ValidType(typ) {
			t.Errorf("%q should be valid", typ)
		}
	}
	if ValidType("scroll") {
		t.Error("unknown type should be invalid")
	}
}

func TestDefaultColumns(t *testing.T) {
	cols := DefaultColumns()
	if len(cols) != 3 {
		t.Fatalf("columns = %d, want 3", len(cols))
	}
	want := []string{ColumnPlanned, ColumnInProgress, ColumnDone}
	for i, col := range cols {
		if col.ID != want[i] {
			t.Errorf("column %d = %q, want %q", i, col.ID, want[i])
		}
		if col.Name == "" || col.Color == "" {
			t.Errorf("column %q missing name or color", col.ID)
		}
	}
}
