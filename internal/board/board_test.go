package board

import (
	"errors"
	"strings"
	"testing"

	"github.com/mindmarks/mindmarks-go/internal/models"
)

func testItems() []models.ContentItem {
	return []models.ContentItem{
		{ID: "a", Name: "Book A", Column: models.ColumnPlanned},
		{ID: "b", Name: "Book B", Column: models.ColumnPlanned},
		{ID: "c", Name: "Article C", Column: models.ColumnInProgress},
		{ID: "d", Name: "Video D", Column: models.ColumnDone},
	}
}

func columnIDs(b *Board, column string) []string {
	var out []string
	for _, it := range b.Column(column) {
		out = append(out, it.ID)
	}
	return out
}

func TestActivate(t *testing.T) {
	b := New(nil, testItems())

	ann, err := b.Activate(Target{ItemID: "a"})
	if err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	if !strings.Contains(ann, `"Book A"`) || !strings.Contains(ann, "Planned") {
		t.Errorf("announcement = %q", ann)
	}
	if b.Dragging() != "a" {
		t.Errorf("dragging = %q, want a", b.Dragging())
	}
}

func TestActivate_NoDragTarget(t *testing.T) {
	b := New(nil, testItems())

	// A delete button inside the card activates with NoDrag set.
	if _, err := b.Activate(Target{ItemID: "a", NoDrag: true}); !errors.Is(err, ErrNotDraggable) {
		t.Fatalf("err = %v, want ErrNotDraggable", err)
	}
	if b.Dragging() != "" {
		t.Error("no drag should have started")
	}
}

func TestActivate_UnknownItem(t *testing.T) {
	b := New(nil, testItems())
	if _, err := b.Activate(Target{ItemID: "ghost"}); err == nil {
		t.Fatal("unknown item should fail")
	}
}

func TestDragOver_ReassignsColumnLive(t *testing.T) {
	b := New(nil, testItems())
	if _, err := b.Activate(Target{ItemID: "a"}); err != nil {
		t.Fatal(err)
	}

	ann, err := b.DragOver("c")
	if err != nil {
		t.Fatalf("drag over failed: %v", err)
	}
	if !strings.Contains(ann, "In Progress") {
		t.Errorf("announcement = %q", ann)
	}

	// The visual column updates before the drop commits.
	got := columnIDs(b, models.ColumnInProgress)
	want := map[string]bool{"a": true, "c": true}
	if len(got) != 2 || !want[got[0]] || !want[got[1]] {
		t.Errorf("in-progress column = %v, want a and c", got)
	}
}

func TestDragOver_WithoutActiveDrag(t *testing.T) {
	b := New(nil, testItems())
	if _, err := b.DragOver("c"); !errors.Is(err, ErrNoDrag) {
		t.Fatalf("err = %v, want ErrNoDrag", err)
	}
}

func TestDrop_AcrossColumns(t *testing.T) {
	b := New(nil, testItems())
	if _, err := b.Activate(Target{ItemID: "a"}); err != nil {
		t.Fatal(err)
	}
	if _, err := b.DragOver("c"); err != nil {
		t.Fatal(err)
	}

	move, ann, err := b.Drop("c")
	if err != nil {
		t.Fatalf("drop failed: %v", err)
	}
	if move == nil {
		t.Fatal("expected a committed move")
	}
	if move.ID != "a" || move.Column != models.ColumnInProgress || !move.ColumnChanged {
		t.Errorf("move = %+v", move)
	}
	if !strings.Contains(ann, "position") {
		t.Errorf("announcement = %q", ann)
	}
	if b.Dragging() != "" {
		t.Error("drag should be over after drop")
	}
}

func TestDrop_IntoEmptyColumn(t *testing.T) {
	items := []models.ContentItem{
		{ID: "a", Name: "Book A", Column: models.ColumnPlanned},
	}
	b := New(nil, items)
	if _, err := b.Activate(Target{ItemID: "a"}); err != nil {
		t.Fatal(err)
	}

	// Hovering the column itself, not a card.
	move, ann, err := b.Drop(models.ColumnDone)
	if err != nil {
		t.Fatalf("drop failed: %v", err)
	}
	if move == nil || move.Column != models.ColumnDone || !move.ColumnChanged {
		t.Errorf("move = %+v", move)
	}
	if !strings.Contains(ann, "position 1 of 1") {
		t.Errorf("announcement = %q", ann)
	}
}

func TestDrop_OnSelfInSameColumnIsNoOp(t *testing.T) {
	b := New(nil, testItems())
	if _, err := b.Activate(Target{ItemID: "a"}); err != nil {
		t.Fatal(err)
	}

	move, ann, err := b.Drop("a")
	if err != nil {
		t.Fatalf("drop failed: %v", err)
	}
	if move != nil {
		t.Errorf("move = %+v, want nil for a self-drop", move)
	}
	if !strings.Contains(ann, "dropped back") {
		t.Errorf("announcement = %q", ann)
	}
}

func TestDrop_ReorderWithinColumn(t *testing.T) {
	b := New(nil, testItems())
	if _, err := b.Activate(Target{ItemID: "a"}); err != nil {
		t.Fatal(err)
	}

	move, _, err := b.Drop("b")
	if err != nil {
		t.Fatalf("drop failed: %v", err)
	}
	if move == nil {
		t.Fatal("expected a committed move")
	}
	if move.ColumnChanged {
		t.Error("reorder within a column must not report a column change")
	}
	if got := columnIDs(b, models.ColumnPlanned); got[0] != "b" || got[1] != "a" {
		t.Errorf("planned column order = %v, want [b a]", got)
	}
}

func TestCancel_RestoresSnapshot(t *testing.T) {
	b := New(nil, testItems())
	before := b.Items()

	if _, err := b.Activate(Target{ItemID: "a"}); err != nil {
		t.Fatal(err)
	}
	if _, err := b.DragOver("c"); err != nil {
		t.Fatal(err)
	}

	ann, err := b.Cancel()
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if !strings.Contains(ann, "cancelled") {
		t.Errorf("announcement = %q", ann)
	}

	after := b.Items()
	if len(after) != len(before) {
		t.Fatalf("items = %d, want %d", len(after), len(before))
	}
	for i := range before {
		if after[i].ID != before[i].ID || after[i].Column != before[i].Column {
			t.Errorf("item %d = %+v, want %+v", i, after[i], before[i])
		}
	}
	if b.Dragging() != "" {
		t.Error("drag should be over after cancel")
	}
}

func TestCancel_WithoutActiveDrag(t *testing.T) {
	b := New(nil, testItems())
	if _, err := b.Cancel(); !errors.Is(err, ErrNoDrag) {
		t.Fatalf("err = %v, want ErrNoDrag", err)
	}
}
