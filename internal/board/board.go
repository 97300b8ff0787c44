// Package board implements the kanban drag-and-drop reorder logic: a
// small state machine that translates a drag gesture into a column
// reassignment plus a list-position move, with human-readable
// announcements for assistive technology.
package board

import (
	"errors"
	"fmt"
	"slices"

	"github.com/mindmarks/mindmarks-go/internal/models"
)

var (
	// ErrNoDrag is returned for state transitions outside an active drag.
	ErrNoDrag = errors.New("board: no drag in progress")
	// ErrNotDraggable is returned when the activation target opted out of
	// dragging, such as a delete button nested inside a card.
	ErrNotDraggable = errors.New("board: target is not draggable")
)

// Target describes the element under the pointer when a drag activates.
// NoDrag marks interactive controls inside a card that must not start a
// drag.
type Target struct {
	ItemID string
	NoDrag bool
}

// Move is the committed result of a drop, reported back to the caller so
// it can persist the column change.
type Move struct {
	ID            string
	Column        string
	Index         int
	ColumnChanged bool
}

type dragState struct {
	activeID     string
	sourceColumn string
	snapshot     []models.ContentItem
}

// Board holds the working list of items in board order plus the current
// drag state. It is not safe for concurrent use; UI event handling is
// single-threaded.
type Board struct {
	columns []models.KanbanColumn
	items   []models.ContentItem
	drag    *dragState
}

// New creates a board over the given columns and items. Items keep the
// order they are given in; that order is the manual board order.
func New(columns []models.KanbanColumn, items []models.ContentItem) *Board {
	if columns == nil {
		columns = models.DefaultColumns()
	}
	return &Board{columns: columns, items: slices.Clone(items)}
}

// Items returns the working list in board order.
func (b *Board) Items() []models.ContentItem {
	return slices.Clone(b.items)
}

// Column returns the items of one column, in board order.
func (b *Board) Column(id string) []models.ContentItem {
	var out []models.ContentItem
	for _, it := range b.items {
		if it.Column == id {
			out = append(out, it)
		}
	}
	return out
}

// Dragging reports the active item id, or "" when idle.
func (b *Board) Dragging() string {
	if b.drag == nil {
		return ""
	}
	return b.drag.activeID
}

// Activate begins a drag from the given target. Targets marked NoDrag
// never start a drag. Returns the pickup announcement.
func (b *Board) Activate(t Target) (string, error) {
	if t.NoDrag {
		return "", ErrNotDraggable
	}
	idx := b.index(t.ItemID)
	if idx < 0 {
		return "", fmt.Errorf("board: unknown item %q", t.ItemID)
	}
	item := b.items[idx]
	b.drag = &dragState{
		activeID:     item.ID,
		sourceColumn: item.Column,
		snapshot:     slices.Clone(b.items),
	}
	return fmt.Sprintf("Picked up %q from %s.", item.Name, b.columnName(item.Column)), nil
}

// DragOver is called as the pointer moves over another card or an empty
// column. When the hovered position is in a different column, the active
// item's column is reassigned immediately so the visual column updates
// live, and the item moves adjacent to the hovered card.
//
// overID is either another item's id or a column id (hovering an empty
// column).
func (b *Board) DragOver(overID string) (string, error) {
	if b.drag == nil {
		return "", ErrNoDrag
	}
	activeIdx := b.index(b.drag.activeID)
	if activeIdx < 0 {
		return "", fmt.Errorf("board: active item %q vanished", b.drag.activeID)
	}
	active := b.items[activeIdx]

	targetColumn, overIdx := b.resolveOver(overID)
	if targetColumn == "" || overID == active.ID {
		return "", nil
	}

	if targetColumn != active.Column {
		b.items[activeIdx].Column = targetColumn
		if overIdx >= 0 {
			b.items = arrayMove(b.items, activeIdx, overIdx)
		}
	}
	return fmt.Sprintf("%q is over %s.", active.Name, b.columnName(targetColumn)), nil
}

// Drop commits the drag. The final position is always applied with a
// list move, even within the same column, so manual ordering sticks.
// Dropping an item on itself is a no-op. Returns the resulting Move (nil
// for a no-op) and the drop announcement.
func (b *Board) Drop(overID string) (*Move, string, error) {
	if b.drag == nil {
		return nil, "", ErrNoDrag
	}
	drag := b.drag
	b.drag = nil

	activeIdx := b.index(drag.activeID)
	if activeIdx < 0 {
		return nil, "", fmt.Errorf("board: active item %q vanished", drag.activeID)
	}
	active := b.items[activeIdx]

	if overID == active.ID && active.Column == drag.sourceColumn {
		return nil, fmt.Sprintf("%q was dropped back where it started.", active.Name), nil
	}

	targetColumn, overIdx := b.resolveOver(overID)
	if targetColumn == "" {
		targetColumn = active.Column
	}
	if targetColumn != active.Column {
		b.items[activeIdx].Column = targetColumn
	}
	if overIdx >= 0 && overIdx != activeIdx {
		b.items = arrayMove(b.items, activeIdx, overIdx)
	}

	finalIdx := b.index(active.ID)
	col := b.Column(targetColumn)
	pos := 1
	for i, it := range col {
		if it.ID == active.ID {
			pos = i + 1
			break
		}
	}

	move := &Move{
		ID:            active.ID,
		Column:        targetColumn,
		Index:         finalIdx,
		ColumnChanged: targetColumn != drag.sourceColumn,
	}
	ann := fmt.Sprintf("Dropped %q into %s, position %d of %d.",
		active.Name, b.columnName(targetColumn), pos, len(col))
	return move, ann, nil
}

// Cancel aborts the drag and restores the order and column assignments
// captured at activation.
func (b *Board) Cancel() (string, error) {
	if b.drag == nil {
		return "", ErrNoDrag
	}
	drag := b.drag
	b.drag = nil
	b.items = drag.snapshot

	name := drag.activeID
	if idx := b.index(drag.activeID); idx >= 0 {
		name = b.items[idx].Name
	}
	return fmt.Sprintf("Dragging %q was cancelled.", name), nil
}

// resolveOver maps an over id to a target column and the index of the
// hovered item (-1 when hovering an empty column).
func (b *Board) resolveOver(overID string) (string, int) {
	if idx := b.index(overID); idx >= 0 {
		return b.items[idx].Column, idx
	}
	for _, col := range b.columns {
		if col.ID == overID {
			return col.ID, -1
		}
	}
	return "", -1
}

func (b *Board) index(id string) int {
	return slices.IndexFunc(b.items, func(it models.ContentItem) bool {
		return it.ID == id
	})
}

func (b *Board) columnName(id string) string {
	for _, col := range b.columns {
		if col.ID == id {
			return col.Name
		}
	}
	return id
}

// arrayMove moves the element at from to position to, shifting the
// elements in between.
func arrayMove(items []models.ContentItem, from, to int) []models.ContentItem {
	if from == to || from < 0 || to < 0 || from >= len(items) || to >= len(items) {
		return items
	}
	item := items[from]
	items = slices.Delete(items, from, from+1)
	return slices.Insert(items, to, item)
}
