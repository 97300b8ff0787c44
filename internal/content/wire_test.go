package content

import (
	"encoding/json"
	"testing"

	"github.com/mindmarks/mindmarks-go/internal/models"
)

func TestToItem_MapsStatusValueToColumn(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"planned", models.ColumnPlanned},
		{"in_progress", models.ColumnInProgress},
		{"in-progress", models.ColumnInProgress},
		{"completed", models.ColumnDone},
		{"done", models.ColumnDone},
		{"archived", models.ColumnDone},
		{"", models.ColumnPlanned},
		{"nonsense", models.ColumnPlanned},
	}
	for _, tt := range tests {
		item := toItem(wireItem{ID: "1", Column: tt.raw})
		if item.Column != tt.want {
			t.Errorf("toItem column %q = %q, want %q", tt.raw, item.Column, tt.want)
		}
	}
}

func TestToUser_DefaultAvatar(t *testing.T) {
	u := toUser(&wireUser{ID: "u1", Name: "Reader"})
	if u.Image != DefaultAvatar {
		t.Errorf("image = %q, want default avatar", u.Image)
	}
	u = toUser(&wireUser{ID: "u1", Name: "Reader", Image: "/custom.png"})
	if u.Image != "/custom.png" {
		t.Errorf("image = %q, custom avatar should survive", u.Image)
	}
}

func TestToPage_NilContentBecomesEmptySlice(t *testing.T) {
	page := toPage(wirePage{ID: "1", Title: "T"})
	if page.Content == nil {
		t.Fatal("content should be an empty slice, not nil")
	}
}

func TestToUpdateWire_OnlySetFieldsEncoded(t *testing.T) {
	title := "New title"
	status := models.ContentStatus("in_progress")
	data, err := json.Marshal(toUpdateWire(PageUpdate{
		Title:  &title,
		Status: &status,
	}))
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("patch keys = %v, want exactly title and status", got)
	}
	if got["title"] != "New title" {
		t.Errorf("title = %v", got["title"])
	}
	// Status values are folded into their canonical spelling on the way out.
	if got["status"] != "in-progress" {
		t.Errorf("status = %v, want in-progress", got["status"])
	}
}

func TestToPage_FlattensCollaborators(t *testing.T) {
	page := toPage(wirePage{
		ID: "1",
		Collaborators: []wireCollaborator{
			{User: wireUser{ID: "u2", Name: "Friend"}, CanEdit: true},
		},
	})
	if len(page.Collaborators) != 1 {
		t.Fatalf("collaborators = %d, want 1", len(page.Collaborators))
	}
	c := page.Collaborators[0]
	if c.User.Name != "Friend" || !c.CanEdit || c.CanComment {
		t.Errorf("unexpected collaborator: %+v", c)
	}
	if c.User.Image != DefaultAvatar {
		t.Errorf("collaborator image = %q, want default avatar", c.User.Image)
	}
}
