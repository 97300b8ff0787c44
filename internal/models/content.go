// Package models defines the domain types for Mindmarks content tracking.
package models

import "time"

// ContentType classifies a tracked piece of content.
type ContentType string

// Content types recognised by the backend.
const (
	TypeBook    ContentType = "book"
	TypeArticle ContentType = "article"
	TypeVideo   ContentType = "video"
	TypePodcast ContentType = "podcast"
	TypeCourse  ContentType = "course"
	TypeOther   ContentType = "other"
)

// ContentStatus tracks reading progress. The backend stores the hyphenated
// spelling of in-progress; earlier API versions used in_progress and are
// normalised on decode.
type ContentStatus string

const (
	StatusPlanned    ContentStatus = "planned"
	StatusInProgress ContentStatus = "in-progress"
	StatusCompleted  ContentStatus = "completed"
	StatusArchived   ContentStatus = "archived"
)

// ContentPriority ranks how urgently an item should be picked up.
type ContentPriority string

const (
	PriorityLow    ContentPriority = "low"
	PriorityMedium ContentPriority = "medium"
	PriorityHigh   ContentPriority = "high"
)

// User identifies content ownership and authorship.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// Block is one node of a rich-text document. The block editor owns the
// structure; this layer treats Props and Content as opaque JSON.
type Block struct {
	Type    string         `json:"type"`
	Props   map[string]any `json:"props,omitempty"`
	Content any            `json:"content,omitempty"`
}

// ContentItem is the lightweight board-view projection of one piece of
// content. Column is a KanbanColumn id, derived from the status field.
type ContentItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Type        ContentType     `json:"type"`
	StartAt     time.Time       `json:"startAt"`
	EndAt       *time.Time      `json:"endAt,omitempty"`
	Column      string          `json:"column"`
	Owner       User            `json:"owner"`
	Description string          `json:"description,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	URL         string          `json:"url,omitempty"`
	Progress    *float64        `json:"progress,omitempty"`
	Priority    ContentPriority `json:"priority,omitempty"`
}

// Collaborator is a user with edit/comment rights on a content page.
type Collaborator struct {
	User       User `json:"user"`
	CanEdit    bool `json:"canEdit"`
	CanComment bool `json:"canComment"`
}

// ContentPage is the full document record for one content item. It shares
// its id with the corresponding ContentItem; the item is the list
// projection, the page is fetched lazily per id.
type ContentPage struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	Type              ContentType     `json:"type"`
	URL               string          `json:"url,omitempty"`
	Summary           string          `json:"summary,omitempty"`
	Tags              []string        `json:"tags,omitempty"`
	Status            ContentStatus   `json:"status"`
	Priority          ContentPriority `json:"priority,omitempty"`
	Content           []Block         `json:"content"`
	KeyTakeaways      []string        `json:"keyTakeaways,omitempty"`
	Progress          *float64        `json:"progress,omitempty"`
	Author            string          `json:"author,omitempty"`
	PublishedDate     *time.Time      `json:"publishedDate,omitempty"`
	EstimatedReadTime string          `json:"estimatedReadTime,omitempty"`
	Rating            *float64        `json:"rating,omitempty"`
	IsPublic          bool            `json:"isPublic"`
	Collaborators     []Collaborator  `json:"collaborators,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
	CreatedBy         *User           `json:"createdBy,omitempty"`
	LastEditedBy      *User           `json:"lastEditedBy,omitempty"`
}

// KanbanColumn defines one board column. Columns are fixed board layout,
// not persisted, and independent of the status enum.
type KanbanColumn struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Board column ids.
const (
	ColumnPlanned    = "planned"
	ColumnInProgress = "in-progress"
	ColumnDone       = "done"
)

// DefaultColumns is the standard Mindmarks board layout.
func DefaultColumns() []KanbanColumn {
	return []KanbanColumn{
		{ID: ColumnPlanned, Name: "Planned", Color: "#6B7280"},
		{ID: ColumnInProgress, Name: "In Progress", Color: "#F59E0B"},
		{ID: ColumnDone, Name: "Done", Color: "#10B981"},
	}
}

// statusToColumn is the single mapping table between content status and
// board column id. Both completed and archived land in the done column.
var statusToColumn = map[ContentStatus]string{
	StatusPlanned:    ColumnPlanned,
	StatusInProgress: ColumnInProgress,
	StatusCompleted:  ColumnDone,
	StatusArchived:   ColumnDone,
}

var columnToStatus = map[string]ContentStatus{
	ColumnPlanned:    StatusPlanned,
	ColumnInProgress: StatusInProgress,
	ColumnDone:       StatusCompleted,
}

// ColumnForStatus maps a content status to its board column id.
// Unknown statuses fall back to the planned column.
func ColumnForStatus(s ContentStatus) string {
	if col, ok := statusToColumn[NormalizeStatus(string(s))]; ok {
		return col
	}
	return ColumnPlanned
}

// StatusForColumn maps a board column id to the status persisted when an
// item is dropped there.
func StatusForColumn(column string) (ContentStatus, bool) {
	s, ok := columnToStatus[column]
	return s, ok
}

// NormalizeStatus folds legacy spellings (in_progress, done) into the
// canonical enum.
func NormalizeStatus(raw string) ContentStatus {
	switch raw {
	case "in_progress":
		return StatusInProgress
	case "done":
		return StatusCompleted
	}
	return ContentStatus(raw)
}

// ItemFromPage derives the board-view projection of a page. The page has
// no owner field of its own; the caller supplies the owning user.
func ItemFromPage(p ContentPage, owner User) ContentItem {
	if p.CreatedBy != nil {
		owner = *p.CreatedBy
	}
	return ContentItem{
		ID:          p.ID,
		Name:        p.Title,
		Type:        p.Type,
		StartAt:     p.CreatedAt,
		Column:      ColumnForStatus(p.Status),
		Owner:       owner,
		Description: p.Summary,
		Tags:        p.Tags,
		URL:         p.URL,
		Progress:    p.Progress,
		Priority:    p.Priority,
	}
}

// ValidType reports whether t is a known content type.
func ValidType(t ContentType) bool {
	switch t {
	case TypeBook, TypeArticle, TypeVideo, TypePodcast, TypeCourse, TypeOther:
		return true
	}
	return false
}
