// Package content translates between the backend wire schema and the
// domain model, and exposes typed methods for every content and auth
// endpoint.
package content

import (
	"time"

	"github.com/mindmarks/mindmarks-go/internal/models"
)

// DefaultAvatar is substituted when the backend omits a user image.
const DefaultAvatar = "/avatars/default.png"

// wireUser is the nested user object the backend embeds in content
// payloads.
type wireUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// wireItem is the backend's list projection of one content record.
type wireItem struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Type        string     `json:"type"`
	StartAt     time.Time  `json:"start_at"`
	EndAt       *time.Time `json:"end_at,omitempty"`
	Column      string     `json:"column"`
	Owner       *wireUser  `json:"owner,omitempty"`
	Description string     `json:"description,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	URL         string     `json:"url,omitempty"`
	Progress    *float64   `json:"progress,omitempty"`
	Priority    string     `json:"priority,omitempty"`
}

// wireCollaborator wraps a user with page-level rights.
type wireCollaborator struct {
	User       wireUser `json:"user"`
	CanEdit    bool     `json:"can_edit"`
	CanComment bool     `json:"can_comment"`
}

// wirePage is the backend's full content document.
type wirePage struct {
	ID                string             `json:"id"`
	Title             string             `json:"title"`
	Type              string             `json:"type"`
	URL               string             `json:"url,omitempty"`
	Summary           string             `json:"summary,omitempty"`
	Tags              []string           `json:"tags,omitempty"`
	Status            string             `json:"status"`
	Priority          string             `json:"priority,omitempty"`
	Content           []models.Block     `json:"content"`
	KeyTakeaways      []string           `json:"key_takeaways,omitempty"`
	Progress          *float64           `json:"progress,omitempty"`
	Author            string             `json:"author,omitempty"`
	PublishedDate     *time.Time         `json:"published_date,omitempty"`
	EstimatedReadTime string             `json:"estimated_read_time,omitempty"`
	Rating            *float64           `json:"rating,omitempty"`
	IsPublic          bool               `json:"is_public"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
	CreatedBy         *wireUser          `json:"created_by,omitempty"`
	LastEditedBy      *wireUser          `json:"last_edited_by,omitempty"`
	Collaborators     []wireCollaborator `json:"collaborators,omitempty"`
}

// createWire is the POST /api/v1/content request body.
type createWire struct {
	Title    string         `json:"title"`
	Type     string         `json:"type"`
	URL      string         `json:"url,omitempty"`
	Summary  string         `json:"summary,omitempty"`
	Tags     []string       `json:"tags,omitempty"`
	Status   string         `json:"status"`
	Priority string         `json:"priority,omitempty"`
	Content  []models.Block `json:"content"`
}

// createResponse pairs the list projection and full page the backend
// returns from a create.
type createResponse struct {
	ID          string   `json:"id"`
	Content     wireItem `json:"content"`
	ContentPage wirePage `json:"content_page"`
}

// updateWire is the PATCH request body. Partial update semantics: only
// non-nil fields are encoded, absent keys are left untouched server-side.
type updateWire struct {
	Title        *string          `json:"title,omitempty"`
	Type         *string          `json:"type,omitempty"`
	URL          *string          `json:"url,omitempty"`
	Summary      *string          `json:"summary,omitempty"`
	Tags         *[]string        `json:"tags,omitempty"`
	Status       *string          `json:"status,omitempty"`
	Priority     *string          `json:"priority,omitempty"`
	Content      *[]models.Block  `json:"content,omitempty"`
	KeyTakeaways *[]string        `json:"key_takeaways,omitempty"`
	Progress     *float64         `json:"progress,omitempty"`
	Author       *string          `json:"author,omitempty"`
	Rating       *float64         `json:"rating,omitempty"`
	IsPublic     *bool            `json:"is_public,omitempty"`
}

// wireToken is the auth token response.
type wireToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// wireAccount is the backend's user record from /users/me and register.
type wireAccount struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
	IsActive bool   `json:"is_active"`
}

func toUser(w *wireUser) models.User {
	if w == nil {
		return models.User{}
	}
	u := models.User{ID: w.ID, Name: w.Name, Image: w.Image}
	if u.Image == "" {
		u.Image = DefaultAvatar
	}
	return u
}

func toUserPtr(w *wireUser) *models.User {
	if w == nil {
		return nil
	}
	u := toUser(w)
	return &u
}

// toItem maps a wire list record into the domain item. The backend's
// column field carries the raw status value; it is normalised and mapped
// to the board column id here.
func toItem(w wireItem) models.ContentItem {
	return models.ContentItem{
		ID:          w.ID,
		Name:        w.Name,
		Type:        models.ContentType(w.Type),
		StartAt:     w.StartAt,
		EndAt:       w.EndAt,
		Column:      models.ColumnForStatus(models.NormalizeStatus(w.Column)),
		Owner:       toUser(w.Owner),
		Description: w.Description,
		Tags:        w.Tags,
		URL:         w.URL,
		Progress:    w.Progress,
		Priority:    models.ContentPriority(w.Priority),
	}
}

func toPage(w wirePage) models.ContentPage {
	page := models.ContentPage{
		ID:                w.ID,
		Title:             w.Title,
		Type:              models.ContentType(w.Type),
		URL:               w.URL,
		Summary:           w.Summary,
		Tags:              w.Tags,
		Status:            models.NormalizeStatus(w.Status),
		Priority:          models.ContentPriority(w.Priority),
		Content:           w.Content,
		KeyTakeaways:      w.KeyTakeaways,
		Progress:          w.Progress,
		Author:            w.Author,
		PublishedDate:     w.PublishedDate,
		EstimatedReadTime: w.EstimatedReadTime,
		Rating:            w.Rating,
		IsPublic:          w.IsPublic,
		CreatedAt:         w.CreatedAt,
		UpdatedAt:         w.UpdatedAt,
		CreatedBy:         toUserPtr(w.CreatedBy),
		LastEditedBy:      toUserPtr(w.LastEditedBy),
	}
	if page.Content == nil {
		page.Content = []models.Block{}
	}
	for _, c := range w.Collaborators {
		u := c.User
		page.Collaborators = append(page.Collaborators, models.Collaborator{
			User:       toUser(&u),
			CanEdit:    c.CanEdit,
			CanComment: c.CanComment,
		})
	}
	return page
}

// PageUpdate carries the patchable page fields. Nil means "leave alone".
type PageUpdate struct {
	Title        *string
	Type         *models.ContentType
	URL          *string
	Summary      *string
	Tags         *[]string
	Status       *models.ContentStatus
	Priority     *models.ContentPriority
	Content      *[]models.Block
	KeyTakeaways *[]string
	Progress     *float64
	Author       *string
	Rating       *float64
	IsPublic     *bool
}

// toUpdateWire renames domain fields back to snake_case and drops unset
// fields, preserving partial-update semantics.
func toUpdateWire(u PageUpdate) updateWire {
	w := updateWire{
		Title:        u.Title,
		URL:          u.URL,
		Summary:      u.Summary,
		Tags:         u.Tags,
		Content:      u.Content,
		KeyTakeaways: u.KeyTakeaways,
		Progress:     u.Progress,
		Author:       u.Author,
		Rating:       u.Rating,
		IsPublic:     u.IsPublic,
	}
	if u.Type != nil {
		s := string(*u.Type)
		w.Type = &s
	}
	if u.Status != nil {
		s := string(models.NormalizeStatus(string(*u.Status)))
		w.Status = &s
	}
	if u.Priority != nil {
		s := string(*u.Priority)
		w.Priority = &s
	}
	return w
}
