package content

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/mindmarks/mindmarks-go/internal/apperr"
	"github.com/mindmarks/mindmarks-go/internal/httpc"
	"github.com/mindmarks/mindmarks-go/internal/models"
)

// API wraps the backend's auth, user, and content endpoints behind the
// domain model.
type API struct {
	client *httpc.Client
}

// NewAPI creates an API adapter on top of the given HTTP client.
func NewAPI(client *httpc.Client) *API {
	return &API{client: client}
}

// Session is the result of a successful login.
type Session struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
}

// Account is the backend's view of the signed-in user.
type Account struct {
	ID       string
	Email    string
	FullName string
	IsActive bool
}

// User converts the account into the domain user embedded in content.
func (a Account) User() models.User {
	name := a.FullName
	if name == "" {
		name = a.Email
	}
	return models.User{ID: a.ID, Name: name, Image: DefaultAvatar}
}

// Login exchanges credentials for tokens. The endpoint is OAuth2
// password-flow shaped: form-encoded username and password.
func (a *API) Login(ctx context.Context, email, password string) (*Session, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	var tok wireToken
	err := a.client.Do(ctx, httpc.Request{
		Method:   http.MethodPost,
		Path:     "/api/v1/auth/login",
		Form:     form,
		Encoding: httpc.EncodingForm,
	}, &tok)
	if err != nil {
		return nil, friendlyAuthError(err)
	}
	return &Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}, nil
}

// Register creates a new account.
func (a *API) Register(ctx context.Context, email, password, fullName string) (*Account, error) {
	if err := validation.Validate(email, validation.Required); err != nil {
		return nil, errors.New("email is required")
	}
	if err := validation.Validate(password, validation.Required, validation.Length(8, 0)); err != nil {
		return nil, errors.New("password must be at least 8 characters")
	}

	var acct wireAccount
	err := a.client.Do(ctx, httpc.Request{
		Method: http.MethodPost,
		Path:   "/api/v1/auth/register",
		Body: map[string]string{
			"email":     email,
			"password":  password,
			"full_name": fullName,
		},
	}, &acct)
	if err != nil {
		return nil, friendlyAuthError(err)
	}
	return accountFromWire(acct), nil
}

// Me fetches the signed-in user.
func (a *API) Me(ctx context.Context) (*Account, error) {
	var acct wireAccount
	err := a.client.Do(ctx, httpc.Request{
		Method:       http.MethodGet,
		Path:         "/api/v1/users/me",
		RequiresAuth: true,
	}, &acct)
	if err != nil {
		return nil, err
	}
	return accountFromWire(acct), nil
}

// ListMine fetches the caller's content list.
func (a *API) ListMine(ctx context.Context) ([]models.ContentItem, error) {
	var wires []wireItem
	err := a.client.Do(ctx, httpc.Request{
		Method:       http.MethodGet,
		Path:         "/api/v1/content/me",
		RequiresAuth: true,
	}, &wires)
	if err != nil {
		return nil, err
	}
	items := make([]models.ContentItem, len(wires))
	for i, w := range wires {
		items[i] = toItem(w)
	}
	return items, nil
}

// CreateInput carries the fields for a new content record. Content may be
// nil, in which case the type's default template is used.
type CreateInput struct {
	Title    string
	Type     models.ContentType
	URL      string
	Summary  string
	Tags     []string
	Status   models.ContentStatus
	Priority models.ContentPriority
	Content  []models.Block
}

// Validate checks the input before any network call.
func (in CreateInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required),
		validation.Field(&in.Type, validation.By(func(any) error {
			if !models.ValidType(in.Type) {
				return errors.New("unknown content type")
			}
			return nil
		})),
	)
}

// Create posts a new content record and returns both projections.
func (a *API) Create(ctx context.Context, in CreateInput) (*models.ContentItem, *models.ContentPage, error) {
	if err := in.Validate(); err != nil {
		return nil, nil, err
	}
	if in.Status == "" {
		in.Status = models.StatusPlanned
	}
	blocks := in.Content
	if blocks == nil {
		blocks = DefaultContent(in.Type)
	}

	var resp createResponse
	err := a.client.Do(ctx, httpc.Request{
		Method:       http.MethodPost,
		Path:         "/api/v1/content",
		RequiresAuth: true,
		Body: createWire{
			Title:    in.Title,
			Type:     string(in.Type),
			URL:      in.URL,
			Summary:  in.Summary,
			Tags:     in.Tags,
			Status:   string(models.NormalizeStatus(string(in.Status))),
			Priority: string(in.Priority),
			Content:  blocks,
		},
	}, &resp)
	if err != nil {
		return nil, nil, err
	}
	item := toItem(resp.Content)
	page := toPage(resp.ContentPage)
	return &item, &page, nil
}

// GetPage fetches the full document for one content id. A 404 means the
// record does not exist and yields (nil, nil) rather than an error:
// absence is a valid result, distinct from a failed load.
func (a *API) GetPage(ctx context.Context, id string) (*models.ContentPage, error) {
	var w wirePage
	err := a.client.Do(ctx, httpc.Request{
		Method:       http.MethodGet,
		Path:         "/api/v1/content/" + url.PathEscape(id),
		RequiresAuth: true,
	}, &w)
	if err != nil {
		var apiErr *apperr.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	page := toPage(w)
	return &page, nil
}

// Update patches a content record. Only fields set on the update are sent.
func (a *API) Update(ctx context.Context, id string, update PageUpdate) (*models.ContentPage, error) {
	var w wirePage
	err := a.client.Do(ctx, httpc.Request{
		Method:       http.MethodPatch,
		Path:         "/api/v1/content/" + url.PathEscape(id),
		RequiresAuth: true,
		Body:         toUpdateWire(update),
	}, &w)
	if err != nil {
		var apiErr *apperr.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	page := toPage(w)
	return &page, nil
}

// Delete removes a content record.
func (a *API) Delete(ctx context.Context, id string) error {
	err := a.client.Do(ctx, httpc.Request{
		Method:       http.MethodDelete,
		Path:         "/api/v1/content/" + url.PathEscape(id),
		RequiresAuth: true,
	}, nil)
	var apiErr *apperr.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return apperr.ErrNotFound
	}
	return err
}

func accountFromWire(w wireAccount) *Account {
	return &Account{
		ID:       w.ID,
		Email:    w.Email,
		FullName: w.FullName,
		IsActive: w.IsActive,
	}
}

// friendlyAuthError rewrites raw backend auth messages into sentences a
// user can act on.
func friendlyAuthError(err error) error {
	var apiErr *apperr.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.Message {
	case "Incorrect email or password", "incorrect password":
		apiErr.Message = "That email and password combination didn't work. Please try again."
	case "Email already registered":
		apiErr.Message = "An account with this email already exists. Try signing in instead."
	case "Inactive user":
		apiErr.Message = "This account has been deactivated."
	}
	return apiErr
}
