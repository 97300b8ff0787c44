// Package httpc implements the authenticated HTTP client used by every
// backend call: auth header injection, proactive token refresh, retry with
// exponential backoff, and typed error extraction.
package httpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/mindmarks/mindmarks-go/internal/apperr"
)

// TokenSource supplies and renews the bearer token. *auth.Manager
// satisfies it.
type TokenSource interface {
	AccessToken() string
	IsExpiringSoon(buffer time.Duration) bool
	Refresh(ctx context.Context) (string, error)
	ClearSession() error
}

// Encoding selects the request body encoding.
type Encoding int

const (
	// EncodingJSON marshals Body as application/json. The default.
	EncodingJSON Encoding = iota
	// EncodingForm sends Form as application/x-www-form-urlencoded.
	EncodingForm
	// EncodingMultipart sends Form fields and Files as multipart/form-data.
	EncodingMultipart
)

// Request describes one backend call.
type Request struct {
	Method       string
	Path         string
	Body         any
	Form         url.Values
	Files        map[string][]byte
	Encoding     Encoding
	RequiresAuth bool
	// Retries overrides the client default when > 0.
	Retries int
	// Timeout overrides the client default when > 0.
	Timeout time.Duration
}

// Client executes requests against the backend.
// It is safe for concurrent use.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	tokens        TokenSource
	logger        *slog.Logger
	retries       int
	timeout       time.Duration
	refreshBuffer time.Duration
}

// Options tune the client's retry and timeout behavior.
type Options struct {
	Retries       int
	Timeout       time.Duration
	RefreshBuffer time.Duration
}

// New creates a Client for the backend at baseURL. tokens may be nil for a
// client that only performs unauthenticated calls.
func New(baseURL string, tokens TokenSource, logger *slog.Logger, opts Options) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RefreshBuffer <= 0 {
		opts.RefreshBuffer = 5 * time.Minute
	}
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpClient:    &http.Client{},
		tokens:        tokens,
		logger:        logger,
		retries:       opts.Retries,
		timeout:       opts.Timeout,
		refreshBuffer: opts.RefreshBuffer,
	}
}

// Do executes req and, when out is non-nil, decodes the JSON response body
// into it. Transient failures (network errors, 5xx) are retried with
// exponential backoff. A 401 on an authenticated request triggers one
// refresh-and-retry cycle; a second 401 clears the session and surfaces
// apperr.ErrUnauthorized.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	if req.RequiresAuth && c.tokens != nil && c.tokens.IsExpiringSoon(c.refreshBuffer) {
		// Best effort: the 401 path below still covers a failed refresh.
		if _, err := c.tokens.Refresh(ctx); err != nil {
			c.logger.Debug("httpc: proactive refresh failed",
				slog.String("path", req.Path), slog.String("error", err.Error()))
		}
	}

	body, status, err := c.doWithRetry(ctx, req)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && req.RequiresAuth && c.tokens != nil {
		if _, err := c.tokens.Refresh(ctx); err != nil {
			return apperr.ErrUnauthorized
		}
		body, status, err = c.doWithRetry(ctx, req)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			if err := c.tokens.ClearSession(); err != nil {
				c.logger.Warn("httpc: clearing session failed", slog.String("error", err.Error()))
			}
			return apperr.ErrUnauthorized
		}
	}

	if status < 200 || status > 299 {
		return parseAPIError(status, body)
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("httpc: decode response: %w", err)
		}
	}
	return nil
}

// doWithRetry runs one logical request, retrying network failures and 5xx
// responses. Other statuses (including 401) return to the caller without
// retries.
func (c *Client) doWithRetry(ctx context.Context, req Request) ([]byte, int, error) {
	retries := req.Retries
	if retries <= 0 {
		retries = c.retries
	}

	var body []byte
	var status int

	err := retry.Do(
		func() error {
			var attemptErr error
			body, status, attemptErr = c.attempt(ctx, req)
			if attemptErr != nil {
				return attemptErr
			}
			if status >= 500 {
				return parseAPIError(status, body)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(retries)),
		retry.Delay(200*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(apperr.IsRetryable),
	)
	if err != nil {
		var apiErr *apperr.APIError
		if errors.As(err, &apiErr) {
			// Retries exhausted on a 5xx: surface the response itself.
			return body, status, nil
		}
		return nil, 0, err
	}
	return body, status, nil
}

// attempt executes a single HTTP exchange with the per-request timeout.
func (c *Client) attempt(ctx context.Context, req Request) ([]byte, int, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	bodyReader, contentType, err := encodeBody(req)
	if err != nil {
		return nil, 0, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, bodyReader)
	if err != nil {
		return nil, 0, fmt.Errorf("httpc: build request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.RequiresAuth && c.tokens != nil {
		if tok := c.tokens.AccessToken(); tok != "" {
			httpReq.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s %s: %v", apperr.ErrNetwork, req.Method, req.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: read body: %v", apperr.ErrNetwork, err)
	}
	return data, resp.StatusCode, nil
}

func encodeBody(req Request) (io.Reader, string, error) {
	switch req.Encoding {
	case EncodingForm:
		if req.Form == nil {
			return nil, "", nil
		}
		return strings.NewReader(req.Form.Encode()), "application/x-www-form-urlencoded", nil

	case EncodingMultipart:
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for key, vals := range req.Form {
			for _, v := range vals {
				if err := w.WriteField(key, v); err != nil {
					return nil, "", fmt.Errorf("httpc: write form field: %w", err)
				}
			}
		}
		for name, data := range req.Files {
			part, err := w.CreateFormFile(name, name)
			if err != nil {
				return nil, "", fmt.Errorf("httpc: create form file: %w", err)
			}
			if _, err := part.Write(data); err != nil {
				return nil, "", fmt.Errorf("httpc: write form file: %w", err)
			}
		}
		if err := w.Close(); err != nil {
			return nil, "", fmt.Errorf("httpc: finish multipart body: %w", err)
		}
		return &buf, w.FormDataContentType(), nil

	default:
		if req.Body == nil {
			return nil, "", nil
		}
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, "", fmt.Errorf("httpc: encode request body: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

// parseAPIError extracts a human-readable message from the known backend
// error shapes: {"detail": ...}, {"message": ..., "code": ...}, a bare
// JSON string, or the raw body text as a last resort.
func parseAPIError(status int, body []byte) *apperr.APIError {
	apiErr := &apperr.APIError{Status: status}

	var detail struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if err := json.Unmarshal(body, &detail); err == nil {
		switch {
		case detail.Detail != "":
			apiErr.Message = detail.Detail
			return apiErr
		case detail.Message != "":
			apiErr.Message = detail.Message
			apiErr.Code = detail.Code
			return apiErr
		}
	}

	var bare string
	if err := json.Unmarshal(body, &bare); err == nil && bare != "" {
		apiErr.Message = bare
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(body))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
