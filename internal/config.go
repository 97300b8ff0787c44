package internal

import (
	"log/slog"
	"net/url"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	API      APIConfig         `yaml:"api"`
	Auth     AuthConfig        `yaml:"auth"`
	Cache    CacheConfig       `yaml:"cache"`
	Snapshot SnapshotConfig    `yaml:"snapshot"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.API.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	return c.Snapshot.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// APIConfig holds the backend endpoint and HTTP behavior.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	// TimeoutSeconds bounds each HTTP attempt.
	TimeoutSeconds int `yaml:"timeout_seconds"`
	// Retries is the attempt count for transient failures.
	Retries int `yaml:"retries"`
	// RefreshBufferMinutes is how long before expiry the access token is
	// refreshed proactively.
	RefreshBufferMinutes int `yaml:"refresh_buffer_minutes"`
}

// Validate validates the API configuration.
func (c *APIConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required),
		validation.Field(&c.TimeoutSeconds, validation.Min(1), validation.Max(300)),
		validation.Field(&c.Retries, validation.Min(1), validation.Max(10)),
		validation.Field(&c.RefreshBufferMinutes, validation.Min(1), validation.Max(60)),
	); err != nil {
		return err
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return validation.Errors{"base_url": validation.NewError(
			"validation_base_url", "must be an absolute http(s) URL")}
	}
	return nil
}

// AuthConfig holds credentials storage configuration.
type AuthConfig struct {
	// CredentialsPath is the session file location. Another process
	// rewriting it (a second CLI invocation refreshing the token) is
	// picked up by the credentials watcher.
	CredentialsPath string `yaml:"credentials_path"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.CredentialsPath, validation.Required),
	)
}

// CacheConfig tunes the in-memory content cache.
type CacheConfig struct {
	ListTTLSeconds int `yaml:"list_ttl_seconds"`
	PageTTLSeconds int `yaml:"page_ttl_seconds"`
	MaxPages       int `yaml:"max_pages"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ListTTLSeconds, validation.Min(1)),
		validation.Field(&c.PageTTLSeconds, validation.Min(1)),
		validation.Field(&c.MaxPages, validation.Min(1)),
	)
}

// SnapshotConfig holds the offline snapshot database location.
type SnapshotConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the snapshot configuration.
func (c *SnapshotConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		API: APIConfig{
			BaseURL:              "http://localhost:8000",
			TimeoutSeconds:       30,
			Retries:              3,
			RefreshBufferMinutes: 5,
		},
		Auth: AuthConfig{
			CredentialsPath: "${HOME}/.mindmarks/credentials.json",
		},
		Cache: CacheConfig{
			ListTTLSeconds: 60,
			PageTTLSeconds: 30,
			MaxPages:       64,
		},
		Snapshot: SnapshotConfig{
			Path: "${HOME}/.mindmarks/snapshot.db",
		},
	}
}
