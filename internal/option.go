package internal

import "log/slog"

// Option is a functional option for configuring the application.
type Option func(*App)

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *App) {
		a.Config = cfg
	}
}

// WithLogger overrides the default JSON logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.Logger = logger
	}
}
