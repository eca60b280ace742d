package tss

import "log/slog"

type options struct {
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*options)

// WithLogger sets the registry logger. Defaults to a discarding logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
