package logging

import "log/slog"

// ComponentKey is the attribute key the console handler renders as a prefix.
const ComponentKey = "component"

// WithComponent returns a child logger tagged with a component name.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(slog.String(ComponentKey, component))
}

// NewNop returns a logger that discards everything. Useful in tests.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// Error wraps an error into a slog attribute with the conventional key.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}
