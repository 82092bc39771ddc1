package depparse

import (
	"context"
	"errors"
)

var (
	// ErrModelNotFound is returned by Load when the service does not
	// serve the configured model
	ErrModelNotFound = errors.New("depparse: model not found")

	// ErrNotLoaded is returned by Parse before a successful Load
	ErrNotLoaded = errors.New("depparse: engine not loaded")
)

// Engine parses text into a dependency tree. Load is the expensive
// phase and may fail; construction must not.
type Engine interface {
	Load(ctx context.Context) error
	Parse(ctx context.Context, text string) (*Doc, error)
	Model() string
	Close() error
}
