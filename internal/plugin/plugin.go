// Package plugin provides the extension interface and lifecycle management
// for bakebot add-ons. Plugins observe widgets through hooks only.
package plugin

import (
	"context"

	"github.com/soyeahso/bakebot/internal/hooks"
	"github.com/soyeahso/bakebot/internal/logging"
)

// Plugin is the interface that all bakebot plugins must implement.
type Plugin interface {
	// ID returns a unique identifier for the plugin (e.g., "turn-stats").
	ID() string

	// Name returns a human-readable name.
	Name() string

	// Version returns the plugin version string.
	Version() string

	// Init registers hooks and sets up resources.
	Init(ctx context.Context, api API) error

	// Close shuts down the plugin and releases resources.
	Close() error
}

// Reporter is implemented by plugins that expose a status snapshot.
type Reporter interface {
	Report() any
}

// API is what a plugin gets to work with.
type API struct {
	Hooks *hooks.Manager
	Log   *logging.Logger
}
