// Package hooks lets the gateway, CLI and bridges observe widget lifecycle
// events without the widget knowing about them.
package hooks

import (
	"context"
	"slices"
	"sync"

	"github.com/soyeahso/bakebot/internal/logging"
)

// Event names.
const (
	EventPageOpened      = "page_opened"
	EventPageClosed      = "page_closed"
	EventTurnStarted     = "turn_started"
	EventTurnCompleted   = "turn_completed"
	EventTurnFailed      = "turn_failed"
	EventRecipeReplaced  = "recipe_replaced"
	EventRecipeSaved     = "recipe_saved"
	EventSessionCleared  = "session_cleared"
	EventMessageReceived = "message_received"
	EventGatewayStart    = "gateway_start"
	EventGatewayStop     = "gateway_stop"
)

// AllEvents lists all known hook event names.
var AllEvents = []string{
	EventPageOpened,
	EventPageClosed,
	EventTurnStarted,
	EventTurnCompleted,
	EventTurnFailed,
	EventRecipeReplaced,
	EventRecipeSaved,
	EventSessionCleared,
	EventMessageReceived,
	EventGatewayStart,
	EventGatewayStop,
}

// Payload carries event data to hook handlers.
type Payload struct {
	Event string         `json:"event"`
	Page  string         `json:"page,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

// Handler handles a hook event. A returned error is logged and does not stop
// later handlers.
type Handler func(ctx context.Context, p Payload) error

// Manager holds hook registrations and dispatches events. A nil *Manager is
// valid and drops every event.
type Manager struct {
	mu       sync.RWMutex
	handlers map[string][]namedHandler
	log      *logging.Logger
}

type namedHandler struct {
	name    string
	handler Handler
}

// NewManager creates a hook manager.
func NewManager(log *logging.Logger) *Manager {
	return &Manager{
		handlers: make(map[string][]namedHandler),
		log:      log.Sub("hooks"),
	}
}

// On registers a named handler for an event.
func (m *Manager) On(event, name string, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[event] = append(m.handlers[event], namedHandler{name: name, handler: handler})
	m.log.Debug().Str("event", event).Str("handler", name).Msg("hook registered")
}

// Off removes every handler with the given name from the event.
func (m *Manager) Off(event, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[event] = slices.DeleteFunc(m.handlers[event], func(h namedHandler) bool {
		return h.name == name
	})
}

// Emit runs the event's handlers synchronously in registration order.
func (m *Manager) Emit(ctx context.Context, p Payload) {
	for _, h := range m.snapshot(p.Event) {
		m.run(ctx, h, p)
	}
}

// EmitAsync runs each handler on its own goroutine and returns immediately.
func (m *Manager) EmitAsync(ctx context.Context, p Payload) {
	for _, h := range m.snapshot(p.Event) {
		go m.run(ctx, h, p)
	}
}

// Count returns the number of handlers registered for an event.
func (m *Manager) Count(event string) int {
	if m == nil {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handlers[event])
}

// Events returns the sorted events that have at least one handler.
func (m *Manager) Events() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]string, 0, len(m.handlers))
	for event, handlers := range m.handlers {
		if len(handlers) > 0 {
			events = append(events, event)
		}
	}
	slices.Sort(events)
	return events
}

func (m *Manager) snapshot(event string) []namedHandler {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.handlers[event])
}

func (m *Manager) run(ctx context.Context, h namedHandler, p Payload) {
	if err := h.handler(ctx, p); err != nil {
		m.log.Warn().
			Err(err).
			Str("event", p.Event).
			Str("handler", h.name).
			Str("page", p.Page).
			Msg("hook handler error")
	}
}
