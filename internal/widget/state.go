package widget

import (
	"errors"
	"fmt"

	"github.com/soyeahso/bakebot/internal/dispatch"
	"github.com/soyeahso/bakebot/internal/reconcile"
	"github.com/soyeahso/bakebot/internal/transport"
)

// State is the chat UI state of a page view.
type State string

const (
	StateIdle             State = "idle"
	StateAwaitingResponse State = "awaiting_response"
	StateError            State = "error"
)

// NoticeKind is the severity of a user-visible notification.
type NoticeKind string

const (
	NoticeInfo  NoticeKind = "info"
	NoticeWarn  NoticeKind = "warn"
	NoticeError NoticeKind = "error"
)

// UI is the page chrome the widget drives besides the renderer.
type UI interface {
	SetState(s State)
	SetSendEnabled(enabled bool)
	Notify(kind NoticeKind, message string)
}

// NopUI ignores every update.
type NopUI struct{}

func (NopUI) SetState(State)            {}
func (NopUI) SetSendEnabled(bool)       {}
func (NopUI) Notify(NoticeKind, string) {}

// describe turns an error into the text shown to the user.
func describe(err error) string {
	var terr *transport.Error
	if errors.As(err, &terr) {
		switch terr.Kind {
		case transport.KindBusy:
			return "Please wait for the current reply before sending another message."
		case transport.KindTimeout:
			return "The chef is taking too long to answer. Please try again."
		case transport.KindNetwork:
			return "Could not reach the recipe service. Check your connection and try again."
		case transport.KindServer:
			return fmt.Sprintf("The recipe service returned an error (%d). Please try again.", terr.Status)
		}
	}
	var rerr *reconcile.Error
	if errors.As(err, &rerr) {
		switch rerr.Kind {
		case reconcile.KindServerReported:
			return rerr.Text
		case reconcile.KindMissingIdentity:
			return "There was a problem with our chat response. Please try again."
		default:
			return "Could not read the chat response. Please try again."
		}
	}
	switch {
	case errors.Is(err, dispatch.ErrEmptyInput):
		return "Please enter a message first."
	case errors.Is(err, dispatch.ErrNoRecipe):
		return "There is no recipe yet. Upload or create one first."
	case errors.Is(err, dispatch.ErrNoSession):
		return "Ask the chef something first, then ask for changes."
	}
	return err.Error()
}
