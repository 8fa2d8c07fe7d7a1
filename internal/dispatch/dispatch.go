// Package dispatch turns a user Turn into a backend request.
package dispatch

import (
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/soyeahso/bakebot/internal/config"
	"github.com/soyeahso/bakebot/internal/domain"
)

var (
	ErrEmptyInput = errors.New("please enter a message first")
	ErrNoRecipe   = errors.New("there is no recipe to submit")
	ErrNoSession  = errors.New("start a conversation before asking for changes")
)

// uploadPreamble introduces a submitted recipe to the chat backend.
const uploadPreamble = "The user has uploaded a recipe that they would like to ask questions about.  Here are the details: "

// Request is a backend call ready for the transport.
type Request struct {
	Endpoint string         // endpoint key, resolved to a path by the transport
	Mode     domain.Mode    // mode the request was built for
	Payload  map[string]any // JSON body
}

// SessionID returns the session id carried by the payload, if any.
func (r Request) SessionID() string {
	s, _ := r.Payload["session_id"].(string)
	return s
}

// BuildRequest maps a turn onto an endpoint key and payload. Empty text
// short-circuits with ErrEmptyInput and no request.
func BuildRequest(turn domain.Turn, sess domain.Session, style domain.ChefStyle) (Request, error) {
	if style == "" {
		style = domain.DefaultChefStyle
	}
	text := strings.TrimSpace(turn.UserText)

	switch turn.Mode {
	case domain.ModeAskQuestion, domain.ModeGenericChat, "":
		if text == "" {
			return Request{}, ErrEmptyInput
		}
		mode := turn.Mode
		if mode == "" {
			mode = domain.ModeGenericChat
		}
		return Request{
			Endpoint: config.EndpointChat,
			Mode:     mode,
			Payload:  chatPayload(text, sess, style, nil),
		}, nil

	case domain.ModeModifyRecipe:
		if text == "" {
			return Request{}, ErrEmptyInput
		}
		if !sess.HasIdentity() {
			return Request{}, ErrNoSession
		}
		return Request{
			Endpoint: config.EndpointModifyRecipe,
			Mode:     turn.Mode,
			Payload: map[string]any{
				"user_question": text,
				"session_id":    sess.SessionID,
			},
		}, nil

	case domain.ModeGetPairings:
		if text == "" {
			return Request{}, ErrEmptyInput
		}
		if !sess.HasIdentity() {
			return Request{}, ErrNoSession
		}
		return Request{
			Endpoint: config.EndpointPairings,
			Mode:     turn.Mode,
			Payload: map[string]any{
				"pairing_type": text,
				"session_id":   sess.SessionID,
			},
		}, nil

	case domain.ModeUploadRecipe:
		if turn.Recipe == nil || strings.TrimSpace(turn.Recipe.Name) == "" {
			return Request{}, ErrNoRecipe
		}
		recipe := *turn.Recipe
		payload := chatPayload(uploadPreamble+recipe.Text()+".", sess, style, map[string]any{
			"uploaded_recipe": recipe,
		})
		payload["recipe"] = recipe
		return Request{
			Endpoint: config.EndpointUploadRecipe,
			Mode:     turn.Mode,
			Payload:  payload,
		}, nil
	}

	return Request{}, fmt.Errorf("unsupported mode %q", turn.Mode)
}

// BuildCreateRecipe asks the backend to write a new recipe from a request
// such as "vegan lasagna". A servingSize below 1 is left to the backend.
func BuildCreateRecipe(text string, servingSize int, style domain.ChefStyle) (Request, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Request{}, ErrEmptyInput
	}
	if style == "" {
		style = domain.DefaultChefStyle
	}
	payload := map[string]any{
		"message_content": text,
		"chef_type":       string(style),
	}
	if servingSize > 0 {
		payload["serving_size"] = servingSize
	}
	return Request{Endpoint: config.EndpointCreateRecipe, Payload: payload}, nil
}

// BuildInitChat opens a chat thread seeded with page context. Both context
// and metadata are optional.
func BuildInitChat(pageContext string, metadata map[string]any, sess domain.Session) Request {
	md := make(map[string]any, len(sess.Metadata)+len(metadata))
	maps.Copy(md, sess.Metadata)
	maps.Copy(md, metadata)
	return Request{
		Endpoint: config.EndpointInitChat,
		Payload: map[string]any{
			"message_content": nullable(strings.TrimSpace(pageContext)),
			"metadata":        md,
			"session_id":      nullable(sess.SessionID),
		},
	}
}

// chatPayload builds the body of the conversational chat endpoint. Unset ids
// are sent as null.
func chatPayload(text string, sess domain.Session, style domain.ChefStyle, extra map[string]any) map[string]any {
	metadata := make(map[string]any, len(sess.Metadata)+len(extra))
	maps.Copy(metadata, sess.Metadata)
	maps.Copy(metadata, extra)

	return map[string]any{
		"message_content": text,
		"session_id":      nullable(sess.SessionID),
		"thread_id":       nullable(sess.ThreadID),
		"chef_style":      string(style),
		"metadata":        metadata,
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
