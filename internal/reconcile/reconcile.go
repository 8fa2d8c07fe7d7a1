// Package reconcile interprets backend replies and applies them to a page view.
package reconcile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/soyeahso/bakebot/internal/domain"
	"github.com/soyeahso/bakebot/internal/logging"
	"github.com/soyeahso/bakebot/internal/render"
	"github.com/soyeahso/bakebot/internal/session"
)

// Kind classifies a reconcile failure.
type Kind string

const (
	KindMalformed       Kind = "malformed"
	KindServerReported  Kind = "server_reported"
	KindMissingIdentity Kind = "missing_identity"
)

// Error is returned when a 2xx reply cannot be applied.
type Error struct {
	Kind Kind
	Text string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindServerReported:
		return e.Text
	case KindMissingIdentity:
		return "there was a problem with our chat response, please try again"
	}
	return "could not read the chat response: " + e.Text
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Text == ""
}

// Sentinels for errors.Is matching by kind.
var (
	ErrMalformed       = &Error{Kind: KindMalformed}
	ErrServerReported  = &Error{Kind: KindServerReported}
	ErrMissingIdentity = &Error{Kind: KindMissingIdentity}
)

// Expect describes the turn a reply belongs to.
type Expect struct {
	Mode      domain.Mode
	SessionID string // ids sent with the turn, used by routes that do not echo them
	ThreadID  string
}

type wireResponse struct {
	Message          string          `json:"message"`
	ThreadID         string          `json:"thread_id"`
	SessionID        string          `json:"session_id"`
	ToolReturnValues []wireTool      `json:"tool_return_values"`
	Msg              json.RawMessage `json:"msg"`
	RecipeText       json.RawMessage `json:"recipe_text"`
	PairingText      json.RawMessage `json:"pairing_text"`
}

type wireTool struct {
	ToolName   string          `json:"tool_name"`
	ToolOutput json.RawMessage `json:"tool_output"`
}

// Parse decodes a reply body and applies the precedence rules: unreadable
// bodies are malformed, a non-empty msg is a server-reported error even when
// ids are present, and only then is the session id required.
func Parse(body []byte, expect Expect) (domain.ChatResponse, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return domain.ChatResponse{}, &Error{Kind: KindMalformed, Text: "expected a JSON object"}
	}
	var w wireResponse
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return domain.ChatResponse{}, &Error{Kind: KindMalformed, Text: err.Error()}
	}

	if msg := errorText(w.Msg); msg != "" {
		return domain.ChatResponse{}, &Error{Kind: KindServerReported, Text: msg}
	}

	resp := domain.ChatResponse{
		Message:   w.Message,
		SessionID: w.SessionID,
		ThreadID:  w.ThreadID,
	}
	if !expect.Mode.IsChat() {
		if resp.SessionID == "" {
			resp.SessionID = expect.SessionID
		}
		if resp.ThreadID == "" {
			resp.ThreadID = expect.ThreadID
		}
	}
	if resp.SessionID == "" {
		return domain.ChatResponse{}, &Error{Kind: KindMissingIdentity}
	}

	for _, t := range w.ToolReturnValues {
		resp.ToolOutputs = append(resp.ToolOutputs, domain.ToolOutput{
			ToolName: domain.ParseToolName(t.ToolName),
			RawName:  t.ToolName,
			Payload:  payloadText(t.ToolOutput),
		})
	}
	if text := payloadText(w.RecipeText); text != "" {
		resp.ToolOutputs = append(resp.ToolOutputs, domain.ToolOutput{ToolName: domain.ToolAdjustRecipe, RawName: "recipe_text", Payload: text})
	}
	if text := payloadText(w.PairingText); text != "" {
		resp.ToolOutputs = append(resp.ToolOutputs, domain.ToolOutput{ToolName: domain.ToolGeneratePairings, RawName: "pairing_text", Payload: text})
	}
	return resp, nil
}

// payloadText returns a JSON string's value, or the JSON text of any other
// value. null and absent values are empty.
func payloadText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// errorText returns the text of a msg field that reports an error. Strings
// and non-empty objects or arrays count; booleans, numbers equal to zero,
// empty containers and null do not.
func errorText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case bool, nil:
		return ""
	case float64:
		if val == 0 {
			return ""
		}
	case map[string]any:
		if len(val) == 0 {
			return ""
		}
	case []any:
		if len(val) == 0 {
			return ""
		}
	}
	return string(raw)
}

// Reconciler applies replies to one page view's session and renderer.
type Reconciler struct {
	store    *session.Store
	renderer render.Renderer
	log      *logging.Logger
}

// New creates a Reconciler.
func New(store *session.Store, renderer render.Renderer, log *logging.Logger) *Reconciler {
	return &Reconciler{store: store, renderer: renderer, log: log.Sub("reconcile")}
}

// Reconcile parses a reply, records the returned identity, then renders the
// message followed by every tool output in arrival order. Nothing is updated
// or rendered when it fails.
func (r *Reconciler) Reconcile(body []byte, expect Expect) (domain.ChatResponse, error) {
	resp, err := Parse(body, expect)
	if err != nil {
		r.log.Warn().Err(err).Str("mode", string(expect.Mode)).Msg("reply rejected")
		return resp, err
	}

	r.store.Update(domain.IdentityUpdate(resp.SessionID, resp.ThreadID))

	if strings.TrimSpace(resp.Message) != "" {
		r.renderer.AppendMessage(resp.Message, render.SenderBot)
	}
	for _, out := range resp.ToolOutputs {
		r.renderTool(out)
	}

	r.log.Debug().
		Str("sessionId", resp.SessionID).
		Int("tools", len(resp.ToolOutputs)).
		Msg("reply applied")
	return resp, nil
}

func (r *Reconciler) renderTool(out domain.ToolOutput) {
	switch out.ToolName {
	case domain.ToolAdjustRecipe:
		text := recipeText(out.Payload)
		r.renderer.ReplaceRecipePanel(render.MarkdownHTML(text))
		r.renderer.AppendMessage(text, render.SenderBot)
	case domain.ToolCreateRecipe:
		r.renderer.ReplaceRecipePanel(render.MarkdownHTML(recipeText(out.Payload)))
	case domain.ToolGeneratePairings, domain.ToolGenerateImage:
		text := out.Payload
		if out.ToolName == domain.ToolGenerateImage && isImageURL(text) {
			text = fmt.Sprintf("![generated image](%s)", strings.TrimSpace(text))
		}
		r.renderer.AppendSupplementaryOutput(render.MarkdownHTML(text))
		r.renderer.AppendMessage(text, render.SenderBot)
	default:
		if strings.TrimSpace(out.Payload) != "" {
			r.renderer.AppendMessage(out.Payload, render.SenderBot)
		}
	}
}

// recipeText renders structured recipe payloads as markdown and passes any
// other payload through.
func recipeText(payload string) string {
	if recipe, ok := domain.ParseRecipe(payload); ok {
		return recipe.Markdown()
	}
	return payload
}

func isImageURL(s string) bool {
	s = strings.TrimSpace(s)
	return !strings.ContainsAny(s, " \n") && (strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://"))
}
