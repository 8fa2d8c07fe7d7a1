package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/soyeahso/bakebot/internal/dispatch"
	"github.com/soyeahso/bakebot/internal/reconcile"
	"github.com/soyeahso/bakebot/internal/store"
	"github.com/soyeahso/bakebot/internal/transport"
	"github.com/soyeahso/bakebot/internal/widget"
)

// HealthResponse is returned by health endpoints. The public HTTP endpoint
// only populates Status; the authenticated RPC handler populates all fields.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version,omitempty"`
	Clients  int    `json:"clients,omitempty"`
	Channels int    `json:"channels,omitempty"`
	Plugins  int    `json:"plugins,omitempty"`
	Backend  string `json:"backend,omitempty"`
	UptimeMs int64  `json:"uptimeMs,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "not found",
		"path":  r.URL.Path,
	})
}

// handlePage serves the current DOM of a connected page view.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	client, ok := s.clients.Get(chi.URLParam(r, "connID"))
	if !ok {
		handleNotFound(w, r)
		return
	}
	markup, err := client.Page.HTML()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(markup))
}

// handleTranscript serves the transcript of a connected page view. With
// ?source=store and persistence enabled, the recorded transcript of the
// page key is returned instead, so earlier page views can be inspected.
func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	client, ok := s.clients.Get(chi.URLParam(r, "connID"))
	if !ok {
		handleNotFound(w, r)
		return
	}
	if r.URL.Query().Get("source") != "store" || s.db == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"page":     client.Widget.Page(),
			"messages": client.Page.Messages(),
		})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.db.TranscriptEntries(client.Widget.Page(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"page":    client.Widget.Page(),
		"entries": entries,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// RequestHandler processes an incoming RPC request frame from a client.
type RequestHandler func(rc *RequestContext)

// RequestContext carries everything a handler needs. Ctx ends when the
// connection goes away.
type RequestContext struct {
	Ctx    context.Context
	Client *Client
	Frame  Frame
	Server *Server
}

// Respond sends a success response.
func (rc *RequestContext) Respond(payload any) {
	if err := rc.Client.Respond(rc.Frame.ID, payload); err != nil {
		rc.Server.log.Warn().Err(err).Str("method", rc.Frame.Method).Msg("failed to send response")
	}
}

// RespondError sends an error response.
func (rc *RequestContext) RespondError(code, message string) {
	rc.Client.RespondError(rc.Frame.ID, ErrorShape{
		Code:    code,
		Message: message,
	})
}

// Fail answers with the error shape for err.
func (rc *RequestContext) Fail(err error) {
	rc.Client.RespondError(rc.Frame.ID, errorShape(err))
}

// Params unmarshals the request params into the given target.
func (rc *RequestContext) Params(target any) error {
	if len(rc.Frame.Params) == 0 {
		return nil
	}
	return json.Unmarshal(rc.Frame.Params, target)
}

// errorShape maps widget, transport and reconciler errors onto RPC codes.
// Transient failures are marked retryable.
func errorShape(err error) ErrorShape {
	shape := ErrorShape{Code: "internal", Message: err.Error()}

	var te *transport.Error
	var re *reconcile.Error
	switch {
	case errors.As(err, &te):
		shape.Code = "backend_" + string(te.Kind)
		if te.Kind == transport.KindBusy {
			shape.Code = "busy"
		}
		shape.Retryable = te.Kind != transport.KindServer
	case errors.As(err, &re):
		shape.Code = string(re.Kind)
		shape.Retryable = re.Kind == reconcile.KindMissingIdentity
	case errors.Is(err, dispatch.ErrEmptyInput):
		shape.Code = "invalid_params"
	case errors.Is(err, dispatch.ErrNoRecipe):
		shape.Code = "no_recipe"
	case errors.Is(err, dispatch.ErrNoSession):
		shape.Code = "no_session"
	case errors.Is(err, widget.ErrSavingDisabled):
		shape.Code = "unavailable"
	case errors.Is(err, store.ErrRecipeNotFound):
		shape.Code = "not_found"
	}
	return shape
}
