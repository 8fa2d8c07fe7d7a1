package gateway

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/soyeahso/bakebot/internal/config"
	"github.com/soyeahso/bakebot/internal/domain"
	"github.com/soyeahso/bakebot/internal/version"
)

// readableConfigPrefixes lists config paths a page may read via config.get.
// Credentials and TLS material are never exposed.
var readableConfigPrefixes = []string{
	"widget",
	"backend.baseUrl",
	"backend.timeoutSeconds",
	"backend.endpoints",
	"gateway.port",
	"gateway.bind",
	"logging.level",
}

func isReadableConfigPath(key string) bool {
	for _, prefix := range readableConfigPrefixes {
		if key == prefix || strings.HasPrefix(key, prefix+".") {
			return true
		}
	}
	return false
}

// Handler returns the HTTP handler with routes and middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID, requestLogger(s.log), middleware.Recoverer, corsHandler(s.cfg.Gateway.AllowedOrigins))

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)
	r.Route("/pages/{connID}", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/", s.handlePage)
		r.Get("/transcript", s.handleTranscript)
	})

	r.NotFound(handleNotFound)
	return r
}

// registerRPCHandlers sets up all JSON-RPC method handlers.
func (s *Server) registerRPCHandlers() {
	s.Handle(MethodHealth, s.rpcHealth)
	s.Handle(MethodChatSend, s.rpcChatSend)
	s.Handle(MethodChatAck, s.rpcChatAck)
	s.Handle(MethodChatInit, s.rpcChatInit)
	s.Handle(MethodRecipeGet, s.rpcRecipeGet)
	s.Handle(MethodRecipeCreate, s.rpcRecipeCreate)
	s.Handle(MethodRecipeSubmit, s.rpcRecipeSubmit)
	s.Handle(MethodRecipeUpload, s.rpcRecipeUpload)
	s.Handle(MethodRecipeSave, s.rpcRecipeSave)
	s.Handle(MethodRecipeSearch, s.rpcRecipeSearch)
	s.Handle(MethodSessionGet, s.rpcSessionGet)
	s.Handle(MethodSessionClear, s.rpcSessionClear)
	s.Handle(MethodSessionList, s.rpcSessionList)
	s.Handle(MethodConfigGet, s.rpcConfigGet)
	s.Handle(MethodChannelsStatus, s.rpcChannelsStatus)
	s.Handle(MethodPluginsList, s.rpcPluginsList)
}

func (s *Server) rpcHealth(rc *RequestContext) {
	resp := HealthResponse{
		Status:   "ok",
		Version:  version.Version,
		Clients:  s.clients.Count(),
		Plugins:  s.plugins.Count(),
		Backend:  s.cfg.Backend.BaseURL,
		UptimeMs: s.uptime().Milliseconds(),
	}
	if s.channels != nil {
		resp.Channels = s.channels.Count()
	}
	rc.Respond(resp)
}

type chatSendParams struct {
	Mode      string `json:"mode,omitempty"`
	Text      string `json:"text"`
	ChefStyle string `json:"chefStyle,omitempty"`
}

func (s *Server) rpcChatSend(rc *RequestContext) {
	var p chatSendParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	mode, err := domain.ParseMode(p.Mode)
	if err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}

	w := rc.Client.Widget
	if p.ChefStyle != "" {
		w.SetChefStyle(p.ChefStyle)
	}
	resp, err := w.Ask(rc.Ctx, mode, p.Text)
	if err != nil {
		rc.Fail(err)
		return
	}
	rc.Respond(resp)
}

func (s *Server) rpcChatAck(rc *RequestContext) {
	w := rc.Client.Widget
	w.Acknowledge()
	rc.Respond(map[string]any{"state": w.State()})
}

type chatInitParams struct {
	Context  string         `json:"context,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (s *Server) rpcChatInit(rc *RequestContext) {
	var p chatInitParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	sess, err := rc.Client.Widget.InitChat(rc.Ctx, p.Context, p.Metadata)
	if err != nil {
		rc.Fail(err)
		return
	}
	rc.Respond(map[string]any{"session": sess})
}

func (s *Server) rpcRecipeGet(rc *RequestContext) {
	recipe, ok := rc.Client.Widget.Recipe()
	if !ok {
		rc.Respond(map[string]any{"recipe": nil})
		return
	}
	rc.Respond(map[string]any{"recipe": recipe})
}

type recipeCreateParams struct {
	Text      string `json:"text"`
	Servings  int    `json:"servings,omitempty"`
	ChefStyle string `json:"chefStyle,omitempty"`
}

func (s *Server) rpcRecipeCreate(rc *RequestContext) {
	var p recipeCreateParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	w := rc.Client.Widget
	if p.ChefStyle != "" {
		w.SetChefStyle(p.ChefStyle)
	}
	recipe, err := w.CreateRecipe(rc.Ctx, p.Text, p.Servings)
	if err != nil {
		rc.Fail(err)
		return
	}
	rc.Respond(map[string]any{"recipe": recipe})
}

type recipeSubmitParams struct {
	Recipe *domain.Recipe `json:"recipe,omitempty"` // nil submits the page's recipe
}

func (s *Server) rpcRecipeSubmit(rc *RequestContext) {
	var p recipeSubmitParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	resp, err := rc.Client.Widget.SubmitRecipe(rc.Ctx, p.Recipe)
	if err != nil {
		rc.Fail(err)
		return
	}
	rc.Respond(resp)
}

type recipeUploadParams struct {
	Text string `json:"text"`
}

func (s *Server) rpcRecipeUpload(rc *RequestContext) {
	var p recipeUploadParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	recipe, err := rc.Client.Widget.UploadText(rc.Ctx, p.Text)
	if err != nil {
		rc.Fail(err)
		return
	}
	rc.Respond(map[string]any{"recipe": recipe})
}

func (s *Server) rpcRecipeSave(rc *RequestContext) {
	id, err := rc.Client.Widget.SaveRecipe(rc.Ctx)
	if err != nil {
		rc.Fail(err)
		return
	}
	rc.Respond(map[string]any{"id": id})
}

type recipeSearchParams struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

func (s *Server) rpcRecipeSearch(rc *RequestContext) {
	if s.recipes == nil {
		rc.RespondError("unavailable", "saving recipes is not enabled")
		return
	}
	var p recipeSearchParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}

	var (
		found any
		err   error
	)
	if strings.TrimSpace(p.Query) == "" {
		found, err = s.recipes.List(rc.Ctx, p.Limit)
	} else {
		found, err = s.recipes.Search(rc.Ctx, p.Query, p.Limit)
	}
	if err != nil {
		rc.Fail(err)
		return
	}
	rc.Respond(map[string]any{"recipes": found})
}

type sessionGetParams struct {
	Remote bool `json:"remote,omitempty"` // also ask the backend for its view
}

func (s *Server) rpcSessionGet(rc *RequestContext) {
	var p sessionGetParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}

	w := rc.Client.Widget
	out := map[string]any{
		"page":      w.Page(),
		"session":   w.Session(),
		"state":     w.State(),
		"chefStyle": w.ChefStyle().Label(),
	}
	if p.Remote {
		status, err := w.Status(rc.Ctx)
		if err != nil {
			rc.Fail(err)
			return
		}
		out["backend"] = status
	}
	rc.Respond(out)
}

func (s *Server) rpcSessionClear(rc *RequestContext) {
	w := rc.Client.Widget
	if err := w.ClearHistory(rc.Ctx); err != nil {
		rc.Fail(err)
		return
	}
	rc.Respond(map[string]any{"session": w.Session()})
}

type sessionListParams struct {
	Limit int `json:"limit,omitempty"`
}

func (s *Server) rpcSessionList(rc *RequestContext) {
	if s.sessions == nil {
		rc.Respond(map[string]any{"sessions": []any{}})
		return
	}
	var p sessionListParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	sessions, err := s.sessions.List(p.Limit)
	if err != nil {
		rc.Fail(err)
		return
	}
	rc.Respond(map[string]any{"sessions": sessions})
}

type configGetParams struct {
	Key string `json:"key"`
}

func (s *Server) rpcConfigGet(rc *RequestContext) {
	var p configGetParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	path, err := config.ParseConfigPath(p.Key)
	if err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	if !isReadableConfigPath(p.Key) {
		rc.RespondError("forbidden", "access denied for config path: "+p.Key)
		return
	}

	val, ok := config.GetValueAtPath(s.configRaw, path)
	if !ok {
		rc.RespondError("not_found", "key not found: "+p.Key)
		return
	}
	rc.Respond(map[string]any{"key": p.Key, "value": val})
}

func (s *Server) rpcChannelsStatus(rc *RequestContext) {
	if s.channels != nil {
		rc.Respond(map[string]any{"channels": s.channels.Status()})
		return
	}
	rc.Respond(map[string]any{"channels": []any{}})
}

func (s *Server) rpcPluginsList(rc *RequestContext) {
	rc.Respond(map[string]any{"plugins": s.plugins.Info()})
}

// uptime reports how long the server has been serving.
func (s *Server) uptime() time.Duration {
	if s.startedAt.IsZero() {
		return 0
	}
	return time.Since(s.startedAt)
}
