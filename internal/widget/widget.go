// Package widget is the chat widget of one page view: it runs turns through
// the dispatcher, transport and reconciler and drives the UI state machine.
package widget

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/soyeahso/bakebot/internal/config"
	"github.com/soyeahso/bakebot/internal/dispatch"
	"github.com/soyeahso/bakebot/internal/domain"
	"github.com/soyeahso/bakebot/internal/hooks"
	"github.com/soyeahso/bakebot/internal/logging"
	"github.com/soyeahso/bakebot/internal/reconcile"
	"github.com/soyeahso/bakebot/internal/render"
	"github.com/soyeahso/bakebot/internal/session"
	"github.com/soyeahso/bakebot/internal/transport"
)

// Local storage keys shared with later page views.
const (
	KeyRecipeData = "recipeData"
	KeyRecipeType = "recipeType"

	RecipeTypeUploaded = "uploaded"
	RecipeTypeNew      = "new"
)

// ErrSavingDisabled is returned by SaveRecipe when no recipe store is wired.
var ErrSavingDisabled = errors.New("saving recipes is not enabled")

// Backend is the subset of the transport the widget needs.
type Backend interface {
	Send(ctx context.Context, req dispatch.Request) (transport.RawResponse, error)
	UploadText(ctx context.Context, text string) (transport.RawResponse, error)
	UploadFiles(ctx context.Context, files []transport.UploadFile) (transport.RawResponse, error)
	Status(ctx context.Context, sessionID string) (transport.RawResponse, error)
	ClearHistory(ctx context.Context, sessionID string) (transport.RawResponse, error)
}

// LocalStorage is per-origin key/value storage that outlives a page view.
type LocalStorage interface {
	GetItem(key string) (string, bool, error)
	SetItem(key, value string) error
}

// RecipeSaver keeps recipes the user asked to save.
type RecipeSaver interface {
	SaveRecipe(ctx context.Context, page string, r domain.Recipe) (int64, error)
}

// TranscriptClearer is implemented by renderers that can drop their transcript.
type TranscriptClearer interface {
	ClearTranscript()
}

// Options wires a Widget. Backend, Renderer and Log are required.
type Options struct {
	Page      string
	Config    config.WidgetConfig
	Backend   Backend
	Renderer  render.Renderer
	UI        UI
	Persister session.Persister
	Storage   LocalStorage
	Recipes   RecipeSaver
	Hooks     *hooks.Manager
	Log       *logging.Logger
}

// Widget is the chat widget of one page view. It is safe for concurrent use;
// at most one backend call runs at a time.
type Widget struct {
	page       string
	cfg        config.WidgetConfig
	backend    Backend
	renderer   render.Renderer
	ui         UI
	store      *session.Store
	reconciler *reconcile.Reconciler
	storage    LocalStorage
	recipes    RecipeSaver
	hooks      *hooks.Manager
	log        *logging.Logger

	mu         sync.Mutex
	state      State
	chefStyle  domain.ChefStyle
	recipe     *domain.Recipe
	resetTimer *time.Timer
}

// New creates a widget in the Idle state.
func New(opts Options) *Widget {
	log := opts.Log.Sub("widget").With("page", opts.Page)
	ui := opts.UI
	if ui == nil {
		ui = NopUI{}
	}

	var storeOpts []session.Option
	if opts.Persister != nil {
		storeOpts = append(storeOpts, session.WithPersister(opts.Persister))
	}
	store := session.NewStore(opts.Page, opts.Log, storeOpts...)

	return &Widget{
		page:       opts.Page,
		cfg:        opts.Config,
		backend:    opts.Backend,
		renderer:   opts.Renderer,
		ui:         ui,
		store:      store,
		reconciler: reconcile.New(store, opts.Renderer, opts.Log),
		storage:    opts.Storage,
		recipes:    opts.Recipes,
		hooks:      opts.Hooks,
		log:        log,
		state:      StateIdle,
		chefStyle:  domain.ParseChefStyle(opts.Config.ChefStyle),
	}
}

// Open restores saved state and shows the greeting.
func (w *Widget) Open(ctx context.Context) error {
	if _, err := w.store.Restore(); err != nil {
		w.log.Warn().Err(err).Msg("could not restore session")
	}

	if recipe, ok := w.loadStoredRecipe(); ok {
		w.adoptRecipe(ctx, recipe, true)
	}

	w.ui.SetState(StateIdle)
	w.ui.SetSendEnabled(true)
	if g := strings.TrimSpace(w.cfg.Greeting); g != "" {
		w.renderer.AppendMessage(g, render.SenderBot)
	}

	w.emit(ctx, hooks.EventPageOpened, map[string]any{"sessionId": w.store.Get().SessionID})
	w.log.Debug().Msg("page opened")
	return nil
}

// Close stops pending timers. The session is kept.
func (w *Widget) Close(ctx context.Context) {
	w.mu.Lock()
	if w.resetTimer != nil {
		w.resetTimer.Stop()
		w.resetTimer = nil
	}
	w.mu.Unlock()
	w.emit(ctx, hooks.EventPageClosed, nil)
}

// Page returns the page key.
func (w *Widget) Page() string { return w.page }

// State returns the current UI state.
func (w *Widget) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Session returns a copy of the current session.
func (w *Widget) Session() domain.Session { return w.store.Get() }

// ChefStyle returns the selected persona.
func (w *Widget) ChefStyle() domain.ChefStyle {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.chefStyle
}

// SetChefStyle selects a persona by backend value or dropdown label.
func (w *Widget) SetChefStyle(label string) {
	w.mu.Lock()
	w.chefStyle = domain.ParseChefStyle(label)
	w.mu.Unlock()
}

// Recipe returns the recipe currently owned by the page.
func (w *Widget) Recipe() (domain.Recipe, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.recipe == nil {
		return domain.Recipe{}, false
	}
	return *w.recipe, true
}

// SetRecipe replaces the owned recipe locally. Nothing is sent until
// SubmitRecipe.
func (w *Widget) SetRecipe(r domain.Recipe) {
	w.mu.Lock()
	w.recipe = &r
	w.mu.Unlock()
}

// Acknowledge dismisses an error and returns the UI to Idle.
func (w *Widget) Acknowledge() {
	w.mu.Lock()
	if w.state != StateError {
		w.mu.Unlock()
		return
	}
	w.state = StateIdle
	if w.resetTimer != nil {
		w.resetTimer.Stop()
		w.resetTimer = nil
	}
	w.mu.Unlock()
	w.ui.SetState(StateIdle)
}

// Send runs one turn. Invalid turns are reported and issue no request; valid
// turns issue exactly one backend call.
func (w *Widget) Send(ctx context.Context, turn domain.Turn) (domain.ChatResponse, error) {
	if _, err := dispatch.BuildRequest(turn, w.store.Get(), w.ChefStyle()); err != nil {
		w.ui.Notify(NoticeWarn, describe(err))
		return domain.ChatResponse{}, err
	}

	var resp domain.ChatResponse
	err := w.run(ctx, string(turn.Mode), func(ctx context.Context) error {
		// Read the session only once this turn owns the widget, so it carries
		// the identity established by the turn before it.
		sess := w.store.Get()
		req, err := dispatch.BuildRequest(turn, sess, w.ChefStyle())
		if err != nil {
			return err
		}
		if text := strings.TrimSpace(turn.UserText); text != "" {
			w.renderer.AppendMessage(text, render.SenderUser)
		}

		raw, err := w.backend.Send(ctx, req)
		if err != nil {
			return err
		}
		resp, err = w.reconciler.Reconcile(raw.Body, reconcile.Expect{
			Mode:      req.Mode,
			SessionID: sess.SessionID,
			ThreadID:  sess.ThreadID,
		})
		if err != nil {
			return err
		}

		replaced := false
		for _, out := range resp.ToolOutputs {
			if !out.ToolName.ReplacesRecipe() {
				continue
			}
			replaced = true
			if recipe, ok := domain.ParseRecipe(out.Payload); ok {
				w.adoptRecipe(ctx, recipe, false)
			}
		}
		if req.Mode == domain.ModeUploadRecipe && !replaced {
			w.adoptRecipe(ctx, *turn.Recipe, true)
		}
		w.checkSaveTrigger(ctx, resp.Message)
		return nil
	})
	return resp, err
}

// Ask sends text in the given mode.
func (w *Widget) Ask(ctx context.Context, mode domain.Mode, text string) (domain.ChatResponse, error) {
	return w.Send(ctx, domain.Turn{Mode: mode, UserText: text})
}

// SubmitRecipe sends the owned recipe, or r when given, to the chef so the
// user can ask questions about it.
func (w *Widget) SubmitRecipe(ctx context.Context, r *domain.Recipe) (domain.ChatResponse, error) {
	if r == nil {
		if current, ok := w.Recipe(); ok {
			r = &current
		}
	}
	return w.Send(ctx, domain.Turn{Mode: domain.ModeUploadRecipe, Recipe: r})
}

// UploadText has the backend structure free-form recipe text and adopts the
// result as the page's recipe.
func (w *Widget) UploadText(ctx context.Context, text string) (domain.Recipe, error) {
	if strings.TrimSpace(text) == "" {
		w.ui.Notify(NoticeWarn, describe(dispatch.ErrEmptyInput))
		return domain.Recipe{}, dispatch.ErrEmptyInput
	}
	return w.upload(ctx, "upload_text", func(ctx context.Context) (transport.RawResponse, error) {
		return w.backend.UploadText(ctx, text)
	})
}

// UploadFiles has the backend extract a recipe from files.
func (w *Widget) UploadFiles(ctx context.Context, files []transport.UploadFile) (domain.Recipe, error) {
	if len(files) == 0 {
		w.ui.Notify(NoticeWarn, "Choose at least one file to upload.")
		return domain.Recipe{}, dispatch.ErrNoRecipe
	}
	return w.upload(ctx, "upload_files", func(ctx context.Context) (transport.RawResponse, error) {
		return w.backend.UploadFiles(ctx, files)
	})
}

func (w *Widget) upload(ctx context.Context, label string, call func(context.Context) (transport.RawResponse, error)) (domain.Recipe, error) {
	return w.fetchRecipe(ctx, label, RecipeTypeUploaded, call)
}

// CreateRecipe has the chef write a new recipe from a request such as
// "vegan lasagna" and adopts it as the page's recipe. A servingSize below 1
// lets the backend choose.
func (w *Widget) CreateRecipe(ctx context.Context, text string, servingSize int) (domain.Recipe, error) {
	req, err := dispatch.BuildCreateRecipe(text, servingSize, w.ChefStyle())
	if err != nil {
		w.ui.Notify(NoticeWarn, describe(err))
		return domain.Recipe{}, err
	}
	return w.fetchRecipe(ctx, "create_recipe", RecipeTypeNew, func(ctx context.Context) (transport.RawResponse, error) {
		w.renderer.AppendMessage(strings.TrimSpace(text), render.SenderUser)
		return w.backend.Send(ctx, req)
	})
}

// fetchRecipe runs a backend call whose reply is a recipe, keeps it in local
// storage as kind and shows it in the recipe panel.
func (w *Widget) fetchRecipe(ctx context.Context, label, kind string, call func(context.Context) (transport.RawResponse, error)) (domain.Recipe, error) {
	var recipe domain.Recipe
	err := w.run(ctx, label, func(ctx context.Context) error {
		raw, err := call(ctx)
		if err != nil {
			return err
		}
		r, ok := parseRecipeBody(raw.Body)
		if !ok {
			return &reconcile.Error{Kind: reconcile.KindMalformed, Text: "the reply is not a recipe"}
		}
		recipe = r
		w.storeRecipe(r, kind)
		w.adoptRecipe(ctx, r, true)
		return nil
	})
	return recipe, err
}

// parseRecipeBody accepts a recipe object or a JSON string holding one, as
// recipe routes may return the model's JSON text as a string.
func parseRecipeBody(body []byte) (domain.Recipe, bool) {
	var text string
	if err := json.Unmarshal(body, &text); err == nil {
		return domain.ParseRecipe(text)
	}
	return domain.ParseRecipe(string(body))
}

// InitChat opens a chat thread seeded with page context, such as the recipe
// the page shows. The session id returned by the backend is adopted.
func (w *Widget) InitChat(ctx context.Context, pageContext string, metadata map[string]any) (domain.Session, error) {
	err := w.run(ctx, "init_chat", func(ctx context.Context) error {
		req := dispatch.BuildInitChat(pageContext, metadata, w.store.Get())
		raw, err := w.backend.Send(ctx, req)
		if err != nil {
			return err
		}
		var reply struct {
			SessionID string `json:"session_id"`
			ThreadID  string `json:"thread_id"`
		}
		if err := json.Unmarshal(raw.Body, &reply); err != nil {
			return &reconcile.Error{Kind: reconcile.KindMalformed, Text: err.Error()}
		}
		if reply.SessionID == "" {
			return &reconcile.Error{Kind: reconcile.KindMissingIdentity}
		}
		w.store.Update(domain.SessionUpdate{
			SessionID: &reply.SessionID,
			ThreadID:  &reply.ThreadID,
			Metadata:  metadata,
		})
		return nil
	})
	return w.store.Get(), err
}

// SaveRecipe keeps the owned recipe in the recipe store.
func (w *Widget) SaveRecipe(ctx context.Context) (int64, error) {
	recipe, ok := w.Recipe()
	if !ok {
		w.ui.Notify(NoticeWarn, describe(dispatch.ErrNoRecipe))
		return 0, dispatch.ErrNoRecipe
	}
	if w.recipes == nil {
		w.ui.Notify(NoticeWarn, "Saving recipes is not enabled.")
		return 0, ErrSavingDisabled
	}
	id, err := w.recipes.SaveRecipe(ctx, w.page, recipe)
	if err != nil {
		w.log.Error().Err(err).Msg("failed to save recipe")
		w.ui.Notify(NoticeError, "Could not save the recipe.")
		return 0, err
	}
	w.ui.Notify(NoticeInfo, "Saved "+recipe.Name+".")
	w.emit(ctx, hooks.EventRecipeSaved, map[string]any{"id": id, "name": recipe.Name})
	return id, nil
}

// Status asks the backend about the current session.
func (w *Widget) Status(ctx context.Context) (map[string]any, error) {
	var status map[string]any
	err := w.run(ctx, "status", func(ctx context.Context) error {
		raw, err := w.backend.Status(ctx, w.store.Get().SessionID)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw.Body, &status); err != nil {
			return &reconcile.Error{Kind: reconcile.KindMalformed, Text: err.Error()}
		}
		return nil
	})
	return status, err
}

// ClearHistory drops the conversation on the backend and starts a new
// session locally.
func (w *Widget) ClearHistory(ctx context.Context) error {
	return w.run(ctx, "clear_history", func(ctx context.Context) error {
		sess := w.store.Get()
		if sess.HasIdentity() {
			if _, err := w.backend.ClearHistory(ctx, sess.SessionID); err != nil {
				return err
			}
		}
		w.store.Reset()
		if c, ok := w.renderer.(TranscriptClearer); ok {
			c.ClearTranscript()
		}
		w.ui.Notify(NoticeInfo, "Chat history cleared.")
		if g := strings.TrimSpace(w.cfg.Greeting); g != "" {
			w.renderer.AppendMessage(g, render.SenderBot)
		}
		w.emit(ctx, hooks.EventSessionCleared, map[string]any{"sessionId": sess.SessionID})
		return nil
	})
}

// run moves the UI through AwaitingResponse for the duration of fn. The send
// control is disabled once before fn and enabled once after it, whatever the
// outcome.
func (w *Widget) run(ctx context.Context, label string, fn func(context.Context) error) error {
	if !w.begin() {
		busy := &transport.Error{Kind: transport.KindBusy, Detail: "a request is already in progress"}
		w.ui.Notify(NoticeWarn, describe(busy))
		return busy
	}
	w.ui.SetSendEnabled(false)
	w.ui.SetState(StateAwaitingResponse)
	w.emit(ctx, hooks.EventTurnStarted, map[string]any{"action": label})

	start := time.Now()
	err := fn(ctx)

	if err != nil {
		w.fail()
		w.ui.Notify(NoticeError, describe(err))
		w.ui.SetSendEnabled(true)
		w.log.Warn().Err(err).Str("action", label).Dur("elapsed", time.Since(start)).Msg("turn failed")
		w.emit(ctx, hooks.EventTurnFailed, map[string]any{"action": label, "error": err.Error()})
		return err
	}

	w.finish()
	w.ui.SetSendEnabled(true)
	w.log.Debug().Str("action", label).Dur("elapsed", time.Since(start)).Msg("turn completed")
	w.emit(ctx, hooks.EventTurnCompleted, map[string]any{"action": label, "sessionId": w.store.Get().SessionID})
	return nil
}

func (w *Widget) begin() bool {
	w.mu.Lock()
	prev := w.state
	if prev == StateAwaitingResponse {
		w.mu.Unlock()
		return false
	}
	w.state = StateAwaitingResponse
	if w.resetTimer != nil {
		w.resetTimer.Stop()
		w.resetTimer = nil
	}
	w.mu.Unlock()

	if prev == StateError {
		w.ui.SetState(StateIdle)
	}
	return true
}

func (w *Widget) finish() {
	w.mu.Lock()
	w.state = StateIdle
	w.mu.Unlock()
	w.ui.SetState(StateIdle)
}

func (w *Widget) fail() {
	w.mu.Lock()
	w.state = StateError
	if d := w.cfg.ErrorReset(); d > 0 {
		w.resetTimer = time.AfterFunc(d, w.Acknowledge)
	}
	w.mu.Unlock()
	w.ui.SetState(StateError)
}

// adoptRecipe makes r the owned recipe. When show is set the recipe panel is
// replaced with it.
func (w *Widget) adoptRecipe(ctx context.Context, r domain.Recipe, show bool) {
	w.mu.Lock()
	w.recipe = &r
	w.mu.Unlock()

	if show {
		w.renderer.ReplaceRecipePanel(render.MarkdownHTML(r.Markdown()))
	}
	w.emit(ctx, hooks.EventRecipeReplaced, map[string]any{"name": r.Name})
}

func (w *Widget) checkSaveTrigger(ctx context.Context, message string) {
	trigger := strings.ToLower(strings.TrimSpace(w.cfg.SaveTrigger))
	if trigger == "" || !strings.Contains(strings.ToLower(message), trigger) {
		return
	}
	if _, ok := w.Recipe(); !ok || w.recipes == nil {
		return
	}
	_, _ = w.SaveRecipe(ctx)
}

func (w *Widget) storeRecipe(r domain.Recipe, kind string) {
	if w.storage == nil {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		w.log.Warn().Err(err).Msg("failed to encode recipe")
		return
	}
	if err := w.storage.SetItem(KeyRecipeData, string(data)); err != nil {
		w.log.Warn().Err(err).Msg("failed to store recipe")
		return
	}
	if err := w.storage.SetItem(KeyRecipeType, kind); err != nil {
		w.log.Warn().Err(err).Msg("failed to store recipe type")
	}
}

func (w *Widget) loadStoredRecipe() (domain.Recipe, bool) {
	if w.storage == nil {
		return domain.Recipe{}, false
	}
	data, ok, err := w.storage.GetItem(KeyRecipeData)
	if err != nil {
		w.log.Warn().Err(err).Msg("failed to read stored recipe")
		return domain.Recipe{}, false
	}
	if !ok {
		return domain.Recipe{}, false
	}
	return domain.ParseRecipe(data)
}

func (w *Widget) emit(ctx context.Context, event string, data map[string]any) {
	w.hooks.Emit(ctx, hooks.Payload{Event: event, Page: w.page, Data: data})
}
