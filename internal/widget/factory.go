package widget

import (
	"context"

	"github.com/google/uuid"
	"github.com/soyeahso/bakebot/internal/config"
	"github.com/soyeahso/bakebot/internal/hooks"
	"github.com/soyeahso/bakebot/internal/logging"
	"github.com/soyeahso/bakebot/internal/render"
	"github.com/soyeahso/bakebot/internal/store"
	"github.com/soyeahso/bakebot/internal/transport"
)

// PageOptions describes a page view to open.
type PageOptions struct {
	Page     string // page key, generated when empty
	Origin   string // local storage scope
	Renderer render.Renderer
	UI       UI
}

// Factory opens widgets that share config, persistence and hooks. Each widget
// gets its own transport so single-flight is per page view.
type Factory struct {
	cfg   config.Config
	db    *store.DB
	hooks *hooks.Manager
	log   *logging.Logger
}

// NewFactory creates a Factory. db may be nil to run without persistence.
func NewFactory(cfg config.Config, db *store.DB, hm *hooks.Manager, log *logging.Logger) *Factory {
	return &Factory{cfg: cfg, db: db, hooks: hm, log: log}
}

// Hooks returns the hook manager widgets emit to. It may be nil.
func (f *Factory) Hooks() *hooks.Manager { return f.hooks }

// Config returns the configuration widgets are created with.
func (f *Factory) Config() config.Config { return f.cfg }

// Open creates a widget for a page view and runs its Open step.
func (f *Factory) Open(ctx context.Context, po PageOptions) (*Widget, error) {
	if po.Page == "" {
		po.Page = uuid.New().String()
	}
	if po.Origin == "" {
		po.Origin = "default"
	}

	opts := Options{
		Page:     po.Page,
		Config:   f.cfg.Widget,
		Backend:  transport.New(f.cfg.Backend, f.log),
		Renderer: po.Renderer,
		UI:       po.UI,
		Hooks:    f.hooks,
		Log:      f.log,
	}
	if f.db != nil {
		opts.Persister = store.NewSessionStore(f.db)
		opts.Storage = store.NewLocalStorage(f.db, po.Origin)
		opts.Recipes = store.NewRecipeStore(f.db)
		opts.Renderer = render.Multi{po.Renderer, store.NewTranscript(f.db, po.Page)}
	}

	w := New(opts)
	if err := w.Open(ctx); err != nil {
		return nil, err
	}
	return w, nil
}
