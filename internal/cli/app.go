package cli

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/soyeahso/bakebot/internal/config"
	"github.com/soyeahso/bakebot/internal/hooks"
	"github.com/soyeahso/bakebot/internal/render"
	"github.com/soyeahso/bakebot/internal/store"
	"github.com/soyeahso/bakebot/internal/widget"
)

// defaultPage is the page key terminal commands share, so a conversation
// started with "chat" can be continued with "message send".
const defaultPage = "cli"

// app holds what every widget-driving command needs.
type app struct {
	cfg   config.Config
	db    *store.DB
	hooks *hooks.Manager
}

// loadConfig loads and validates the config file.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return cfg, err
	}
	if issues := config.Validate(&cfg); len(issues) > 0 {
		for _, issue := range issues {
			log.Error().Str("path", issue.Path).Msg(issue.Message)
		}
		return cfg, fmt.Errorf("config validation failed with %d issue(s)", len(issues))
	}
	return cfg, nil
}

// openApp loads config and opens the store it names.
func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	dbPath := paths.DatabasePath(cfg.Store)
	if cfg.Store.Driver == "memory" {
		dbPath = store.MemoryPath
	}
	db, err := store.Open(dbPath, log)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	log.Debug().Str("path", dbPath).Msg("store opened")

	return &app{cfg: cfg, db: db, hooks: hooks.NewManager(log)}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// openPage opens a page view that renders to out and reports notices to
// errOut. One-shot commands pass greet=false, which also keeps the restored
// recipe panel off the terminal.
func (a *app) openPage(ctx context.Context, page string, greet bool, out, errOut io.Writer) (*widget.Widget, error) {
	if page == "" {
		page = defaultPage
	}
	gate := &openGate{Renderer: render.NewConsole(out, a.cfg.Widget.BotName)}
	gate.open.Store(greet)

	w, err := widget.NewFactory(a.cfg, a.db, a.hooks, log).Open(ctx, widget.PageOptions{
		Page:     page,
		Origin:   "cli",
		Renderer: gate,
		UI:       &consoleUI{w: errOut},
	})
	if err != nil {
		return nil, err
	}
	gate.open.Store(true)
	return w, nil
}

// openGate drops display updates until the page has opened.
type openGate struct {
	render.Renderer
	open atomic.Bool
}

func (g *openGate) AppendMessage(text string, sender render.Sender) {
	if g.open.Load() {
		g.Renderer.AppendMessage(text, sender)
	}
}

func (g *openGate) ReplaceRecipePanel(html string) {
	if g.open.Load() {
		g.Renderer.ReplaceRecipePanel(html)
	}
}

func (g *openGate) AppendSupplementaryOutput(html string) {
	if g.open.Load() {
		g.Renderer.AppendSupplementaryOutput(html)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// consoleUI prints notices for a terminal page view. A terminal has no send
// button or spinner, so only notices are shown.
type consoleUI struct {
	w io.Writer
}

func (u *consoleUI) SetState(s widget.State) {
	log.Debug().Str("state", string(s)).Msg("page state")
}

func (u *consoleUI) SetSendEnabled(bool) {}

func (u *consoleUI) Notify(kind widget.NoticeKind, message string) {
	fmt.Fprintf(u.w, "[%s] %s\n", kind, message)
}
