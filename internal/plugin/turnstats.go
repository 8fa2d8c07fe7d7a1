package plugin

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/soyeahso/bakebot/internal/hooks"
	"github.com/soyeahso/bakebot/internal/version"
)

// TurnStatsID is the ID of the built-in turn statistics plugin.
const TurnStatsID = "turn-stats"

var turnStatsEvents = []string{
	hooks.EventPageOpened,
	hooks.EventPageClosed,
	hooks.EventTurnStarted,
	hooks.EventTurnCompleted,
	hooks.EventTurnFailed,
	hooks.EventRecipeReplaced,
	hooks.EventRecipeSaved,
	hooks.EventSessionCleared,
	hooks.EventMessageReceived,
}

// TurnStats counts widget turns by outcome and action.
type TurnStats struct {
	mu       sync.Mutex
	hooks    *hooks.Manager
	now      func() time.Time
	counts   map[string]int
	actions  map[string]int
	open     int
	lastErr  string
	lastTurn time.Time
}

// TurnStatsReport is the snapshot returned by Report.
type TurnStatsReport struct {
	OpenPages       int            `json:"openPages"`
	TurnsStarted    int            `json:"turnsStarted"`
	TurnsCompleted  int            `json:"turnsCompleted"`
	TurnsFailed     int            `json:"turnsFailed"`
	RecipesReplaced int            `json:"recipesReplaced"`
	RecipesSaved    int            `json:"recipesSaved"`
	SessionsCleared int            `json:"sessionsCleared"`
	BridgeMessages  int            `json:"bridgeMessages"`
	Actions         map[string]int `json:"actions,omitempty"`
	LastError       string         `json:"lastError,omitempty"`
	LastTurnAt      *time.Time     `json:"lastTurnAt,omitempty"`
}

// NewTurnStats creates the turn statistics plugin.
func NewTurnStats() *TurnStats {
	return &TurnStats{
		now:     time.Now,
		counts:  make(map[string]int),
		actions: make(map[string]int),
	}
}

func (p *TurnStats) ID() string      { return TurnStatsID }
func (p *TurnStats) Name() string    { return "Turn statistics" }
func (p *TurnStats) Version() string { return version.Version }

func (p *TurnStats) Init(_ context.Context, api API) error {
	p.hooks = api.Hooks
	for _, event := range turnStatsEvents {
		api.Hooks.On(event, TurnStatsID, p.observe)
	}
	return nil
}

func (p *TurnStats) Close() error {
	if p.hooks == nil {
		return nil
	}
	for _, event := range turnStatsEvents {
		p.hooks.Off(event, TurnStatsID)
	}
	return nil
}

func (p *TurnStats) observe(_ context.Context, payload hooks.Payload) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.counts[payload.Event]++
	switch payload.Event {
	case hooks.EventPageOpened:
		p.open++
	case hooks.EventPageClosed:
		if p.open > 0 {
			p.open--
		}
	case hooks.EventTurnStarted:
		if action, ok := payload.Data["action"].(string); ok {
			p.actions[action]++
		}
		p.lastTurn = p.now()
	case hooks.EventTurnFailed:
		if msg, ok := payload.Data["error"].(string); ok {
			p.lastErr = msg
		}
	}
	return nil
}

// Report returns a snapshot of the counters.
func (p *TurnStats) Report() any {
	p.mu.Lock()
	defer p.mu.Unlock()

	rep := TurnStatsReport{
		OpenPages:       p.open,
		TurnsStarted:    p.counts[hooks.EventTurnStarted],
		TurnsCompleted:  p.counts[hooks.EventTurnCompleted],
		TurnsFailed:     p.counts[hooks.EventTurnFailed],
		RecipesReplaced: p.counts[hooks.EventRecipeReplaced],
		RecipesSaved:    p.counts[hooks.EventRecipeSaved],
		SessionsCleared: p.counts[hooks.EventSessionCleared],
		BridgeMessages:  p.counts[hooks.EventMessageReceived],
		LastError:       p.lastErr,
	}
	if len(p.actions) > 0 {
		rep.Actions = maps.Clone(p.actions)
	}
	if !p.lastTurn.IsZero() {
		at := p.lastTurn
		rep.LastTurnAt = &at
	}
	return rep
}
