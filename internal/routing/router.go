// Package routing bridges chat networks onto widget page views. Every
// session key gets its own widget, so each user or room carries its own
// backend session.
package routing

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/soyeahso/bakebot/internal/channel"
	"github.com/soyeahso/bakebot/internal/domain"
	"github.com/soyeahso/bakebot/internal/hooks"
	"github.com/soyeahso/bakebot/internal/logging"
	"github.com/soyeahso/bakebot/internal/widget"
)

// CommandPrefix starts a bridge command such as "!save".
const CommandPrefix = "!"

const helpText = "Commands: !ask <question>, !modify <change>, !pairings [notes], " +
	"!create [servings] <dish>, !recipe <recipe text>, !submit, !save, !clear, " +
	"!style <chef style>, !help. " +
	"Anything else is chat."

// Router routes inbound chat messages to the page view of their session key.
type Router struct {
	channels  *channel.Registry
	factory   *widget.Factory
	scope     string // "per-sender" | "global"
	chefStyle string
	log       *logging.Logger

	mu    sync.Mutex
	pages map[string]*bridgedPage
}

type bridgedPage struct {
	widget *widget.Widget
	reply  *channelReply
}

// NewRouter creates a message router. chefStyle, when set, is applied to
// every page view the router opens.
func NewRouter(channels *channel.Registry, factory *widget.Factory, scope, chefStyle string, log *logging.Logger) *Router {
	if scope == "" {
		scope = "per-sender"
	}
	return &Router{
		channels:  channels,
		factory:   factory,
		scope:     scope,
		chefStyle: chefStyle,
		log:       log.Sub("routing"),
		pages:     make(map[string]*bridgedPage),
	}
}

// HandleInbound runs one inbound message as a turn of its page view. Replies
// and notifications go back through the originating channel.
func (r *Router) HandleInbound(ctx context.Context, msg domain.InboundMessage) {
	r.log.Info().
		Str("channel", msg.ChannelID).
		Str("from", msg.From).
		Str("chatId", msg.ChatID).
		Str("chatType", string(msg.ChatType)).
		Msg("routing inbound message")

	// observers must not hold up the turn
	r.factory.Hooks().EmitAsync(ctx, hooks.Payload{
		Event: hooks.EventMessageReceived,
		Page:  ResolveSessionKey(msg, r.scope).String(),
		Data:  map[string]any{"channel": msg.ChannelID, "from": msg.From, "chatType": string(msg.ChatType)},
	})

	p, err := r.page(ctx, msg)
	if err != nil {
		r.log.Error().Err(err).Str("channel", msg.ChannelID).Str("from", msg.From).Msg("failed to open page")
		return
	}

	if err := r.run(ctx, p, msg.Body); err != nil {
		r.log.Warn().Err(err).Str("page", p.widget.Page()).Msg("turn failed")
	}
	// chat users have nothing to dismiss, so errors clear at once
	p.widget.Acknowledge()
}

func (r *Router) run(ctx context.Context, p *bridgedPage, body string) error {
	w := p.widget
	name, arg := parseCommand(body)
	switch name {
	case "":
		_, err := w.Ask(ctx, domain.ModeGenericChat, arg)
		return err
	case "ask":
		_, err := w.Ask(ctx, domain.ModeAskQuestion, arg)
		return err
	case "modify":
		_, err := w.Ask(ctx, domain.ModeModifyRecipe, arg)
		return err
	case "pairings":
		_, err := w.Ask(ctx, domain.ModeGetPairings, arg)
		return err
	case "create":
		servings, dish := splitServings(arg)
		_, err := w.CreateRecipe(ctx, dish, servings)
		return err
	case "recipe":
		_, err := w.UploadText(ctx, arg)
		return err
	case "submit":
		_, err := w.SubmitRecipe(ctx, nil)
		return err
	case "save":
		_, err := w.SaveRecipe(ctx)
		return err
	case "clear":
		return w.ClearHistory(ctx)
	case "style":
		if arg != "" {
			w.SetChefStyle(arg)
		}
		p.reply.send("Chef style: " + w.ChefStyle().Label())
	default:
		p.reply.send(helpText)
	}
	return nil
}

// parseCommand splits "!name rest" into its parts. Plain chat returns an
// empty name and the whole body.
func parseCommand(body string) (name, arg string) {
	body = strings.TrimSpace(body)
	rest, ok := strings.CutPrefix(body, CommandPrefix)
	if !ok || rest == "" {
		return "", body
	}
	name, arg, _ = strings.Cut(rest, " ")
	return strings.ToLower(name), strings.TrimSpace(arg)
}

// splitServings reads an optional leading serving count, as in
// "!create 4 vegan lasagna".
func splitServings(arg string) (int, string) {
	first, rest, _ := strings.Cut(arg, " ")
	if n, err := strconv.Atoi(first); err == nil && n > 0 {
		return n, strings.TrimSpace(rest)
	}
	return 0, arg
}

// page returns the widget for the message's session key, opening it on
// first use.
func (r *Router) page(ctx context.Context, msg domain.InboundMessage) (*bridgedPage, error) {
	key := ResolveSessionKey(msg, r.scope).String()

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.pages[key]; ok {
		return p, nil
	}

	ch, ok := r.channels.Get(msg.ChannelID)
	if !ok {
		return nil, fmt.Errorf("channel not found: %s", msg.ChannelID)
	}
	reply := &channelReply{
		ctx: context.WithoutCancel(ctx),
		ch:  ch,
		to:  replyTarget(msg),
		log: r.log,
	}
	if msg.ChatType == domain.ChatTypeGroup && r.scope != "global" {
		reply.prefix = msg.From + ": "
	}

	w, err := r.factory.Open(ctx, widget.PageOptions{
		Page:     key,
		Origin:   msg.ChannelID,
		Renderer: reply,
		UI:       reply,
	})
	if err != nil {
		return nil, err
	}
	if r.chefStyle != "" {
		w.SetChefStyle(r.chefStyle)
	}
	p := &bridgedPage{widget: w, reply: reply}
	r.pages[key] = p
	r.log.Debug().Str("page", key).Msg("opened bridged page")
	return p, nil
}

// Wire registers the router's HandleInbound as the message handler on all
// channels. Turns run on ctx.
func (r *Router) Wire(ctx context.Context) {
	for _, id := range r.channels.List() {
		ch, ok := r.channels.Get(id)
		if !ok {
			continue
		}
		ch.OnMessage(func(msg domain.InboundMessage) {
			go r.HandleInbound(ctx, msg)
		})
		r.log.Debug().Str("channel", id).Msg("wired message handler")
	}
}

// Close closes every open page view.
func (r *Router) Close(ctx context.Context) {
	r.mu.Lock()
	pages := r.pages
	r.pages = make(map[string]*bridgedPage)
	r.mu.Unlock()

	for _, p := range pages {
		p.widget.Close(ctx)
	}
}

// replyTarget determines where to send the response.
func replyTarget(msg domain.InboundMessage) string {
	if msg.ChatType == domain.ChatTypeDM {
		return msg.From
	}
	return msg.ChatID
}
