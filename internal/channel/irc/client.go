// Package irc bridges the chef into IRC using the girc library. Each nick
// (or each room, in global scope) chats with its own page view.
package irc

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/lrstanley/girc"
	"github.com/soyeahso/bakebot/internal/config"
	"github.com/soyeahso/bakebot/internal/domain"
	"github.com/soyeahso/bakebot/internal/logging"
	"github.com/soyeahso/bakebot/internal/version"
)

// maxLineLen keeps a PRIVMSG with its prefix under the 512 byte limit.
const maxLineLen = 400

// Channel implements domain.Channel for IRC.
type Channel struct {
	cfg    config.IRCConfig
	client *girc.Client
	log    *logging.Logger

	mu      sync.RWMutex
	handler func(msg domain.InboundMessage)
	running bool
	lastErr string
}

// New creates an IRC channel from configuration.
func New(cfg config.IRCConfig, log *logging.Logger) *Channel {
	return &Channel{
		cfg: cfg,
		log: log.Sub("irc"),
	}
}

func (c *Channel) ID() string { return "irc" }

func (c *Channel) OnMessage(handler func(msg domain.InboundMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}

// Status returns the current runtime status.
func (c *Channel) Status() domain.ChannelStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.ChannelStatus{
		ChannelID: "irc",
		Connected: c.client != nil && c.client.IsConnected(),
		Running:   c.running,
		LastError: c.lastErr,
	}
}

func (c *Channel) gircConfig() girc.Config {
	port := c.cfg.Port
	if port == 0 {
		port = 6667
		if c.cfg.UseTLS {
			port = 6697
		}
	}

	gc := girc.Config{
		Server:  c.cfg.Server,
		Port:    port,
		Nick:    c.cfg.Nick,
		User:    c.cfg.Nick,
		Name:    "bakebot recipe chef",
		SSL:     c.cfg.UseTLS,
		Version: version.UserAgent(),
	}
	if c.cfg.UseTLS {
		gc.TLSConfig = &tls.Config{ServerName: c.cfg.Server}
	}
	if c.cfg.SASL && c.cfg.Password != "" {
		gc.SASL = &girc.SASLPlain{User: c.cfg.Nick, Pass: c.cfg.Password}
	} else if c.cfg.Password != "" {
		gc.ServerPass = c.cfg.Password
	}
	return gc
}

// Start connects to the IRC server and blocks until the connection ends or
// ctx is cancelled.
func (c *Channel) Start(ctx context.Context) error {
	gc := c.gircConfig()
	client := girc.New(gc)
	client.Handlers.Add(girc.CONNECTED, c.onConnected)
	client.Handlers.Add(girc.PRIVMSG, c.onPrivmsg)
	client.Handlers.Add(girc.DISCONNECTED, c.onDisconnected)

	c.mu.Lock()
	c.client = client
	c.running = true
	c.lastErr = ""
	c.mu.Unlock()

	c.log.Info().
		Str("server", gc.Server).
		Int("port", gc.Port).
		Str("nick", gc.Nick).
		Strs("channels", c.cfg.Channels).
		Bool("tls", gc.SSL).
		Msg("connecting to IRC")

	errCh := make(chan error, 1)
	go func() {
		errCh <- client.Connect()
	}()

	select {
	case err := <-errCh:
		c.mu.Lock()
		c.running = false
		if err != nil {
			c.lastErr = err.Error()
		}
		c.mu.Unlock()
		if err != nil {
			return fmt.Errorf("irc connect: %w", err)
		}
		return nil
	case <-ctx.Done():
		client.Close()
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		return ctx.Err()
	}
}

// Stop gracefully disconnects from the IRC server.
func (c *Channel) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil && c.client.IsConnected() {
		c.log.Info().Msg("disconnecting from IRC")
		c.client.Quit("kitchen closed")
	}
	c.running = false
	return nil
}

// Send delivers a message to an IRC channel or nick, one PRIVMSG per line.
func (c *Channel) Send(ctx context.Context, msg domain.OutboundMessage) error {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()

	if client == nil || !client.IsConnected() {
		return fmt.Errorf("irc: not connected")
	}
	if msg.To == "" {
		return fmt.Errorf("irc: no target specified")
	}

	lines := splitMessage(msg.Body, maxLineLen)
	for _, line := range lines {
		client.Cmd.Message(msg.To, line)
	}
	c.log.Debug().Str("to", msg.To).Int("lines", len(lines)).Msg("sent IRC message")
	return nil
}

func (c *Channel) onConnected(client *girc.Client, _ girc.Event) {
	c.log.Info().Str("nick", client.GetNick()).Msg("connected to IRC")
	for _, ch := range c.cfg.Channels {
		client.Cmd.Join(ch)
		c.log.Info().Str("channel", ch).Msg("joined channel")
	}
}

func (c *Channel) onDisconnected(_ *girc.Client, _ girc.Event) {
	c.log.Warn().Msg("disconnected from IRC")
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
}

func (c *Channel) onPrivmsg(client *girc.Client, e girc.Event) {
	if e.Source == nil || len(e.Params) == 0 {
		return
	}
	nick := client.GetNick()
	if strings.EqualFold(e.Source.Name, nick) {
		return
	}

	body := e.Last()
	if e.IsAction() {
		body = e.StripAction()
	}

	isOp := func(who, room string) bool {
		user := client.LookupUser(who)
		if user == nil {
			return false
		}
		perms, ok := user.Perms.Lookup(room)
		return ok && perms.IsAdmin()
	}

	msg, reason := c.inbound(nick, e.Source.Name, e.Params[0], body, e.IsFromChannel(), isOp)
	switch reason {
	case "":
		c.deliver(msg)
	case reasonNotOperator:
		client.Cmd.Message(e.Params[0], e.Source.Name+": only channel operators can talk to the chef here.")
		fallthrough
	default:
		c.log.Debug().Str("nick", e.Source.Name).Str("target", e.Params[0]).Str("reason", reason).Msg("ignoring message")
	}
}

const (
	reasonNotAddressed = "not addressed"
	reasonNotOwner     = "not owner"
	reasonNotOperator  = "not operator"
)

// inbound decides whether a PRIVMSG is for the chef and builds the message
// for it. Room messages must address the bot by nick; the address is
// stripped so commands still parse. A non-empty reason means the message
// is dropped.
func (c *Channel) inbound(nick, from, target, body string, fromRoom bool, isOp func(who, room string) bool) (domain.InboundMessage, string) {
	if c.cfg.Owner != "" && !strings.EqualFold(from, c.cfg.Owner) {
		return domain.InboundMessage{}, reasonNotOwner
	}

	msg := domain.InboundMessage{
		ID:        uuid.New().String(),
		ChannelID: "irc",
		From:      from,
		ChatID:    from,
		ChatType:  domain.ChatTypeDM,
		Body:      strings.TrimSpace(body),
		Timestamp: time.Now(),
	}
	if !fromRoom {
		return msg, ""
	}

	text, ok := addressed(body, nick)
	if !ok {
		return domain.InboundMessage{}, reasonNotAddressed
	}
	if c.cfg.OpOnly && !isOp(from, target) {
		return domain.InboundMessage{}, reasonNotOperator
	}
	msg.ChatID = target
	msg.ChatType = domain.ChatTypeGroup
	msg.Body = text
	return msg, ""
}

// addressed reports whether body starts with "nick:" or "nick," and returns
// the rest.
func addressed(body, nick string) (string, bool) {
	body = strings.TrimSpace(body)
	if len(body) <= len(nick) || !strings.EqualFold(body[:len(nick)], nick) {
		return "", false
	}
	switch body[len(nick)] {
	case ':', ',':
		return strings.TrimSpace(body[len(nick)+1:]), true
	}
	return "", false
}

func (c *Channel) deliver(msg domain.InboundMessage) {
	c.mu.RLock()
	handler := c.handler
	c.mu.RUnlock()

	if handler != nil {
		handler(msg)
	}
}

// splitMessage breaks a message into PRIVMSG-sized chunks. IRC has no
// embedded newlines, so every line is its own chunk; blank lines are kept
// as a single space so recipe sections stay apart.
func splitMessage(text string, maxLen int) []string {
	var chunks []string
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			chunks = append(chunks, " ")
			continue
		}
		for len(line) > maxLen {
			cut := strings.LastIndex(line[:maxLen], " ")
			if cut <= 0 {
				cut = maxLen
				for cut > 0 && !utf8.RuneStart(line[cut]) {
					cut--
				}
				if cut == 0 {
					_, cut = utf8.DecodeRuneInString(line)
				}
			}
			chunks = append(chunks, line[:cut])
			line = strings.TrimLeft(line[cut:], " ")
		}
		if line != "" {
			chunks = append(chunks, line)
		}
	}
	return chunks
}
