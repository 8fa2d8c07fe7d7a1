package routing

import (
	"context"
	"strings"

	"github.com/soyeahso/bakebot/internal/domain"
	"github.com/soyeahso/bakebot/internal/logging"
	"github.com/soyeahso/bakebot/internal/render"
	"github.com/soyeahso/bakebot/internal/widget"
)

// channelReply renders a bridged page view as chat lines. It serves as both
// the widget's renderer and its UI; a chat network has no send button, so
// state changes are only logged.
type channelReply struct {
	ctx    context.Context
	ch     domain.Channel
	to     string
	prefix string // addressee, set in shared rooms
	log    *logging.Logger
}

func (c *channelReply) AppendMessage(text string, sender render.Sender) {
	if sender == render.SenderUser {
		return
	}
	if render.IsMarkdown(text) {
		text = render.TextFromHTML(render.Markup(text))
	}
	c.send(text)
}

func (c *channelReply) ReplaceRecipePanel(html string) {
	c.send(render.TextFromHTML(html))
}

func (c *channelReply) AppendSupplementaryOutput(html string) {
	c.send(render.TextFromHTML(html))
}

func (c *channelReply) SetState(s widget.State) {
	c.log.Debug().Str("to", c.to).Str("state", string(s)).Msg("page state")
}

func (c *channelReply) SetSendEnabled(bool) {}

func (c *channelReply) Notify(kind widget.NoticeKind, message string) {
	if kind == widget.NoticeError {
		message = "error: " + message
	}
	c.send(message)
}

func (c *channelReply) send(body string) {
	body = strings.TrimSpace(body)
	if body == "" {
		return
	}
	err := c.ch.Send(c.ctx, domain.OutboundMessage{
		ChannelID: c.ch.ID(),
		To:        c.to,
		Body:      c.prefix + body,
	})
	if err != nil {
		c.log.Error().Err(err).Str("channel", c.ch.ID()).Str("to", c.to).Msg("failed to send reply")
	}
}
