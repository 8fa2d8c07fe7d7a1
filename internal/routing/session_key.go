package routing

import "github.com/soyeahso/bakebot/internal/domain"

// ResolveSessionKey builds the page key a bridged message is handled under.
//
// Scopes:
//   - "per-sender": separate page view per user per chat (default)
//   - "global": one page view per chat, shared among all users
func ResolveSessionKey(msg domain.InboundMessage, scope string) domain.SessionKey {
	key := domain.SessionKey{
		ChannelID: msg.ChannelID,
		ChatID:    msg.ChatID,
	}
	if msg.ChatType == domain.ChatTypeDM {
		key.ChatID = msg.From
	}
	if scope != "global" {
		key.SenderID = msg.From
	}
	return key
}
