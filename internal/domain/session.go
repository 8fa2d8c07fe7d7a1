package domain

import "maps"

// Session is the conversation identity of one page view. Empty ids mean the
// backend has not assigned them yet.
type Session struct {
	SessionID string         `json:"sessionId"`
	ThreadID  string         `json:"threadId"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// HasIdentity reports whether the backend has assigned a session id.
func (s Session) HasIdentity() bool {
	return s.SessionID != ""
}

// Clone returns a copy whose metadata map is not shared with s.
func (s Session) Clone() Session {
	c := s
	if s.Metadata != nil {
		c.Metadata = maps.Clone(s.Metadata)
	}
	return c
}

// SessionUpdate is a partial session. Nil fields are left untouched.
type SessionUpdate struct {
	SessionID *string
	ThreadID  *string
	Metadata  map[string]any
}

// IdentityUpdate builds an update from the ids echoed by the backend.
func IdentityUpdate(sessionID, threadID string) SessionUpdate {
	return SessionUpdate{SessionID: &sessionID, ThreadID: &threadID}
}

// SessionKey identifies the page view a bridged chat is mapped onto.
type SessionKey struct {
	ChannelID string `json:"channelId"`
	ChatID    string `json:"chatId"`
	SenderID  string `json:"senderId,omitempty"`
}

// String returns a canonical string form of the key, used as the page id.
func (k SessionKey) String() string {
	s := k.ChannelID + ":" + k.ChatID
	if k.SenderID != "" {
		s += ":" + k.SenderID
	}
	return s
}
