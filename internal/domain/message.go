package domain

import "time"

// ChatType classifies the conversation context of a bridged chat.
type ChatType string

const (
	ChatTypeDM    ChatType = "dm"
	ChatTypeGroup ChatType = "group"
)

// Attachment is a file sent with a turn, such as a photo of a recipe card.
type Attachment struct {
	Filename string `json:"filename"`
	MimeType string `json:"mimeType,omitempty"`
	Path     string `json:"path,omitempty"` // read from disk when Data is empty
	Data     []byte `json:"-"`
}

// InboundMessage is a message received from a chat bridge.
type InboundMessage struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channelId"`
	From      string    `json:"from"`
	ChatID    string    `json:"chatId"`
	ChatType  ChatType  `json:"chatType"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// OutboundMessage is a message to be sent via a chat bridge.
type OutboundMessage struct {
	ChannelID string `json:"channelId"`
	To        string `json:"to"`
	Body      string `json:"body"`
}
