package domain

import (
	"fmt"
	"strings"
)

// Mode selects which backend action a turn is dispatched to.
type Mode string

const (
	ModeAskQuestion  Mode = "ask_question"
	ModeModifyRecipe Mode = "modify_recipe"
	ModeGetPairings  Mode = "get_pairings"
	ModeUploadRecipe Mode = "upload_recipe"
	ModeGenericChat  Mode = "generic_chat"
)

// AllModes lists every mode in menu order.
var AllModes = []Mode{ModeAskQuestion, ModeModifyRecipe, ModeGetPairings, ModeUploadRecipe, ModeGenericChat}

// ParseMode accepts a mode name, ignoring case and treating dashes and spaces
// as underscores.
func ParseMode(s string) (Mode, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	switch norm {
	case "", "chat", string(ModeGenericChat):
		return ModeGenericChat, nil
	case "ask", "question", string(ModeAskQuestion):
		return ModeAskQuestion, nil
	case "modify", string(ModeModifyRecipe):
		return ModeModifyRecipe, nil
	case "pairings", "pairing", string(ModeGetPairings):
		return ModeGetPairings, nil
	case "upload", string(ModeUploadRecipe):
		return ModeUploadRecipe, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// IsChat reports whether the mode goes through the conversational chat
// endpoint, which always echoes session and thread ids.
func (m Mode) IsChat() bool {
	return m == ModeAskQuestion || m == ModeGenericChat || m == ModeUploadRecipe
}

// Turn is one user-initiated send.
type Turn struct {
	Mode        Mode
	UserText    string
	Attachments []Attachment
	Recipe      *Recipe // UploadRecipe only
}
