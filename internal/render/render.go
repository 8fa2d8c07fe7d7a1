// Package render turns reconciled chat output into display updates.
package render

// Sender identifies who authored a transcript entry.
type Sender string

const (
	SenderUser   Sender = "user"
	SenderBot    Sender = "bot"
	SenderSystem Sender = "system"
)

// Renderer receives display updates for one page view.
type Renderer interface {
	// AppendMessage adds a transcript entry. Markdown-flavored text is
	// converted to markup, anything else is inserted as plain text.
	AppendMessage(text string, sender Sender)
	// ReplaceRecipePanel swaps the whole recipe panel for the given markup.
	ReplaceRecipePanel(html string)
	// AppendSupplementaryOutput adds markup below earlier tool outputs.
	AppendSupplementaryOutput(html string)
}

// Multi fans every update out to each renderer in order.
type Multi []Renderer

func (m Multi) AppendMessage(text string, sender Sender) {
	for _, r := range m {
		r.AppendMessage(text, sender)
	}
}

func (m Multi) ReplaceRecipePanel(html string) {
	for _, r := range m {
		r.ReplaceRecipePanel(html)
	}
}

func (m Multi) AppendSupplementaryOutput(html string) {
	for _, r := range m {
		r.AppendSupplementaryOutput(html)
	}
}

// ClearTranscript forwards to every renderer that keeps a transcript.
func (m Multi) ClearTranscript() {
	for _, r := range m {
		if c, ok := r.(interface{ ClearTranscript() }); ok {
			c.ClearTranscript()
		}
	}
}
