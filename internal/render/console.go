package render

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Console renders to a terminal as plain text.
type Console struct {
	botName string

	mu sync.Mutex
	w  io.Writer
}

// NewConsole creates a Console writing to w.
func NewConsole(w io.Writer, botName string) *Console {
	return &Console{w: w, botName: botName}
}

func (c *Console) AppendMessage(text string, sender Sender) {
	if sender == SenderUser {
		return
	}
	if IsMarkdown(text) {
		text = TextFromHTML(Markup(text))
	}
	c.printf("%s: %s\n", c.label(sender), strings.TrimSpace(text))
}

func (c *Console) ReplaceRecipePanel(html string) {
	c.printf("\n=== recipe ===\n%s\n==============\n\n", TextFromHTML(html))
}

func (c *Console) AppendSupplementaryOutput(html string) {
	c.printf("\n--- more ---\n%s\n\n", TextFromHTML(html))
}

func (c *Console) label(sender Sender) string {
	if sender == SenderBot {
		return c.botName
	}
	return string(sender)
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, format, args...)
}
