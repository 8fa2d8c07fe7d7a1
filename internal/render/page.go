package render

import (
	"fmt"
	"html"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// Region selectors of the page model.
const (
	TranscriptSelector    = "#chatMessageContainer"
	RecipeSelector        = "#recipeContent"
	SupplementarySelector = "#toolOutputs"
)

const pageSkeleton = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>%s</title></head>
<body>
<div id="recipeContent"></div>
<div id="toolOutputs"></div>
<div id="chatMessageContainer"></div>
</body></html>`

// Message is one transcript entry read back from a Page.
type Message struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
	HTML   string `json:"html"`
}

// Page is an in-memory DOM of one widget page view.
type Page struct {
	botName string

	mu  sync.Mutex
	doc *goquery.Document
}

// NewPage creates an empty page. botName labels bot transcript entries.
func NewPage(botName string) *Page {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fmt.Sprintf(pageSkeleton, html.EscapeString(botName))))
	if err != nil {
		panic(fmt.Sprintf("render: parse page skeleton: %v", err))
	}
	return &Page{botName: botName, doc: doc}
}

func (p *Page) AppendMessage(text string, sender Sender) {
	p.mu.Lock()
	defer p.mu.Unlock()

	container := p.doc.Find(TranscriptSelector)
	container.AppendHtml(`<div class="message"><span class="sender"></span><div class="content"></div></div>`)
	msg := container.Children().Last()
	msg.AddClass(string(sender))
	msg.SetAttr("data-sender", string(sender))
	msg.Find(".sender").SetText(p.label(sender))

	content := msg.Find(".content")
	if IsMarkdown(text) {
		content.SetHtml(Markup(text))
	} else {
		content.SetText(text)
	}
}

func (p *Page) ReplaceRecipePanel(html string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc.Find(RecipeSelector).SetHtml(html)
}

func (p *Page) AppendSupplementaryOutput(html string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	panel := p.doc.Find(SupplementarySelector)
	panel.AppendHtml(`<div class="tool-output"></div>`)
	panel.Children().Last().SetHtml(html)
}

// Messages returns the transcript in display order.
func (p *Page) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []Message
	p.doc.Find(TranscriptSelector + " > .message").Each(func(_ int, s *goquery.Selection) {
		content := s.Find(".content")
		inner, _ := content.Html()
		out = append(out, Message{
			Sender: Sender(s.AttrOr("data-sender", "")),
			Text:   strings.TrimSpace(content.Text()),
			HTML:   inner,
		})
	})
	return out
}

// RecipeHTML returns the current recipe panel markup.
func (p *Page) RecipeHTML() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, _ := p.doc.Find(RecipeSelector).Html()
	return h
}

// SupplementaryHTML returns the markup of each supplementary output in order.
func (p *Page) SupplementaryHTML() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []string
	p.doc.Find(SupplementarySelector + " > .tool-output").Each(func(_ int, s *goquery.Selection) {
		h, _ := s.Html()
		out = append(out, h)
	})
	return out
}

// ClearTranscript removes every transcript entry.
func (p *Page) ClearTranscript() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc.Find(TranscriptSelector).Empty()
}

// HTML serializes the whole page.
func (p *Page) HTML() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return goquery.OuterHtml(p.doc.Selection)
}

func (p *Page) label(sender Sender) string {
	switch sender {
	case SenderBot:
		return p.botName
	case SenderUser:
		return "You"
	}
	return string(sender)
}
