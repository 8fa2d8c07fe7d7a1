package render

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Raw HTML in model output is dropped and unsafe link schemes are filtered
// because the renderer is not configured with html.WithUnsafe.
var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

var blockMarker = regexp.MustCompile(`(?m)^\s{0,3}(#{1,6}\s|[-*+]\s|\d{1,3}[.)]\s)`)

// IsMarkdown reports whether text looks markdown-flavored: bold markers,
// headings or list items.
func IsMarkdown(text string) bool {
	return strings.Contains(text, "**") || blockMarker.MatchString(text)
}

// Markup converts text to safe display markup.
func Markup(text string) string {
	if !IsMarkdown(text) {
		return PlainHTML(text)
	}
	return MarkdownHTML(text)
}

// MarkdownHTML always runs text through the markdown converter. Tool outputs
// use it regardless of how they look.
func MarkdownHTML(text string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return PlainHTML(text)
	}
	return strings.TrimSpace(buf.String())
}

// PlainHTML escapes text and keeps its line breaks.
func PlainHTML(text string) string {
	escaped := html.EscapeString(strings.TrimSpace(text))
	return strings.ReplaceAll(escaped, "\n", "<br>")
}
