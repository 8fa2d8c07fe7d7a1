package render

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var blockTags = map[string]bool{
	"p": true, "div": true, "ul": true, "ol": true, "li": true, "br": true, "hr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"pre": true, "blockquote": true, "table": true, "tr": true,
}

// TextFromHTML flattens markup into readable lines for terminals and chat
// networks. List items are prefixed with "- ".
func TextFromHTML(markup string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return markup
	}
	var b strings.Builder
	writeText(&b, doc.Find("body"))

	var lines []string
	for _, line := range strings.Split(b.String(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func writeText(b *strings.Builder, sel *goquery.Selection) {
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		node := s.Get(0)
		if node.Type == html.TextNode {
			b.WriteString(strings.ReplaceAll(node.Data, "\n", " "))
			return
		}
		if node.Type != html.ElementNode {
			return
		}
		name := goquery.NodeName(s)
		if blockTags[name] {
			b.WriteString("\n")
		}
		if name == "li" {
			b.WriteString("- ")
		}
		writeText(b, s)
		if blockTags[name] {
			b.WriteString("\n")
		}
	})
}
