package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMarkdown(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Preheat the oven.", false},
		{"Use **cold** butter", true},
		{"## Pancakes\nMix well", true},
		{"Ingredients:\n- flour\n- milk", true},
		{"Steps:\n1. mix\n2. bake", true},
		{"3 eggs - beaten", false},
		{"#hashtag not a heading", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsMarkdown(tt.text), "text %q", tt.text)
	}
}

func TestMarkup_Markdown(t *testing.T) {
	out := Markup("## Pancakes\n\n- **2** eggs\n- 1 cup milk")
	assert.Contains(t, out, "<h2>Pancakes</h2>")
	assert.Contains(t, out, "<li><strong>2</strong> eggs</li>")
}

func TestMarkup_DropsRawHTML(t *testing.T) {
	out := Markup("**Tip:** <script>alert(1)</script> enjoy")
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "<strong>Tip:</strong>")
}

func TestMarkup_FiltersUnsafeLinks(t *testing.T) {
	out := Markup("**click** [here](javascript:alert(1))")
	assert.NotContains(t, out, "javascript:")
}

func TestMarkup_PlainTextIsEscaped(t *testing.T) {
	out := Markup("Use <b>less</b> salt & pepper\nthen serve")
	assert.Equal(t, "Use &lt;b&gt;less&lt;/b&gt; salt &amp; pepper<br>then serve", out)
}

func TestTextFromHTML(t *testing.T) {
	got := TextFromHTML("<h2>Pancakes</h2><ul><li>flour</li><li>milk</li></ul><p>Mix <strong>well</strong>.</p>")
	assert.Equal(t, "Pancakes\n- flour\n- milk\nMix well.", got)
	assert.Equal(t, "a\nb", TextFromHTML("a<br>b"))
	assert.Equal(t, "x < y", TextFromHTML("x &lt; y"))
}

func TestMarkdownHTML_AlwaysConverts(t *testing.T) {
	assert.Equal(t, "<p>Pair with a dry riesling.</p>", MarkdownHTML("Pair with a dry riesling."))
	assert.Equal(t, `<p><img src="https://img.example/cake.png" alt="cake"></p>`, MarkdownHTML("![cake](https://img.example/cake.png)"))
}
