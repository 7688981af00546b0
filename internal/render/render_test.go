package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLanguage(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/examples/hello.py", "python"},
		{"/my_project/app.js", "javascript"},
		{"/ui/App.tsx", "typescript"},
		{"/README.md", "markdown"},
		{"/conf/app.YML", "yaml"},
		{"/run.sh", "shell"},
		{"/q.sql", "sql"},
		{"/main.go", "go"},
		{"/notes", "plaintext"},
		{"/data.unknownext", "plaintext"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Language(tt.path), tt.path)
	}
}

func TestRender_Markdown(t *testing.T) {
	r := New(nil)
	p, err := r.Render("/README.md", "# Hello World\n\nThis is a *test*.\n\n## Next Step\n\n- [x] done\n")
	require.NoError(t, err)

	assert.Equal(t, KindMarkdown, p.Kind)
	assert.Equal(t, "markdown", p.Language)
	assert.Contains(t, p.HTML, "<em>test</em>")
	assert.Contains(t, p.HTML, `id="hello-world"`)
	assert.Contains(t, p.HTML, `type="checkbox"`)
	assert.Equal(t, "Hello World", p.Title)
	require.Len(t, p.TOC, 2)
	assert.Equal(t, TOCItem{Level: 2, Title: "Next Step", Anchor: "next-step"}, p.TOC[1])
}

func TestRender_SanitizesMarkdown(t *testing.T) {
	r := New(nil)
	p, err := r.Render("/x.md", "hi <script>alert(1)</script> <a href=\"javascript:alert(1)\">x</a> <img src=x onerror=alert(1)>")
	require.NoError(t, err)

	assert.NotContains(t, p.HTML, "<script")
	assert.NotContains(t, p.HTML, "javascript:")
	assert.NotContains(t, p.HTML, "onerror")
}

func TestRender_FencedCodeIsHighlighted(t *testing.T) {
	r := New(nil)
	p, err := r.Render("/x.md", "```python\nprint('hi')\n```\n")
	require.NoError(t, err)
	assert.Contains(t, p.HTML, `class="chroma"`)
}

func TestRender_Code(t *testing.T) {
	r := New(func(p string) bool { return strings.HasSuffix(p, ".md") })
	p, err := r.Render("/examples/hello.py", "def greet(name):\n    return f\"Hello, {name}!\"\n")
	require.NoError(t, err)

	assert.Equal(t, KindCode, p.Kind)
	assert.Equal(t, "python", p.Language)
	assert.Contains(t, p.HTML, `class="chroma"`)
	assert.Contains(t, p.HTML, "greet")
	assert.Empty(t, p.TOC)
}

func TestHighlight_UnknownFallsBack(t *testing.T) {
	out, err := Highlight("/notes", "just <words>")
	require.NoError(t, err)
	assert.Contains(t, out, "&lt;")
	assert.NotContains(t, out, "<words>")
}

func TestCSS(t *testing.T) {
	css, err := CSS(StyleFor("light"))
	require.NoError(t, err)
	assert.Contains(t, css, ".chroma")
	assert.Equal(t, DarkStyle, StyleFor("dark"))
}

func TestAnchor(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "hello-world"},
		{"Step 1: Install", "step-1-install"},
		{"  Spaced  Out  ", "spaced-out"},
		{"中文 标题", "中文-标题"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, anchor(tt.input), tt.input)
	}
}
