// Package render turns workspace files into sanitized HTML previews and
// maps file names to editor languages.
package render

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
)

// Preview kinds.
const (
	KindMarkdown = "markdown"
	KindCode     = "code"
)

// TOCItem represents a table of contents entry
type TOCItem struct {
	Level  int    `json:"level"`
	Title  string `json:"title"`
	Anchor string `json:"anchor"`
}

// Preview is the rendered form of one file.
type Preview struct {
	Path     string    `json:"path"`
	Kind     string    `json:"kind"`
	Language string    `json:"language"`
	HTML     string    `json:"html"`
	TOC      []TOCItem `json:"toc,omitempty"`
	Title    string    `json:"title,omitempty"`
}

// Renderer builds previews. It is safe for concurrent use.
type Renderer struct {
	md       goldmark.Markdown
	policy   *bluemonday.Policy
	markdown func(path string) bool
}

// New creates a Renderer. isMarkdown decides which files render as
// markdown; nil means by Language.
func New(isMarkdown func(path string) bool) *Renderer {
	if isMarkdown == nil {
		isMarkdown = func(p string) bool { return Language(p) == "markdown" }
	}

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Typographer,
			highlighting.NewHighlighting(
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
			// Raw HTML passes through to the sanitizer.
			html.WithUnsafe(),
		),
	)

	return &Renderer{md: md, policy: newPolicy(), markdown: isMarkdown}
}

var classNames = regexp.MustCompile(`^[a-zA-Z0-9_\- ]+$`)

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(classNames).OnElements("span", "code", "pre", "div", "table", "tr", "td")
	p.AllowAttrs("id").Matching(bluemonday.Paragraph).OnElements("h1", "h2", "h3", "h4", "h5", "h6")
	p.AllowAttrs("type").Matching(regexp.MustCompile(`^checkbox$`)).OnElements("input")
	p.AllowAttrs("checked", "disabled").OnElements("input")
	return p
}

// Render returns the preview of the file at path with the given content.
func (r *Renderer) Render(path, content string) (*Preview, error) {
	out := &Preview{Path: path, Language: Language(path)}

	if !r.markdown(path) {
		code, err := Highlight(path, content)
		if err != nil {
			return nil, err
		}
		out.Kind = KindCode
		out.HTML = r.policy.Sanitize(code)
		return out, nil
	}

	source := []byte(content)
	doc := r.md.Parser().Parse(text.NewReader(source))
	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, source, doc); err != nil {
		return nil, err
	}

	out.Kind = KindMarkdown
	out.HTML = r.policy.Sanitize(buf.String())
	out.TOC = extractTOC(doc, source)
	if len(out.TOC) > 0 {
		out.Title = out.TOC[0].Title
	}
	return out, nil
}

// extractTOC walks the AST to extract headings
func extractTOC(doc ast.Node, source []byte) []TOCItem {
	var toc []TOCItem
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if heading, ok := n.(*ast.Heading); ok {
			title := headingText(heading, source)
			toc = append(toc, TOCItem{
				Level:  heading.Level,
				Title:  title,
				Anchor: anchor(title),
			})
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return toc
}

func headingText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := c.(*ast.Text); ok && entering {
			buf.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

var (
	anchorStrip  = regexp.MustCompile(`[^a-z0-9\-\p{Han}\p{Hiragana}\p{Katakana}]`)
	anchorDashes = regexp.MustCompile(`-+`)
)

// anchor creates a URL-safe fragment from heading text.
func anchor(title string) string {
	a := strings.ReplaceAll(strings.ToLower(title), " ", "-")
	a = anchorStrip.ReplaceAllString(a, "")
	a = anchorDashes.ReplaceAllString(a, "-")
	return strings.Trim(a, "-")
}
