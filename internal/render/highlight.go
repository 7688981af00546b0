package render

import (
	"bytes"
	"fmt"
	"path"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Styles used for the light and dark editor themes.
const (
	LightStyle = "github"
	DarkStyle  = "monokai"
)

// StyleFor returns the highlighting style name for an editor theme.
func StyleFor(theme string) string {
	if theme == "light" {
		return LightStyle
	}
	return DarkStyle
}

func lexerFor(p, source string) chroma.Lexer {
	lexer := lexers.Match(path.Base(p))
	if lexer == nil {
		lexer = lexers.Analyse(source)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return chroma.Coalesce(lexer)
}

// Highlight renders source as class-annotated HTML with line numbers.
func Highlight(p, source string) (string, error) {
	iterator, err := lexerFor(p, source).Tokenise(nil, source)
	if err != nil {
		return "", fmt.Errorf("tokenise %s: %w", p, err)
	}

	formatter := chromahtml.New(chromahtml.WithClasses(true), chromahtml.WithLineNumbers(true))
	var buf bytes.Buffer
	if err := formatter.Format(&buf, styles.Fallback, iterator); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// CSS returns the stylesheet for the classes Highlight emits.
func CSS(style string) (string, error) {
	s := styles.Get(style)
	formatter := chromahtml.New(chromahtml.WithClasses(true), chromahtml.WithLineNumbers(true))
	var buf bytes.Buffer
	if err := formatter.WriteCSS(&buf, s); err != nil {
		return "", err
	}
	return buf.String(), nil
}
