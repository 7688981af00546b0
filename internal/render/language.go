package render

import (
	"path"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
)

// editorLanguages maps file extensions to editor language ids.
var editorLanguages = map[string]string{
	"js":   "javascript",
	"jsx":  "javascript",
	"ts":   "typescript",
	"tsx":  "typescript",
	"py":   "python",
	"html": "html",
	"css":  "css",
	"json": "json",
	"md":   "markdown",
	"yaml": "yaml",
	"yml":  "yaml",
	"xml":  "xml",
	"sql":  "sql",
	"sh":   "shell",
	"bash": "shell",
}

// Language returns the editor language id for a file path. Extensions
// outside the editor table fall back to the name of the chroma lexer
// that claims the file, and finally to "plaintext".
func Language(p string) string {
	base := path.Base(p)
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(base), "."))
	if lang, ok := editorLanguages[ext]; ok {
		return lang
	}
	if lexer := lexers.Match(base); lexer != nil {
		return strings.ToLower(lexer.Config().Name)
	}
	return "plaintext"
}
