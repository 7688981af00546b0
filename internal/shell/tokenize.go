package shell

import "strings"

// Fields splits a command line on unquoted whitespace. Single or double
// quotes group words and are removed; an unterminated quote runs to the end
// of the line.
func Fields(line string) []string {
	var (
		fields []string
		cur    strings.Builder
		inWord bool
		quote  rune
		flush  = func() {
			if inWord {
				fields = append(fields, cur.String())
				cur.Reset()
				inWord = false
			}
		}
	)

	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			cur.WriteRune(r)
		case r == '"' || r == '\'':
			quote = r
			inWord = true
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}
	flush()
	return fields
}
