package terminal

import (
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

// Op is a primitive rendering operation understood by the browser terminal.
type Op string

// Rendering operations.
const (
	OpWrite     Op = "writeText"
	OpMove      Op = "moveCursor"
	OpEraseLine Op = "eraseToLineEnd"
	OpClear     Op = "clearScreen"
	OpNewLine   Op = "newLine"
)

// Instruction is one rendering step. Text is used by OpWrite, N (cells,
// negative is left) by OpMove.
type Instruction struct {
	Op   Op     `json:"op"`
	Text string `json:"text,omitempty"`
	N    int    `json:"n,omitempty"`
}

// WriteText renders s at the cursor.
func WriteText(s string) Instruction { return Instruction{Op: OpWrite, Text: s} }

// MoveCursor moves the cursor dx cells along the line.
func MoveCursor(dx int) Instruction { return Instruction{Op: OpMove, N: dx} }

// EraseToLineEnd blanks from the cursor to the end of the line.
func EraseToLineEnd() Instruction { return Instruction{Op: OpEraseLine} }

// ClearScreen blanks the visible surface and homes the cursor.
func ClearScreen() Instruction { return Instruction{Op: OpClear} }

// NewLine moves to the start of the next line.
func NewLine() Instruction { return Instruction{Op: OpNewLine} }

// Screen consumes rendering instructions in emission order.
type Screen interface {
	Render(batch []Instruction)
}

// ScreenFunc adapts a function to Screen.
type ScreenFunc func(batch []Instruction)

// Render calls f.
func (f ScreenFunc) Render(batch []Instruction) { f(batch) }

// EncodeANSI converts instructions to the escape sequences an xterm
// compatible widget expects. Line feeds inside text become CR LF.
func EncodeANSI(batch []Instruction) string {
	var b strings.Builder
	for _, in := range batch {
		switch in.Op {
		case OpWrite:
			b.WriteString(strings.ReplaceAll(strings.ReplaceAll(in.Text, "\r\n", "\n"), "\n", "\r\n"))
		case OpMove:
			switch {
			case in.N < 0:
				b.WriteString("\x1b[" + strconv.Itoa(-in.N) + "D")
			case in.N > 0:
				b.WriteString("\x1b[" + strconv.Itoa(in.N) + "C")
			}
		case OpEraseLine:
			b.WriteString("\x1b[K")
		case OpClear:
			b.WriteString("\x1b[2J\x1b[H")
		case OpNewLine:
			b.WriteString("\r\n")
		}
	}
	return b.String()
}

// width returns the number of terminal cells s occupies.
func width(s string) int {
	return runewidth.StringWidth(s)
}

func runeWidth(r rune) int {
	return runewidth.RuneWidth(r)
}

// Styles colours the prompt and error lines.
type Styles struct {
	user  *color.Color
	path  *color.Color
	err   *color.Color
	greet *color.Color
}

// NewStyles returns the default palette. Colour is forced on because the
// output goes to a browser terminal, not to our own stdout.
func NewStyles() *Styles {
	s := &Styles{
		user:  color.New(color.FgMagenta),
		path:  color.New(color.FgCyan),
		err:   color.New(color.FgRed),
		greet: color.New(color.FgGreen),
	}
	for _, c := range []*color.Color{s.user, s.path, s.err, s.greet} {
		c.EnableColor()
	}
	return s
}

// Prompt renders "user:dir$ ".
func (s *Styles) Prompt(user, dir string) string {
	return s.user.Sprint(user) + ":" + s.path.Sprint(dir) + "$ "
}

// Error renders an error message.
func (s *Styles) Error(msg string) string {
	return s.err.Sprint("Error: " + msg)
}

// Greeting renders the welcome line.
func (s *Styles) Greeting(msg string) string {
	return s.greet.Sprint(msg)
}
