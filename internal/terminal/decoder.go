package terminal

import (
	"strings"
	"unicode/utf8"
)

// EventKind classifies one raw input chunk.
type EventKind int

// Input event kinds.
const (
	Ignored EventKind = iota
	Char
	Submit
	Backspace
	Left
	Right
	Up
	Down
)

var kindNames = [...]string{
	Ignored:   "ignored",
	Char:      "char",
	Submit:    "submit",
	Backspace: "backspace",
	Left:      "left",
	Right:     "right",
	Up:        "up",
	Down:      "down",
}

func (k EventKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Event is a decoded input chunk. Text is set only for Char.
type Event struct {
	Kind EventKind
	Text string
}

const (
	keyEscape    = 0x1b
	keyCR        = '\r'
	keyLF        = '\n'
	keyDelete    = 0x7f
	printableMin = 0x20
)

var arrows = map[string]EventKind{
	"\x1b[A": Up,
	"\x1b[B": Down,
	"\x1b[C": Right,
	"\x1b[D": Left,
}

// Decode classifies a chunk as delivered by one input notification of the
// browser terminal. Every chunk maps to exactly one event.
func Decode(chunk string) Event {
	if chunk == "" {
		return Event{Kind: Ignored}
	}
	chunk = strings.ToValidUTF8(chunk, string(utf8.RuneError))
	first, _ := utf8.DecodeRuneInString(chunk)

	switch {
	case first == keyEscape:
		if len(chunk) >= 3 {
			if kind, ok := arrows[chunk[:3]]; ok {
				return Event{Kind: kind}
			}
		}
		return Event{Kind: Ignored}
	case first == keyCR || first == keyLF:
		return Event{Kind: Submit}
	case first == keyDelete:
		return Event{Kind: Backspace}
	case first >= printableMin:
		text := printable(chunk)
		if text == "" {
			return Event{Kind: Ignored}
		}
		return Event{Kind: Char, Text: text}
	default:
		return Event{Kind: Ignored}
	}
}

// printable drops control code points from a pasted chunk.
func printable(s string) string {
	return strings.Map(func(r rune) rune {
		if r < printableMin || r == keyDelete {
			return -1
		}
		return r
	}, s)
}
