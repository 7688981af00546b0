package terminal

import "strings"

// live marks a History that is not browsing any entry.
const live = -1

// History is the list of submitted command lines for one session plus a
// navigation cursor into it.
type History struct {
	entries []string
	cursor  int
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{cursor: live}
}

// Record appends line unless it is blank and stops browsing.
func (h *History) Record(line string) {
	if strings.TrimSpace(line) != "" {
		h.entries = append(h.entries, line)
	}
	h.cursor = live
}

// Previous steps toward the oldest entry and returns it. It stays on the
// oldest entry once there. ok is false when the history is empty.
func (h *History) Previous() (line string, ok bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	switch {
	case h.cursor == live:
		h.cursor = len(h.entries) - 1
	case h.cursor > 0:
		h.cursor--
	}
	return h.entries[h.cursor], true
}

// Next steps toward the newest entry. Stepping past the newest entry
// returns to the live line and yields "". ok is false when not browsing.
func (h *History) Next() (line string, ok bool) {
	if h.cursor == live {
		return "", false
	}
	h.cursor++
	if h.cursor > len(h.entries)-1 {
		h.cursor = live
		return "", true
	}
	return h.entries[h.cursor], true
}

// Browsing reports whether an entry is currently selected.
func (h *History) Browsing() bool {
	return h.cursor != live
}

// Entries returns a copy of the recorded lines, oldest first.
func (h *History) Entries() []string {
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of recorded lines.
func (h *History) Len() int {
	return len(h.entries)
}
