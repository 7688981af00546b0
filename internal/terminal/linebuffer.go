package terminal

// LineBuffer holds the command line being edited. Text and cursor are in
// code points, so the cursor never lands inside a multi-byte glyph.
type LineBuffer struct {
	text   []rune
	cursor int
}

// String returns the buffered text.
func (b *LineBuffer) String() string {
	return string(b.text)
}

// Cursor returns the cursor offset in code points.
func (b *LineBuffer) Cursor() int {
	return b.cursor
}

// Len returns the number of code points in the buffer.
func (b *LineBuffer) Len() int {
	return len(b.text)
}

// InsertAt splices s into the buffer at cursor and leaves the cursor just
// after the inserted text. An out-of-range cursor is clamped first.
func (b *LineBuffer) InsertAt(cursor int, s string) {
	cursor = b.clamp(cursor)
	ins := []rune(s)
	text := make([]rune, 0, len(b.text)+len(ins))
	text = append(text, b.text[:cursor]...)
	text = append(text, ins...)
	text = append(text, b.text[cursor:]...)
	b.text = text
	b.cursor = cursor + len(ins)
}

// DeleteBefore removes the code point immediately before cursor and
// returns it. It is a no-op returning false at the start of the line.
func (b *LineBuffer) DeleteBefore(cursor int) (rune, bool) {
	cursor = b.clamp(cursor)
	if cursor == 0 {
		return 0, false
	}
	r := b.text[cursor-1]
	b.text = append(b.text[:cursor-1], b.text[cursor:]...)
	b.cursor = cursor - 1
	return r, true
}

// MoveCursor shifts the cursor by delta, clamped to the line.
func (b *LineBuffer) MoveCursor(delta int) {
	b.cursor = b.clamp(b.cursor + delta)
}

// Replace swaps in text and puts the cursor at its end.
func (b *LineBuffer) Replace(text string) {
	b.text = []rune(text)
	b.cursor = len(b.text)
}

// Reset empties the buffer.
func (b *LineBuffer) Reset() {
	b.text = nil
	b.cursor = 0
}

// Before returns the text left of the cursor.
func (b *LineBuffer) Before() string {
	return string(b.text[:b.cursor])
}

// After returns the text from the cursor to the end of the line.
func (b *LineBuffer) After() string {
	return string(b.text[b.cursor:])
}

// At returns the code point at index i.
func (b *LineBuffer) At(i int) rune {
	return b.text[i]
}

func (b *LineBuffer) clamp(c int) int {
	if c < 0 {
		return 0
	}
	if c > len(b.text) {
		return len(b.text)
	}
	return c
}
