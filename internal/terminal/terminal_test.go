package terminal

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineBuffer_InsertThenReverseMove(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		cursor int
		insert string
		want   string
	}{
		{"empty", "", 0, "ls", "ls"},
		{"append", "ls", 2, " -a", "ls -a"},
		{"middle", "ecno", 2, "h", "echno"},
		{"front", "world", 0, "hello ", "hello world"},
		{"multibyte", "héllo", 1, "日本", "h日本éllo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b LineBuffer
			b.Replace(tt.text)
			b.MoveCursor(tt.cursor - b.Cursor())
			require.Equal(t, tt.cursor, b.Cursor())

			b.InsertAt(b.Cursor(), tt.insert)
			b.MoveCursor(-utf8.RuneCountInString(tt.insert))

			assert.Equal(t, tt.cursor, b.Cursor())
			assert.Equal(t, tt.want, b.String())
		})
	}
}

func TestLineBuffer_DeleteBefore(t *testing.T) {
	var b LineBuffer
	b.Replace("añb")

	r, ok := b.DeleteBefore(2)
	require.True(t, ok)
	assert.Equal(t, 'ñ', r)
	assert.Equal(t, "ab", b.String())
	assert.Equal(t, 1, b.Cursor())

	b.MoveCursor(-5)
	assert.Equal(t, 0, b.Cursor())
	_, ok = b.DeleteBefore(0)
	assert.False(t, ok)
	assert.Equal(t, "ab", b.String())

	b.MoveCursor(99)
	assert.Equal(t, 2, b.Cursor())
	assert.Equal(t, "ab", b.Before())
	assert.Equal(t, "", b.After())
}

func TestHistory_PreviousClampsAtOldest(t *testing.T) {
	h := NewHistory()
	entries := []string{"ls", "pwd", "date"}
	for _, e := range entries {
		h.Record(e)
	}

	n := len(entries)
	for call := 1; call <= n+5; call++ {
		got, ok := h.Previous()
		require.True(t, ok)
		if call >= n {
			assert.Equal(t, "ls", got, "call %d", call)
		} else {
			assert.Equal(t, entries[n-call], got, "call %d", call)
		}
	}
}

func TestHistory_NextReturnsToLive(t *testing.T) {
	h := NewHistory()
	_, ok := h.Next()
	assert.False(t, ok, "next while live is a no-op")
	_, ok = h.Previous()
	assert.False(t, ok, "previous on empty history is a no-op")

	h.Record("a")
	h.Record("b")
	h.Previous()
	h.Previous()

	got, ok := h.Next()
	require.True(t, ok)
	assert.Equal(t, "b", got)

	got, ok = h.Next()
	require.True(t, ok)
	assert.Equal(t, "", got)
	assert.False(t, h.Browsing())

	_, ok = h.Next()
	assert.False(t, ok)
}

func TestHistory_RecordSkipsBlank(t *testing.T) {
	h := NewHistory()
	h.Record("")
	h.Record("   \t")
	h.Record(" ls ")
	assert.Equal(t, []string{" ls "}, h.Entries())
	assert.Equal(t, 1, h.Len())
}

func TestDecode_Total(t *testing.T) {
	for b := 0; b < 128; b++ {
		ev := Decode(string([]byte{byte(b)}))
		assert.GreaterOrEqual(t, int(ev.Kind), int(Ignored))
		assert.LessOrEqual(t, int(ev.Kind), int(Down))

		switch {
		case b == '\r' || b == '\n':
			assert.Equal(t, Submit, ev.Kind, "byte %d", b)
		case b == 0x7f:
			assert.Equal(t, Backspace, ev.Kind, "byte %d", b)
		case b >= 0x20:
			assert.Equal(t, Char, ev.Kind, "byte %d", b)
			assert.Equal(t, string(rune(b)), ev.Text)
		default:
			assert.Equal(t, Ignored, ev.Kind, "byte %d", b)
		}
	}
}

func TestDecode_Sequences(t *testing.T) {
	tests := []struct {
		chunk string
		kind  EventKind
		text  string
	}{
		{"\x1b[A", Up, ""},
		{"\x1b[B", Down, ""},
		{"\x1b[C", Right, ""},
		{"\x1b[D", Left, ""},
		{"\x1b[3~", Ignored, ""},
		{"\x1bOA", Ignored, ""},
		{"\x1b", Ignored, ""},
		{"", Ignored, ""},
		{"\r\n", Submit, ""},
		{"é", Char, "é"},
		{"日本", Char, "日本"},
		{"ab\rc", Char, "abc"},
		{"ls\rpwd", Char, "lspwd"},
		{"\rpwd", Submit, ""},
		{"\xff", Char, "�"},
		{"\x03", Ignored, ""},
	}

	for _, tt := range tests {
		ev := Decode(tt.chunk)
		assert.Equal(t, tt.kind, ev.Kind, "Decode(%q)", tt.chunk)
		assert.Equal(t, tt.text, ev.Text, "Decode(%q)", tt.chunk)
	}
	assert.Equal(t, "submit", Submit.String())
}

func TestEncodeANSI(t *testing.T) {
	got := EncodeANSI([]Instruction{
		WriteText("a\nb"),
		MoveCursor(-3),
		MoveCursor(2),
		MoveCursor(0),
		EraseToLineEnd(),
		NewLine(),
		ClearScreen(),
	})
	assert.Equal(t, "a\r\nb\x1b[3D\x1b[2C\x1b[K\r\n\x1b[2J\x1b[H", got)
}
