package terminal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/CageChen/codespace/internal/shell"
	"github.com/CageChen/codespace/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// recorder is a Screen that keeps every batch.
type recorder struct {
	mu  sync.Mutex
	all []Instruction
}

func (r *recorder) Render(batch []Instruction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, batch...)
}

// take returns and forgets everything rendered so far.
func (r *recorder) take() []Instruction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.all
	r.all = nil
	return out
}

func newEngine(t *testing.T, runner Runner) (*Engine, *recorder) {
	t.Helper()
	rec := &recorder{}
	e := New(context.Background(), runner, rec, Config{})
	t.Cleanup(e.Close)
	return e, rec
}

func echoRunner() Runner {
	return RunnerFunc(func(_ context.Context, line string) (string, error) {
		return "ran " + line, nil
	})
}

func TestEngine_CharAtEnd(t *testing.T) {
	e, rec := newEngine(t, echoRunner())

	e.Feed("l", "s")
	assert.Equal(t, []Instruction{WriteText("l"), WriteText("s")}, rec.take())

	line, cursor := e.Line()
	assert.Equal(t, "ls", line)
	assert.Equal(t, 2, cursor)
}

func TestEngine_CharMidLineRewritesRemainder(t *testing.T) {
	e, rec := newEngine(t, echoRunner())
	e.Feed("a", "c", "\x1b[D")
	rec.take()

	e.Feed("b")
	assert.Equal(t, []Instruction{WriteText("b"), WriteText("c"), MoveCursor(-1)}, rec.take())

	line, cursor := e.Line()
	assert.Equal(t, "abc", line)
	assert.Equal(t, 2, cursor)
}

func TestEngine_Backspace(t *testing.T) {
	e, rec := newEngine(t, echoRunner())
	e.Feed("a", "b", "c")
	rec.take()

	e.Feed("\x7f")
	assert.Equal(t, []Instruction{MoveCursor(-1), WriteText(" "), MoveCursor(-1)}, rec.take())

	e.Feed("\x1b[D", "\x7f")
	assert.Equal(t, []Instruction{
		MoveCursor(-1),
		MoveCursor(-1), WriteText(" "), MoveCursor(-1),
		WriteText("b "), MoveCursor(-2),
	}, rec.take())

	line, cursor := e.Line()
	assert.Equal(t, "b", line)
	assert.Equal(t, 0, cursor)

	e.Feed("\x7f")
	assert.Empty(t, rec.take(), "backspace at line start is a no-op")
}

func TestEngine_WideGlyphs(t *testing.T) {
	e, rec := newEngine(t, echoRunner())
	e.Feed("日", "x")
	rec.take()

	e.Feed("\x1b[D", "\x1b[D")
	assert.Equal(t, []Instruction{MoveCursor(-1), MoveCursor(-2)}, rec.take())

	e.Feed("\x1b[C")
	assert.Equal(t, []Instruction{MoveCursor(2)}, rec.take())
}

func TestEngine_CursorOutOfBoundsIgnored(t *testing.T) {
	e, rec := newEngine(t, echoRunner())
	e.Feed("\x1b[D", "\x1b[C")
	assert.Empty(t, rec.take())

	e.Feed("a", "\x1b[C")
	assert.Equal(t, []Instruction{WriteText("a")}, rec.take())
}

func TestEngine_HistoryScenario(t *testing.T) {
	e, rec := newEngine(t, echoRunner())

	e.Feed("l", "s", "\r")
	e.Wait()
	assert.Equal(t, []string{"ls"}, e.History())
	rec.take()

	e.Feed("\x1b[A")
	line, cursor := e.Line()
	assert.Equal(t, "ls", line)
	assert.Equal(t, 2, cursor)
	assert.Equal(t, []Instruction{EraseToLineEnd(), WriteText("ls")}, rec.take())

	e.Feed("\x1b[B")
	line, cursor = e.Line()
	assert.Equal(t, "", line)
	assert.Equal(t, 0, cursor)
	assert.Equal(t, []Instruction{MoveCursor(-2), EraseToLineEnd()}, rec.take())

	e.Feed("\x1b[B")
	assert.Empty(t, rec.take(), "down while live is a no-op")
}

func TestEngine_UpOnEmptyHistory(t *testing.T) {
	e, rec := newEngine(t, echoRunner())
	e.Feed("x", "\x1b[A")
	assert.Equal(t, []Instruction{WriteText("x")}, rec.take())
}

func TestEngine_SubmitRendersResultAndPrompt(t *testing.T) {
	e, rec := newEngine(t, echoRunner())
	e.Feed("p", "w", "d")
	rec.take()

	e.Feed("\r")
	e.Wait()
	assert.Equal(t, []Instruction{
		NewLine(),
		WriteText("ran pwd"), NewLine(), WriteText(e.Prompt()),
	}, rec.take())

	line, cursor := e.Line()
	assert.Equal(t, "", line)
	assert.Equal(t, 0, cursor)
}

func TestEngine_SubmitBlankLine(t *testing.T) {
	e, rec := newEngine(t, echoRunner())
	e.Feed(" ", " ", "\r")
	rec.take()
	e.Wait()
	assert.Empty(t, e.History())

	e.Feed("\r")
	assert.Equal(t, []Instruction{NewLine(), WriteText(e.Prompt())}, rec.take())
}

func TestEngine_ClearSentinel(t *testing.T) {
	runner := RunnerFunc(func(context.Context, string) (string, error) {
		return shell.ClearScreen, nil
	})
	e, rec := newEngine(t, runner)
	e.Feed("c", "l", "e", "a", "r")
	rec.take()

	e.Feed("\r")
	e.Wait()
	out := rec.take()
	require.Equal(t, NewLine(), out[0])
	assert.Equal(t, []Instruction{ClearScreen(), WriteText(e.Prompt())}, out[1:])
	assert.NotContains(t, EncodeANSI(out[1:]), "\x1b[2J\x1b[H\x1b[2J")
}

func TestEngine_RunnerErrorIsStyled(t *testing.T) {
	runner := RunnerFunc(func(context.Context, string) (string, error) {
		return "", errors.New("exploded")
	})
	e, rec := newEngine(t, runner)
	e.Feed("x", "\r")
	e.Wait()

	out := rec.take()
	styles := NewStyles()
	assert.Contains(t, out, WriteText(styles.Error("exploded")))
	assert.Equal(t, WriteText(e.Prompt()), out[len(out)-1])

	// The session survives.
	e.Feed("y")
	line, _ := e.Line()
	assert.Equal(t, "y", line)
}

func TestEngine_SerializesCommands(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	var order []string
	runner := RunnerFunc(func(_ context.Context, line string) (string, error) {
		if line == "slow" {
			<-release
		}
		mu.Lock()
		order = append(order, line)
		mu.Unlock()
		return line, nil
	})
	e, rec := newEngine(t, runner)

	e.Feed("slow", "\r")
	e.Feed("fast", "\r")

	// Typing continues while the command runs.
	e.Feed("n")
	line, _ := e.Line()
	assert.Equal(t, "n", line)

	close(release)
	e.Wait()
	assert.Equal(t, []string{"slow", "fast"}, order)

	var written []string
	for _, in := range rec.take() {
		if in.Op == OpWrite {
			written = append(written, in.Text)
		}
	}
	// The typed-ahead "n" is erased before each result and drawn again;
	// only the last completion prints a prompt.
	assert.Equal(t, []string{"slow", "fast", "n", "slow", "n", "fast", e.Prompt(), "n"}, written)

	line, cursor := e.Line()
	assert.Equal(t, "n", line)
	assert.Equal(t, 1, cursor)
	e.Feed("\x7f")
	assert.Equal(t, []Instruction{MoveCursor(-1), WriteText(" "), MoveCursor(-1)}, rec.take())
}

func TestEngine_RedrawsTypedAheadLineAfterResult(t *testing.T) {
	release := make(chan struct{})
	runner := RunnerFunc(func(context.Context, string) (string, error) {
		<-release
		return "out", nil
	})
	e, rec := newEngine(t, runner)

	e.Feed("slow", "\r", "ab", "\x1b[D")
	rec.take()

	close(release)
	e.Wait()
	assert.Equal(t, []Instruction{
		MoveCursor(-1), EraseToLineEnd(),
		WriteText("out"), NewLine(), WriteText(e.Prompt()),
		WriteText("ab"), MoveCursor(-1),
	}, rec.take())

	// Editing continues against the redrawn line.
	e.Feed("\x7f")
	assert.Equal(t, []Instruction{
		MoveCursor(-1), WriteText(" "), MoveCursor(-1),
		WriteText("b "), MoveCursor(-2),
	}, rec.take())
	line, cursor := e.Line()
	assert.Equal(t, "b", line)
	assert.Equal(t, 0, cursor)
}

func TestEngine_BlankSubmitWhileBusyHoldsPrompt(t *testing.T) {
	release := make(chan struct{})
	runner := RunnerFunc(func(context.Context, string) (string, error) {
		<-release
		return "out", nil
	})
	e, rec := newEngine(t, runner)

	e.Feed("slow", "\r")
	rec.take()

	e.Feed("\r")
	assert.Equal(t, []Instruction{NewLine()}, rec.take())

	close(release)
	e.Wait()
	prompts := 0
	for _, in := range rec.take() {
		if in == WriteText(e.Prompt()) {
			prompts++
		}
	}
	assert.Equal(t, 1, prompts)
}

func TestEngine_QueueFullRejects(t *testing.T) {
	release := make(chan struct{})
	runner := RunnerFunc(func(context.Context, string) (string, error) {
		<-release
		return "", nil
	})
	rec := &recorder{}
	e := New(context.Background(), runner, rec, Config{QueueDepth: 1})
	defer e.Close()

	e.Feed("a", "\r") // picked up by the worker
	// Wait until the worker has dequeued the first line.
	require.Eventually(t, func() bool { return len(e.queue) == 0 }, timeout, tick)
	e.Feed("b", "\r") // queued
	rec.take()

	e.Feed("c", "\r") // rejected
	out := rec.take()
	assert.Equal(t, []Instruction{
		NewLine(), WriteText(NewStyles().Error(ErrBusy.Error())), NewLine(),
	}, out[len(out)-3:])
	assert.NotContains(t, out, WriteText(e.Prompt()), "the prompt waits for the running command")
	assert.Equal(t, []string{"a", "b", "c"}, e.History())

	close(release)
	e.Wait()
}

func TestEngine_StartGreets(t *testing.T) {
	rec := &recorder{}
	e := New(context.Background(), echoRunner(), rec, Config{Greeting: []string{"hi"}, User: "me", Dir: "/w"})
	defer e.Close()

	e.Start()
	styles := NewStyles()
	assert.Equal(t, []Instruction{
		WriteText(styles.Greeting("hi")), NewLine(),
		WriteText(styles.Prompt("me", "/w")),
	}, rec.take())
}

func TestEngine_FeedAfterCloseIgnored(t *testing.T) {
	rec := &recorder{}
	e := New(context.Background(), echoRunner(), rec, Config{})
	e.Close()
	e.Close()

	e.Feed("x")
	assert.Empty(t, rec.take())
}

func TestEngine_WithInterpreter(t *testing.T) {
	s := store.New()
	require.NoError(t, s.CreateDirectory("/a"))
	require.NoError(t, s.CreateFile("/a/b.txt", "x"))
	e, rec := newEngine(t, shell.New(s))

	e.Feed("cat /a/b.txt", "\r")
	e.Wait()
	assert.Contains(t, rec.take(), WriteText("x"))

	e.Feed("rm /a", "\r")
	e.Wait()
	_, ok := s.Content("/a/b.txt")
	assert.False(t, ok)
}
