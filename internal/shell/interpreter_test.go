package shell

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/CageChen/codespace/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSelection struct {
	current string
	cleared int
}

func (f *fakeSelection) Current() string { return f.current }
func (f *fakeSelection) Clear()          { f.current = ""; f.cleared++ }

func newTestInterpreter(t *testing.T, opts ...Option) (*Interpreter, *store.Store) {
	t.Helper()
	s := store.New()
	require.NoError(t, s.Seed(store.DefaultTree()))
	return New(s, opts...), s
}

func exec(t *testing.T, i *Interpreter, line string) string {
	t.Helper()
	out, err := i.Exec(context.Background(), line)
	require.NoError(t, err)
	return out
}

func TestFields(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"ls", []string{"ls"}},
		{"  echo   a  b ", []string{"echo", "a", "b"}},
		{`python "print('hi there')"`, []string{"python", "print('hi there')"}},
		{`echo 'a b' "c"`, []string{"echo", "a b", "c"}},
		{`echo ""`, []string{"echo", ""}},
		{`echo "unterminated text`, []string{"echo", "unterminated text"}},
		{"", nil},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Fields(tt.input), "Fields(%q)", tt.input)
	}
}

func TestExec_SimpleBuiltins(t *testing.T) {
	fixed := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)
	i, _ := newTestInterpreter(t, WithUser("dev"), WithClock(func() time.Time { return fixed }))

	assert.Equal(t, "/", exec(t, i, "pwd"))
	assert.Equal(t, "dev", exec(t, i, "whoami"))
	assert.Equal(t, "hello world", exec(t, i, "echo hello   world"))
	assert.Equal(t, "", exec(t, i, "echo"))
	assert.Equal(t, "Mon Oct 19 2026 09:30:00 GMT+0000 (UTC)", exec(t, i, "date"))
	assert.Equal(t, ClearScreen, exec(t, i, "clear"))
	assert.Equal(t, "", exec(t, i, "   "))
}

func TestExec_Help(t *testing.T) {
	i, _ := newTestInterpreter(t)
	out := exec(t, i, "help")

	assert.True(t, strings.HasPrefix(out, "Available commands:"))
	for _, name := range []string{"help", "ls", "pwd", "whoami", "date", "echo", "python", "node", "cat", "mkdir", "touch", "rm", "clear"} {
		assert.Contains(t, out, "  "+name+" ", name)
	}
	assert.Len(t, i.Commands(), 13)
}

func TestExec_UnknownCommand(t *testing.T) {
	i, _ := newTestInterpreter(t)
	out := exec(t, i, "vim README.md")
	assert.Equal(t, "Command not found: vim\nType 'help' for available commands.", out)

	// Dispatch is case-sensitive.
	out = exec(t, i, "LS")
	assert.Contains(t, out, "Command not found: LS")
}

func TestExec_Ls(t *testing.T) {
	i, _ := newTestInterpreter(t)

	assert.Equal(t, "examples/\nmy_project/\nREADME.md", exec(t, i, "ls"))
	assert.Equal(t, "hello.py\ncalculator.js", exec(t, i, "ls examples"))
	assert.Equal(t, "README.md", exec(t, i, "ls README.md"))
	assert.Equal(t, "ls: cannot access 'nope': No such file or directory", exec(t, i, "ls nope"))
	assert.Equal(t, "examples:\nhello.py\ncalculator.js\n\nmy_project:\nmain.py\napp.js", exec(t, i, "ls examples my_project"))
}

func TestExec_Cat(t *testing.T) {
	i, _ := newTestInterpreter(t)

	out := exec(t, i, "cat examples/hello.py")
	assert.Contains(t, out, `print("🐍 Hello from Python!")`)
	assert.False(t, strings.HasSuffix(out, "\n"))

	assert.Equal(t, "cat: missing file operand", exec(t, i, "cat"))
	assert.Equal(t, "cat: examples: Is a directory", exec(t, i, "cat examples"))
	assert.Equal(t, "cat: ghost.txt: No such file or directory", exec(t, i, "cat ghost.txt"))
}

func TestExec_FileCommandsUseStore(t *testing.T) {
	sel := &fakeSelection{current: "/work/b.txt"}
	i, s := newTestInterpreter(t, WithSelection(sel))

	assert.Equal(t, "Directory 'work' created", exec(t, i, "mkdir work"))
	assert.Equal(t, "File 'work/b.txt' created", exec(t, i, "touch work/b.txt"))
	_, ok := s.Content("/work/b.txt")
	assert.True(t, ok)

	// touch on an existing file is silent.
	s.SetContent("/work/b.txt", "keep")
	assert.Equal(t, "", exec(t, i, "touch /work/b.txt"))
	got, _ := s.Content("/work/b.txt")
	assert.Equal(t, "keep", got)

	assert.Equal(t, "mkdir: cannot create directory 'work': File exists", exec(t, i, "mkdir work"))
	assert.Equal(t, "mkdir: cannot create directory 'x/y': No such file or directory", exec(t, i, "mkdir x/y"))
	assert.Equal(t, "Directory 'x/y' created", exec(t, i, "mkdir -p x/y"))
	assert.Equal(t, "touch: cannot touch 'none/f': No such file or directory", exec(t, i, "touch none/f"))

	assert.Equal(t, "Removed 'work'", exec(t, i, "rm -r work"))
	_, ok = s.Stat("/work")
	assert.False(t, ok)
	assert.Equal(t, 1, sel.cleared, "selection inside the removed directory is cleared")

	assert.Equal(t, "rm: cannot remove 'work': No such file or directory", exec(t, i, "rm work"))
	assert.Equal(t, "rm: missing operand", exec(t, i, "rm -rf"))
	assert.Equal(t, "rm: refusing to remove '/'", exec(t, i, "rm /"))
}

func TestScenario_CatThenRemoveDirectory(t *testing.T) {
	s := store.New()
	require.NoError(t, s.CreateDirectory("/a"))
	require.NoError(t, s.CreateFile("/a/b.txt", "x"))
	i := New(s)

	assert.Contains(t, exec(t, i, "cat /a/b.txt"), "x")
	exec(t, i, "rm /a")

	_, ok := s.Content("/a/b.txt")
	assert.False(t, ok)
}

func TestExec_Runtimes(t *testing.T) {
	i, _ := newTestInterpreter(t)

	assert.Contains(t, exec(t, i, "python"), "Python 3.9.0 interactive shell")
	assert.Contains(t, exec(t, i, "node"), "Node.js v18.0.0 interactive shell")

	out := exec(t, i, "python examples/hello.py")
	assert.True(t, strings.HasPrefix(out, "Executing Python: examples/hello.py ("))
	assert.Contains(t, out, simulated)

	out = exec(t, i, `node "console.log('hi')"`)
	assert.Equal(t, "Executing JavaScript: console.log('hi')\n"+simulated, out)
}

func TestRun_ReturnsFuture(t *testing.T) {
	var seen []string
	i, _ := newTestInterpreter(t, WithObserver(func(cmd, outcome string, _ time.Duration) {
		seen = append(seen, cmd+":"+outcome)
	}))

	res := <-i.Run(context.Background(), "echo hi")
	require.NoError(t, res.Err)
	assert.Equal(t, "hi", res.Output)

	res = <-i.Run(context.Background(), "nope")
	require.NoError(t, res.Err)

	assert.Equal(t, []string{"echo:ok", "nope:not_found"}, seen)
}

func TestRun_CancelledContext(t *testing.T) {
	i, _ := newTestInterpreter(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := <-i.Run(ctx, "ls")
	assert.ErrorIs(t, res.Err, context.Canceled)
}

func TestRun_RecoversPanic(t *testing.T) {
	i, _ := newTestInterpreter(t)
	i.builtins["boom"] = &builtin{name: "boom", run: func(context.Context, []string) (string, error) {
		panic("kaboom")
	}}

	res := <-i.Run(context.Background(), "boom now")
	require.Error(t, res.Err)
	assert.Equal(t, "boom: internal error", res.Err.Error())
}
