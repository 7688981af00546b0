// Package shell interprets terminal command lines against the workspace
// file store.
package shell

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/CageChen/codespace/internal/store"
	"github.com/CageChen/codespace/internal/vpath"
	"go.uber.org/zap"
)

// ClearScreen is the reserved result that asks the session to clear the
// display. It is never printed.
const ClearScreen = "\x1b[2J\x1b[H"

// Result is the outcome of one command line.
type Result struct {
	Output string
	Err    error
}

// FileStore is the part of the workspace store the builtins use.
type FileStore interface {
	Content(p string) (string, bool)
	Stat(p string) (store.Info, bool)
	List(p string) ([]store.Info, error)
	CreateFile(p, content string) error
	CreateDirectory(p string) error
	MkdirAll(p string) error
	Delete(p, current string) (bool, error)
}

// Selection is the editor's current-file reference.
type Selection interface {
	Current() string
	Clear()
}

// Observer is told about every executed command.
type Observer func(command, outcome string, elapsed time.Duration)

// Command outcomes reported to an Observer.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

type builtin struct {
	name    string
	usage   string
	summary string
	run     func(ctx context.Context, args []string) (string, error)
}

// Interpreter maps command lines to builtin commands.
type Interpreter struct {
	fs       FileStore
	sel      Selection
	cwd      string
	user     string
	now      func() time.Time
	log      *zap.Logger
	observer Observer

	builtins map[string]*builtin
	order    []string
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithSelection lets rm clear the editor selection when it deletes the
// selected file.
func WithSelection(sel Selection) Option {
	return func(i *Interpreter) { i.sel = sel }
}

// WithUser sets the name printed by whoami.
func WithUser(user string) Option {
	return func(i *Interpreter) { i.user = user }
}

// WithClock overrides the time source used by date.
func WithClock(now func() time.Time) Option {
	return func(i *Interpreter) { i.now = now }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(i *Interpreter) { i.log = log }
}

// WithObserver registers a callback for executed commands.
func WithObserver(o Observer) Option {
	return func(i *Interpreter) { i.observer = o }
}

// New creates an interpreter bound to fs.
func New(fs FileStore, opts ...Option) *Interpreter {
	i := &Interpreter{
		fs:   fs,
		cwd:  vpath.Root,
		user: "cli-agent",
		now:  time.Now,
		log:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.register()
	return i
}

func (i *Interpreter) register() {
	table := []*builtin{
		{name: "help", summary: "Show this help message", run: i.help},
		{name: "ls", usage: "[path]", summary: "List directory contents", run: i.ls},
		{name: "pwd", summary: "Show current directory", run: i.pwd},
		{name: "echo", usage: "[text]", summary: "Echo text", run: i.echo},
		{name: "date", summary: "Show current date", run: i.date},
		{name: "whoami", summary: "Show current user", run: i.whoami},
		{name: "clear", summary: "Clear terminal", run: i.clear},
		{name: "python", usage: "<file|code>", summary: "Run Python code", run: i.python},
		{name: "node", usage: "<file|code>", summary: "Run JavaScript code", run: i.node},
		{name: "cat", usage: "<file>", summary: "Show file contents", run: i.cat},
		{name: "mkdir", usage: "[-p] <dir>", summary: "Create directory", run: i.mkdir},
		{name: "touch", usage: "<file>", summary: "Create file", run: i.touch},
		{name: "rm", usage: "<path>", summary: "Remove file/directory", run: i.rm},
	}
	i.builtins = make(map[string]*builtin, len(table))
	for _, b := range table {
		i.builtins[b.name] = b
		i.order = append(i.order, b.name)
	}
}

// Commands returns the builtin names in help order.
func (i *Interpreter) Commands() []string {
	out := make([]string, len(i.order))
	copy(out, i.order)
	return out
}

// Run executes line on its own goroutine and returns a channel that
// receives exactly one Result.
func (i *Interpreter) Run(ctx context.Context, line string) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				i.log.Error("command panicked", zap.String("line", line), zap.Any("panic", r))
				ch <- Result{Err: fmt.Errorf("%s: internal error", firstWord(line))}
			}
		}()
		out, err := i.Exec(ctx, line)
		ch <- Result{Output: out, Err: err}
	}()
	return ch
}

// Exec executes line synchronously.
func (i *Interpreter) Exec(ctx context.Context, line string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	args := Fields(line)
	if len(args) == 0 {
		return "", nil
	}

	start := time.Now()
	b, ok := i.builtins[args[0]]
	if !ok {
		i.observe(args[0], OutcomeNotFound, start)
		return fmt.Sprintf("Command not found: %s\nType 'help' for available commands.", args[0]), nil
	}

	out, err := b.run(ctx, args[1:])
	if err != nil {
		i.observe(b.name, OutcomeError, start)
		i.log.Debug("command failed", zap.String("command", b.name), zap.Error(err))
		return "", err
	}
	i.observe(b.name, OutcomeOK, start)
	i.log.Debug("command executed", zap.String("command", b.name), zap.Int("args", len(args)-1))
	return out, nil
}

func (i *Interpreter) observe(command, outcome string, start time.Time) {
	if i.observer != nil {
		i.observer(command, outcome, time.Since(start))
	}
}

func (i *Interpreter) resolve(arg string) string {
	return vpath.Resolve(i.cwd, arg)
}

func firstWord(line string) string {
	if f := strings.Fields(line); len(f) > 0 {
		return f[0]
	}
	return ""
}
