// Package terminal implements the line-editing session behind a browser
// terminal: it decodes raw input chunks, edits the command line, keeps the
// command history, runs submitted lines through the interpreter and emits
// the rendering instructions that keep the browser in sync.
package terminal

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/CageChen/codespace/internal/shell"
	"go.uber.org/zap"
)

// Runner executes a command line and delivers one result on the returned
// channel.
type Runner interface {
	Run(ctx context.Context, line string) <-chan shell.Result
}

// RunnerFunc adapts a synchronous function to Runner.
type RunnerFunc func(ctx context.Context, line string) (string, error)

// Run calls f on a new goroutine.
func (f RunnerFunc) Run(ctx context.Context, line string) <-chan shell.Result {
	ch := make(chan shell.Result, 1)
	go func() {
		out, err := f(ctx, line)
		ch <- shell.Result{Output: out, Err: err}
	}()
	return ch
}

// ErrBusy is reported when a line is submitted while the command queue is
// full.
var ErrBusy = errors.New("busy: previous commands are still running")

// DefaultQueueDepth is the number of submitted lines that may wait behind
// the running command.
const DefaultQueueDepth = 16

// Config tunes an Engine.
type Config struct {
	User       string
	Dir        string
	Greeting   []string
	QueueDepth int
	Styles     *Styles
	Logger     *zap.Logger
	// OnCommand, when set, is called after every command completes.
	OnCommand func(line string, err error)
}

// Engine is one terminal session. It owns the line buffer and history;
// input is applied one chunk at a time and submitted lines are run in
// order on a single worker, so at most one command is outstanding.
type Engine struct {
	mu      sync.Mutex
	buf     LineBuffer
	history *History
	runner  Runner
	screen  Screen
	prompt  string
	cfg     Config
	log     *zap.Logger

	ctx      context.Context
	queue    chan string
	inflight int // queued or running lines, guarded by mu
	pending  sync.WaitGroup
	done     chan struct{}
	closed   bool
}

// New creates a session that runs commands with runner and renders to
// screen. The worker stops when ctx is cancelled or Close is called.
func New(ctx context.Context, runner Runner, screen Screen, cfg Config) *Engine {
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = DefaultQueueDepth
	}
	if cfg.Styles == nil {
		cfg.Styles = NewStyles()
	}
	if cfg.User == "" {
		cfg.User = "cli-agent"
	}
	if cfg.Dir == "" {
		cfg.Dir = "/"
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	e := &Engine{
		history: NewHistory(),
		runner:  runner,
		screen:  screen,
		prompt:  cfg.Styles.Prompt(cfg.User, cfg.Dir),
		cfg:     cfg,
		log:     log,
		ctx:     ctx,
		queue:   make(chan string, cfg.QueueDepth),
		done:    make(chan struct{}),
	}
	go e.worker()
	return e
}

// Prompt returns the rendered prompt.
func (e *Engine) Prompt() string {
	return e.prompt
}

// Start renders the greeting and the first prompt.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []Instruction
	for _, line := range e.cfg.Greeting {
		out = append(out, WriteText(e.cfg.Styles.Greeting(line)), NewLine())
	}
	out = append(out, WriteText(e.prompt))
	e.screen.Render(out)
}

// Feed applies raw input chunks in order.
func (e *Engine) Feed(chunks ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	for _, chunk := range chunks {
		if out := e.apply(Decode(chunk)); len(out) > 0 {
			e.screen.Render(out)
		}
	}
}

// Line returns the current line and cursor.
func (e *Engine) Line() (string, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buf.String(), e.buf.Cursor()
}

// History returns the submitted lines, oldest first.
func (e *Engine) History() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Entries()
}

// Wait blocks until every submitted command has completed and rendered.
func (e *Engine) Wait() {
	e.pending.Wait()
}

// Close stops accepting input and waits for queued commands to finish.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		<-e.done
		return
	}
	e.closed = true
	close(e.queue)
	e.mu.Unlock()
	<-e.done
}

// apply handles one event with the lock held and returns what to render.
func (e *Engine) apply(ev Event) []Instruction {
	switch ev.Kind {
	case Char:
		return e.insert(ev.Text)
	case Backspace:
		return e.backspace()
	case Left:
		if e.buf.Cursor() == 0 {
			return nil
		}
		w := runeWidth(e.buf.At(e.buf.Cursor() - 1))
		e.buf.MoveCursor(-1)
		return []Instruction{MoveCursor(-w)}
	case Right:
		if e.buf.Cursor() >= e.buf.Len() {
			return nil
		}
		w := runeWidth(e.buf.At(e.buf.Cursor()))
		e.buf.MoveCursor(1)
		return []Instruction{MoveCursor(w)}
	case Up:
		line, ok := e.history.Previous()
		if !ok {
			return nil
		}
		return e.recall(line)
	case Down:
		line, ok := e.history.Next()
		if !ok {
			return nil
		}
		return e.recall(line)
	case Submit:
		return e.submit()
	default:
		return nil
	}
}

func (e *Engine) insert(text string) []Instruction {
	e.buf.InsertAt(e.buf.Cursor(), text)
	out := []Instruction{WriteText(text)}
	if rest := e.buf.After(); rest != "" {
		out = append(out, WriteText(rest), MoveCursor(-width(rest)))
	}
	return out
}

func (e *Engine) backspace() []Instruction {
	r, ok := e.buf.DeleteBefore(e.buf.Cursor())
	if !ok {
		return nil
	}
	w := runeWidth(r)
	blank := strings.Repeat(" ", w)
	out := []Instruction{MoveCursor(-w), WriteText(blank), MoveCursor(-w)}
	if rest := e.buf.After(); rest != "" {
		out = append(out, WriteText(rest+blank), MoveCursor(-(width(rest) + w)))
	}
	return out
}

// recall replaces the rendered line with line.
func (e *Engine) recall(line string) []Instruction {
	var out []Instruction
	if w := width(e.buf.Before()); w > 0 {
		out = append(out, MoveCursor(-w))
	}
	out = append(out, EraseToLineEnd())
	e.buf.Replace(line)
	if line != "" {
		out = append(out, WriteText(line))
	}
	return out
}

func (e *Engine) submit() []Instruction {
	line := e.buf.String()
	e.buf.Reset()
	out := []Instruction{NewLine()}

	// While commands are outstanding the prompt is printed by the last
	// completion, not here.
	if strings.TrimSpace(line) == "" {
		if e.inflight > 0 {
			return out
		}
		return append(out, WriteText(e.prompt))
	}
	e.history.Record(line)

	e.pending.Add(1)
	select {
	case e.queue <- line:
		e.inflight++
		return out
	default:
		e.pending.Done()
		e.log.Warn("command rejected, queue full", zap.String("line", line))
		return append(out, WriteText(e.cfg.Styles.Error(ErrBusy.Error())), NewLine())
	}
}

func (e *Engine) worker() {
	defer close(e.done)
	for line := range e.queue {
		res := e.await(line)

		e.mu.Lock()
		e.inflight--
		e.screen.Render(e.completion(res, e.inflight > 0))
		e.mu.Unlock()

		if e.cfg.OnCommand != nil {
			e.cfg.OnCommand(line, res.Err)
		}
		e.pending.Done()
	}
}

func (e *Engine) await(line string) shell.Result {
	select {
	case res := <-e.runner.Run(e.ctx, line):
		return res
	case <-e.ctx.Done():
		return shell.Result{Err: e.ctx.Err()}
	}
}

// completion renders a finished command. Text typed ahead while it ran
// sits at the start of the current line; it is erased before the result
// and drawn again afterwards, behind a fresh prompt unless more commands
// are still queued.
func (e *Engine) completion(res shell.Result, more bool) []Instruction {
	var out []Instruction
	if w := width(e.buf.Before()); w > 0 {
		out = append(out, MoveCursor(-w))
	}
	if e.buf.Len() > 0 {
		out = append(out, EraseToLineEnd())
	}

	switch {
	case res.Err != nil:
		out = append(out, WriteText(e.cfg.Styles.Error(res.Err.Error())), NewLine())
	case res.Output == shell.ClearScreen:
		out = append(out, ClearScreen())
	case res.Output == "":
		out = append(out, NewLine())
	default:
		out = append(out, WriteText(res.Output), NewLine())
	}
	if !more {
		out = append(out, WriteText(e.prompt))
	}

	if e.buf.Len() > 0 {
		out = append(out, WriteText(e.buf.String()))
		if rest := e.buf.After(); rest != "" {
			out = append(out, MoveCursor(-width(rest)))
		}
	}
	return out
}
