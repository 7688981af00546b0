package shell

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/CageChen/codespace/internal/store"
	"github.com/CageChen/codespace/internal/vpath"
)

const simulated = "[Simulated output - code execution is not available in this workspace]"

func (i *Interpreter) help(_ context.Context, _ []string) (string, error) {
	var b strings.Builder
	b.WriteString("Available commands:")
	for _, name := range i.order {
		fmt.Fprintf(&b, "\n  %-11s - %s", name, i.builtins[name].summary)
	}
	return b.String(), nil
}

func (i *Interpreter) pwd(_ context.Context, _ []string) (string, error) {
	return i.cwd, nil
}

func (i *Interpreter) whoami(_ context.Context, _ []string) (string, error) {
	return i.user, nil
}

func (i *Interpreter) date(_ context.Context, _ []string) (string, error) {
	return i.now().Format("Mon Jan 02 2006 15:04:05 GMT-0700 (MST)"), nil
}

func (i *Interpreter) echo(_ context.Context, args []string) (string, error) {
	return strings.Join(args, " "), nil
}

func (i *Interpreter) clear(_ context.Context, _ []string) (string, error) {
	return ClearScreen, nil
}

func (i *Interpreter) ls(_ context.Context, args []string) (string, error) {
	if len(args) == 0 {
		args = []string{i.cwd}
	}

	var out []string
	for n, arg := range args {
		p := i.resolve(arg)
		info, ok := i.fs.Stat(p)
		if !ok {
			out = append(out, fmt.Sprintf("ls: cannot access '%s': No such file or directory", arg))
			continue
		}
		if !info.IsDir {
			out = append(out, arg)
			continue
		}
		entries, err := i.fs.List(p)
		if err != nil {
			return "", err
		}
		if len(args) > 1 {
			if n > 0 {
				out = append(out, "")
			}
			out = append(out, arg+":")
		}
		for _, e := range entries {
			if e.IsDir {
				out = append(out, e.Name+"/")
			} else {
				out = append(out, e.Name)
			}
		}
	}
	return strings.Join(out, "\n"), nil
}

func (i *Interpreter) cat(_ context.Context, args []string) (string, error) {
	if len(args) == 0 {
		return "cat: missing file operand", nil
	}

	var out []string
	for _, arg := range args {
		p := i.resolve(arg)
		if content, ok := i.fs.Content(p); ok {
			out = append(out, strings.TrimSuffix(content, "\n"))
			continue
		}
		if info, ok := i.fs.Stat(p); ok && info.IsDir {
			out = append(out, fmt.Sprintf("cat: %s: Is a directory", arg))
			continue
		}
		out = append(out, fmt.Sprintf("cat: %s: No such file or directory", arg))
	}
	return strings.Join(out, "\n"), nil
}

func (i *Interpreter) mkdir(_ context.Context, args []string) (string, error) {
	parents := false
	var dirs []string
	for _, a := range args {
		if a == "-p" || a == "--parents" {
			parents = true
			continue
		}
		dirs = append(dirs, a)
	}
	if len(dirs) == 0 {
		return "mkdir: missing operand", nil
	}

	var out []string
	for _, d := range dirs {
		p := i.resolve(d)
		var err error
		if parents {
			err = i.fs.MkdirAll(p)
		} else {
			err = i.fs.CreateDirectory(p)
		}
		if err != nil {
			out = append(out, fmt.Sprintf("mkdir: cannot create directory '%s': %s", d, describe(err)))
			continue
		}
		out = append(out, fmt.Sprintf("Directory '%s' created", d))
	}
	return strings.Join(out, "\n"), nil
}

func (i *Interpreter) touch(_ context.Context, args []string) (string, error) {
	if len(args) == 0 {
		return "touch: missing file operand", nil
	}

	var out []string
	for _, f := range args {
		p := i.resolve(f)
		if _, ok := i.fs.Stat(p); ok {
			continue
		}
		if err := i.fs.CreateFile(p, ""); err != nil {
			out = append(out, fmt.Sprintf("touch: cannot touch '%s': %s", f, describe(err)))
			continue
		}
		out = append(out, fmt.Sprintf("File '%s' created", f))
	}
	return strings.Join(out, "\n"), nil
}

func (i *Interpreter) rm(_ context.Context, args []string) (string, error) {
	var targets []string
	for _, a := range args {
		if strings.HasPrefix(a, "-") && len(a) > 1 {
			continue
		}
		targets = append(targets, a)
	}
	if len(targets) == 0 {
		return "rm: missing operand", nil
	}

	current := ""
	if i.sel != nil {
		current = i.sel.Current()
	}

	var out []string
	for _, t := range targets {
		p := i.resolve(t)
		if p == vpath.Root {
			out = append(out, "rm: refusing to remove '/'")
			continue
		}
		if _, ok := i.fs.Stat(p); !ok {
			out = append(out, fmt.Sprintf("rm: cannot remove '%s': No such file or directory", t))
			continue
		}
		wasCurrent, err := i.fs.Delete(p, current)
		if err != nil {
			out = append(out, fmt.Sprintf("rm: cannot remove '%s': %s", t, describe(err)))
			continue
		}
		if wasCurrent && i.sel != nil {
			i.sel.Clear()
			current = ""
		}
		out = append(out, fmt.Sprintf("Removed '%s'", t))
	}
	return strings.Join(out, "\n"), nil
}

func (i *Interpreter) python(_ context.Context, args []string) (string, error) {
	if len(args) == 0 {
		return "Python 3.9.0 interactive shell\nType \"exit()\" to quit.\n>>> ", nil
	}
	return i.simulate("Python", args), nil
}

func (i *Interpreter) node(_ context.Context, args []string) (string, error) {
	if len(args) == 0 {
		return "Node.js v18.0.0 interactive shell\nType \".exit\" to quit.\n> ", nil
	}
	return i.simulate("JavaScript", args), nil
}

// simulate reports what a runtime would have executed: a stored file when
// the first argument names one, otherwise the inline code.
func (i *Interpreter) simulate(lang string, args []string) string {
	if content, ok := i.fs.Content(i.resolve(args[0])); ok {
		lines := strings.Count(content, "\n")
		if content != "" && !strings.HasSuffix(content, "\n") {
			lines++
		}
		return fmt.Sprintf("Executing %s: %s (%d lines)\n%s", lang, args[0], lines, simulated)
	}
	return fmt.Sprintf("Executing %s: %s\n%s", lang, strings.Join(args, " "), simulated)
}

func describe(err error) string {
	switch {
	case errors.Is(err, store.ErrPathConflict):
		return "File exists"
	case errors.Is(err, store.ErrNoSuchDirectory):
		return "No such file or directory"
	case errors.Is(err, store.ErrInvalidPath):
		return "Invalid path"
	default:
		return err.Error()
	}
}
