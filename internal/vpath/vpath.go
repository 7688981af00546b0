// Package vpath splits, joins and normalizes the slash-separated absolute
// paths used to address nodes in the virtual workspace.
package vpath

import (
	"errors"
	"path"
	"strings"
)

// Root is the path of the workspace root. It never names a node itself.
const Root = "/"

// Separator separates path segments.
const Separator = '/'

// ErrInvalidPath reports an empty, relative or otherwise malformed path.
var ErrInvalidPath = errors.New("invalid path")

// Normalize collapses repeated separators and strips a trailing separator
// unless the result is the root.
func Normalize(p string) string {
	if p == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(p))
	prevSep := false
	for i := 0; i < len(p); i++ {
		c := p[i]
		if c == Separator {
			if prevSep {
				continue
			}
			prevSep = true
		} else {
			prevSep = false
		}
		b.WriteByte(c)
	}
	out := b.String()
	if len(out) > 1 && out[len(out)-1] == Separator {
		out = out[:len(out)-1]
	}
	return out
}

// Clean normalizes p and checks that it is absolute and free of "." and
// ".." segments. The root itself is accepted.
func Clean(p string) (string, error) {
	if p == "" || p[0] != Separator {
		return "", ErrInvalidPath
	}
	p = Normalize(p)
	if p == Root {
		return p, nil
	}
	for _, seg := range strings.Split(p[1:], "/") {
		if seg == "." || seg == ".." {
			return "", ErrInvalidPath
		}
	}
	return p, nil
}

// Split resolves p to its parent directory path and leaf name. The parent
// of a root-level entry is Root.
func Split(p string) (parent, leaf string, err error) {
	p, err = Clean(p)
	if err != nil {
		return "", "", err
	}
	if p == Root {
		return "", "", ErrInvalidPath
	}
	i := strings.LastIndexByte(p, Separator)
	parent, leaf = p[:i], p[i+1:]
	if parent == "" {
		parent = Root
	}
	return parent, leaf, nil
}

// Join appends name to parent.
func Join(parent, name string) string {
	if parent == Root || parent == "" {
		return Normalize(Root + name)
	}
	return Normalize(parent + "/" + name)
}

// Base returns the last segment of p, or Root for the root.
func Base(p string) string {
	p = Normalize(p)
	if p == Root || p == "" {
		return p
	}
	return p[strings.LastIndexByte(p, Separator)+1:]
}

// IsWithin reports whether p equals ancestor or lies beneath it.
func IsWithin(p, ancestor string) bool {
	p, ancestor = Normalize(p), Normalize(ancestor)
	if p == "" || ancestor == "" {
		return false
	}
	if p == ancestor || ancestor == Root {
		return true
	}
	return strings.HasPrefix(p, ancestor+"/")
}

// Resolve interprets arg the way a shell would from working directory
// cwd: relative arguments are joined onto cwd and "." / ".." segments are
// collapsed. The result never climbs above Root.
func Resolve(cwd, arg string) string {
	if arg == "" {
		return Normalize(cwd)
	}
	if arg[0] != Separator {
		arg = cwd + "/" + arg
	}
	return path.Clean(arg)
}
