// Package mount imports disk folders and git refs into the workspace store
// and keeps local folders in sync with the disk.
package mount

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"github.com/CageChen/codespace/internal/config"
)

// Entry is one child of a source directory.
type Entry struct {
	Name  string
	IsDir bool
}

// Source reads a folder tree. Paths are slash-separated and relative to the
// source root; "" is the root itself.
type Source interface {
	ReadFile(rel string) ([]byte, error)
	ReadDir(rel string) ([]Entry, error)
}

// NewSource returns the source a folder describes: the working tree on
// disk, or a git ref when GitRef is set.
func NewSource(f config.Folder) Source {
	if f.GitRef != "" {
		return NewGit(f.Path, f.GitRef, f.SubPath)
	}
	return NewLocal(filepath.Join(f.Path, filepath.FromSlash(f.SubPath)))
}

// Local reads from the local filesystem.
type Local struct {
	root string
}

// NewLocal creates a Local source rooted at dir.
func NewLocal(dir string) *Local {
	return &Local{root: dir}
}

// Root returns the directory the source reads from.
func (l *Local) Root() string {
	return l.root
}

func (l *Local) abs(rel string) string {
	if rel == "" || rel == "." {
		return l.root
	}
	return filepath.Join(l.root, filepath.FromSlash(rel))
}

// ReadFile reads a file relative to the root.
func (l *Local) ReadFile(rel string) ([]byte, error) {
	return os.ReadFile(l.abs(rel))
}

// ReadDir lists the immediate children of a directory relative to the root.
// Symlinks are reported by what they point at.
func (l *Local) ReadDir(rel string) ([]Entry, error) {
	dir := l.abs(rel)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	result := make([]Entry, 0, len(entries))
	for _, e := range entries {
		isDir := e.IsDir()
		if e.Type()&os.ModeSymlink != 0 {
			info, err := os.Stat(filepath.Join(dir, e.Name()))
			if err != nil {
				continue
			}
			isDir = info.IsDir()
		}
		result = append(result, Entry{Name: e.Name(), IsDir: isDir})
	}
	return result, nil
}

// Git reads the tree of a git ref (branch, tag or commit) through the git
// CLI, optionally limited to a sub directory.
type Git struct {
	repo    string
	ref     string
	subPath string
}

// NewGit creates a Git source for ref in the repository at repo.
func NewGit(repo, ref, subPath string) *Git {
	return &Git{repo: repo, ref: ref, subPath: strings.Trim(filepath.ToSlash(subPath), "/")}
}

func (g *Git) object(rel string) string {
	return strings.TrimPrefix(path.Join(g.subPath, rel), "/")
}

func (g *Git) git(args ...string) ([]byte, error) {
	cmd := exec.Command("git", append([]string{"-C", g.repo}, args...)...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			stderr := strings.TrimSpace(string(exitErr.Stderr))
			if strings.Contains(stderr, "does not exist") || strings.Contains(stderr, "Not a valid object name") {
				return nil, fmt.Errorf("git %s: %w", args[0], os.ErrNotExist)
			}
			return nil, fmt.Errorf("git %s: %s", strings.Join(args, " "), stderr)
		}
		return nil, err
	}
	return out, nil
}

// ReadFile returns the blob at rel in the ref.
func (g *Git) ReadFile(rel string) ([]byte, error) {
	obj := g.object(rel)
	if obj == "" {
		return nil, fmt.Errorf("cannot read directory as file")
	}
	return g.git("show", g.ref+":"+obj)
}

// ReadDir lists the immediate children of the tree at rel.
func (g *Git) ReadDir(rel string) ([]Entry, error) {
	args := []string{"ls-tree", g.ref}
	if obj := g.object(rel); obj != "" {
		args = append(args, obj+"/")
	}
	out, err := g.git(args...)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		// Format: "<mode> <type> <hash>\t<name>"
		meta, name, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		fields := strings.Fields(meta)
		if len(fields) < 3 || fields[1] == "commit" {
			continue
		}
		entries = append(entries, Entry{Name: path.Base(name), IsDir: fields[1] == "tree"})
	}
	return entries, nil
}
