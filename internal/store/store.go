// Package store holds the in-memory workspace tree: an ordered forest of
// files and directories addressed by absolute path.
package store

import (
	"sync"

	"github.com/CageChen/codespace/internal/vpath"
)

// entry is the arena record for one node. Directories keep the paths of
// their children in insertion order; files keep their content.
type entry struct {
	name     string
	path     string
	dir      bool
	content  string
	children []string
}

// Store is the workspace file tree. All mutation goes through its methods
// and is applied under a single write lock, so readers never observe a
// partial update.
type Store struct {
	mu    sync.RWMutex
	nodes map[string]*entry
	roots []string

	subMu sync.RWMutex
	subs  []func(Event)
}

// New creates an empty store.
func New() *Store {
	return &Store{nodes: make(map[string]*entry)}
}

// Subscribe registers fn to receive every applied mutation. Callbacks run
// after the write lock is released and may read from the store.
func (s *Store) Subscribe(fn func(Event)) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *Store) publish(events ...Event) {
	if len(events) == 0 {
		return
	}
	s.subMu.RLock()
	subs := make([]func(Event), len(s.subs))
	copy(subs, s.subs)
	s.subMu.RUnlock()

	for _, ev := range events {
		for _, fn := range subs {
			fn(ev)
		}
	}
}

// CreateFile adds a file at p. The parent directory must already exist.
func (s *Store) CreateFile(p, content string) error {
	s.mu.Lock()
	path, err := s.insert("create", p, false, content)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.publish(Event{Type: EventCreate, Path: path})
	return nil
}

// CreateDirectory adds an empty directory at p. The parent directory must
// already exist.
func (s *Store) CreateDirectory(p string) error {
	s.mu.Lock()
	path, err := s.insert("mkdir", p, true, "")
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.publish(Event{Type: EventCreate, Path: path, IsDir: true})
	return nil
}

// insert links a new node under its parent. Callers hold the write lock.
func (s *Store) insert(op, p string, dir bool, content string) (string, error) {
	parent, leaf, err := vpath.Split(p)
	if err != nil {
		return "", pathErr(op, p, err)
	}
	path := vpath.Join(parent, leaf)
	if _, exists := s.nodes[path]; exists {
		return "", pathErr(op, path, ErrPathConflict)
	}

	e := &entry{name: leaf, path: path, dir: dir, content: content}
	if parent == vpath.Root {
		s.roots = append(s.roots, path)
	} else {
		pe, ok := s.nodes[parent]
		if !ok || !pe.dir {
			return "", pathErr(op, path, ErrNoSuchDirectory)
		}
		pe.children = append(pe.children, path)
	}
	s.nodes[path] = e
	return path, nil
}

// MkdirAll creates p and any missing ancestors. Existing directories are
// left untouched; an existing file anywhere on the way is an error.
func (s *Store) MkdirAll(p string) error {
	clean, err := vpath.Clean(p)
	if err != nil {
		return pathErr("mkdir", p, err)
	}

	var created []Event
	s.mu.Lock()
	cur := vpath.Root
	for _, seg := range segments(clean) {
		cur = vpath.Join(cur, seg)
		if e, ok := s.nodes[cur]; ok {
			if !e.dir {
				s.mu.Unlock()
				return pathErr("mkdir", cur, ErrNoSuchDirectory)
			}
			continue
		}
		if _, err := s.insert("mkdir", cur, true, ""); err != nil {
			s.mu.Unlock()
			return err
		}
		created = append(created, Event{Type: EventCreate, Path: cur, IsDir: true})
	}
	s.mu.Unlock()

	s.publish(created...)
	return nil
}

// Content returns the content of the file at p. The boolean is false when
// no file exists there.
func (s *Store) Content(p string) (string, bool) {
	path, err := vpath.Clean(p)
	if err != nil {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.nodes[path]
	if !ok || e.dir {
		return "", false
	}
	return e.content, true
}

// SetContent overwrites the content of the file at p. It does nothing when
// p does not name a file.
func (s *Store) SetContent(p, content string) {
	path, err := vpath.Clean(p)
	if err != nil {
		return
	}
	s.mu.Lock()
	e, ok := s.nodes[path]
	if !ok || e.dir {
		s.mu.Unlock()
		return
	}
	e.content = content
	s.mu.Unlock()

	s.publish(Event{Type: EventWrite, Path: path})
}

// Delete removes the node at p together with all of its descendants.
// wasCurrent reports whether current (the path selected by the editor)
// was p or lay beneath it, so the caller can clear its selection.
// Deleting a missing path is a no-op.
func (s *Store) Delete(p, current string) (wasCurrent bool, err error) {
	parent, _, err := vpath.Split(p)
	if err != nil {
		return false, pathErr("delete", p, err)
	}
	path := vpath.Normalize(p)

	s.mu.Lock()
	e, ok := s.nodes[path]
	if !ok {
		s.mu.Unlock()
		return false, nil
	}
	s.removeTree(e)
	if parent == vpath.Root {
		s.roots = without(s.roots, path)
	} else if pe, ok := s.nodes[parent]; ok {
		pe.children = without(pe.children, path)
	}
	s.mu.Unlock()

	s.publish(Event{Type: EventRemove, Path: path, IsDir: e.dir})
	return current != "" && vpath.IsWithin(current, path), nil
}

func (s *Store) removeTree(e *entry) {
	for _, c := range e.children {
		if ce, ok := s.nodes[c]; ok {
			s.removeTree(ce)
		}
	}
	delete(s.nodes, e.path)
}

// Stat returns metadata for the node at p.
func (s *Store) Stat(p string) (Info, bool) {
	path, err := vpath.Clean(p)
	if err != nil {
		return Info{}, false
	}
	if path == vpath.Root {
		return Info{Name: vpath.Root, Path: vpath.Root, IsDir: true}, true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.nodes[path]
	if !ok {
		return Info{}, false
	}
	return e.info(), true
}

// List returns the children of the directory at p in display order. The
// root lists the top-level entries.
func (s *Store) List(p string) ([]Info, error) {
	path, err := vpath.Clean(p)
	if err != nil {
		return nil, pathErr("list", p, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	children := s.roots
	if path != vpath.Root {
		e, ok := s.nodes[path]
		if !ok || !e.dir {
			return nil, pathErr("list", path, ErrNoSuchDirectory)
		}
		children = e.children
	}

	out := make([]Info, 0, len(children))
	for _, c := range children {
		out = append(out, s.nodes[c].info())
	}
	return out, nil
}

// Tree returns a deep copy of the whole forest.
func (s *Store) Tree() []FileNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot(s.roots)
}

func (s *Store) snapshot(paths []string) []FileNode {
	out := make([]FileNode, 0, len(paths))
	for _, p := range paths {
		e := s.nodes[p]
		n := FileNode{Name: e.name, Path: e.path, Type: TypeFile, Content: e.content}
		if e.dir {
			n.Type = TypeDirectory
			n.Children = s.snapshot(e.children)
		}
		out = append(out, n)
	}
	return out
}

// Len returns the number of nodes in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

func (e *entry) info() Info {
	return Info{Name: e.name, Path: e.path, IsDir: e.dir, Size: len(e.content)}
}

func without(list []string, item string) []string {
	out := list[:0]
	for _, v := range list {
		if v != item {
			out = append(out, v)
		}
	}
	return out
}

func segments(clean string) []string {
	if clean == vpath.Root {
		return nil
	}
	var segs []string
	start := 1
	for i := 1; i <= len(clean); i++ {
		if i == len(clean) || clean[i] == vpath.Separator {
			segs = append(segs, clean[start:i])
			start = i + 1
		}
	}
	return segs
}
