package handler

import "sync"

// Selection is the file open in the editor. It is shared by the HTTP API,
// the terminal interpreter and the mount watcher.
type Selection struct {
	mu       sync.RWMutex
	current  string
	onChange []func(path string)
}

// NewSelection creates a selection pointing at initial.
func NewSelection(initial string) *Selection {
	return &Selection{current: initial}
}

// OnChange registers fn to be called with the new path after every change.
func (s *Selection) OnChange(fn func(path string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// Current returns the selected path, or "" when nothing is open.
func (s *Selection) Current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Set selects p.
func (s *Selection) Set(p string) {
	s.mu.Lock()
	changed := s.current != p
	s.current = p
	callbacks := append([]func(string){}, s.onChange...)
	s.mu.Unlock()

	if changed {
		for _, fn := range callbacks {
			fn(p)
		}
	}
}

// Clear deselects the current file.
func (s *Selection) Clear() {
	s.Set("")
}
