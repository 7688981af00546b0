package mount

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/CageChen/codespace/internal/config"
	"github.com/CageChen/codespace/internal/store"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Selection is the editor's current file, cleared when a watched removal
// takes it away.
type Selection interface {
	Current() string
	Clear()
}

// Watcher mirrors disk changes under local mounts into the store. Creates
// and writes become CreateFile or SetContent; removes and renames become
// Delete. Nothing is ever written back to disk.
type Watcher struct {
	watcher  *fsnotify.Watcher
	importer *Importer
	sel      Selection
	log      *zap.Logger

	mu      sync.RWMutex
	folders map[string]config.Folder // keyed by local root
	done    chan struct{}
}

// NewWatcher creates a watcher that applies changes through im.
func NewWatcher(im *Importer, sel Selection) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:  fw,
		importer: im,
		sel:      sel,
		log:      im.log.Named("watcher"),
		folders:  make(map[string]config.Folder),
		done:     make(chan struct{}),
	}, nil
}

// Add starts watching a local folder. Git mounts are ignored; they read
// from the object database.
func (w *Watcher) Add(f config.Folder) error {
	if f.GitRef != "" {
		return nil
	}
	root := NewLocal(filepath.Join(f.Path, filepath.FromSlash(f.SubPath))).Root()

	w.mu.Lock()
	w.folders[root] = f
	w.mu.Unlock()

	return w.watchTree(root, f)
}

// Remove stops watching a folder.
func (w *Watcher) Remove(f config.Folder) {
	root := NewLocal(filepath.Join(f.Path, filepath.FromSlash(f.SubPath))).Root()

	w.mu.Lock()
	delete(w.folders, root)
	w.mu.Unlock()

	for _, p := range w.watcher.WatchList() {
		if p == root || strings.HasPrefix(p, root+string(filepath.Separator)) {
			_ = w.watcher.Remove(p)
		}
	}
}

func (w *Watcher) watchTree(dir string, f config.Folder) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if rel, ok := w.relative(dir, p); ok && rel != "" && w.importer.cfg.IsExcluded(rel, f.Exclude) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(p); err != nil {
			w.log.Warn("cannot watch directory", zap.String("path", p), zap.Error(err))
		}
		return nil
	})
}

// Start begins processing events.
func (w *Watcher) Start() {
	go w.eventLoop()
}

// Stop stops the watcher
func (w *Watcher) Stop() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", zap.Error(err))
		}
	}
}

// folderFor returns the mounted folder containing the disk path p.
func (w *Watcher) folderFor(p string) (string, config.Folder, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for root, f := range w.folders {
		if p == root || strings.HasPrefix(p, root+string(filepath.Separator)) {
			return root, f, true
		}
	}
	return "", config.Folder{}, false
}

func (w *Watcher) relative(root, p string) (string, bool) {
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	if rel == "." {
		return "", true
	}
	return filepath.ToSlash(rel), true
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	root, f, ok := w.folderFor(event.Name)
	if !ok {
		return
	}
	rel, ok := w.relative(root, event.Name)
	if !ok || rel == "" || w.importer.cfg.IsExcluded(rel, f.Exclude) {
		return
	}
	dst := storePath(f, rel)

	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		w.sync(root, f, rel, dst)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.remove(dst)
	}
}

// sync brings the store node at dst in line with the disk entry at rel.
func (w *Watcher) sync(root string, f config.Folder, rel, dst string) {
	s := w.importer.store
	diskPath := filepath.Join(root, filepath.FromSlash(rel))
	info, err := os.Stat(diskPath)
	if err != nil {
		return
	}

	if info.IsDir() {
		if err := s.MkdirAll(dst); err != nil {
			w.log.Warn("sync directory failed", zap.String("path", dst), zap.Error(err))
			return
		}
		// Files may land before the watch is in place.
		var stats Stats
		if err := w.importer.walk(NewLocal(root), f, rel, &stats); err != nil {
			w.log.Warn("sync directory contents failed", zap.String("path", dst), zap.Error(err))
		}
		_ = w.watchTree(diskPath, f)
		w.log.Debug("directory synced", zap.String("path", dst), zap.Int("files", stats.Files))
		return
	}

	data, err := os.ReadFile(diskPath)
	if err != nil || !importable(data) {
		return
	}
	if _, ok := s.Content(dst); ok {
		s.SetContent(dst, string(data))
		w.log.Debug("file updated", zap.String("path", dst))
		return
	}
	if err := s.MkdirAll(path.Dir(dst)); err != nil {
		w.log.Warn("sync file failed", zap.String("path", dst), zap.Error(err))
		return
	}
	if err := s.CreateFile(dst, string(data)); err != nil && !errors.Is(err, store.ErrPathConflict) {
		w.log.Warn("sync file failed", zap.String("path", dst), zap.Error(err))
		return
	}
	w.log.Debug("file created", zap.String("path", dst))
}

func (w *Watcher) remove(dst string) {
	current := ""
	if w.sel != nil {
		current = w.sel.Current()
	}
	wasCurrent, err := w.importer.store.Delete(dst, current)
	if err != nil {
		w.log.Warn("sync removal failed", zap.String("path", dst), zap.Error(err))
		return
	}
	if wasCurrent && w.sel != nil {
		w.sel.Clear()
	}
	w.log.Debug("node removed", zap.String("path", dst))
}
