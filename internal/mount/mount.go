package mount

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/CageChen/codespace/internal/config"
	"github.com/CageChen/codespace/internal/store"
	"github.com/CageChen/codespace/internal/vpath"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

// MaxFileSize is the largest file imported into the store.
const MaxFileSize = 1 << 20

// Stats counts what an import did.
type Stats struct {
	Files   int
	Dirs    int
	Skipped int
}

// Importer copies folder trees into the store.
type Importer struct {
	store *store.Store
	cfg   *config.Config
	log   *zap.Logger
}

// NewImporter creates an Importer writing into s and filtering with the
// excludes of cfg.
func NewImporter(s *store.Store, cfg *config.Config, log *zap.Logger) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{store: s, cfg: cfg, log: log}
}

// Target returns the store directory a folder is mounted at.
func Target(f config.Folder) string {
	return vpath.Join(vpath.Root, f.Alias)
}

// Import copies f into the store under /<alias>. The mount point must not
// exist yet.
func (im *Importer) Import(f config.Folder) (Stats, error) {
	var stats Stats
	target := Target(f)
	if _, err := vpath.Clean(target); err != nil || target == vpath.Root {
		return stats, fmt.Errorf("mount %q: %w", f.Alias, store.ErrInvalidPath)
	}
	if err := im.store.CreateDirectory(target); err != nil {
		return stats, fmt.Errorf("mount %q: %w", f.Alias, err)
	}
	stats.Dirs++

	if err := im.walk(NewSource(f), f, "", &stats); err != nil {
		_, _ = im.store.Delete(target, "")
		return Stats{}, fmt.Errorf("mount %q: %w", f.Alias, err)
	}
	im.log.Info("folder mounted",
		zap.String("alias", f.Alias),
		zap.String("path", f.Path),
		zap.String("ref", f.GitRef),
		zap.Int("files", stats.Files),
		zap.Int("dirs", stats.Dirs),
		zap.Int("skipped", stats.Skipped))
	return stats, nil
}

// ImportAll mounts every configured folder, logging and skipping the ones
// that fail.
func (im *Importer) ImportAll() Stats {
	var total Stats
	for _, f := range im.cfg.Folders {
		s, err := im.Import(f)
		if err != nil {
			im.log.Warn("mount failed", zap.String("alias", f.Alias), zap.Error(err))
		}
		total.Files += s.Files
		total.Dirs += s.Dirs
		total.Skipped += s.Skipped
	}
	return total
}

// Unmount removes the folder's subtree from the store. The returned flag
// reports whether current lay inside it.
func (im *Importer) Unmount(f config.Folder, current string) (bool, error) {
	return im.store.Delete(Target(f), current)
}

func (im *Importer) walk(src Source, f config.Folder, rel string, stats *Stats) error {
	entries, err := src.ReadDir(rel)
	if err != nil {
		return fmt.Errorf("read %q: %w", rel, err)
	}

	for _, e := range entries {
		child := path.Join(rel, e.Name)
		if im.cfg.IsExcluded(child, f.Exclude) {
			stats.Skipped++
			continue
		}
		dst := vpath.Join(Target(f), child)

		if e.IsDir {
			if err := im.store.CreateDirectory(dst); err != nil && !errors.Is(err, store.ErrPathConflict) {
				im.log.Debug("skip directory", zap.String("path", dst), zap.Error(err))
				stats.Skipped++
				continue
			}
			stats.Dirs++
			if err := im.walk(src, f, child, stats); err != nil {
				im.log.Warn("skip unreadable directory", zap.String("path", dst), zap.Error(err))
			}
			continue
		}

		data, err := src.ReadFile(child)
		if err != nil || !importable(data) {
			stats.Skipped++
			continue
		}
		if err := im.store.CreateFile(dst, string(data)); err != nil {
			im.log.Debug("skip file", zap.String("path", dst), zap.Error(err))
			stats.Skipped++
			continue
		}
		stats.Files++
	}
	return nil
}

// importable reports whether data is small text the editor can show.
func importable(data []byte) bool {
	if len(data) > MaxFileSize {
		return false
	}
	if len(data) == 0 {
		return true
	}
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

// storePath maps a slash-separated path inside folder f to the store.
func storePath(f config.Folder, rel string) string {
	rel = strings.Trim(rel, "/")
	if rel == "" || rel == "." {
		return Target(f)
	}
	return vpath.Join(Target(f), rel)
}
