package handler

import (
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/CageChen/codespace/internal/config"
	"github.com/CageChen/codespace/internal/mount"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FolderWatcher follows disk changes of mounted folders.
type FolderWatcher interface {
	Add(f config.Folder) error
	Remove(f config.Folder)
}

// MountHandler manages the disk folders mounted into the workspace.
type MountHandler struct {
	mu       sync.Mutex
	cfg      *config.Config
	importer *mount.Importer
	watcher  FolderWatcher
	sel      *Selection
	log      *zap.Logger
}

// NewMountHandler creates a mount handler. watcher may be nil when
// watching is disabled.
func NewMountHandler(cfg *config.Config, im *mount.Importer, w FolderWatcher, sel *Selection, log *zap.Logger) *MountHandler {
	return &MountHandler{cfg: cfg, importer: im, watcher: w, sel: sel, log: log}
}

// GetMounts returns the configured folders and global excludes.
func (h *MountHandler) GetMounts(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{
		"folders":       h.cfg.Folders,
		"globalExclude": h.cfg.Exclude,
	})
}

// AddMountRequest represents a request to mount a folder
type AddMountRequest struct {
	Path    string   `json:"path" binding:"required"`
	Alias   string   `json:"alias"`
	GitRef  string   `json:"git_ref"`
	SubPath string   `json:"sub_path"`
	Exclude []string `json:"exclude"`
}

// AddMount imports a folder under /<alias> and persists it in the config.
func (h *MountHandler) AddMount(c *gin.Context) {
	var req AddMountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "path is required")
		return
	}

	// The path must be a directory on disk even for git_ref folders.
	info, err := os.Stat(req.Path)
	if err != nil {
		respondError(c, http.StatusBadRequest, "path does not exist: "+req.Path)
		return
	}
	if !info.IsDir() {
		respondError(c, http.StatusBadRequest, "path is not a directory")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	before := len(h.cfg.Folders)
	if err := h.cfg.AddFolder(req.Path, req.Alias, req.GitRef, req.SubPath, req.Exclude); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if len(h.cfg.Folders) == before {
		c.JSON(http.StatusOK, gin.H{"message": "folder already mounted", "folders": h.cfg.Folders})
		return
	}
	folder := h.cfg.Folders[len(h.cfg.Folders)-1]

	stats, err := h.importer.Import(folder)
	if err != nil {
		h.cfg.RemoveFolderByIndex(len(h.cfg.Folders) - 1)
		if statusFor(err) == http.StatusInternalServerError {
			respondError(c, http.StatusBadRequest, "cannot read folder: "+err.Error())
			return
		}
		respondStoreError(c, err)
		return
	}
	if h.watcher != nil && h.cfg.Watch {
		if err := h.watcher.Add(folder); err != nil {
			h.log.Warn("cannot watch folder", zap.String("path", folder.Path), zap.Error(err))
		}
	}

	if err := h.cfg.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to save config: "+err.Error())
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "folder mounted",
		"folder":  folder,
		"files":   stats.Files,
		"folders": h.cfg.Folders,
	})
}

// RemoveMount unmounts the folder at the index path parameter.
func (h *MountHandler) RemoveMount(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid folder index")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	folder, ok := h.cfg.RemoveFolderByIndex(index)
	if !ok {
		respondError(c, http.StatusBadRequest, "invalid folder index")
		return
	}
	if h.watcher != nil {
		h.watcher.Remove(folder)
	}

	wasCurrent, err := h.importer.Unmount(folder, h.sel.Current())
	if err != nil {
		respondStoreError(c, err)
		return
	}
	if wasCurrent {
		h.sel.Clear()
	}

	if err := h.cfg.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to save config: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "folder removed",
		"wasCurrent": wasCurrent,
		"folders":    h.cfg.Folders,
	})
}
