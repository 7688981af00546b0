package handler

import (
	"net/http"

	"github.com/CageChen/codespace/internal/metrics"
	"github.com/CageChen/codespace/internal/store"
	"github.com/CageChen/codespace/internal/vpath"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TreeHandler serves the workspace tree and node creation and deletion.
type TreeHandler struct {
	store   *store.Store
	sel     *Selection
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewTreeHandler creates a new tree handler
func NewTreeHandler(s *store.Store, sel *Selection, m *metrics.Metrics, log *zap.Logger) *TreeHandler {
	return &TreeHandler{store: s, sel: sel, metrics: m, log: log}
}

// GetTree returns the whole forest.
func (h *TreeHandler) GetTree(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"type":     "root",
		"children": h.store.Tree(),
		"current":  h.sel.Current(),
	})
}

// CreateNodeRequest represents a request to create a file or directory
type CreateNodeRequest struct {
	Path    string         `json:"path" binding:"required"`
	Type    store.NodeType `json:"type"`
	Content string         `json:"content"`
}

// CreateNode adds a file (the default) or a directory.
func (h *TreeHandler) CreateNode(c *gin.Context) {
	var req CreateNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "path is required")
		return
	}

	var err error
	switch req.Type {
	case store.TypeDirectory:
		err = h.store.CreateDirectory(req.Path)
		h.metrics.RecordStoreOp("create_directory", err)
	case store.TypeFile, "":
		err = h.store.CreateFile(req.Path, req.Content)
		h.metrics.RecordStoreOp("create_file", err)
	default:
		respondError(c, http.StatusBadRequest, "type must be file or directory")
		return
	}
	if err != nil {
		respondStoreError(c, err)
		return
	}
	h.metrics.SetStoreNodes(h.store.Len())

	info, _ := h.store.Stat(req.Path)
	h.log.Debug("node created", zap.String("path", info.Path), zap.Bool("dir", info.IsDir))
	c.JSON(http.StatusCreated, info)
}

// DeleteNode removes a node and everything beneath it.
func (h *TreeHandler) DeleteNode(c *gin.Context) {
	p := c.Param("path")
	if vpath.Normalize(p) == vpath.Root {
		respondError(c, http.StatusBadRequest, "cannot delete the workspace root")
		return
	}

	wasCurrent, err := h.store.Delete(p, h.sel.Current())
	h.metrics.RecordStoreOp("delete", err)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	if wasCurrent {
		h.sel.Clear()
	}
	h.metrics.SetStoreNodes(h.store.Len())

	c.JSON(http.StatusOK, gin.H{"wasCurrent": wasCurrent})
}
