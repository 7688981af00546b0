// Package handler provides the HTTP and WebSocket handlers of the codespace
// API.
package handler

import (
	"net/http"

	"github.com/CageChen/codespace/internal/metrics"
	"github.com/CageChen/codespace/internal/render"
	"github.com/CageChen/codespace/internal/store"
	"github.com/CageChen/codespace/internal/vpath"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FileResponse is a file as the editor loads it.
type FileResponse struct {
	Path     string `json:"path"`
	Name     string `json:"name"`
	Content  string `json:"content"`
	Language string `json:"language"`
}

// FileHandler handles file content, preview and selection requests.
type FileHandler struct {
	store    *store.Store
	sel      *Selection
	renderer *render.Renderer
	metrics  *metrics.Metrics
	log      *zap.Logger
}

// NewFileHandler creates a new file handler
func NewFileHandler(s *store.Store, sel *Selection, r *render.Renderer, m *metrics.Metrics, log *zap.Logger) *FileHandler {
	return &FileHandler{store: s, sel: sel, renderer: r, metrics: m, log: log}
}

// lookup loads the file named by the path parameter, writing the error
// response itself when there is none.
func (h *FileHandler) lookup(c *gin.Context) (string, string, bool) {
	p, err := vpath.Clean(c.Param("path"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid path")
		return "", "", false
	}
	content, ok := h.store.Content(p)
	if ok {
		return p, content, true
	}
	if info, exists := h.store.Stat(p); exists && info.IsDir {
		respondError(c, http.StatusBadRequest, "path is a directory")
		return "", "", false
	}
	respondError(c, http.StatusNotFound, "file not found")
	return "", "", false
}

// GetFile returns a file's content and editor language.
func (h *FileHandler) GetFile(c *gin.Context) {
	p, content, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, FileResponse{
		Path:     p,
		Name:     vpath.Base(p),
		Content:  content,
		Language: render.Language(p),
	})
}

// UpdateFileRequest carries editor content.
type UpdateFileRequest struct {
	Content *string `json:"content" binding:"required"`
}

// PutFile saves editor content. Saving to a path that is no longer a file
// changes nothing and reports 404.
func (h *FileHandler) PutFile(c *gin.Context) {
	var req UpdateFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "content is required")
		return
	}
	p, _, ok := h.lookup(c)
	if !ok {
		h.metrics.RecordStoreOp("set_content", errNotAFile)
		return
	}

	h.store.SetContent(p, *req.Content)
	h.metrics.RecordStoreOp("set_content", nil)
	c.JSON(http.StatusOK, gin.H{"path": p, "size": len(*req.Content)})
}

// GetRaw returns the file bytes with a sniffed content type.
func (h *FileHandler) GetRaw(c *gin.Context) {
	_, content, ok := h.lookup(c)
	if !ok {
		return
	}
	data := []byte(content)
	c.Data(http.StatusOK, mimetype.Detect(data).String(), data)
}

// GetPreview returns sanitized HTML for a file.
func (h *FileHandler) GetPreview(c *gin.Context) {
	p, content, ok := h.lookup(c)
	if !ok {
		return
	}
	preview, err := h.renderer.Render(p, content)
	if err != nil {
		h.log.Warn("preview failed", zap.String("path", p), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to render preview: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, preview)
}

// GetCurrent returns the editor selection.
func (h *FileHandler) GetCurrent(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"path": h.sel.Current()})
}

// SelectRequest changes the editor selection; an empty path clears it.
type SelectRequest struct {
	Path string `json:"path"`
}

// PutCurrent selects a file.
func (h *FileHandler) PutCurrent(c *gin.Context) {
	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Path == "" {
		h.sel.Clear()
		c.JSON(http.StatusOK, gin.H{"path": ""})
		return
	}

	p, err := vpath.Clean(req.Path)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid path")
		return
	}
	if _, ok := h.store.Content(p); !ok {
		respondError(c, http.StatusNotFound, "file not found")
		return
	}
	h.sel.Set(p)
	c.JSON(http.StatusOK, gin.H{"path": p})
}
