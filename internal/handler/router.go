package handler

import (
	"net/http"

	"github.com/CageChen/codespace/internal/metrics"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers groups everything the router serves.
type Handlers struct {
	Tree     *TreeHandler
	Files    *FileHandler
	Mounts   *MountHandler
	Changes  *WSHandler
	Terminal *TerminalHandler
	Metrics  *metrics.Metrics
	Static   http.Handler
	Log      *zap.Logger
}

// NewRouter builds the gin engine with the API routes, /metrics and the
// static web client.
func NewRouter(h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(h.Log))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Content-Type"},
	}))
	r.Use(h.Metrics.Middleware())

	api := r.Group("/api")
	{
		// Workspace tree and editor APIs
		api.GET("/tree", h.Tree.GetTree)
		api.POST("/nodes", h.Tree.CreateNode)
		api.DELETE("/nodes/*path", h.Tree.DeleteNode)
		api.GET("/files/*path", h.Files.GetFile)
		api.PUT("/files/*path", h.Files.PutFile)
		api.GET("/raw/*path", h.Files.GetRaw)
		api.GET("/preview/*path", h.Files.GetPreview)
		api.GET("/current", h.Files.GetCurrent)
		api.PUT("/current", h.Files.PutCurrent)

		// Live channels
		api.GET("/ws", h.Changes.HandleWS)
		api.GET("/terminal", h.Terminal.HandleTerminal)

		// Disk mounts
		api.GET("/mounts", h.Mounts.GetMounts)
		api.POST("/mounts", h.Mounts.AddMount)
		api.DELETE("/mounts/:index", h.Mounts.RemoveMount)
	}
	r.GET("/metrics", gin.WrapH(h.Metrics.Handler()))

	if h.Static != nil {
		r.NoRoute(gin.WrapH(h.Static))
	}
	return r
}

// requestLogger logs each API request at debug level.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Int("size", c.Writer.Size()))
	}
}
