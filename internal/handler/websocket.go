package handler

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/CageChen/codespace/internal/metrics"
	"github.com/CageChen/codespace/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// wsConn serializes writes to one connection.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsConn) write(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// WSHandler pushes store and selection changes to every connected browser.
type WSHandler struct {
	clients map[*websocket.Conn]*wsConn
	mu      sync.RWMutex
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewWSHandler creates a new WebSocket handler
func NewWSHandler(m *metrics.Metrics, log *zap.Logger) *WSHandler {
	return &WSHandler{
		clients: make(map[*websocket.Conn]*wsConn),
		metrics: m,
		log:     log,
	}
}

// HandleWS handles WebSocket upgrade and connection
func (h *WSHandler) HandleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer func() {
		h.removeClient(conn)
		_ = conn.Close()
	}()

	h.addClient(conn)

	// Keep connection alive until the client goes away
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
		h.metrics.RecordWSMessage("in")
	}
}

// OnStoreEvent broadcasts a store mutation as a fileChange message.
func (h *WSHandler) OnStoreEvent(event store.Event) {
	h.broadcast(WSMessage{
		Type: "fileChange",
		Payload: gin.H{
			"event": event.Type.String(),
			"path":  event.Path,
			"isDir": event.IsDir,
		},
	})
}

// OnSelection broadcasts a new editor selection.
func (h *WSHandler) OnSelection(path string) {
	h.broadcast(WSMessage{Type: "selection", Payload: gin.H{"path": path}})
}

// Clients returns the number of connected browsers.
func (h *WSHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *WSHandler) addClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = &wsConn{conn: conn}
}

func (h *WSHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
}

func (h *WSHandler) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.RLock()
	clients := make([]*wsConn, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if err := client.write(data); err != nil {
			h.removeClient(client.conn)
			continue
		}
		h.metrics.RecordWSMessage("out")
	}
}
