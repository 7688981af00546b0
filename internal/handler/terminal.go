package handler

import (
	"context"
	"encoding/json"

	"github.com/CageChen/codespace/internal/config"
	"github.com/CageChen/codespace/internal/metrics"
	"github.com/CageChen/codespace/internal/terminal"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// TerminalInput is a message from the browser terminal.
type TerminalInput struct {
	Type string `json:"type"` // "input" or "ping"
	Data string `json:"data,omitempty"`
}

// TerminalOutput is the payload of an "output" message: the ANSI stream
// for xterm-style widgets plus the instructions it was encoded from.
type TerminalOutput struct {
	Data string                 `json:"data"`
	Ops  []terminal.Instruction `json:"ops"`
}

// TerminalHandler runs one terminal session per WebSocket connection.
type TerminalHandler struct {
	runner  terminal.Runner
	cfg     config.Terminal
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewTerminalHandler creates a terminal handler whose sessions run commands
// with runner.
func NewTerminalHandler(runner terminal.Runner, cfg config.Terminal, m *metrics.Metrics, log *zap.Logger) *TerminalHandler {
	return &TerminalHandler{runner: runner, cfg: cfg, metrics: m, log: log}
}

// HandleTerminal upgrades the connection and serves a session until the
// browser disconnects.
func (h *TerminalHandler) HandleTerminal(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debug("terminal upgrade failed", zap.Error(err))
		return
	}
	out := &wsConn{conn: conn}
	id := uuid.NewString()
	log := h.log.With(zap.String("session", id))

	send := func(msg WSMessage) {
		data, err := json.Marshal(msg)
		if err != nil {
			return
		}
		if err := out.write(data); err != nil {
			log.Debug("terminal write failed", zap.Error(err))
			return
		}
		h.metrics.RecordWSMessage("out")
	}

	screen := terminal.ScreenFunc(func(batch []terminal.Instruction) {
		send(WSMessage{
			Type:    "output",
			Payload: TerminalOutput{Data: terminal.EncodeANSI(batch), Ops: batch},
		})
	})

	ctx, cancel := context.WithCancel(context.Background())
	engine := terminal.New(ctx, h.runner, screen, terminal.Config{
		User:       h.cfg.User,
		Greeting:   h.cfg.Greeting,
		QueueDepth: h.cfg.QueueDepth,
		Logger:     log,
		OnCommand: func(line string, err error) {
			if err != nil {
				log.Warn("command failed", zap.String("line", line), zap.Error(err))
			}
		},
	})

	h.metrics.SessionOpened()
	log.Info("terminal session opened", zap.String("remote", c.ClientIP()))
	defer func() {
		cancel()
		engine.Close()
		_ = conn.Close()
		h.metrics.SessionClosed()
		log.Info("terminal session closed")
	}()

	send(WSMessage{Type: "session", Payload: gin.H{"id": id}})
	engine.Start()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("terminal read failed", zap.Error(err))
			}
			return
		}
		h.metrics.RecordWSMessage("in")

		var msg TerminalInput
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Debug("malformed terminal message", zap.Error(err))
			continue
		}
		switch msg.Type {
		case "input":
			engine.Feed(msg.Data)
		case "ping":
			send(WSMessage{Type: "pong"})
		}
	}
}
