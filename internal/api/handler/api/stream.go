package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/newthinker/signalbook/internal/paper"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StreamHandler pushes engine snapshots over a websocket.
type StreamHandler struct {
	engine   *paper.Engine
	interval time.Duration
	logger   *zap.Logger
}

// NewStreamHandler creates a handler that sends a snapshot on connect and
// then once per interval.
func NewStreamHandler(engine *paper.Engine, interval time.Duration, logger *zap.Logger) *StreamHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &StreamHandler{engine: engine, interval: interval, logger: logger}
}

// Snapshots upgrades the connection and streams until the client goes away.
func (h *StreamHandler) Snapshots(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Reads only detect the close; clients send nothing.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(h.engine.Snapshot()); err != nil {
			h.logger.Debug("snapshot stream closed", zap.Error(err))
			return
		}

		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
