package daemon

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"oepma/internal/logging"
)

const wsWriteTimeout = 2 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the API binds to loopback unless configured otherwise
	CheckOrigin: func(*http.Request) bool { return true },
}

// EventHub fans throttled log signals out to websocket clients.
type EventHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	logger  *slog.Logger
}

// NewEventHub returns an empty hub.
func NewEventHub(logger *slog.Logger) *EventHub {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &EventHub{clients: make(map[*websocket.Conn]struct{}), logger: logger}
}

// Remove drops and closes a client connection.
func (h *EventHub) Remove(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, ws)
	h.mu.Unlock()
	_ = ws.Close()
}

// Count is the number of connected clients.
func (h *EventHub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends v as JSON to every client. Clients that fail to receive
// within the write timeout are dropped.
func (h *EventHub) Broadcast(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		h.logger.Warn("encode websocket message", logging.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ws := range h.clients {
		_ = ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
			_ = ws.Close()
			delete(h.clients, ws)
		}
	}
}

// CloseAll disconnects every client.
func (h *EventHub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ws := range h.clients {
		_ = ws.Close()
		delete(h.clients, ws)
	}
}

// ServeWS upgrades the request and keeps the client registered until it
// disconnects. Incoming messages are ignored.
func (h *EventHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", logging.Error(err))
		return
	}
	h.mu.Lock()
	_ = ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	err = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"welcome"}`))
	h.clients[ws] = struct{}{}
	h.mu.Unlock()
	if err != nil {
		h.Remove(ws)
		return
	}
	h.logger.Debug("websocket client connected", logging.Int("clients", h.Count()))

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
	h.Remove(ws)
	h.logger.Debug("websocket client disconnected")
}
