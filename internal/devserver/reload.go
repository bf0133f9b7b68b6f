package devserver

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"git.home.luguber.info/inful/mdxbuilder/internal/logfields"
)

// ReloadPath is the reserved websocket endpoint for reload signals.
const ReloadPath = "/__mdxbuilder/reload"

const writeWait = 5 * time.Second

// ReloadScript connects to the reload endpoint and reloads the page on signal.
const ReloadScript = `<script>(() => {
  if (window.__MDXBUILDER_RELOAD__) return;
  window.__MDXBUILDER_RELOAD__ = true;
  function connect() {
    const proto = location.protocol === "https:" ? "wss:" : "ws:";
    const ws = new WebSocket(proto + "//" + location.host + "` + ReloadPath + `");
    ws.onmessage = (e) => { if (e.data === "reload") location.reload(); };
    ws.onclose = () => setTimeout(connect, 1000);
  }
  connect();
})();</script>`

// ReloadHub tracks websocket clients waiting for reload signals.
type ReloadHub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]*sync.Mutex
	closed  bool
}

// NewReloadHub returns an empty hub.
func NewReloadHub() *ReloadHub {
	return &ReloadHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*websocket.Conn]*sync.Mutex),
	}
}

// ServeHTTP upgrades the request and holds the connection until the client leaves.
func (h *ReloadHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		http.Error(w, "reload hub shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("Reload upgrade failed", logfields.Error(err))
		return
	}
	h.mu.Lock()
	h.clients[conn] = &sync.Mutex{}
	h.mu.Unlock()

	// Clients never send anything meaningful; reading detects disconnects.
	for {
		if _, _, err := conn.NextReader(); err != nil {
			break
		}
	}
	h.remove(conn)
}

// Broadcast sends msg to every connected client, dropping clients that fail.
func (h *ReloadHub) Broadcast(msg string) {
	h.mu.Lock()
	snapshot := make(map[*websocket.Conn]*sync.Mutex, len(h.clients))
	for c, wmu := range h.clients {
		snapshot[c] = wmu
	}
	h.mu.Unlock()

	dropped := 0
	for c, wmu := range snapshot {
		wmu.Lock()
		_ = c.SetWriteDeadline(time.Now().Add(writeWait))
		err := c.WriteMessage(websocket.TextMessage, []byte(msg))
		wmu.Unlock()
		if err != nil {
			dropped++
			h.remove(c)
		}
	}
	slog.Debug("Reload broadcast", logfields.Count(len(snapshot)), slog.Int("dropped", dropped))
}

// Clients returns the number of connected clients.
func (h *ReloadHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *ReloadHub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := h.clients
	h.clients = make(map[*websocket.Conn]*sync.Mutex)
	h.mu.Unlock()
	for c := range clients {
		_ = c.Close()
	}
}

func (h *ReloadHub) remove(c *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		_ = c.Close()
	}
}
