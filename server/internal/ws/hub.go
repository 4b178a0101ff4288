package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/benchboard/benchboard/pkg/regress"
	"github.com/benchboard/benchboard/pkg/types"
	"github.com/benchboard/benchboard/server/internal/api"
	"github.com/benchboard/benchboard/server/internal/store"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often the server sends WebSocket ping frames.
	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16
)

// Event names carried in Message.Event.
const (
	EventSummary = "summary"
	EventEntry   = "entry"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Allow all origins; apply CORS at the reverse-proxy level.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the JSON envelope sent to clients.
type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// EntryEvent is the payload of an "entry" message: the appended entry and its
// comparison with the baseline.
type EntryEvent struct {
	Suite    string           `json:"suite"`
	Entry    types.Entry      `json:"entry"`
	Baseline string           `json:"baseline,omitempty"`
	Changes  []regress.Change `json:"changes"`
}

// SummaryFunc builds the overview sent on connect and on every tick.
type SummaryFunc func() api.SummaryResponse

// Hub manages WebSocket client connections. It forwards every store append
// to all clients and broadcasts a summary every interval.
type Hub struct {
	summary  SummaryFunc
	interval time.Duration

	events      <-chan store.Event
	unsubscribe func()

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// client represents one connected WebSocket client.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// New creates a Hub subscribed to st's append events.
func New(st *store.Store, interval time.Duration, summary SummaryFunc) *Hub {
	events, unsubscribe := st.Subscribe()
	return &Hub{
		summary:     summary,
		interval:    interval,
		events:      events,
		unsubscribe: unsubscribe,
		clients:     make(map[*client]struct{}),
	}
}

// Run forwards append events and sends a summary to all connected clients
// every interval. Run blocks until ctx is cancelled, then closes all active
// connections.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(h.interval)
	defer t.Stop()
	defer h.unsubscribe()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-t.C:
			h.broadcast(h.summaryMessage())
		case ev, ok := <-h.events:
			if !ok {
				h.closeAll()
				return
			}
			h.broadcast(entryMessage(ev))
		}
	}
}

// ServeHTTP upgrades the HTTP connection to WebSocket and serves the client.
// It sends a summary immediately on connect, then relays broadcasts. Blocks
// until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufSize),
	}
	if data := h.summaryMessage(); data != nil {
		c.send <- data
	}
	h.register(c)
	defer h.unregister(c)

	go c.writePump()
	c.readPump() // blocks until connection closes
}

// Count returns the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// --- internal ---------------------------------------------------------------

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// broadcast queues data for every client. Sends happen under the read lock
// so unregister cannot close a channel mid-send.
func (h *Hub) broadcast(data []byte) {
	if data == nil {
		return
	}

	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	// Clients whose outgoing buffer is full are disconnected.
	for _, c := range slow {
		h.unregister(c)
	}
}

func (h *Hub) summaryMessage() []byte {
	return encode(Message{Event: EventSummary, Data: h.summary()})
}

func entryMessage(ev store.Event) []byte {
	res := regress.Compare(ev.Baseline, &ev.Entry)
	payload := EntryEvent{Suite: ev.Suite, Entry: ev.Entry, Changes: res.Changes}
	if payload.Changes == nil {
		payload.Changes = []regress.Change{}
	}
	if ev.Baseline != nil {
		payload.Baseline = ev.Baseline.Commit.ID
	}
	return encode(Message{Event: EventEntry, Data: payload})
}

func encode(m Message) []byte {
	data, err := json.Marshal(m)
	if err != nil {
		slog.Error("ws: encode message", "event", m.Event, "err", err)
		return nil
	}
	return data
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// writePump drains the client's send channel and forwards messages to the
// WebSocket connection. It also sends periodic ping frames. Runs in its own
// goroutine per client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				// Channel was closed (hub is shutting down or client removed).
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads frames from the connection to process control messages (pong,
// close) and detect disconnects. Blocks until the connection closes.
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
