package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/crowdprice/crowdprice/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512

	// sendBuffer absorbs bursts from overlapping sweeps; a client that
	// falls this far behind is dropped rather than allowed to block.
	sendBuffer = 16
)

// client pairs a connection with its outbound queue. writeLoop is the
// connection's only writer; everything else just queues.
type client struct {
	conn *websocket.Conn
	send chan Event
	done chan struct{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// writeLoop drains the send queue and owns ping keepalives. Serializing
// all writes here is required: the websocket connection supports at most
// one concurrent writer.
func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case ev := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.close()
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.close()
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

// Hub tracks websocket connections per user and pushes notification
// events to them. A user may hold several connections (multiple tabs or
// devices); each gets every event.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
	log     *slog.Logger
}

// NewHub creates an empty Hub.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*client]struct{}),
		log:     log,
	}
}

// Publish queues the event for every connection registered for the
// event's user. Queueing never blocks: a client whose buffer is full is
// dropped, so concurrent sweeps cannot stall on a slow consumer.
func (h *Hub) Publish(_ context.Context, ev Event) error {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients[ev.UserID]))
	for c := range h.clients[ev.UserID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.send <- ev:
		default:
			h.log.Debug("push buffer full, dropping client", "user_id", ev.UserID)
			h.drop(ev.UserID, c)
		}
	}
	return nil
}

// Serve registers the connection for the user and blocks reading from it
// until the peer disconnects. It owns the connection's lifecycle: the
// write loop, read deadlines, and the final close.
func (h *Hub) Serve(userID string, conn *websocket.Conn) {
	c := &client{
		conn: conn,
		send: make(chan Event, sendBuffer),
		done: make(chan struct{}),
	}
	h.add(userID, c)
	defer h.drop(userID, c)

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go c.writeLoop()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("push client read error", "user_id", userID, "error", err)
			}
			return
		}
	}
}

// ClientCount returns the number of connections registered for the user.
func (h *Hub) ClientCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) add(userID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*client]struct{})
	}
	h.clients[userID][c] = struct{}{}
	metrics.PushClientsConnected.Inc()
}

func (h *Hub) drop(userID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.clients[userID]
	if !ok {
		return
	}
	if _, registered := conns[c]; !registered {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.clients, userID)
	}
	metrics.PushClientsConnected.Dec()
	c.close()
}
