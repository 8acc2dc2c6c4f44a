package feed

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"CreditGate/internal/domain/models"
	"CreditGate/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The feed is read-only and carries no session data; origin
	// enforcement happens at the session gate, not here.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Broadcaster fans completed decisions out to connected WebSocket
// subscribers. Slow subscribers are dropped rather than allowed to
// stall the audit path.
type Broadcaster struct {
	log *logger.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewBroadcaster(log *logger.Logger) *Broadcaster {
	return &Broadcaster{log: log, clients: make(map[*client]struct{})}
}

// Publish serializes a decision record and queues it to every
// subscriber. It never blocks the caller.
func (b *Broadcaster) Publish(rec *models.DecisionRecord) {
	payload, err := json.Marshal(rec)
	if err != nil {
		b.log.Warn("feed: marshal decision", logger.Error(err))
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for c := range b.clients {
		select {
		case c.send <- payload:
		default:
			// backpressure: skip this subscriber for this event
		}
	}
}

// Serve upgrades the request and streams decisions until the client
// disconnects.
func (b *Broadcaster) Serve(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return conn.Close()
	}
	b.clients[c] = struct{}{}
	n := len(b.clients)
	b.mu.Unlock()
	b.log.Debug("feed: subscriber connected", logger.Int("subscribers", n))

	go b.writeLoop(c)
	b.readLoop(c)
	return nil
}

func (b *Broadcaster) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop drains control frames; the feed accepts no client messages.
func (b *Broadcaster) readLoop(c *client) {
	defer b.drop(c)
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (b *Broadcaster) drop(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.send)
	}
	b.mu.Unlock()
	_ = c.conn.Close()
}

// Subscribers reports the current subscriber count.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Close disconnects all subscribers.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	clients := make([]*client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.clients = make(map[*client]struct{})
	b.mu.Unlock()

	for _, c := range clients {
		close(c.send)
		_ = c.conn.Close()
	}
}
