package ws

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	// EventOnlineUsers carries the full list of online user IDs and goes to
	// every open connection on each connect/disconnect.
	EventOnlineUsers = "online-users"
	// EventNewMessage carries one persisted message and goes only to the
	// receiver's connection.
	EventNewMessage = "new-message"
)

type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Client is one live websocket session. UserID is zero for anonymous
// connections, which receive broadcasts but are never registered online.
type Client struct {
	ID     string
	UserID uint
	Conn   *websocket.Conn
	Send   chan Event

	ctx    context.Context
	cancel context.CancelFunc
}

type Hub struct {
	presence *Presence

	mu      sync.RWMutex
	clients map[string]*Client // connection ID -> client
}

func NewHub(presence *Presence) *Hub {
	return &Hub{
		presence: presence,
		clients:  map[string]*Client{},
	}
}

// AddClient starts the client's loops, registers it online (unless
// anonymous) and pushes a fresh online snapshot to everyone, including the
// new connection itself.
func (h *Hub) AddClient(userID uint, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Conn:   conn,
		Send:   make(chan Event, 64),
		ctx:    ctx,
		cancel: cancel,
	}

	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()

	go c.writeLoop()
	go c.keepAliveLoop()

	if userID != 0 {
		h.presence.Register(userID, c.ID)
	}
	h.broadcastOnline()

	return c
}

// RemoveClient tears the client down and pushes the shrunken snapshot to the
// remaining connections. Unregister is guarded by connection ID inside
// Presence, so removing a superseded connection leaves the newer one online.
func (h *Hub) RemoveClient(c *Client) {
	c.cancel()

	h.mu.Lock()
	delete(h.clients, c.ID)
	h.mu.Unlock()

	_ = c.Conn.Close(websocket.StatusNormalClosure, "bye")

	if c.UserID != 0 {
		h.presence.Unregister(c.UserID, c.ID)
	}
	h.broadcastOnline()
}

// PushToUser delivers ev to userID's registered connection, if any. Returns
// whether a connection was found; delivery itself stays best-effort.
func (h *Hub) PushToUser(userID uint, ev Event) bool {
	connID, ok := h.presence.Lookup(userID)
	if !ok {
		return false
	}

	h.mu.RLock()
	c := h.clients[connID]
	h.mu.RUnlock()
	if c == nil {
		return false
	}

	select {
	case c.Send <- ev:
	default:
		// slow consumer, drop
	}
	return true
}

func (h *Hub) broadcastOnline() {
	ids := h.presence.ListOnline()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	ev := Event{Type: EventOnlineUsers, Data: ids}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		select {
		case c.Send <- ev:
		default:
		}
	}
}

// writeLoop leaves c.Send open on exit: a broadcast that raced with removal
// may still send into the buffer, and closing here would turn that into a
// panic. The channel is dropped with the client.
func (c *Client) writeLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev := <-c.Send:
			writeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			_ = wsjson.Write(writeCtx, c.Conn, ev)
			cancel()
		}
	}
}

func (c *Client) keepAliveLoop() {
	ticker := time.NewTicker(25 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = c.Conn.Ping(pingCtx)
			cancel()
		}
	}
}
