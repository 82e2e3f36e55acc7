// Package realtime fans messages out to websocket clients grouped by user and room.
package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TextMessage is the websocket text frame opcode.
const TextMessage = 1

// Conn is the write side of a websocket connection.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Message is the envelope every server push uses.
type Message struct {
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id,omitempty"`
	Room      string    `json:"room,omitempty"`
}

// Client is one registered connection. Writes go through a buffered queue drained by
// a dedicated goroutine, so a slow peer never blocks the sender.
type Client struct {
	ID     string
	UserID string
	Room   string

	conn    Conn
	send    chan []byte
	done    chan struct{}
	stopped chan struct{}
}

// Done is closed once the client is unregistered.
func (c *Client) Done() <-chan struct{} { return c.done }

// Stats is a point-in-time view of the hub.
type Stats struct {
	ActiveConnections int            `json:"active_connections"`
	Rooms             map[string]int `json:"rooms"`
	UserConnections   int            `json:"user_connections"`
	Timestamp         time.Time      `json:"timestamp"`
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	users   map[string]map[string]*Client
	rooms   map[string]map[string]*Client

	queueSize int
	log       zerolog.Logger
	now       func() time.Time
}

func NewHub(queueSize int, log zerolog.Logger) *Hub {
	if queueSize < 1 {
		queueSize = 16
	}
	return &Hub{
		clients:   make(map[string]*Client),
		users:     make(map[string]map[string]*Client),
		rooms:     make(map[string]map[string]*Client),
		queueSize: queueSize,
		log:       log.With().Str("component", "realtime").Logger(),
		now:       time.Now,
	}
}

// Register adds conn to the hub. userID and room may be empty.
func (h *Hub) Register(conn Conn, userID, room string) *Client {
	c := &Client{
		ID:      uuid.NewString(),
		UserID:  userID,
		Room:    room,
		conn:    conn,
		send:    make(chan []byte, h.queueSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[c.ID] = c
	if userID != "" {
		add(h.users, userID, c)
	}
	if room != "" {
		add(h.rooms, room, c)
	}
	total := len(h.clients)
	h.mu.Unlock()

	go h.writeLoop(c)
	h.log.Info().Str("event", "ws_connected").Str("user_id", userID).Str("room", room).Int("connections", total).Send()
	return c
}

func add(idx map[string]map[string]*Client, key string, c *Client) {
	set, ok := idx[key]
	if !ok {
		set = make(map[string]*Client)
		idx[key] = set
	}
	set[c.ID] = c
}

func remove(idx map[string]map[string]*Client, key string, c *Client) {
	if set, ok := idx[key]; ok {
		delete(set, c.ID)
		if len(set) == 0 {
			delete(idx, key)
		}
	}
}

// Unregister removes c and closes its connection. Calling it twice is a no-op.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.ID)
	if c.UserID != "" {
		remove(h.users, c.UserID, c)
	}
	if c.Room != "" {
		remove(h.rooms, c.Room, c)
	}
	close(c.send)
	close(c.done)
	total := len(h.clients)
	h.mu.Unlock()

	_ = c.conn.Close()
	h.log.Info().Str("event", "ws_disconnected").Str("user_id", c.UserID).Str("room", c.Room).Int("connections", total).Send()
}

// Leave unregisters c and returns once its writer goroutine has exited. A
// connection handler calls it before returning, since the websocket wrapper is
// recycled afterwards and must not be written to.
func (h *Hub) Leave(c *Client) {
	h.Unregister(c)
	<-c.stopped
}

func (h *Hub) writeLoop(c *Client) {
	defer close(c.stopped)
	for msg := range c.send {
		select {
		case <-c.done:
			return
		default:
		}
		if err := c.conn.WriteMessage(TextMessage, msg); err != nil {
			h.log.Warn().Err(err).Str("client_id", c.ID).Msg("websocket write failed")
			h.Unregister(c)
			return
		}
	}
}

func (h *Hub) encode(m Message) ([]byte, error) {
	if m.Timestamp.IsZero() {
		m.Timestamp = h.now().UTC()
	}
	return json.Marshal(m)
}

// deliver queues payload for every target and drops those whose queue is full.
// Callers hold h.mu for reading; the returned slow clients must be unregistered after release.
func deliver(targets map[string]*Client, payload []byte) (sent int, slow []*Client) {
	for _, c := range targets {
		select {
		case c.send <- payload:
			sent++
		default:
			slow = append(slow, c)
		}
	}
	return sent, slow
}

func (h *Hub) fanout(m Message, pick func() map[string]*Client) int {
	payload, err := h.encode(m)
	if err != nil {
		h.log.Error().Err(err).Str("type", m.Type).Msg("failed to encode message")
		return 0
	}
	h.mu.RLock()
	sent, slow := deliver(pick(), payload)
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn().Str("event", "ws_slow_client_dropped").Str("client_id", c.ID).Str("user_id", c.UserID).Send()
		h.Unregister(c)
	}
	return sent
}

// Send queues m for a single client.
func (h *Hub) Send(c *Client, m Message) bool {
	return h.fanout(m, func() map[string]*Client {
		if _, ok := h.clients[c.ID]; !ok {
			return nil
		}
		return map[string]*Client{c.ID: c}
	}) == 1
}

// SendToUser queues m for every connection of userID and reports how many were reached.
func (h *Hub) SendToUser(userID string, m Message) int {
	return h.fanout(m, func() map[string]*Client { return h.users[userID] })
}

func (h *Hub) Broadcast(m Message) int {
	return h.fanout(m, func() map[string]*Client { return h.clients })
}

func (h *Hub) BroadcastRoom(room string, m Message) int {
	return h.fanout(m, func() map[string]*Client { return h.rooms[room] })
}

func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rooms := make(map[string]int, len(h.rooms))
	for name, set := range h.rooms {
		rooms[name] = len(set)
	}
	return Stats{
		ActiveConnections: len(h.clients),
		Rooms:             rooms,
		UserConnections:   len(h.users),
		Timestamp:         h.now().UTC(),
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	all := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		all = append(all, c)
	}
	h.mu.RUnlock()
	for _, c := range all {
		h.Unregister(c)
	}
}
