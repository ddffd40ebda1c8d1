package websocket

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 512
	sendBuffer     = 64
)

var ErrManagerClosed = errors.New("websocket manager closed")

// Message is the envelope pushed to clients.
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Target    string      `json:"target,omitempty"`
}

// Connection is one connected browser tab.
type Connection struct {
	ID          string
	UserID      string
	ConnectedAt time.Time
	UserAgent   string
	IPAddress   string

	conn   *websocket.Conn
	send   chan Message
	closed bool

	mu           sync.Mutex
	lastActivity time.Time
}

func (c *Connection) touch() {
	c.mu.Lock()
	c.lastActivity = time.Now()
	c.mu.Unlock()
}

func (c *Connection) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

// Manager tracks live connections and fans messages out to them.
type Manager struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	closed      bool
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

// NewManager accepts upgrades from the given origins. An empty list allows any origin.
func NewManager(allowedOrigins []string, logger *zap.Logger) *Manager {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Manager{
		connections: make(map[string]*Connection),
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin] || allowed["*"]
			},
		},
	}
}

// HandleConnection upgrades the request and starts the read and write pumps.
func (m *Manager) HandleConnection(w http.ResponseWriter, r *http.Request, userID string) (*Connection, error) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	now := time.Now()
	c := &Connection{
		ID:           uuid.New().String(),
		UserID:       userID,
		ConnectedAt:  now,
		UserAgent:    r.Header.Get("User-Agent"),
		IPAddress:    r.RemoteAddr,
		conn:         conn,
		send:         make(chan Message, sendBuffer),
		lastActivity: now,
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		conn.Close()
		return nil, ErrManagerClosed
	}
	m.connections[c.ID] = c
	m.mu.Unlock()

	m.logger.Info("WebSocket connected", zap.String("connection_id", c.ID), zap.String("user_id", userID))

	m.trySend(c, Message{Type: "status", Data: map[string]string{"status": "connected", "connection_id": c.ID}, Timestamp: now})
	go m.writePump(c)
	go m.readPump(c)
	return c, nil
}

// remove drops c and closes its send channel exactly once.
func (m *Manager) remove(c *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	delete(m.connections, c.ID)
	close(c.send)
	m.logger.Info("WebSocket disconnected", zap.String("connection_id", c.ID), zap.String("user_id", c.UserID))
}

func (m *Manager) readPump(c *Connection) {
	defer func() {
		m.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.touch()
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				m.logger.Warn("WebSocket read failed", zap.String("connection_id", c.ID), zap.Error(err))
			}
			return
		}
		c.touch()
		if msg.Type == "ping" {
			m.trySend(c, Message{Type: "pong", Timestamp: time.Now()})
		}
	}
}

func (m *Manager) writePump(c *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
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

// trySend queues msg without blocking. Slow clients lose the message.
func (m *Manager) trySend(c *Connection, msg Message) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		m.logger.Warn("WebSocket buffer full, dropping message",
			zap.String("connection_id", c.ID), zap.String("type", msg.Type))
		return false
	}
}

// Broadcast queues msg for every connection and returns how many accepted it.
func (m *Manager) Broadcast(msg Message) int {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	sent := 0
	for _, c := range m.snapshot() {
		if m.trySend(c, msg) {
			sent++
		}
	}
	return sent
}

// SendToUser queues msg for every connection of userID.
func (m *Manager) SendToUser(userID string, msg Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	msg.Target = userID
	sent := 0
	for _, c := range m.snapshot() {
		if c.UserID == userID && m.trySend(c, msg) {
			sent++
		}
	}
	if sent == 0 {
		return fmt.Errorf("user %s not connected", userID)
	}
	return nil
}

func (m *Manager) snapshot() []*Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Connection, 0, len(m.connections))
	for _, c := range m.connections {
		out = append(out, c)
	}
	return out
}

func (m *Manager) ConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// ConnectionInfo describes a live connection for the admin listing.
type ConnectionInfo struct {
	ConnectionID string    `json:"connection_id"`
	UserID       string    `json:"user_id"`
	ConnectedAt  time.Time `json:"connected_at"`
	LastActivity time.Time `json:"last_activity"`
	UserAgent    string    `json:"user_agent"`
	IPAddress    string    `json:"ip_address"`
}

func (m *Manager) Connections() []ConnectionInfo {
	conns := m.snapshot()
	info := make([]ConnectionInfo, 0, len(conns))
	for _, c := range conns {
		info = append(info, ConnectionInfo{
			ConnectionID: c.ID,
			UserID:       c.UserID,
			ConnectedAt:  c.ConnectedAt,
			LastActivity: c.LastActivity(),
			UserAgent:    c.UserAgent,
			IPAddress:    c.IPAddress,
		})
	}
	return info
}

// Close disconnects every client and refuses new ones.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	conns := make([]*Connection, 0, len(m.connections))
	for _, c := range m.connections {
		conns = append(conns, c)
	}
	m.mu.Unlock()

	for _, c := range conns {
		m.remove(c)
	}
}
