package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// ConnectionManager tracks the live set of WebSocket connections for the one
// running game and fans messages out to them.
type ConnectionManager struct {
	connections map[*Connection]bool
	mu          sync.RWMutex

	// Upgrader for WebSocket connections
	upgrader websocket.Upgrader

	config ConnectionConfig

	// Inbound frames are handed to the router; outbound fanout is queued on
	// broadcastCh and processed by one goroutine, which keeps a handler's
	// explicit broadcasts ordered before its trailing sync.
	handler     InboundHandler
	broadcastCh chan broadcastMessage
}

// InboundHandler consumes decoded frames from a connection's read pump and
// seeds new connections with the current state.
type InboundHandler interface {
	HandleFrame(ctx context.Context, sender *Connection, frame []byte)
	SyncTo(conn *Connection)
}

// Connection represents a WebSocket connection to a client. Its identity is
// the only state it carries; equality against the sender decides fanout
// exclusion.
type Connection struct {
	ID      string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	ConnectedAt time.Time
	LastPing    time.Time

	// sendMu guards Send against a concurrent close from
	// unregisterConnection; every producer goes through enqueue.
	sendMu sync.Mutex
	closed bool
}

// enqueue offers a frame to the send buffer. It reports false when a live
// connection's buffer is full; frames for a closed connection are dropped
// without error, since the peer is already gone.
func (c *Connection) enqueue(payload []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return true
	}
	select {
	case c.Send <- payload:
		return true
	default:
		return false
	}
}

// ConnectionConfig holds configuration for WebSocket connections.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
	Clock           clockwork.Clock
}

// broadcastMessage is one queued fanout. Raw, when set, is relayed verbatim;
// otherwise Type/Data are serialized once into an envelope.
type broadcastMessage struct {
	Type      string
	Data      any
	Raw       []byte
	Sender    *Connection
	Inclusive bool
}

// DefaultConnectionConfig returns default WebSocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  64 * 1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
		Clock: clockwork.NewRealClock(),
	}
}

// NewConnectionManager creates a new WebSocket connection manager.
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}
	return &ConnectionManager{
		connections: make(map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan broadcastMessage, 256),
	}
}

// SetHandler wires the inbound router. Must be called before any connection
// is upgraded.
func (cm *ConnectionManager) SetHandler(handler InboundHandler) {
	cm.handler = handler
}

// Start processes queued broadcasts until the context is cancelled, then
// closes every connection with a normal-closure frame.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			cm.closeAll()
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP request to a WebSocket session: the
// connection is registered, unicast one full-state sync, and its pumps are
// started.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	now := cm.config.Clock.Now()
	connection := &Connection{
		ID:          uuid.New().String(),
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: now,
		LastPing:    now,
	}

	cm.admitConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Msg("WebSocket connection established")

	return nil
}

// admitConnection seeds a new connection with the current state and then
// makes it visible to fanout. The sync must be enqueued before registration;
// once the connection is in the registry the fanout goroutine may write to it
// at any moment, and the first frame a client sees has to be the sync.
func (cm *ConnectionManager) admitConnection(conn *Connection) {
	if cm.handler != nil {
		cm.handler.SyncTo(conn)
	}
	cm.registerConnection(conn)
}

// registerConnection adds a connection to the live set.
func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.connections[conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Int("total_connections", len(cm.connections)).
		Msg("connection registered")
}

// unregisterConnection removes a connection from the live set. Removing an
// already-absent connection is a no-op.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	if _, exists := cm.connections[conn]; !exists {
		cm.mu.Unlock()
		return
	}
	delete(cm.connections, conn)
	remaining := len(cm.connections)
	cm.mu.Unlock()

	// Closing under sendMu means no enqueue can race the close; the fanout
	// goroutine may still hold a registry snapshot naming this connection.
	conn.sendMu.Lock()
	conn.closed = true
	close(conn.Send)
	conn.sendMu.Unlock()

	log.Info().
		Str("connection_id", conn.ID).
		Int("total_connections", remaining).
		Msg("connection unregistered")
}

// Broadcast queues a typed message for fanout. The sender is skipped unless
// inclusive is true; a nil sender with inclusive reaches everyone.
func (cm *ConnectionManager) Broadcast(msgType string, data any, sender *Connection, inclusive bool) {
	select {
	case cm.broadcastCh <- broadcastMessage{Type: msgType, Data: data, Sender: sender, Inclusive: inclusive}:
	default:
		log.Warn().Str("type", msgType).Msg("broadcast channel full, dropping message")
	}
}

// Relay queues the raw inbound frame for verbatim delivery to every
// connection except the sender.
func (cm *ConnectionManager) Relay(sender *Connection, frame []byte) {
	select {
	case cm.broadcastCh <- broadcastMessage{Raw: frame, Sender: sender}:
	default:
		log.Warn().Msg("broadcast channel full, dropping relayed message")
	}
}

// Unicast serializes one message and writes it to a single connection.
func (cm *ConnectionManager) Unicast(conn *Connection, msgType string, data any) {
	payload, err := json.Marshal(outbound{Type: msgType, Data: data})
	if err != nil {
		log.Error().Err(err).Str("type", msgType).Msg("failed to marshal unicast message")
		return
	}
	if !conn.enqueue(payload) {
		log.Warn().
			Str("connection_id", conn.ID).
			Str("type", msgType).
			Msg("connection send buffer full, dropping unicast")
	}
}

// handleBroadcast serializes once and writes the same bytes to every
// connection matching the inclusion policy. A failed or slow connection is
// evicted without aborting delivery to the rest.
func (cm *ConnectionManager) handleBroadcast(message broadcastMessage) {
	cm.mu.RLock()
	targets := make([]*Connection, 0, len(cm.connections))
	for conn := range cm.connections {
		if conn == message.Sender && !message.Inclusive {
			continue
		}
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	payload := message.Raw
	if payload == nil {
		var err error
		payload, err = json.Marshal(outbound{Type: message.Type, Data: message.Data})
		if err != nil {
			log.Error().Err(err).Str("type", message.Type).Msg("failed to marshal message for broadcast")
			return
		}
	}

	for _, conn := range targets {
		if !conn.enqueue(payload) {
			log.Warn().
				Str("connection_id", conn.ID).
				Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(conn)
			if conn.Conn != nil {
				conn.Conn.Close()
			}
		}
	}

	log.Debug().
		Str("type", message.Type).
		Int("connections", len(targets)).
		Msg("message broadcasted")
}

// closeAll sends a normal-closure frame to every live connection.
func (cm *ConnectionManager) closeAll() {
	cm.mu.RLock()
	targets := make([]*Connection, 0, len(cm.connections))
	for conn := range cm.connections {
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	closeFrame := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server shutting down")
	for _, conn := range targets {
		if conn.Conn != nil {
			conn.Conn.WriteControl(websocket.CloseMessage, closeFrame, cm.config.Clock.Now().Add(cm.config.WriteTimeout))
			conn.Conn.Close()
		}
		cm.unregisterConnection(conn)
	}
}

// ConnectionCount returns the number of live connections.
func (cm *ConnectionManager) ConnectionCount() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.connections)
}

// writePump handles sending messages to the WebSocket connection.
func (c *Connection) writePump() {
	ticker := c.Manager.config.Clock.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(c.Manager.config.Clock.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				// Channel was closed
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.Chan():
			c.Conn.SetWriteDeadline(c.Manager.config.Clock.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
			c.LastPing = c.Manager.config.Clock.Now()
		}
	}
}

// readPump reads frames and hands them to the router. A malformed frame is
// the router's problem; only transport errors end the session.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(c.Manager.config.Clock.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(c.Manager.config.Clock.Now().Add(c.Manager.config.ReadTimeout))
		c.LastPing = c.Manager.config.Clock.Now()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		if c.Manager.handler != nil {
			c.Manager.handler.HandleFrame(context.Background(), c, message)
		}
		c.Conn.SetReadDeadline(c.Manager.config.Clock.Now().Add(c.Manager.config.ReadTimeout))
	}
}
