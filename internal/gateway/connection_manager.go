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
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/codeduel/internal/duel/events"
)

// ConnectionManager owns every websocket connection and fans events out to
// them. It implements duel.Notifier: deliveries go through a buffered
// broadcast channel and are dropped rather than blocked on.
type ConnectionManager struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	sessionSubs map[string]map[*Connection]bool

	upgrader websocket.Upgrader
	config   ConnectionConfig

	broadcastCh chan broadcastMessage

	// onMessage and onDisconnect are bound by the Service once the engine
	// exists.
	onMessage    func(conn *Connection, raw []byte)
	onDisconnect func(channelID string)
}

// Connection is one client channel handle.
type Connection struct {
	ID      string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	ConnectedAt time.Time
	LastPing    time.Time
}

// ConnectionConfig holds websocket tuning for client connections.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

type broadcastMessage struct {
	SessionID string
	ChannelID string
	Event     *events.Event
}

// DefaultConnectionConfig returns the default websocket configuration.
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
	}
}

func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*Connection),
		sessionSubs: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan broadcastMessage, 1000),
	}
}

// Start processes broadcast messages until the context ends.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// ToChannel implements duel.Notifier.
func (cm *ConnectionManager) ToChannel(channelID string, event *events.Event) {
	select {
	case cm.broadcastCh <- broadcastMessage{ChannelID: channelID, Event: event}:
	default:
		log.Warn().Str("channel_id", channelID).Msg("broadcast channel full, dropping message")
	}
}

// ToSession implements duel.Notifier.
func (cm *ConnectionManager) ToSession(sessionID string, event *events.Event) {
	select {
	case cm.broadcastCh <- broadcastMessage{SessionID: sessionID, Event: event}:
	default:
		log.Warn().Str("session_id", sessionID).Msg("broadcast channel full, dropping message")
	}
}

// UpgradeConnection upgrades an HTTP request to a websocket and starts the
// connection's pumps.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	cm.mu.Lock()
	cm.connections[connection.ID] = connection
	cm.mu.Unlock()

	go connection.writePump()
	go connection.readPump()

	log.Info().Str("channel_id", connection.ID).Msg("websocket connection established")
	return nil
}

// Subscribe adds the connection to a session's broadcast pool.
func (cm *ConnectionManager) Subscribe(conn *Connection, sessionID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.sessionSubs[sessionID] == nil {
		cm.sessionSubs[sessionID] = make(map[*Connection]bool)
	}
	cm.sessionSubs[sessionID][conn] = true
}

// Unsubscribe removes the connection from a session's broadcast pool.
func (cm *ConnectionManager) Unsubscribe(conn *Connection, sessionID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.unsubscribeLocked(conn, sessionID)
}

func (cm *ConnectionManager) unsubscribeLocked(conn *Connection, sessionID string) {
	if subs, ok := cm.sessionSubs[sessionID]; ok {
		delete(subs, conn)
		if len(subs) == 0 {
			delete(cm.sessionSubs, sessionID)
		}
	}
}

// unregisterConnection drops the connection from the manager and every
// session pool.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	_, registered := cm.connections[conn.ID]
	if registered {
		delete(cm.connections, conn.ID)
		close(conn.Send)
		for sessionID := range cm.sessionSubs {
			cm.unsubscribeLocked(conn, sessionID)
		}
	}
	cm.mu.Unlock()

	if registered {
		log.Info().Str("channel_id", conn.ID).Msg("connection unregistered")
		if cm.onDisconnect != nil {
			cm.onDisconnect(conn.ID)
		}
	}
}

func (cm *ConnectionManager) handleBroadcast(message broadcastMessage) {
	cm.mu.RLock()
	var targets []*Connection
	if message.ChannelID != "" {
		if conn, ok := cm.connections[message.ChannelID]; ok {
			targets = append(targets, conn)
		}
	} else if subs, ok := cm.sessionSubs[message.SessionID]; ok {
		for conn := range subs {
			targets = append(targets, conn)
		}
	}
	cm.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	data, err := json.Marshal(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	for _, conn := range targets {
		select {
		case conn.Send <- data:
		default:
			// Connection is slow or dead; close it rather than stall.
			log.Warn().Str("channel_id", conn.ID).Msg("send buffer full, closing connection")
			cm.unregisterConnection(conn)
			conn.Conn.Close()
		}
	}
}

// Stats reports connection counts for the stats endpoint.
func (cm *ConnectionManager) Stats() (totalConnections, activeSessions int) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.connections), len(cm.sessionSubs)
}

// writePump sends outbound messages and pings on one goroutine per
// connection.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("channel_id", c.ID).Msg("failed to write message")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Str("channel_id", c.ID).Msg("failed to send ping")
				return
			}
			c.LastPing = time.Now()
		}
	}
}

// readPump reads client commands and hands them to the router.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("channel_id", c.ID).Msg("unexpected websocket close")
			}
			break
		}
		if c.Manager.onMessage != nil {
			c.Manager.onMessage(c, message)
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
