package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/wricardo/mcp-training/seadrive/game/engine"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Pending broadcasts; further ones are dropped while the hub catches up
	broadcastBuffer = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message represents an outgoing WebSocket message
type Message struct {
	SessionID string      `json:"session_id"`
	Event     string      `json:"event"`
	Data      interface{} `json:"data,omitempty"`
}

// ClientMessage is what a client may send. Only "input" is acted on.
type ClientMessage struct {
	Type     string `json:"type"`
	Steer    int    `json:"steer"`
	Throttle int    `json:"throttle"`
}

// InputHandler applies held input received from a client
type InputHandler func(ctx context.Context, sessionID string, in engine.Input) error

// Client represents a WebSocket client
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	// Registered clients by session ID
	sessions map[string]map[*Client]bool

	// Encoded messages waiting to be fanned out
	broadcast chan *outbound

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	onInput InputHandler
	log     zerolog.Logger
	done    chan struct{}
}

type outbound struct {
	sessionID string
	data      []byte
}

// Option configures a Hub
type Option func(*Hub)

// WithInputHandler routes client input messages to fn
func WithInputHandler(fn InputHandler) Option {
	return func(h *Hub) {
		h.onInput = fn
	}
}

// WithLogger sets the hub logger
func WithLogger(log zerolog.Logger) Option {
	return func(h *Hub) {
		h.log = log
	}
}

// NewHub creates a new WebSocket hub
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		sessions:   make(map[string]map[*Client]bool),
		broadcast:  make(chan *outbound, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        zerolog.Nop(),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run processes registrations and broadcasts until ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, clients := range h.sessions {
				for client := range clients {
					h.unregisterClient(client)
				}
			}
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// ServeWS handles WebSocket requests from clients
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, 256),
		sessionID: sessionID,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

// BroadcastToSession queues an event for every client of a session. It never
// blocks; when the queue is full the event is dropped.
func (h *Hub) BroadcastToSession(sessionID, event string, data interface{}) {
	payload, err := json.Marshal(&Message{
		SessionID: sessionID,
		Event:     event,
		Data:      data,
	})
	if err != nil {
		h.log.Warn().Err(err).Str("event", event).Msg("failed to marshal WebSocket message")
		return
	}

	select {
	case h.broadcast <- &outbound{sessionID: sessionID, data: payload}:
	default:
		h.log.Debug().Str("session", sessionID).Str("event", event).Msg("broadcast queue full, dropping")
	}
}

// registerClient adds a client to a session
func (h *Hub) registerClient(client *Client) {
	if h.sessions[client.sessionID] == nil {
		h.sessions[client.sessionID] = make(map[*Client]bool)
	}
	h.sessions[client.sessionID][client] = true

	h.log.Debug().
		Str("session", client.sessionID).
		Int("clients", len(h.sessions[client.sessionID])).
		Msg("client registered")
}

// unregisterClient removes a client from a session
func (h *Hub) unregisterClient(client *Client) {
	clients, ok := h.sessions[client.sessionID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)

	// Clean up empty sessions
	if len(clients) == 0 {
		delete(h.sessions, client.sessionID)
	}

	h.log.Debug().
		Str("session", client.sessionID).
		Int("clients", len(clients)).
		Msg("client unregistered")
}

// broadcastMessage sends a message to all clients in a session. Clients that
// cannot keep up are dropped.
func (h *Hub) broadcastMessage(message *outbound) {
	for client := range h.sessions[message.sessionID] {
		select {
		case client.send <- message.data:
		default:
			h.unregisterClient(client)
		}
	}
}

// handleMessage acts on one client frame
func (c *Client) handleMessage(raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.hub.log.Debug().Err(err).Str("session", c.sessionID).Msg("ignoring malformed client message")
		return
	}
	if msg.Type != "input" || c.hub.onInput == nil {
		return
	}

	in := engine.Input{Steer: msg.Steer, Throttle: msg.Throttle}
	if err := c.hub.onInput(context.Background(), c.sessionID, in); err != nil {
		c.hub.log.Warn().Err(err).Str("session", c.sessionID).Msg("failed to apply client input")
	}
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn().Err(err).Str("session", c.sessionID).Msg("WebSocket error")
			}
			break
		}
		c.handleMessage(message)
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current WebSocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
