package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wricardo/klondike/game/engine"
	"go.uber.org/zap"
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

	sendBuffer      = 256
	broadcastBuffer = 256
)

// Event names pushed to clients
const (
	EventStateUpdate   = "state_update"
	EventAutoSolveMove = "auto_solve_move"
	EventWon           = "won"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// browsers on any origin may watch a table; clients never send commands
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the JSON envelope pushed to clients
type Message struct {
	SessionID string        `json:"session_id"`
	Event     string        `json:"event"`
	GameState *engine.State `json:"game_state,omitempty"`
	Data      any           `json:"data,omitempty"`
}

// Client is one WebSocket connection watching a session
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
}

// outbound is an encoded message addressed to a session
type outbound struct {
	sessionID string
	data      []byte
}

type countRequest struct {
	sessionID string
	reply     chan int
}

// Option configures a Hub
type Option func(*Hub)

// WithLogger sets the hub's logger
func WithLogger(logger *zap.Logger) Option {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// Hub tracks clients per session. Only the Run goroutine touches the client sets.
type Hub struct {
	sessions map[string]map[*Client]bool

	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	count      chan countRequest

	// closed when Run returns
	done chan struct{}

	logger *zap.Logger
}

// NewHub creates a hub; call Run to start it
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		sessions:   make(map[string]map[*Client]bool),
		broadcast:  make(chan outbound, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		count:      make(chan countRequest),
		done:       make(chan struct{}),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run is the hub's event loop. It returns when ctx is cancelled, closing every client.
// Run must be called at most once.
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

		case msg := <-h.broadcast:
			h.deliver(msg)

		case req := <-h.count:
			req.reply <- len(h.sessions[req.sessionID])
		}
	}
}

// ServeWS upgrades the request and attaches the connection to a session
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		sessionID: sessionID,
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// ClientCount returns how many clients watch a session
func (h *Hub) ClientCount(sessionID string) int {
	reply := make(chan int, 1)
	select {
	case h.count <- countRequest{sessionID: sessionID, reply: reply}:
		return <-reply
	case <-h.done:
		return 0
	}
}

// BroadcastToSession pushes a state_update with the full state
func (h *Hub) BroadcastToSession(sessionID string, state *engine.State) {
	h.publish(&Message{SessionID: sessionID, Event: EventStateUpdate, GameState: state})
}

// BroadcastEvent pushes a named event with an optional state and payload
func (h *Hub) BroadcastEvent(sessionID, event string, state *engine.State, data any) {
	h.publish(&Message{SessionID: sessionID, Event: event, GameState: state, Data: data})
}

// publish encodes in the caller's goroutine, so the state is captured as it is now
func (h *Hub) publish(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal websocket message", zap.String("event", message.Event), zap.Error(err))
		return
	}

	select {
	case h.broadcast <- outbound{sessionID: message.SessionID, data: data}:
	default:
		h.logger.Warn("broadcast queue full, dropping message",
			zap.String("session", message.SessionID),
			zap.String("event", message.Event))
	}
}

func (h *Hub) registerClient(client *Client) {
	if h.sessions[client.sessionID] == nil {
		h.sessions[client.sessionID] = make(map[*Client]bool)
	}
	h.sessions[client.sessionID][client] = true

	h.logger.Debug("client registered",
		zap.String("session", client.sessionID),
		zap.Int("clients", len(h.sessions[client.sessionID])))
}

func (h *Hub) unregisterClient(client *Client) {
	clients, ok := h.sessions[client.sessionID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.sessions, client.sessionID)
	}

	h.logger.Debug("client unregistered",
		zap.String("session", client.sessionID),
		zap.Int("clients", len(clients)))
}

// deliver queues a message on every client of its session, dropping slow clients
func (h *Hub) deliver(msg outbound) {
	for client := range h.sessions[msg.sessionID] {
		select {
		case client.send <- msg.data:
		default:
			h.unregisterClient(client)
		}
	}
}

// readPump only services control frames; clients do not send commands
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
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket closed", zap.String("session", c.sessionID), zap.Error(err))
			}
			return
		}
	}
}

// writePump sends queued messages one per frame and keeps the connection alive with pings
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
				// the hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
