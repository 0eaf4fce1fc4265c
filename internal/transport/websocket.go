// Package transport exposes a session to WebSocket clients.
package transport

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/lexiqai/synth-session/internal/observability"
	"github.com/lexiqai/synth-session/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Local control surface; any origin may connect
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

const (
	writeWait  = 10 * time.Second
	sendBuffer = 64

	defaultCommandRate  = rate.Limit(20)
	defaultCommandBurst = 40
)

// Controller is the part of a session clients can drive.
type Controller interface {
	SelectConfiguration(name string) error
	SubmitText(text string, out session.Output) (string, error)
	Reset() error
	State() session.State
	Profiles() []string
	LastError() error
}

// ClientMessage is a command sent by a client.
type ClientMessage struct {
	Type      string `json:"type"` // select, speak, reset, state
	Profile   string `json:"profile,omitempty"`
	Text      string `json:"text,omitempty"`
	AudioPath string `json:"audio_path,omitempty"`
	LogPath   string `json:"log_path,omitempty"`
}

// ServerMessage is a notification sent to clients.
type ServerMessage struct {
	Type       string   `json:"type"` // state, initialized, synthesis_finished, accepted, error
	State      string   `json:"state,omitempty"`
	From       string   `json:"from,omitempty"`
	Profile    string   `json:"profile,omitempty"`
	Profiles   []string `json:"profiles,omitempty"`
	ID         string   `json:"id,omitempty"`
	Success    *bool    `json:"success,omitempty"`
	AudioPath  string   `json:"audio_path,omitempty"`
	DurationMS int64    `json:"duration_ms,omitempty"`
	Error      string   `json:"error,omitempty"`
	Detail     string   `json:"detail,omitempty"`
}

// Hub tracks connected clients and broadcasts session notifications to
// them. It implements session.Listener.
type Hub struct {
	logger zerolog.Logger

	commandRate  rate.Limit
	commandBurst int

	mu         sync.RWMutex
	controller Controller
	clients    map[*client]struct{}
}

var _ session.Listener = (*Hub)(nil)

// HubOption customizes a Hub.
type HubOption func(*Hub)

// WithRateLimit bounds the commands each client may send. Queries for the
// current state are not counted.
func WithRateLimit(limit rate.Limit, burst int) HubOption {
	return func(h *Hub) {
		h.commandRate = limit
		h.commandBurst = burst
	}
}

func NewHub(logger zerolog.Logger, opts ...HubOption) *Hub {
	h := &Hub{
		logger:       observability.WithComponent(logger, "transport"),
		commandRate:  defaultCommandRate,
		commandBurst: defaultCommandBurst,
		clients:      make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Attach sets the session commands are forwarded to. The hub is usually
// created first so it can be passed to the session as its listener.
func (h *Hub) Attach(c Controller) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.controller = c
}

func (h *Hub) ctl() Controller {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.controller
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) OnStateChanged(from, to session.State) {
	h.broadcast(ServerMessage{Type: "state", From: from.String(), State: to.String()})
}

func (h *Hub) OnInitialized(r session.Initialized) {
	msg := ServerMessage{Type: "initialized", Profile: r.Profile, Success: boolPtr(r.Success)}
	if r.Err != nil {
		msg.Error = session.InitializeFailedMessage
		msg.Detail = session.ErrorDetail(r.Err)
	}
	h.broadcast(msg)
}

func (h *Hub) OnSynthesisFinished(r session.SynthesisFinished) {
	h.broadcast(ServerMessage{
		Type:       "synthesis_finished",
		ID:         r.ID,
		Success:    boolPtr(r.Success),
		AudioPath:  r.AudioPath,
		DurationMS: r.Duration.Milliseconds(),
	})
}

func (h *Hub) broadcast(msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal notification")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.enqueue(data)
	}
}

// Handler upgrades requests to WebSocket connections.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already replied to the client
			h.logger.Warn().Err(err).Msg("Failed to upgrade connection to WebSocket")
			return
		}

		c := &client{
			conn:    conn,
			send:    make(chan []byte, sendBuffer),
			done:    make(chan struct{}),
			limiter: rate.NewLimiter(h.commandRate, h.commandBurst),
			logger:  h.logger.With().Str("correlation_id", observability.NewCorrelationID()).Logger(),
		}
		h.register(c)
		defer h.unregister(c)

		go c.writeLoop()
		c.reply(h.stateMessage())
		h.readLoop(c)
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	c.logger.Info().Str("remote", c.conn.RemoteAddr().String()).Msg("Client connected")
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
	c.logger.Info().Msg("Client disconnected")
}

func (h *Hub) stateMessage() ServerMessage {
	ctl := h.ctl()
	if ctl == nil {
		return ServerMessage{Type: "error", Error: "no session"}
	}
	msg := ServerMessage{Type: "state", State: ctl.State().String(), Profiles: ctl.Profiles()}
	if err := ctl.LastError(); err != nil {
		msg.Error = session.InitializeFailedMessage
		msg.Detail = session.ErrorDetail(err)
	}
	return msg
}

func (h *Hub) readLoop(c *client) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Error().Err(err).Msg("Failed to parse client message")
			c.reply(ServerMessage{Type: "error", Error: "invalid message"})
			continue
		}
		if msg.Type != "state" && !c.limiter.Allow() {
			observability.RecordError("rate_limited", "transport")
			c.reply(ServerMessage{Type: "error", Error: "rate limited"})
			continue
		}
		c.reply(h.handle(msg))
	}
}

// handle runs one client command and returns the direct reply.
func (h *Hub) handle(msg ClientMessage) ServerMessage {
	ctl := h.ctl()
	if ctl == nil {
		return ServerMessage{Type: "error", Error: "no session"}
	}

	switch msg.Type {
	case "select":
		if err := ctl.SelectConfiguration(msg.Profile); err != nil {
			return errorMessage(err)
		}
		return ServerMessage{Type: "accepted", Profile: msg.Profile}
	case "speak":
		id, err := ctl.SubmitText(msg.Text, session.Output{AudioPath: msg.AudioPath, LogPath: msg.LogPath})
		if err != nil {
			return errorMessage(err)
		}
		return ServerMessage{Type: "accepted", ID: id}
	case "reset":
		if err := ctl.Reset(); err != nil {
			return errorMessage(err)
		}
		return ServerMessage{Type: "accepted"}
	case "state":
		return h.stateMessage()
	default:
		return ServerMessage{Type: "error", Error: "unknown message type " + msg.Type}
	}
}

func errorMessage(err error) ServerMessage {
	observability.RecordError("command_rejected", "transport")
	return ServerMessage{Type: "error", Error: err.Error()}
}

func boolPtr(b bool) *bool {
	return &b
}

// client is one connection. All writes go through writeLoop.
type client struct {
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter
	logger  zerolog.Logger

	once sync.Once
	done chan struct{}
}

func (c *client) reply(msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to marshal reply")
		return
	}
	c.enqueue(data)
}

// enqueue never blocks; a client that stops reading loses notifications.
func (c *client) enqueue(data []byte) {
	select {
	case <-c.done:
	case c.send <- data:
	default:
		c.logger.Warn().Msg("Client send buffer full, dropping message")
	}
}

func (c *client) writeLoop() {
	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Warn().Err(err).Msg("WebSocket write error")
				c.conn.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}
