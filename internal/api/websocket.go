package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-climate/internal/auth"
	"github.com/nerrad567/gray-logic-climate/internal/climate"
	"github.com/nerrad567/gray-logic-climate/internal/engine"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/logging"
)

// WebSocket message types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"

	wsSendBufferSize = 256
)

var wsChannels = map[string]bool{
	engine.ChannelDecision: true,
	engine.ChannelStatus:   true,
}

// WSMessage is the envelope for every frame in either direction.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload is the payload for subscribe/unsubscribe messages.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// StatusEvent is the payload of a climate.status event. A client gets one
// when it subscribes and another after every committed pass.
type StatusEvent struct {
	Strategy         string                     `json:"strategy"`
	Running          bool                       `json:"running"`
	State            climate.State              `json:"state"`
	Mode             climate.Mode               `json:"mode"`
	SystemMode       climate.SystemMode         `json:"system_mode"`
	IndoorTemp       *float64                   `json:"indoor_temp"`
	OutdoorTemp      *float64                   `json:"outdoor_temp"`
	TargetTemp       *float64                   `json:"target_temp"`
	Preset           climate.Preset             `json:"preset,omitempty"`
	Override         *climate.OverrideDirective `json:"override,omitempty"`
	TotalTransitions int                        `json:"total_transitions"`
	UpdatedAt        time.Time                  `json:"updated_at"`
}

// NewStatusEvent condenses an engine snapshot for streaming. History and
// latency samples stay on GET /climate/status.
func NewStatusEvent(st engine.Status) StatusEvent {
	return StatusEvent{
		Strategy:         st.Strategy,
		Running:          st.Running,
		State:            st.CurrentState,
		Mode:             st.Context.Mode,
		SystemMode:       st.Context.SystemMode,
		IndoorTemp:       st.Context.IndoorTemp,
		OutdoorTemp:      st.Context.OutdoorTemp,
		TargetTemp:       st.Context.TargetTemp,
		Preset:           st.Context.Preset,
		Override:         st.Context.Override,
		TotalTransitions: st.TotalTransitions,
		UpdatedAt:        st.UpdatedAt,
	}
}

// DecisionEvent is the payload of a climate.decision event.
type DecisionEvent struct {
	ID           string              `json:"id"`
	Timestamp    time.Time           `json:"timestamp"`
	Strategy     string              `json:"strategy"`
	Trigger      climate.TriggerKind `json:"trigger"`
	Decision     climate.Mode        `json:"decision"`
	PreviousMode climate.Mode        `json:"previous_mode"`
	State        climate.State       `json:"state"`
	Reasoning    string              `json:"reasoning"`
	TargetTemp   *float64            `json:"target_temp,omitempty"`
	Preset       climate.Preset      `json:"preset,omitempty"`
}

// NewDecisionEvent builds the event for one mode transition.
func NewDecisionEvent(rec climate.EvaluationRecord) DecisionEvent {
	return DecisionEvent{
		ID:           rec.ID,
		Timestamp:    rec.Timestamp,
		Strategy:     rec.Strategy,
		Trigger:      rec.Trigger,
		Decision:     rec.Decision,
		PreviousMode: rec.PreviousMode,
		State:        rec.State,
		Reasoning:    rec.Reasoning,
		TargetTemp:   rec.TargetTemp,
		Preset:       rec.Preset,
	}
}

// Hub fans climate events out to WebSocket clients.
// It satisfies engine.WSHub.
type Hub struct {
	cfg     config.WebSocketConfig
	logger  *logging.Logger
	clients map[*WSClient]struct{}
	status  func() engine.Status
	mu      sync.RWMutex
}

// WSClient is one connected WebSocket client.
type WSClient struct {
	hub           *Hub
	conn          *websocket.Conn
	send          chan []byte
	subscriptions map[string]struct{}
	mu            sync.RWMutex
	subject       string
	role          auth.Role
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// NewHub creates a new WebSocket hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// SetStatusSource sets where the snapshot sent on a climate.status
// subscription comes from. The server wires the climate controller here.
func (h *Hub) SetStatusSource(fn func() engine.Status) {
	h.mu.Lock()
	h.status = fn
	h.mu.Unlock()
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a client to the hub.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "subject", client.subject, "clients", h.ClientCount())
}

// Unregister removes a client from the hub. Only the call that removes the
// client closes its send channel.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()

	if existed {
		close(client.send)
	}
	h.logger.Debug("websocket client disconnected", "subject", client.subject, "clients", h.ClientCount())
}

// BroadcastStatus sends a committed engine snapshot to climate.status
// subscribers.
func (h *Hub) BroadcastStatus(st engine.Status) {
	h.broadcast(engine.ChannelStatus, NewStatusEvent(st))
}

// BroadcastDecision sends a mode transition to climate.decision subscribers.
func (h *Hub) BroadcastDecision(rec climate.EvaluationRecord) {
	h.broadcast(engine.ChannelDecision, NewDecisionEvent(rec))
}

func (h *Hub) broadcast(channel string, payload any) {
	data, err := encodeEvent(channel, payload)
	if err != nil {
		h.logger.Error("failed to marshal broadcast message", "channel", channel, "error", err)
		return
	}

	// Hub lock is released before any client lock is taken.
	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	sent := 0
	for _, client := range clients {
		if client.isSubscribed(channel) {
			client.trySend(data)
			sent++
		}
	}
	if sent > 0 {
		h.logger.Debug("broadcast sent", "channel", channel, "recipients", sent)
	}
}

func encodeEvent(channel string, payload any) ([]byte, error) {
	return json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: channel,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) statusSnapshot() (engine.Status, bool) {
	h.mu.RLock()
	fn := h.status
	h.mu.RUnlock()
	if fn == nil {
		return engine.Status{}, false
	}
	return fn(), true
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		if client.conn != nil {
			client.conn.Close()
		}
		delete(h.clients, client)
	}
}

// handleWebSocket upgrades the connection. Authentication is a single-use
// ticket from POST /auth/ws-ticket in the query string.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ticket := r.URL.Query().Get("ticket")
	if ticket == "" {
		writeUnauthorized(w, "ticket query parameter is required")
		return
	}
	entry, ok := s.tickets.consume(ticket)
	if !ok {
		writeUnauthorized(w, "invalid or expired ticket")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &WSClient{
		hub:           s.hub,
		conn:          conn,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: make(map[string]struct{}),
		subject:       entry.subject,
		role:          entry.role,
	}

	s.hub.Register(client)

	go client.writePump(s.wsCfg)
	go client.readPump(s.wsCfg)
}

func (c *WSClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	pongWait := time.Duration(cfg.PongTimeout) * time.Second
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			} else {
				c.hub.logger.Debug("websocket closed", "error", err)
			}
			return
		}
		// Any client frame counts as liveness.
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
		c.handleMessage(message)
	}
}

func (c *WSClient) writePump(cfg config.WebSocketConfig) {
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	pongWait := time.Duration(cfg.PongTimeout) * time.Second
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WSClient) handleMessage(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("", "invalid JSON message")
		return
	}

	switch msg.Type {
	case WSTypeSubscribe:
		c.handleSubscribe(msg)
	case WSTypeUnsubscribe:
		c.handleUnsubscribe(msg)
	case WSTypePing:
		c.sendResponse(msg.ID, WSTypePong, nil)
	default:
		c.sendError(msg.ID, "unknown message type: "+msg.Type)
	}
}

func decodeChannels(msg WSMessage) ([]string, bool) {
	raw, err := json.Marshal(msg.Payload)
	if err != nil {
		return nil, false
	}
	var sub WSSubscribePayload
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, false
	}
	return sub.Channels, true
}

// handleSubscribe adds channels to the client's subscriptions. A
// climate.status subscription is answered with the current snapshot right
// after the response, so the client does not wait for the next pass.
func (c *WSClient) handleSubscribe(msg WSMessage) {
	channels, ok := decodeChannels(msg)
	if !ok {
		c.sendError(msg.ID, "invalid subscribe payload")
		return
	}
	for _, ch := range channels {
		if !wsChannels[ch] {
			c.sendError(msg.ID, "unknown channel: "+ch)
			return
		}
	}

	c.mu.Lock()
	for _, ch := range channels {
		c.subscriptions[ch] = struct{}{}
	}
	c.mu.Unlock()

	c.hub.logger.Info("websocket client subscribed", "subject", c.subject, "role", c.role, "channels", channels)
	c.sendResponse(msg.ID, WSTypeResponse, map[string]any{"subscribed": channels})

	for _, ch := range channels {
		if ch != engine.ChannelStatus {
			continue
		}
		if st, ok := c.hub.statusSnapshot(); ok {
			if data, err := encodeEvent(engine.ChannelStatus, NewStatusEvent(st)); err == nil {
				c.trySend(data)
			}
		}
		break
	}
}

func (c *WSClient) handleUnsubscribe(msg WSMessage) {
	channels, ok := decodeChannels(msg)
	if !ok {
		c.sendError(msg.ID, "invalid unsubscribe payload")
		return
	}

	c.mu.Lock()
	for _, ch := range channels {
		delete(c.subscriptions, ch)
	}
	c.mu.Unlock()

	c.sendResponse(msg.ID, WSTypeResponse, map[string]any{"unsubscribed": channels})
}

// trySend queues data without blocking. A full buffer drops the frame; a
// channel closed by a concurrent disconnect is ignored.
func (c *WSClient) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // Absorb send-on-closed-channel panic
	}()

	select {
	case c.send <- data:
	default:
	}
}

func (c *WSClient) isSubscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.subscriptions[channel]
	return ok
}

func (c *WSClient) sendResponse(id, msgType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.trySend(data)
}

func (c *WSClient) sendError(id, message string) {
	c.sendResponse(id, WSTypeError, map[string]string{"message": message})
}
