package handlers

import (
	"net/http"
	"sync"
	"time"

	"ALZHEIMER_MRI/go-frontend/internal/models"
	"ALZHEIMER_MRI/go-frontend/internal/services"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type wsClient struct {
	conn      *websocket.Conn
	clientID  string
	sessionID string

	mu     sync.Mutex
	closed bool
	send   chan models.WebSocketMessage
}

// enqueue queues msg without blocking. It reports false when the client is
// closed or its buffer is full.
func (c *wsClient) enqueue(msg models.WebSocketMessage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *wsClient) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Hub tracks websocket clients by session so flow state changes reach every
// open tab of that session.
type Hub struct {
	metrics *services.Metrics
	logger  *zap.Logger

	mu      sync.RWMutex
	clients map[string]*wsClient
	closed  bool
	wg      sync.WaitGroup
}

func NewHub(metrics *services.Metrics, logger *zap.Logger) *Hub {
	return &Hub{
		metrics: metrics,
		logger:  logger,
		clients: make(map[string]*wsClient),
	}
}

// Serve upgrades the request and runs the client's pumps until the
// connection ends. first is queued before anything else.
func (hub *Hub) Serve(w http.ResponseWriter, r *http.Request, sessionID string, first ...models.WebSocketMessage) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &wsClient{
		conn:      conn,
		clientID:  "client-" + uuid.NewString(),
		sessionID: sessionID,
		send:      make(chan models.WebSocketMessage, sendBuffer+len(first)+1),
	}

	// Queued before registration so nothing else can close send meanwhile.
	client.enqueue(models.NewWebSocketMessage("WELCOME", client.clientID, map[string]interface{}{
		"message": "Connected to Alzheimer's assessment server",
		"version": "1.0",
	}))
	for _, msg := range first {
		msg.ClientID = client.clientID
		client.enqueue(msg)
	}

	hub.mu.Lock()
	if hub.closed {
		hub.mu.Unlock()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}
	hub.clients[client.clientID] = client
	hub.wg.Add(2)
	hub.metrics.IncrementWebSocketConnections()
	hub.mu.Unlock()
	hub.logger.Debug("websocket client connected", zap.String("client", client.clientID))

	go func() {
		defer hub.wg.Done()
		hub.writePump(client)
	}()
	go func() {
		defer hub.wg.Done()
		hub.readPump(client)
	}()
}

func (hub *Hub) unregister(client *wsClient) {
	hub.mu.Lock()
	_, ok := hub.clients[client.clientID]
	delete(hub.clients, client.clientID)
	hub.mu.Unlock()

	client.closeSend()
	if ok {
		hub.metrics.DecrementWebSocketConnections()
		hub.logger.Debug("websocket client disconnected", zap.String("client", client.clientID))
	}
}

func (hub *Hub) readPump(client *wsClient) {
	defer hub.unregister(client)

	client.conn.SetReadLimit(4096)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg models.WebSocketMessage
		if err := client.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				hub.metrics.IncrementWebSocketErrors()
				hub.logger.Debug("websocket read error", zap.String("client", client.clientID), zap.Error(err))
			}
			return
		}
		hub.metrics.IncrementWebSocketMessages()

		switch msg.Type {
		case "PING":
			hub.trySend(client, models.NewWebSocketMessage("PONG", client.clientID, nil))
		default:
			hub.logger.Debug("unknown websocket message", zap.String("type", msg.Type))
		}
	}
}

func (hub *Hub) writePump(client *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := client.conn.WriteJSON(msg); err != nil {
				hub.metrics.IncrementWebSocketErrors()
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// trySend queues msg without blocking; slow or closed clients miss messages.
func (hub *Hub) trySend(client *wsClient, msg models.WebSocketMessage) {
	if !client.enqueue(msg) {
		hub.metrics.IncrementWebSocketErrors()
	}
}

// Broadcast sends msg to every client of sessionID.
func (hub *Hub) Broadcast(sessionID string, msg models.WebSocketMessage) {
	hub.mu.RLock()
	targets := make([]*wsClient, 0, 1)
	for _, c := range hub.clients {
		if c.sessionID == sessionID {
			targets = append(targets, c)
		}
	}
	hub.mu.RUnlock()

	for _, c := range targets {
		m := msg
		m.ClientID = c.clientID
		hub.trySend(c, m)
	}
}

func (hub *Hub) Count() int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.clients)
}

// Close disconnects every client and waits for their pumps to exit.
func (hub *Hub) Close() {
	hub.mu.Lock()
	hub.closed = true
	clients := hub.clients
	hub.clients = make(map[string]*wsClient)
	hub.mu.Unlock()

	for _, c := range clients {
		c.closeSend()
		hub.metrics.DecrementWebSocketConnections()
	}
	hub.wg.Wait()
}

// WebSocket serves /ws for the caller's session and immediately reports the
// current flow state.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	s, ok := h.sessions.Get(c.Value)
	if !ok {
		http.Error(w, "Unknown session", http.StatusUnauthorized)
		return
	}

	h.hub.Serve(w, r, s.ID, models.NewWebSocketMessage("STATE", "", s.Flow().Snapshot()))
}
