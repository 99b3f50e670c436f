package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abrezinsky/pizzarate/internal/logger"
	"github.com/abrezinsky/pizzarate/internal/models"
	"github.com/abrezinsky/pizzarate/internal/services"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 256
)

// Client control messages
const (
	msgSubscribe   = "subscribe"
	msgUnsubscribe = "unsubscribe"
	msgSubscribed  = "subscribed"
	msgError       = "error"
)

// TopicAuthorizer decides whether uid may follow topic
type TopicAuthorizer func(ctx context.Context, uid, topic string) bool

// Hub maintains the set of active clients and routes messages by topic.
// A message with no topic goes to every client.
type Hub struct {
	log        logger.Logger
	clients    map[*Client]bool
	broadcast  chan models.WSMessage
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex
	authorize  TopicAuthorizer
	upgrader   websocket.Upgrader
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan models.WSMessage
	uid    string
	topics map[string]bool // guarded by hub.mutex
}

var _ services.Broadcaster = (*Hub)(nil)

// New creates a new Hub. Connections are accepted from any origin when
// allowedOrigins is empty.
func New(log logger.Logger, allowedOrigins []string) *Hub {
	h := &Hub{
		log:        log,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan models.WSMessage, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		authorize:  ownTopicOnly,
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: originChecker(allowedOrigins)}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set["*"] || set[origin]
	}
}

func ownTopicOnly(_ context.Context, uid, topic string) bool {
	return topic == services.UserTopic(uid)
}

// SetAuthorizer replaces the topic subscription policy
func (h *Hub) SetAuthorizer(a TopicAuthorizer) {
	h.authorize = a
}

// Start runs the hub's main loop until ctx is cancelled
func (h *Hub) Start(ctx context.Context) {
	go h.run(ctx)
}

func (h *Hub) run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("Client connected", "uid", client.uid, "total_clients", total)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("Client disconnected", "uid", client.uid, "total_clients", total)

		case message := <-h.broadcast:
			if message.Type == services.MsgTopicRevoked {
				h.revoke(message)
			}
			h.mutex.RLock()
			for client := range h.clients {
				if message.Topic != "" && !client.topics[message.Topic] {
					continue
				}
				select {
				case client.send <- message:
				default:
					// Client's send channel is full, unregister
					go func(c *Client) {
						select {
						case h.unregister <- c:
						case <-h.done:
						}
					}(client)
				}
			}
			h.mutex.RUnlock()
		}
	}
}

// Publish queues a message for delivery. It implements services.Broadcaster.
func (h *Hub) Publish(msg models.WSMessage) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

// revoke drops the event topic named in msg from every connection of the
// user whose topic msg is addressed to
func (h *Hub) revoke(msg models.WSMessage) {
	uid, ok := strings.CutPrefix(msg.Topic, services.UserTopic(""))
	topic, isString := msg.Payload.(string)
	if !ok || uid == "" || !isString {
		return
	}
	h.mutex.Lock()
	for client := range h.clients {
		if client.uid == uid && client.topics[topic] {
			delete(client.topics, topic)
			h.log.Debug("Topic access revoked", "uid", uid, "topic", topic)
		}
	}
	h.mutex.Unlock()
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *Hub) subscribe(c *Client, topic string) bool {
	if !h.authorize(context.Background(), c.uid, topic) {
		return false
	}
	h.mutex.Lock()
	c.topics[topic] = true
	h.mutex.Unlock()
	return true
}

func (h *Hub) unsubscribe(c *Client, topic string) {
	h.mutex.Lock()
	delete(c.topics, topic)
	h.mutex.Unlock()
}

// reply sends a control message to one client without blocking the read loop
func (c *Client) reply(msg models.WSMessage) {
	c.hub.mutex.RLock()
	defer c.hub.mutex.RUnlock()
	if !c.hub.clients[c] {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("WebSocket error", "error", err)
			}
			break
		}

		var msg models.WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.hub.log.Debug("Ignoring malformed message", "uid", c.uid, "error", err)
			continue
		}

		switch msg.Type {
		case msgSubscribe:
			if c.hub.subscribe(c, msg.Topic) {
				c.reply(models.WSMessage{Type: msgSubscribed, Topic: msg.Topic})
			} else {
				c.reply(models.WSMessage{Type: msgError, Topic: msg.Topic, Payload: "not allowed to follow this topic"})
			}
		case msgUnsubscribe:
			c.hub.unsubscribe(c, msg.Topic)
		default:
			c.hub.log.Debug("Received message", "type", msg.Type)
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
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
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
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

// ServeWs upgrades the request and registers a client for uid. The client
// follows its own user topic from the start.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request, uid string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("WebSocket upgrade error", "error", err)
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan models.WSMessage, sendBuffer),
		uid:    uid,
		topics: map[string]bool{services.UserTopic(uid): true},
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// Allow collection of memory referenced by the caller by doing all work in new goroutines
	go client.writePump()
	go client.readPump()
}
