// Package monitoring streams prediction events to websocket observers.
package monitoring

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/saradindusengupta/mlops-workshop/serving"
)

// Event is one message on the stream.
type Event struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

const (
	writeWait      = 10 * time.Second
	clientSendSize = 16
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans each published prediction out to connected websocket clients.
// Publishing never blocks the predict path; slow clients are dropped.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Run owns the client set. Call it in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			h.logger.Info("observer connected", zap.Int("clients", len(h.clients)))
		case c := <-h.unregister:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
		case message := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					delete(h.clients, c)
					close(c.send)
				}
			}
		case <-h.done:
			for c := range h.clients {
				close(c.send)
				c.conn.Close()
			}
			return
		}
	}
}

// Stop disconnects all clients and ends Run.
func (h *Hub) Stop() {
	close(h.done)
}

// PublishPrediction implements serving.EventPublisher.
func (h *Hub) PublishPrediction(result serving.Result) {
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	payload, err := json.Marshal(Event{
		Type:      "prediction",
		Timestamp: time.Now(),
		Data:      data,
	})
	if err != nil {
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.logger.Warn("event stream full, dropping prediction event")
	}
}

// HandleWS upgrades the connection and registers the observer.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientSendSize)}
	h.register <- c

	go c.writePump()
	go c.readPump(h)
}

func (c *client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump discards inbound frames; the stream is one-way. It exists to
// notice the client going away.
func (c *client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
