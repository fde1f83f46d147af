package ws

import (
	"context"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/sirupsen/logrus"

	"go-popup-ledger/internal/events"
	"go-popup-ledger/internal/model"
)

// Hub pushes committed ledger events to connected websocket clients.
type Hub struct {
	Clients    map[*websocket.Conn]bool
	Register   chan *websocket.Conn
	Unregister chan *websocket.Conn
	Broadcast  chan []byte
	log        *logrus.Logger
	mutex      sync.Mutex
}

func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		Clients:    make(map[*websocket.Conn]bool),
		Register:   make(chan *websocket.Conn),
		Unregister: make(chan *websocket.Conn),
		Broadcast:  make(chan []byte, 256),
		log:        log,
	}
}

// Run serves the hub until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case conn := <-h.Register:
			h.mutex.Lock()
			h.Clients[conn] = true
			h.mutex.Unlock()
			h.log.WithField("clients", h.Count()).Debug("ws client connected")

		case conn := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.Clients[conn]; ok {
				delete(h.Clients, conn)
				conn.Close()
			}
			h.mutex.Unlock()

		case message := <-h.Broadcast:
			h.mutex.Lock()
			for conn := range h.Clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					conn.Close()
					delete(h.Clients, conn)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Publish implements events.Publisher. It gives up when ctx ends rather
// than stall the caller behind slow clients.
func (h *Hub) Publish(ctx context.Context, event model.EventLog) error {
	payload, err := events.Encode(event)
	if err != nil {
		return err
	}
	return h.Relay(ctx, payload)
}

// Relay queues an already encoded message, e.g. one received from redis.
func (h *Hub) Relay(ctx context.Context, payload []byte) error {
	select {
	case h.Broadcast <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) Count() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.Clients)
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for conn := range h.Clients {
		conn.Close()
		delete(h.Clients, conn)
	}
}
