package websocket

import (
	"encoding/json"
	"sync"

	"github.com/KevinKickass/OpenMotorControl/internal/motor"
	"go.uber.org/zap"
)

// StatusProvider supplies the snapshot sent to newly connected clients
type StatusProvider interface {
	Status() motor.Status
}

// Hub maintains active WebSocket clients and broadcasts controller events
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Inbound messages to broadcast
	broadcast chan Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	mu sync.RWMutex

	logger *zap.Logger

	// Status provider (optional)
	statusProvider StatusProvider

	done     chan struct{}
	stopOnce sync.Once
}

// NewHub creates a new Hub instance
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// SetStatusProvider sets the controller status provider
func (h *Hub) SetStatusProvider(provider StatusProvider) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statusProvider = provider
}

// Run starts the hub's main event loop and returns after Stop
func (h *Hub) Run() {
	h.logger.Info("WebSocket Hub started")
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			provider := h.statusProvider
			total := len(h.clients)
			h.mu.Unlock()

			h.logger.Info("WebSocket client registered",
				zap.String("remote_addr", client.remoteAddr()),
				zap.Int("total_clients", total))

			if provider != nil {
				h.sendTo(client, NewStatusMessage(provider.Status()))
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Info("WebSocket client unregistered",
					zap.String("remote_addr", client.remoteAddr()),
					zap.Int("total_clients", len(h.clients)))
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				h.logger.Error("Failed to marshal broadcast message",
					zap.Error(err))
				continue
			}

			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					// Client send channel full - unregister slow/dead client
					close(client.send)
					delete(h.clients, client)
					h.logger.Warn("Client send buffer full, unregistering",
						zap.String("remote_addr", client.remoteAddr()))
				}
			}
			h.mu.Unlock()

		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info("WebSocket Hub stopped")
			return
		}
	}
}

// Stop disconnects every client and ends Run
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Broadcast queues a message for all connected clients without blocking
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("Hub broadcast channel full, message dropped",
			zap.String("message_type", string(msg.Type)))
	}
}

// OnEvent implements motor.Listener
func (h *Hub) OnEvent(ev motor.Event) {
	h.Broadcast(NewEventMessage(ev))
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) sendTo(client *Client, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to marshal message", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[client] {
		return
	}
	select {
	case client.send <- data:
	default:
	}
}
