// internal/websocket/hub.go
package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"rebill-service/internal/service/billing"

	"go.uber.org/zap"
)

// Hub fans billing-run progress events out to connected websocket clients.
type Hub struct {
	clients map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		logger:     logger,
	}
}

// Publish implements billing.EventPublisher. It never blocks: when the
// broadcast buffer is full the event is dropped, the feed is best-effort
// progress reporting, not a system of record (the ledger is).
func (h *Hub) Publish(event billing.RunEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Warn("failed to marshal run event", zap.Error(err))
		return
	}

	select {
	case h.broadcast <- payload:
	default:
		h.logger.Warn("run event feed backlogged, dropping event")
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Info("websocket client connected", zap.Int("clients", h.clientCount()))

		case client := <-h.unregister:
			h.removeClient(client)

		case payload := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- payload:
				default:
					// Slow consumer, drop it rather than stall the feed.
					go client.Close()
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()
	h.logger.Info("websocket client disconnected", zap.Int("clients", h.clientCount()))
}

func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}
