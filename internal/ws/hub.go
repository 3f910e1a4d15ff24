package ws

import "log/slog"

type message struct {
	key  string
	data []byte
}

// Hub fans activity events out to websocket subscribers. Subscribers are
// keyed by user ID so each dashboard only sees its own feed.
type Hub struct {
	register    chan *Client
	unregister  chan *Client
	broadcast   chan message
	subscribers map[string]map[*Client]struct{}
	logger      *slog.Logger
}

// NewHub builds a hub. Run must be started in its own goroutine.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan message, 64),
		subscribers: make(map[string]map[*Client]struct{}),
		logger:      logger,
	}
}

// Run owns the subscriber map; all mutation happens on this goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			if h.subscribers[client.key] == nil {
				h.subscribers[client.key] = make(map[*Client]struct{})
			}
			h.subscribers[client.key][client] = struct{}{}
			h.logger.Debug("ws subscriber registered", slog.String("key", client.key))
		case client := <-h.unregister:
			if clients, ok := h.subscribers[client.key]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.subscribers, client.key)
					}
				}
			}
		case msg := <-h.broadcast:
			for client := range h.subscribers[msg.key] {
				select {
				case client.send <- msg.data:
				default:
					// Slow consumer, drop it rather than block the hub.
					delete(h.subscribers[msg.key], client)
					close(client.send)
				}
			}
		}
	}
}

// Register attaches a client to the hub.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Broadcast delivers data to every subscriber registered under key.
func (h *Hub) Broadcast(key string, data []byte) {
	h.broadcast <- message{key: key, data: data}
}
