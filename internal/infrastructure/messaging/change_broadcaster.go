package messaging

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 16
)

// Client represents a single connected change feed subscriber.
type Client struct {
	Conn *websocket.Conn
	Send chan []byte
}

// ChangeBroadcaster manages all connected subscribers and fans out change events.
type ChangeBroadcaster struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	events     chan []byte
	done       chan struct{}
	logger     *slog.Logger
	upgrader   websocket.Upgrader
	mu         sync.RWMutex
}

var _ Broadcaster = (*ChangeBroadcaster)(nil)

// NewChangeBroadcaster creates a new broadcaster instance. checkOrigin may be nil
// to accept any origin.
func NewChangeBroadcaster(logger *slog.Logger, checkOrigin func(r *http.Request) bool) *ChangeBroadcaster {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &ChangeBroadcaster{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan []byte, 64),
		done:       make(chan struct{}),
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// Run starts the broadcaster's main loop until ctx is done. This should be run as a goroutine.
func (b *ChangeBroadcaster) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(b.done)
			b.mu.Lock()
			for client := range b.clients {
				delete(b.clients, client)
				close(client.Send)
			}
			b.mu.Unlock()
			return

		case client := <-b.register:
			b.mu.Lock()
			b.clients[client] = true
			b.mu.Unlock()
			b.logger.Debug("Change feed client registered")

		case client := <-b.unregister:
			b.mu.Lock()
			if _, ok := b.clients[client]; ok {
				delete(b.clients, client)
				close(client.Send)
			}
			b.mu.Unlock()
			b.logger.Debug("Change feed client unregistered")

		case message := <-b.events:
			b.mu.RLock()
			for client := range b.clients {
				select {
				case client.Send <- message:
				default:
					b.logger.Warn("Change feed client too slow, dropping message")
				}
			}
			b.mu.RUnlock()
		}
	}
}

// Broadcast queues event for every subscriber. It never blocks the caller.
func (b *ChangeBroadcaster) Broadcast(event *ChangeEvent) {
	message, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal change event", "error", err, "transactionId", event.TransactionID)
		return
	}
	select {
	case b.events <- message:
	default:
		b.logger.Warn("Change feed queue full, dropping event", "transactionId", event.TransactionID)
	}
}

// ClientCount returns the number of connected subscribers.
func (b *ChangeBroadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// ServeWS upgrades the request and pumps events to the connection until it closes.
func (b *ChangeBroadcaster) ServeWS(w http.ResponseWriter, r *http.Request) error {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &Client{Conn: conn, Send: make(chan []byte, sendBufferSize)}
	select {
	case b.register <- client:
	case <-b.done:
		conn.Close()
		return nil
	}

	go b.writePump(client)
	b.readPump(client)
	return nil
}

// readPump discards inbound frames and notices disconnects.
func (b *ChangeBroadcaster) readPump(client *Client) {
	defer func() {
		select {
		case b.unregister <- client:
		case <-b.done:
		}
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(512)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (b *ChangeBroadcaster) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
