package api

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/onco-tier-server/internal/domain"
)

// BatchEvent describes websocket payloads emitted while a batch assessment runs.
type BatchEvent struct {
	Type      string                  `json:"type"`
	BatchID   string                  `json:"batch_id,omitempty"`
	Total     int                     `json:"total,omitempty"`
	Processed int                     `json:"processed,omitempty"`
	Item      *domain.BatchItemResult `json:"item,omitempty"`
	Message   string                  `json:"message,omitempty"`
	Timestamp time.Time               `json:"timestamp"`
}

// wsClient wraps a websocket connection with write locking.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) writeJSON(payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(payload)
}

// BatchNotifier tracks active websocket clients and broadcasts batch events.
type BatchNotifier struct {
	mu         sync.Mutex
	clients    map[*wsClient]struct{}
	lastStatus *BatchEvent
}

// NewBatchNotifier constructs a notifier instance.
func NewBatchNotifier() *BatchNotifier {
	return &BatchNotifier{clients: make(map[*wsClient]struct{})}
}

// Register attaches a websocket connection and returns a client handle. A
// late joiner immediately receives the last known batch status.
func (n *BatchNotifier) Register(conn *websocket.Conn) *wsClient {
	client := &wsClient{conn: conn}
	n.mu.Lock()
	n.clients[client] = struct{}{}
	status := n.lastStatus
	n.mu.Unlock()

	if status != nil {
		_ = client.writeJSON(*status)
	}
	return client
}

// Unregister removes the websocket client from the notifier and closes the socket.
func (n *BatchNotifier) Unregister(client *wsClient) {
	if client == nil {
		return
	}
	n.mu.Lock()
	delete(n.clients, client)
	n.mu.Unlock()
	_ = client.conn.Close()
}

// Broadcast sends the supplied event to all registered websocket clients.
func (n *BatchNotifier) Broadcast(event BatchEvent) {
	event.Timestamp = time.Now().UTC()

	n.mu.Lock()
	if event.Type == "started" || event.Type == "progress" || event.Type == "completed" {
		snapshot := event
		snapshot.Item = nil
		n.lastStatus = &snapshot
	}

	for client := range n.clients {
		if err := client.writeJSON(event); err != nil {
			delete(n.clients, client)
			_ = client.conn.Close()
		}
	}
	n.mu.Unlock()
}

// LastStatus returns a copy of the most recent batch status event, or nil.
func (n *BatchNotifier) LastStatus() *BatchEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.lastStatus == nil {
		return nil
	}
	status := *n.lastStatus
	return &status
}
