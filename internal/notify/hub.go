// Package notify pushes catalog and wishlist change events to connected
// WebSocket clients, so browsing sessions can refresh after a mutation run
// invalidates the cached collection.
package notify

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event types.
const (
	CatalogReloaded = "catalog.reloaded" // cache invalidated, next load is fresh
	CatalogMutated  = "catalog.mutated"  // a field operation rewrote the store
	WishlistUpdated = "wishlist.updated"
	WishlistRemoved = "wishlist.removed"
)

type Event struct {
	Type      string    `json:"type"`
	RunID     string    `json:"run_id,omitempty"` // mutation run, for catalog.* events
	UserID    string    `json:"user_id,omitempty"`
	ProductID string    `json:"product_id,omitempty"`
	At        time.Time `json:"at"`
}

type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]struct{})}
}

func (h *Hub) Add(ws *websocket.Conn) {
	h.mu.Lock()
	h.clients[ws] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) Remove(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, ws)
	h.mu.Unlock()
	_ = ws.Close()
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// BroadcastJSON sends v to every connected client, dropping clients whose
// writes fail.
func (h *Hub) BroadcastJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ws := range h.clients {
		if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
			_ = ws.Close()
			delete(h.clients, ws)
		}
	}
}
