// Package live tracks which WebSocket clients are subscribed to which
// cache keys, and notifies them when a subscribed key is invalidated.
// It replaces the source system's WAL-consumption live-update path:
// this engine has no replication log to tail, only a cache whose
// entries are explicitly cleared or overwritten, so invalidation is
// the cache write path itself, not a background consumer.
package live

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Message is the wire format for every client<->server frame.
type Message struct {
	Type   string   `json:"type"`
	ID     string   `json:"id,omitempty"`
	SQL    string   `json:"sql,omitempty"`
	Tables []string `json:"tables,omitempty"`
	Error  string   `json:"error,omitempty"`
}

type subscription struct {
	id       string
	conn     *websocket.Conn
	cacheKey string
}

// Registry tracks live subscriptions, keyed by the cache key they
// watch, and fans out invalidation notices.
type Registry struct {
	mu    sync.Mutex
	byKey map[string][]*subscription
	byID  map[string]*subscription
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		byKey: make(map[string][]*subscription),
		byID:  make(map[string]*subscription),
	}
}

// Subscribe registers conn's interest in cacheKey and returns the new
// subscription's id.
func (r *Registry) Subscribe(conn *websocket.Conn, cacheKey string) string {
	sub := &subscription{id: uuid.NewString(), conn: conn, cacheKey: cacheKey}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKey[cacheKey] = append(r.byKey[cacheKey], sub)
	r.byID[sub.id] = sub
	return sub.id
}

// Unsubscribe removes a subscription by id.
func (r *Registry) Unsubscribe(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)
	subs := r.byKey[sub.cacheKey]
	for i, s := range subs {
		if s.id == id {
			r.byKey[sub.cacheKey] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

// DropConn removes every subscription belonging to conn, called when
// its WebSocket closes.
func (r *Registry) DropConn(conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, sub := range r.byID {
		if sub.conn != conn {
			continue
		}
		delete(r.byID, id)
		subs := r.byKey[sub.cacheKey]
		for i, s := range subs {
			if s.id == id {
				r.byKey[sub.cacheKey] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
}

// Invalidate notifies every subscriber of cacheKey that it changed.
// Send failures are treated as a dead connection and dropped.
func (r *Registry) Invalidate(cacheKey string) {
	r.mu.Lock()
	subs := append([]*subscription(nil), r.byKey[cacheKey]...)
	r.mu.Unlock()

	for _, sub := range subs {
		msg := Message{Type: "invalidated", ID: sub.id}
		if err := sub.conn.WriteJSON(msg); err != nil {
			r.DropConn(sub.conn)
		}
	}
}
