package httpapi

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/vterekhov/recordsync/internal/logging"
	"github.com/vterekhov/recordsync/internal/wire"
)

// pushConn serializes writes; gorilla connections permit one writer at a
// time.
type pushConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *pushConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Hub tracks the open push connections of each actor and fans notifications
// out to them. It implements services.Publisher.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]map[*pushConn]struct{}
	log   logging.Logger
}

func NewHub(log logging.Logger) *Hub {
	return &Hub{
		conns: make(map[string]map[*pushConn]struct{}),
		log:   log.With("module", "push-hub"),
	}
}

func (h *Hub) add(actor string, conn *pushConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[actor] == nil {
		h.conns[actor] = make(map[*pushConn]struct{})
	}
	h.conns[actor][conn] = struct{}{}
}

func (h *Hub) remove(actor string, conn *pushConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns[actor], conn)
	if len(h.conns[actor]) == 0 {
		delete(h.conns, actor)
	}
}

// Publish sends the notification to every open connection of the actor.
// Actors without a connection miss the push; they catch up from their change
// tokens on the next connect.
func (h *Hub) Publish(actor string, n wire.Notification) {
	h.mu.RLock()
	conns := make([]*pushConn, 0, len(h.conns[actor]))
	for conn := range h.conns[actor] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.writeJSON(n); err != nil {
			h.log.Warn(context.Background(), "push write failed", "actor", actor, "error", err)
			_ = conn.conn.Close()
			h.remove(actor, conn)
		}
	}
}
