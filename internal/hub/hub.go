// Package hub tracks live realtime connections and delivers room events to them.
package hub

import (
	"sync"

	"github.com/jason-s-yu/forca/internal/game"
	"github.com/sirupsen/logrus"
)

// Connection is one client's outbound queue. The write pump drains OutChan in order.
type Connection struct {
	ID         string
	RemoteAddr string
	OutChan    chan game.Event
	Cancel     func()

	done      chan struct{}
	closeOnce sync.Once
	log       logrus.FieldLogger
}

// NewConnection returns a connection with an outbound buffer of size buffer.
func NewConnection(id, remoteAddr string, buffer int, cancel func(), logger logrus.FieldLogger) *Connection {
	if cancel == nil {
		cancel = func() {}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Connection{
		ID:         id,
		RemoteAddr: remoteAddr,
		OutChan:    make(chan game.Event, buffer),
		Cancel:     cancel,
		done:       make(chan struct{}),
		log:        logger.WithField("conn", id),
	}
}

// Write queues ev without blocking. It reports false if the event was dropped because
// the connection is closed or its queue is full.
func (c *Connection) Write(ev game.Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.OutChan <- ev:
		return true
	default:
		c.log.Warnf("outbound queue full, dropped %s", ev.Name)
		return false
	}
}

// WriteError queues the negative acknowledgment for err.
func (c *Connection) WriteError(err error) bool {
	return c.Write(game.ErrorEvent(err))
}

// Done is closed once the connection is closed.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Close stops delivery and cancels the connection's context. Safe to call more than once.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.Cancel()
	})
}

// Hub is the process-wide connection table. It implements game.Broadcaster.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*Connection
	log   logrus.FieldLogger
}

func New(logger logrus.FieldLogger) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		conns: make(map[string]*Connection),
		log:   logger,
	}
}

// Register adds c, replacing and closing any connection with the same id.
func (h *Hub) Register(c *Connection) {
	h.mu.Lock()
	old := h.conns[c.ID]
	h.conns[c.ID] = c
	h.mu.Unlock()

	if old != nil && old != c {
		old.Close()
	}
}

// Unregister removes and closes the connection.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	c, ok := h.conns[id]
	delete(h.conns, id)
	h.mu.Unlock()

	if ok {
		c.Close()
	}
}

// Get returns the connection registered under id.
func (h *Hub) Get(id string) (*Connection, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.conns[id]
	return c, ok
}

// Len returns the number of registered connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Send queues ev for one connection. Unknown ids are ignored.
func (h *Hub) Send(connID string, ev game.Event) {
	c, ok := h.Get(connID)
	if !ok {
		h.log.Debugf("send %s to unknown connection %s", ev.Name, connID)
		return
	}
	c.Write(ev)
}

// Broadcast queues ev for each listed connection.
func (h *Hub) Broadcast(connIDs []string, ev game.Event) {
	h.mu.RLock()
	targets := make([]*Connection, 0, len(connIDs))
	for _, id := range connIDs {
		if c, ok := h.conns[id]; ok {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.Write(ev)
	}
}
