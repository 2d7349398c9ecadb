// Package telemetry streams run events to websocket clients.
//
// A Hub fans each event out to every connected client. Slow clients are
// dropped rather than allowed to stall the control loop.
package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/gwillem/smootharm/internal/log"
	"github.com/gwillem/smootharm/pkg/motion"
)

// Frame is the JSON document sent for each event.
type Frame struct {
	motion.Event
	Error string `json:"error,omitempty"`
}

// Hub maintains the set of active clients and broadcasts frames to them.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}
	upgrader   websocket.Upgrader

	mu    sync.RWMutex
	count int
}

// New creates a hub. Call Run before serving clients.
func New() *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Run is the hub's main loop. It returns when ctx is cancelled, after
// closing every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.remove(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = true
			h.setCount()
			log.Debug("telemetry client connected", "remote", c.conn.RemoteAddr(), "clients", len(h.clients))

		case c := <-h.unregister:
			if h.clients[c] {
				h.remove(c)
				log.Debug("telemetry client disconnected", "clients", len(h.clients))
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					h.remove(c)
					log.Warn("dropped slow telemetry client", "remote", c.conn.RemoteAddr())
				}
			}
		}
	}
}

func (h *Hub) remove(c *client) {
	delete(h.clients, c)
	h.setCount()
	close(c.send)
}

func (h *Hub) setCount() {
	h.mu.Lock()
	h.count = len(h.clients)
	h.mu.Unlock()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Broadcast queues a frame for every client. It never blocks; when the queue
// is full the frame is dropped.
func (h *Hub) Broadcast(f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- data:
	default:
		log.Debug("telemetry queue full, dropping frame", "kind", f.Kind)
	}
	return nil
}

// Observer returns a motion observer that broadcasts every event except
// ticks below every skip-th one. skip <= 1 sends all ticks.
func (h *Hub) Observer(skip int) motion.Observer {
	return func(e motion.Event) {
		if e.Kind == motion.EventTick && skip > 1 && e.Tick%skip != 0 && e.Tick != e.Ticks {
			return
		}
		f := Frame{Event: e}
		if e.Err != nil {
			f.Error = e.Err.Error()
		}
		if err := h.Broadcast(f); err != nil {
			log.Warn("encode telemetry frame", "err", err)
		}
	}
}

// ServeHTTP upgrades the request to a websocket and streams frames to it
// until either side closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade", "err", err)
		return
	}
	c := &client{hub: h, conn: conn, send: make(chan []byte, 256)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}
	go c.writePump()
	c.readPump()
}
