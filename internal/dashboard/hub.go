package dashboard

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aircasthq/panel-core/core/events"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// The dashboard is an operator tool on a trusted network.
		return true
	},
}

// wsEvent is the push-notification envelope: the event kind, when it
// happened, and the typed payload.
type wsEvent struct {
	Kind      string       `json:"kind"`
	Timestamp time.Time    `json:"timestamp"`
	Data      events.Event `json:"data"`
}

// Hub fans conversation events out to every connected websocket subscriber.
// Slow subscribers are dropped rather than allowed to stall the broadcast.
type Hub struct {
	register   chan *subscriber
	unregister chan *subscriber
	broadcast  chan wsEvent

	subscribers map[*subscriber]struct{}
}

type subscriber struct {
	conn *websocket.Conn
	send chan wsEvent
}

func NewHub() *Hub {
	return &Hub{
		register:    make(chan *subscriber),
		unregister:  make(chan *subscriber),
		broadcast:   make(chan wsEvent, 64),
		subscribers: map[*subscriber]struct{}{},
	}
}

// Run owns the subscriber set; call it once, typically in its own goroutine.
// It returns when done closes.
func (h *Hub) Run(done <-chan struct{}) {
	for {
		select {
		case <-done:
			for sub := range h.subscribers {
				close(sub.send)
				delete(h.subscribers, sub)
			}
			return
		case sub := <-h.register:
			h.subscribers[sub] = struct{}{}
		case sub := <-h.unregister:
			if _, ok := h.subscribers[sub]; ok {
				close(sub.send)
				delete(h.subscribers, sub)
			}
		case event := <-h.broadcast:
			for sub := range h.subscribers {
				select {
				case sub.send <- event:
				default:
					close(sub.send)
					delete(h.subscribers, sub)
				}
			}
		}
	}
}

// Broadcast queues an event for every subscriber. Safe to call from the
// orchestrator's event callback.
func (h *Hub) Broadcast(event events.Event) {
	envelope := wsEvent{
		Kind:      string(event.Kind()),
		Timestamp: event.Timestamp(),
		Data:      event,
	}

	select {
	case h.broadcast <- envelope:
	default:
		log.Println("Warning: dashboard event broadcast queue full, dropping event")
	}
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("Failed to upgrade dashboard websocket:", err)
		return
	}

	sub := &subscriber{conn: conn, send: make(chan wsEvent, 16)}
	h.register <- sub

	go sub.writeLoop()
	go sub.readLoop(h)
}

func (s *subscriber) writeLoop() {
	defer s.conn.Close()

	for event := range s.send {
		payload, err := json.Marshal(event)
		if err != nil {
			log.Println("Failed to marshal dashboard event:", err)
			continue
		}
		if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

// readLoop drains and discards client messages so pings and closes are
// processed.
func (s *subscriber) readLoop(h *Hub) {
	defer func() {
		h.unregister <- s
		s.conn.Close()
	}()

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}
