package handler

import (
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Shivanand-hulikatti/resource-booking/internal/presence"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 32
)

var upgrader = websocket.Upgrader{
	// The feed is as public as GET /resources/{id}/presence.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type subscriber struct {
	conn *websocket.Conn
	send chan presence.Event
}

// Hub fans presence events out to websocket subscribers of a resource.
// It implements presence.Broadcaster.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*subscriber]struct{}
	log  *slog.Logger
}

// NewHub constructs an empty Hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Hub{subs: make(map[string]map[*subscriber]struct{}), log: log}
}

// Broadcast queues ev for every subscriber of its resource. A subscriber
// whose buffer is full misses the event rather than stalling the caller.
func (h *Hub) Broadcast(ev presence.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[ev.ResourceID] {
		select {
		case sub.send <- ev:
		default:
			h.log.Warn("presence subscriber too slow, dropping event", "resource_id", ev.ResourceID)
		}
	}
}

// Serve upgrades the request and streams events of resourceID until the
// client goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, resourceID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		return
	}
	sub := &subscriber{conn: conn, send: make(chan presence.Event, sendBuffer)}
	h.add(resourceID, sub)
	go h.writePump(sub)

	// Reading keeps the connection alive and notices disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(resourceID, sub)
}

func (h *Hub) writePump(sub *subscriber) {
	defer sub.conn.Close()
	for ev := range sub.send {
		_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := sub.conn.WriteJSON(ev); err != nil {
			return
		}
	}
	_ = sub.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

func (h *Hub) add(resourceID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[resourceID]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subs[resourceID] = set
	}
	set[sub] = struct{}{}
}

func (h *Hub) remove(resourceID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[resourceID]
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, resourceID)
	}
	close(sub.send)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, set := range h.subs {
		for sub := range set {
			close(sub.send)
		}
		delete(h.subs, id)
	}
}

func (h *Hub) subscribers(resourceID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[resourceID])
}
