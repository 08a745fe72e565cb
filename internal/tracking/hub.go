package tracking

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 16
)

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans location snapshots out to WebSocket subscribers of a route.
// Each connection has its own writer goroutine; a slow reader loses
// messages rather than blocking publishers.
type Hub struct {
	mu      sync.Mutex
	clients map[uint]map[*subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[uint]map[*subscriber]struct{})}
}

func (h *Hub) register(routeID uint, conn *websocket.Conn) *subscriber {
	sub := &subscriber{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if _, ok := h.clients[routeID]; !ok {
		h.clients[routeID] = make(map[*subscriber]struct{})
	}
	h.clients[routeID][sub] = struct{}{}
	h.mu.Unlock()

	liveSubscribers.Inc()
	go sub.writeLoop(routeID)

	logrus.WithFields(logrus.Fields{
		"route_id": routeID,
		"conn_ptr": fmt.Sprintf("%p", conn),
	}).Info("Client registered with location hub.")
	return sub
}

func (h *Hub) unregister(routeID uint, sub *subscriber) {
	h.mu.Lock()
	clients, ok := h.clients[routeID]
	if ok {
		if _, present := clients[sub]; present {
			delete(clients, sub)
			close(sub.send)
			liveSubscribers.Dec()
		}
		if len(clients) == 0 {
			delete(h.clients, routeID)
		}
	}
	h.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"route_id": routeID,
		"conn_ptr": fmt.Sprintf("%p", sub.conn),
	}).Info("Client unregistered from location hub.")
}

// Subscribers returns how many connections follow a route.
func (h *Hub) Subscribers(routeID uint) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[routeID])
}

// Publish queues a snapshot for every subscriber of its route.
func (h *Hub) Publish(snap Snapshot) {
	msg, err := json.Marshal(snap)
	if err != nil {
		logrus.WithError(err).Error("Could not encode location snapshot.")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.clients[snap.RouteID] {
		select {
		case sub.send <- msg:
		default:
			logrus.WithField("route_id", snap.RouteID).Warn("Subscriber send buffer full, dropping message.")
		}
	}
}

// Serve follows one connection until the peer goes away. initial, when set,
// is sent first so a new subscriber does not wait for the next push.
func (h *Hub) Serve(routeID uint, conn *websocket.Conn, initial *Snapshot) {
	sub := h.register(routeID, conn)
	defer h.unregister(routeID, sub)

	if initial != nil {
		if msg, err := json.Marshal(initial); err == nil {
			sub.send <- msg
		}
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logrus.WithError(err).WithField("route_id", routeID).Warn("Live feed connection dropped.")
			}
			return
		}
	}
}

func (s *subscriber) writeLoop(routeID uint) {
	defer s.conn.Close()
	for msg := range s.send {
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			logrus.WithError(err).WithField("route_id", routeID).Debug("Failed to send snapshot to subscriber.")
			return
		}
	}
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
