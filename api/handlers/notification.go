package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/chakshi/chakshi-api/api"
	"github.com/chakshi/chakshi-api/config"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Notification is the frame written to subscribers
type Notification struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
	At    time.Time   `json:"at"`
}

type subscriber struct {
	send chan Notification
}

// NotificationHub fans case events out to each user's open sockets. A user
// may hold several connections.
type NotificationHub struct {
	mutex   sync.Mutex
	clients map[string]map[*subscriber]struct{}
}

// NewNotificationHub returns an empty hub
func NewNotificationHub() *NotificationHub {
	return &NotificationHub{clients: make(map[string]map[*subscriber]struct{})}
}

// Notify queues an event for every connection of userID. Slow connections
// drop events rather than block the caller.
func (h *NotificationHub) Notify(userID, event string, data interface{}) {
	n := Notification{Event: event, Data: data, At: time.Now().UTC()}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for s := range h.clients[userID] {
		select {
		case s.send <- n:
		default:
			zap.S().Warnw("dropping notification for slow client", "userId", userID, "event", event)
		}
	}
}

// Connected reports how many sockets userID has open
func (h *NotificationHub) Connected(userID string) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients[userID])
}

func (h *NotificationHub) register(userID string, s *subscriber) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*subscriber]struct{})
	}
	h.clients[userID][s] = struct{}{}
}

func (h *NotificationHub) unregister(userID string, s *subscriber) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	delete(h.clients[userID], s)
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
}

// HandleWebSocket subscribes the authenticated user to their events. With
// auth disabled the user is taken from ?userId.
func (h *NotificationHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := ""
	if p, ok := api.PrincipalFromContext(r.Context()); ok && p.ID != "" {
		userID = p.ID
	} else {
		userID = r.URL.Query().Get("userId")
	}
	if userID == "" {
		config.ErrorStatus("userId is required", http.StatusBadRequest, w, nil)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().With("error", err).Warn("websocket upgrade failed")
		return
	}

	s := &subscriber{send: make(chan Notification, sendBuffer)}
	h.register(userID, s)
	zap.S().Infow("notification socket connected", "userId", userID)

	done := make(chan struct{})
	go h.writePump(conn, s, done)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			break
		}
	}

	h.unregister(userID, s)
	close(done)
	zap.S().Infow("notification socket disconnected", "userId", userID)
}

func (h *NotificationHub) writePump(conn *websocket.Conn, s *subscriber, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()
	for {
		select {
		case n := <-s.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(n); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}
