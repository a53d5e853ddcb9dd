// Package notify fans controller events out to connected GUI clients.
package notify

import (
	"encoding/json"
	"sync"
	"time"

	"grow_controller/internal/logger"
	"grow_controller/internal/models"

	"github.com/gorilla/websocket"
)

// Message types sent to GUI clients.
const (
	TypeState            = "state"
	TypeSensorUpdate     = "sensor_update"
	TypeFanSpeeds        = "fan_speeds"
	TypeConnectionStatus = "connection_status"
)

// ServerLinkID is always reported as connected.
const ServerLinkID = "server"

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 12 // 4 KB
	sendBuffer = 32
)

// Envelope is the framing of every GUI message.
type Envelope struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub broadcasts to every GUI client. A slow client loses messages instead of
// holding up the sender. The last state and connection map are cached so a
// new client starts from the current picture.
type Hub struct {
	log *logger.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	state   *models.AppState
	conn    models.ConnectionStatus
}

// NewHub returns a hub with no clients.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:     logger.OrNop(log).Named("notify"),
		clients: map[*client]struct{}{},
		conn:    models.ConnectionStatus{ServerLinkID: true},
	}
}

// Clients returns the number of attached GUI clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Serve attaches an upgraded connection and blocks until it closes. The
// client first receives the connection map, then the state.
func (h *Hub) Serve(conn *websocket.Conn) {
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	initial := []Envelope{{Type: TypeConnectionStatus, Data: copyStatus(h.conn)}}
	if h.state != nil {
		initial = append(initial, Envelope{Type: TypeState, Data: h.state})
	}
	for _, env := range initial {
		if b, err := json.Marshal(env); err == nil {
			c.send <- b
		}
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Infow("gui_client_connected", "clients", n)

	done := make(chan struct{})
	go h.writer(c, done)
	h.reader(c)

	h.mu.Lock()
	delete(h.clients, c)
	n = len(h.clients)
	h.mu.Unlock()
	close(done)
	h.log.Infow("gui_client_disconnected", "clients", n)
}

func (h *Hub) reader(c *client) {
	c.conn.SetReadLimit(maxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.log.Debugw("ws_read_closed", "err", err)
			return
		}
	}
}

func (h *Hub) writer(c *client, done <-chan struct{}) {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case <-done:
			return
		case b := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				h.log.Infow("ws_write_failed", "err", err)
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.log.Infow("ws_ping_failed", "err", err)
				return
			}
		}
	}
}

// Broadcast queues a message for every client.
func (h *Hub) Broadcast(kind string, data any) {
	b, err := json.Marshal(Envelope{Type: kind, Data: data})
	if err != nil {
		h.log.Errorw("ws_encode_failed", "type", kind, "err", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcastLocked(kind, b)
}

func (h *Hub) broadcastLocked(kind string, b []byte) {
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			h.log.Warnw("gui_message_dropped", "type", kind)
		}
	}
}

// StateChanged caches and broadcasts the state.
func (h *Hub) StateChanged(st models.AppState) {
	h.mu.Lock()
	h.state = &st
	h.mu.Unlock()
	h.Broadcast(TypeState, st)
}

// FanSpeeds broadcasts new fan speeds.
func (h *Hub) FanSpeeds(s models.FanSpeeds) { h.Broadcast(TypeFanSpeeds, s) }

// Irrigation forwards a sequence notification using its kind as type.
func (h *Hub) Irrigation(kind string, p models.IrrigationProgress) { h.Broadcast(kind, p) }

// ConnectionChanged merges endpoint flags into the cached map and broadcasts
// only when something changed.
func (h *Hub) ConnectionChanged(st models.ConnectionStatus) {
	h.mu.Lock()
	next := copyStatus(h.conn)
	for k, v := range st {
		next[k] = v
	}
	next[ServerLinkID] = true
	if next.Equal(h.conn) {
		h.mu.Unlock()
		return
	}
	h.conn = next
	b, err := json.Marshal(Envelope{Type: TypeConnectionStatus, Data: next})
	if err == nil {
		h.broadcastLocked(TypeConnectionStatus, b)
	}
	h.mu.Unlock()
	h.log.Infow("connection_status_changed", "status", next)
}

// Connection returns the cached connection map.
func (h *Hub) Connection() models.ConnectionStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return copyStatus(h.conn)
}

// SensorUpdate broadcasts a formatted snapshot using the setpoints of the
// cached state. Snapshots without climate data are not shown.
func (h *Hub) SensorUpdate(s models.SensorSnapshot) {
	if !s.HasClimate() {
		return
	}
	var sp models.Setpoints
	h.mu.Lock()
	if h.state != nil {
		sp = h.state.Setpoints
	}
	h.mu.Unlock()
	h.Broadcast(TypeSensorUpdate, FormatSnapshot(s, sp))
}

func copyStatus(st models.ConnectionStatus) models.ConnectionStatus {
	out := make(models.ConnectionStatus, len(st))
	for k, v := range st {
		out[k] = v
	}
	return out
}
