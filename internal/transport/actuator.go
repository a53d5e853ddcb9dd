package transport

import (
	"encoding/json"
	"sync"
	"time"

	"grow_controller/internal/logger"
	"grow_controller/internal/models"

	"github.com/gorilla/websocket"
)

// ActuatorLinkID is the status board key of the actuator controller link.
const ActuatorLinkID = "pi"

const (
	actuatorWriteWait  = 10 * time.Second
	actuatorPongWait   = 60 * time.Second
	actuatorPingPeriod = (actuatorPongWait * 9) / 10
	actuatorMaxMsgSize = 1 << 12
	actuatorSendBuffer = 32
)

// ActuatorHub keeps the websocket links of actuator controllers and
// implements CommandSink on top of them.
type ActuatorHub struct {
	status *StatusBoard
	log    *logger.Logger

	mu        sync.Mutex
	clients   map[*actuatorClient]struct{}
	onConnect []func()
}

type actuatorClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// NewActuatorHub reports link state as ActuatorLinkID on status.
func NewActuatorHub(status *StatusBoard, log *logger.Logger) *ActuatorHub {
	return &ActuatorHub{
		status:  status,
		log:     logger.OrNop(log).Named("actuator"),
		clients: make(map[*actuatorClient]struct{}),
	}
}

// OnConnect registers fn to run after each new controller connection.
func (h *ActuatorHub) OnConnect(fn func()) {
	h.mu.Lock()
	h.onConnect = append(h.onConnect, fn)
	h.mu.Unlock()
}

// Connected returns the number of attached controllers.
func (h *ActuatorHub) Connected() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Serve owns conn until the peer disconnects. It blocks.
func (h *ActuatorHub) Serve(conn *websocket.Conn) {
	c := &actuatorClient{conn: conn, send: make(chan []byte, actuatorSendBuffer)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	hooks := append([]func(){}, h.onConnect...)
	h.mu.Unlock()

	h.status.Set(ActuatorLinkID, linkStatus(true))
	h.log.Infow("actuator_connected", "remote", conn.RemoteAddr().String())

	done := make(chan struct{})
	go h.writeLoop(c, done)
	for _, fn := range hooks {
		fn()
	}
	h.readLoop(c)

	close(done)
	h.detach(c)
}

func (h *ActuatorHub) readLoop(c *actuatorClient) {
	c.conn.SetReadLimit(actuatorMaxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(actuatorPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(actuatorPongWait))
	})
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			h.log.Infow("actuator_read_closed", "err", err)
			return
		}
		h.log.Debugw("actuator_message", "payload", string(msg))
	}
}

func (h *ActuatorHub) writeLoop(c *actuatorClient, done <-chan struct{}) {
	ping := time.NewTicker(actuatorPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(actuatorWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.log.Infow("actuator_write_failed", "err", err)
				_ = c.conn.Close()
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(actuatorWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.conn.Close()
				return
			}
		}
	}
}

func (h *ActuatorHub) detach(c *actuatorClient) {
	h.mu.Lock()
	delete(h.clients, c)
	remaining := len(h.clients)
	h.mu.Unlock()

	c.once.Do(func() { _ = c.conn.Close() })
	if remaining == 0 {
		h.status.Set(ActuatorLinkID, linkStatus(false))
	}
	h.log.Infow("actuator_disconnected", "remaining", remaining)
}

func (h *ActuatorHub) SendHardwareCommand(hardwareID string, value bool) {
	h.broadcast(envelope{Type: MsgHardwareCommand, Data: hardwareCommand{HardwareID: hardwareID, Value: value}})
}

func (h *ActuatorHub) SendFanPWM(id string, value int) {
	h.broadcast(envelope{Type: MsgFanPWM, Data: fanCommand{ID: id, Value: value}})
}

func (h *ActuatorHub) broadcast(env envelope) {
	msg, err := json.Marshal(env)
	if err != nil {
		h.log.Errorw("actuator_encode_failed", "type", env.Type, "err", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.clients) == 0 {
		h.log.Debugw("actuator_command_dropped", "type", env.Type)
		return
	}
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.Warnw("actuator_send_buffer_full", "type", env.Type)
		}
	}
}

func linkStatus(up bool) models.EndpointStatus {
	return models.EndpointStatus{Present: up, Open: up}
}
