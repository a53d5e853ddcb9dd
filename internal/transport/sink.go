package transport

import "sync"

// CommandSink delivers actuator commands. Delivery is fire-and-forget: a
// command sent while no actuator controller is connected is dropped.
type CommandSink interface {
	SendHardwareCommand(hardwareID string, value bool)
	SendFanPWM(id string, value int)
}

// MultiSink fans every command out to all sinks.
type MultiSink []CommandSink

func (m MultiSink) SendHardwareCommand(hardwareID string, value bool) {
	for _, s := range m {
		s.SendHardwareCommand(hardwareID, value)
	}
}

func (m MultiSink) SendFanPWM(id string, value int) {
	for _, s := range m {
		s.SendFanPWM(id, value)
	}
}

// SwitchSink forwards to a sink installed while the system runs. Commands
// sent before Set are dropped.
type SwitchSink struct {
	mu   sync.RWMutex
	sink CommandSink
}

// Set installs sink; nil detaches it again.
func (s *SwitchSink) Set(sink CommandSink) {
	s.mu.Lock()
	s.sink = sink
	s.mu.Unlock()
}

func (s *SwitchSink) current() CommandSink {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sink
}

func (s *SwitchSink) SendHardwareCommand(hardwareID string, value bool) {
	if sink := s.current(); sink != nil {
		sink.SendHardwareCommand(hardwareID, value)
	}
}

func (s *SwitchSink) SendFanPWM(id string, value int) {
	if sink := s.current(); sink != nil {
		sink.SendFanPWM(id, value)
	}
}

// Wire message types exchanged with the actuator controller.
const (
	MsgHardwareCommand = "hardware_cmd"
	MsgFanPWM          = "fan_pwm"
)

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type hardwareCommand struct {
	HardwareID string `json:"hardwareId"`
	Value      bool   `json:"value"`
}

type fanCommand struct {
	ID    string `json:"id"`
	Value int    `json:"value"`
}
