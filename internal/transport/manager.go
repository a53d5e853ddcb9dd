package transport

import (
	"bufio"
	"context"
	"io"
	"os"
	"sync"
	"time"

	"grow_controller/internal/logger"
	"grow_controller/internal/metrics"
	"grow_controller/internal/models"

	"github.com/spf13/afero"
)

// Default endpoint layout of the grow box.
const (
	DefaultPollInterval = 2 * time.Second
	CoordinatorID       = "soil"
	// Arduino Mega 2560.
	CoordinatorVendorID  = "2341"
	CoordinatorProductID = "0042"
	readingsBuffer       = 64
)

// Endpoint is a sensor device at a fixed device node.
type Endpoint struct {
	ID         string `mapstructure:"id"`
	Path       string `mapstructure:"path"`
	HasThermal bool   `mapstructure:"thermal"`
}

// Coordinator is the soil probe board found by USB identifiers.
type Coordinator struct {
	ID        string `mapstructure:"id"`
	VendorID  string `mapstructure:"vid"`
	ProductID string `mapstructure:"pid"`
}

// Config configures the serial side of the transport.
type Config struct {
	Endpoints    []Endpoint
	Coordinator  Coordinator
	PollInterval time.Duration
}

// DefaultEndpoints is the stock three-node layout.
func DefaultEndpoints() []Endpoint {
	return []Endpoint{
		{ID: "esp1", Path: "/dev/esp32_1", HasThermal: true},
		{ID: "esp2", Path: "/dev/esp32_2", HasThermal: true},
		{ID: "esp3", Path: "/dev/esp32_3", HasThermal: false},
	}
}

// DefaultCoordinator is the stock soil board.
func DefaultCoordinator() Coordinator {
	return Coordinator{ID: CoordinatorID, VendorID: CoordinatorVendorID, ProductID: CoordinatorProductID}
}

// Manager discovers endpoints, keeps one session per present endpoint and
// publishes parsed readings.
type Manager struct {
	cfg    Config
	fs     afero.Fs
	lister PortLister
	opener PortOpener
	status *StatusBoard
	now    func() time.Time
	log    *logger.Logger

	readings chan models.Reading

	mu       sync.Mutex
	sessions map[string]*session
	wg       sync.WaitGroup
}

type session struct {
	id         string
	path       string
	hasThermal bool
	soil       bool
	port       io.ReadWriteCloser

	done      chan struct{}
	closeOnce sync.Once
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.port.Close()
	})
}

func (s *session) closedByManager() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// NewManager builds a manager. The status board must already know every
// endpoint id and the coordinator id.
func NewManager(cfg Config, fs afero.Fs, lister PortLister, opener PortOpener, status *StatusBoard, log *logger.Logger) *Manager {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Coordinator.ID == "" {
		cfg.Coordinator = DefaultCoordinator()
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Manager{
		cfg:      cfg,
		fs:       fs,
		lister:   lister,
		opener:   opener,
		status:   status,
		now:      time.Now,
		log:      logger.OrNop(log).Named("transport"),
		readings: make(chan models.Reading, readingsBuffer),
		sessions: make(map[string]*session),
	}
}

// Readings is closed after Run returns and every session has ended.
func (m *Manager) Readings() <-chan models.Reading { return m.readings }

// Status exposes the board shared with the actuator link.
func (m *Manager) Status() *StatusBoard { return m.status }

// Run polls presence until ctx is canceled, then closes all sessions.
func (m *Manager) Run(ctx context.Context) {
	t := time.NewTicker(m.cfg.PollInterval)
	defer t.Stop()

	m.poll()
	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			m.wg.Wait()
			close(m.readings)
			return
		case <-t.C:
			m.poll()
		}
	}
}

func (m *Manager) poll() {
	for _, ep := range m.cfg.Endpoints {
		exists := m.exists(ep.Path)
		was := m.status.Get(ep.ID).Present
		switch {
		case exists && !was:
			m.log.Infow("endpoint_present", "id", ep.ID, "path", ep.Path)
			m.status.SetPresent(ep.ID, true)
			m.open(ep.ID, ep.Path, ep.HasThermal, false)
		case !exists && was:
			m.log.Infow("endpoint_absent", "id", ep.ID, "path", ep.Path)
			m.closeSession(ep.ID)
			m.status.Set(ep.ID, models.EndpointStatus{})
		}
	}
	m.pollCoordinator()
}

func (m *Manager) pollCoordinator() {
	if m.lister == nil {
		return
	}
	id := m.cfg.Coordinator.ID
	ports, err := m.lister.List()
	if err != nil {
		m.log.Debugw("coordinator_list_failed", "err", err)
		return
	}
	info, found := findPort(ports, m.cfg.Coordinator.VendorID, m.cfg.Coordinator.ProductID)

	m.mu.Lock()
	current := m.sessions[id]
	m.mu.Unlock()

	switch {
	case found && current != nil && current.path == info.Path:
	case found:
		if current != nil {
			m.log.Infow("coordinator_moved", "from", current.path, "to", info.Path)
			m.closeSession(id)
		}
		m.status.SetPresent(id, true)
		m.open(id, info.Path, false, true)
	case current != nil:
		m.log.Infow("coordinator_absent", "path", current.path)
		m.closeSession(id)
		m.status.Set(id, models.EndpointStatus{})
	}
}

func (m *Manager) exists(path string) bool {
	_, err := m.fs.Stat(path)
	if err != nil && !os.IsNotExist(err) {
		m.log.Debugw("endpoint_stat_failed", "path", path, "err", err)
	}
	return err == nil
}

func (m *Manager) open(id, path string, hasThermal, soil bool) {
	m.mu.Lock()
	if _, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	port, err := m.opener.Open(path)
	if err != nil {
		m.log.Warnw("serial_open_failed", "id", id, "path", path, "err", err)
		m.status.Set(id, models.EndpointStatus{})
		return
	}

	s := &session{id: id, path: path, hasThermal: hasThermal, soil: soil, port: port, done: make(chan struct{})}
	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.status.Set(id, models.EndpointStatus{Present: true, Open: true})
	m.log.Infow("serial_port_opened", "id", id, "path", path, "baud", BaudRate)

	m.wg.Add(1)
	go m.readLoop(s)
}

func (m *Manager) readLoop(s *session) {
	defer m.wg.Done()

	scanner := bufio.NewScanner(s.port)
	for scanner.Scan() {
		r, ok := ParseLine(scanner.Text())
		if !ok {
			continue
		}
		r.Source = s.id
		r.HasThermal = s.hasThermal
		r.SoilSensor = s.soil
		r.ReceivedAt = m.now()
		metrics.ReadingsParsed.WithLabelValues(s.id, string(r.Kind)).Inc()

		select {
		case m.readings <- r:
		case <-s.done:
			return
		}
	}
	m.sessionEnded(s, scanner.Err())
}

// sessionEnded handles a session that stopped on its own: the endpoint is
// marked absent so the next poll treats the node as newly present.
func (m *Manager) sessionEnded(s *session, err error) {
	if s.closedByManager() {
		return
	}
	m.mu.Lock()
	if m.sessions[s.id] == s {
		delete(m.sessions, s.id)
	}
	m.mu.Unlock()
	s.close()

	if err == nil {
		err = io.EOF
	}
	m.log.Warnw("serial_session_ended", "id", s.id, "path", s.path, "err", err)
	m.status.Set(s.id, models.EndpointStatus{})
}

func (m *Manager) closeSession(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return
	}
	s.close()
	m.status.SetOpen(id, false)
	m.log.Infow("serial_port_closed", "id", id, "path", s.path)
}

func (m *Manager) closeAll() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		m.closeSession(id)
	}
}
