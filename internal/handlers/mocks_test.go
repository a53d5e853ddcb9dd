package handlers

import (
	"context"
	"net/http"

	"grow_controller/internal/engine"
	"grow_controller/internal/models"
	"grow_controller/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseRole     models.Role
	parseErr      error

	lastSignUpUsername string
	lastGenUsername    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(_ context.Context, username, _ string) (int, error) {
	m.lastSignUpUsername = username
	return m.signUpID, m.signUpErr
}

func (m *mockAuth) GenerateToken(_ context.Context, username, _ string) (string, error) {
	m.lastGenUsername = username
	return m.genTokenToken, m.genTokenErr
}

// ParseToken grants the operator role unless parseRole says otherwise.
func (m *mockAuth) ParseToken(token string) (models.Identity, error) {
	m.lastParseToken = token
	role := m.parseRole
	if role == "" {
		role = models.RoleOperator
	}
	return models.Identity{UserID: m.parseID, Role: role}, m.parseErr
}

type mockControl struct {
	changed   bool
	updateErr error
	seqID     string
	startErr  error
	cancelErr error

	lastUpdate  service.UpdateRequest
	lastPulse   models.PulseParams
	startCalls  int
	cancelCalls int
}

func (m *mockControl) Update(_ context.Context, req service.UpdateRequest) (bool, error) {
	m.lastUpdate = req
	return m.changed, m.updateErr
}

func (m *mockControl) StartIrrigation(_ context.Context, p models.PulseParams) (string, error) {
	m.startCalls++
	m.lastPulse = p
	return m.seqID, m.startErr
}

func (m *mockControl) CancelIrrigation(context.Context) error {
	m.cancelCalls++
	return m.cancelErr
}

type mockMonitoring struct {
	state    models.AppState
	overview engine.Overview
	upcoming models.Upcoming
	conn     models.ConnectionStatus
	err      error
}

func (m *mockMonitoring) State(context.Context) (models.AppState, error) {
	return m.state, m.err
}

func (m *mockMonitoring) Overview(context.Context) (engine.Overview, error) {
	return m.overview, m.err
}

func (m *mockMonitoring) Schedules(context.Context) (models.Upcoming, error) {
	return m.upcoming, m.err
}

func (m *mockMonitoring) Connection() models.ConnectionStatus {
	return m.conn
}

type mockHistory struct {
	events  []models.HardwareEvent
	buckets []models.SensorBucket
	err     error

	lastHardware service.HardwareFilter
	lastSensor   service.SensorFilter
}

func (m *mockHistory) Hardware(_ context.Context, f service.HardwareFilter) ([]models.HardwareEvent, error) {
	m.lastHardware = f
	return m.events, m.err
}

func (m *mockHistory) Sensors(_ context.Context, f service.SensorFilter) ([]models.SensorBucket, error) {
	m.lastSensor = f
	return m.buckets, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(s, Streams{}, nil)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

func withAuth(req *http.Request) *http.Request {
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	return req
}
