package service

import (
	"context"

	"grow_controller/internal/engine"
	"grow_controller/internal/models"
	"grow_controller/internal/repository"
)

type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (models.Identity, error)
}

// Control applies operator changes to the live controller.
type Control interface {
	Update(ctx context.Context, req UpdateRequest) (changed bool, err error)
	StartIrrigation(ctx context.Context, p models.PulseParams) (string, error)
	CancelIrrigation(ctx context.Context) error
}

// Monitoring exposes read-only views of the controller.
type Monitoring interface {
	State(ctx context.Context) (models.AppState, error)
	Overview(ctx context.Context) (engine.Overview, error)
	Schedules(ctx context.Context) (models.Upcoming, error)
	Connection() models.ConnectionStatus
}

// History reads the hardware and sensor logs.
type History interface {
	Hardware(ctx context.Context, f HardwareFilter) ([]models.HardwareEvent, error)
	Sensors(ctx context.Context, f SensorFilter) ([]models.SensorBucket, error)
}

// Controller is the engine surface the services drive.
type Controller interface {
	PressButton(ctx context.Context, id string, value bool) (bool, error)
	SetSetpoint(ctx context.Context, id string, value any) error
	SaveFanCurve(ctx context.Context, id string, curve models.FanCurve) error
	State(ctx context.Context) (models.AppState, error)
	Schedules(ctx context.Context) (models.Upcoming, error)
	StartIrrigation(ctx context.Context, p models.PulseParams) (string, error)
	CancelIrrigation(ctx context.Context) error
	Overview(ctx context.Context) (engine.Overview, error)
}

// ConnectionSource reports endpoint connectivity.
type ConnectionSource interface {
	Connection() models.ConnectionStatus
}

type Service struct {
	Control
	Monitoring
	History
	Authorization
}

func NewService(repos *repository.Repository, ctrl Controller, conn ConnectionSource, auth AuthConfig) *Service {
	return &Service{
		Control:       NewControlService(ctrl),
		Monitoring:    NewMonitoringService(ctrl, conn),
		History:       NewHistoryService(repos.HardwareRepo, repos.SensorRepo),
		Authorization: NewAuthService(repos.Auth, auth),
	}
}
