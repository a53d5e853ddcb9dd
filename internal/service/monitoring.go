package service

import (
	"context"

	"grow_controller/internal/engine"
	"grow_controller/internal/models"
)

type MonitoringService struct {
	ctrl Controller
	conn ConnectionSource
}

func NewMonitoringService(ctrl Controller, conn ConnectionSource) *MonitoringService {
	return &MonitoringService{ctrl: ctrl, conn: conn}
}

func (s *MonitoringService) State(ctx context.Context) (models.AppState, error) {
	return s.ctrl.State(ctx)
}

func (s *MonitoringService) Overview(ctx context.Context) (engine.Overview, error) {
	return s.ctrl.Overview(ctx)
}

func (s *MonitoringService) Schedules(ctx context.Context) (models.Upcoming, error) {
	return s.ctrl.Schedules(ctx)
}

// Connection returns an empty map when no source is wired.
func (s *MonitoringService) Connection() models.ConnectionStatus {
	if s.conn == nil {
		return models.ConnectionStatus{}
	}
	return s.conn.Connection()
}
