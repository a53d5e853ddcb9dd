package service

import (
	"context"
	"errors"
	"fmt"

	"grow_controller/internal/models"
)

var (
	ErrUnknownUpdateType = errors.New("unknown update type")
	ErrInvalidValue      = errors.New("invalid value")
	ErrInvalidPulse      = errors.New("irrigation parameters must not be negative")
)

type ControlService struct {
	ctrl Controller
}

func NewControlService(ctrl Controller) *ControlService {
	return &ControlService{ctrl: ctrl}
}

// Update dispatches a GUI change to the engine.
func (s *ControlService) Update(ctx context.Context, req UpdateRequest) (bool, error) {
	switch req.Type {
	case UpdateButton:
		v, ok := req.Value.(bool)
		if !ok {
			return false, fmt.Errorf("%w: button %q wants a boolean", ErrInvalidValue, req.ID)
		}
		return s.ctrl.PressButton(ctx, req.ID, v)
	case UpdateSetpoint:
		switch req.Value.(type) {
		case float64, string, int:
		default:
			return false, fmt.Errorf("%w: setpoint %q wants a number or string", ErrInvalidValue, req.ID)
		}
		return true, s.ctrl.SetSetpoint(ctx, req.ID, req.Value)
	case UpdateSaveFanCurve:
		return true, s.ctrl.SaveFanCurve(ctx, req.ID, req.Curve)
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownUpdateType, req.Type)
	}
}

func (s *ControlService) StartIrrigation(ctx context.Context, p models.PulseParams) (string, error) {
	if p.Duration < 0 || p.Interval < 0 || p.Count < 0 {
		return "", ErrInvalidPulse
	}
	return s.ctrl.StartIrrigation(ctx, p)
}

func (s *ControlService) CancelIrrigation(ctx context.Context) error {
	return s.ctrl.CancelIrrigation(ctx)
}
