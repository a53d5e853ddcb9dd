package engine

import (
	"context"
	"sort"

	"grow_controller/internal/models"
	"grow_controller/internal/schedule"
)

// Overview is a read-only picture of the live controller.
type Overview struct {
	Snapshot   *models.SensorSnapshot  `json:"snapshot,omitempty"`
	Channels   map[string]bool         `json:"channels"`
	Manual     map[string]bool         `json:"manual"`
	FanSpeeds  models.FanSpeeds        `json:"fanSpeeds"`
	LightOn    bool                    `json:"lightScheduledOn"`
	Irrigation schedule.SequenceStatus `json:"irrigation"`
}

// PressButton applies a GUI button. Hardware buttons drive their channel as a
// manual override, step flags are stored, the save button also rebuilds the
// irrigation table, and any other button is stored only when it changes.
// changed is false when nothing had to be done.
func (e *Engine) PressButton(ctx context.Context, id string, value bool) (changed bool, err error) {
	if id == "" {
		return false, ErrEmptyID
	}
	var saveErr error
	err = e.Do(ctx, func() {
		switch channel, hw := models.ChannelForButton(id); {
		case hw:
			e.ctrl.SetHardwareState(channel, value, true)
			changed = true
		case models.IsStepButton(id):
			e.state.Buttons[id] = value
			changed = true
		case id == models.ButtonSaveIrrigation:
			e.state.Buttons[id] = value
			e.sched.RecalculateIrrigation()
			changed = true
		case e.state.Buttons[id] != value:
			e.state.Buttons[id] = value
			changed = true
		}
		if !changed {
			return
		}
		e.log.Infow("button_pressed", "button", id, "value", value)
		if _, hw := models.ChannelForButton(id); !hw {
			e.ctrl.MarkDirty()
			e.notifier.StateChanged(e.state.Clone())
		}
		saveErr = e.commit()
	})
	if err != nil {
		return false, err
	}
	return changed, saveErr
}

// SetSetpoint stores a setpoint. Changing the light window rebuilds both
// schedule tables.
func (e *Engine) SetSetpoint(ctx context.Context, id string, value any) error {
	if id == "" {
		return ErrEmptyID
	}
	var saveErr error
	err := e.Do(ctx, func() {
		e.state.Setpoints[id] = value
		if id == models.SetpointLightStart || id == models.SetpointLightStop {
			e.sched.Recalculate()
		}
		e.log.Infow("setpoint_updated", "setpoint", id, "value", value)
		e.ctrl.MarkDirty()
		e.notifier.StateChanged(e.state.Clone())
		saveErr = e.commit()
	})
	if err != nil {
		return err
	}
	return saveErr
}

// SaveFanCurve sorts and stores a curve for one of the two fans.
func (e *Engine) SaveFanCurve(ctx context.Context, id string, curve models.FanCurve) error {
	if id != models.FanCurvePrimary && id != models.FanCurveSecondary {
		return ErrUnknownCurve
	}
	if len(curve) == 0 {
		return ErrInvalidCurve
	}
	sorted := append(models.FanCurve(nil), curve...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	var saveErr error
	err := e.Do(ctx, func() {
		e.ctrl.SetFanCurve(id, sorted)
		e.notifier.StateChanged(e.state.Clone())
		saveErr = e.commit()
	})
	if err != nil {
		return err
	}
	return saveErr
}

// State returns a copy of the current state.
func (e *Engine) State(ctx context.Context) (models.AppState, error) {
	var st models.AppState
	err := e.Do(ctx, func() { st = e.state.Clone() })
	return st, err
}

// Schedules lists pending light and irrigation events.
func (e *Engine) Schedules(ctx context.Context) (models.Upcoming, error) {
	var up models.Upcoming
	err := e.Do(ctx, func() { up = e.sched.Upcoming() })
	return up, err
}

// StartIrrigation runs a sequence now. Zero fields use the setpoints.
func (e *Engine) StartIrrigation(ctx context.Context, p models.PulseParams) (string, error) {
	var id string
	err := e.Do(ctx, func() { id = e.sched.RunIrrigation(p) })
	return id, err
}

// CancelIrrigation stops the running sequence and forces the pump off.
func (e *Engine) CancelIrrigation(ctx context.Context) error {
	return e.Do(ctx, func() { e.sched.CancelIrrigation() })
}

// Overview snapshots channel, fan and irrigation status.
func (e *Engine) Overview(ctx context.Context) (Overview, error) {
	var ov Overview
	err := e.Do(ctx, func() {
		if snap, ok := e.ctrl.LastSnapshot(); ok {
			ov.Snapshot = &snap
		}
		ov.Channels = e.ctrl.Channels()
		ov.Manual = make(map[string]bool)
		for id := range ov.Channels {
			if e.ctrl.IsManual(id) {
				ov.Manual[id] = true
			}
		}
		ov.FanSpeeds = e.ctrl.FanSpeeds()
		ov.LightOn = e.ctrl.LightScheduledOn()
		ov.Irrigation = e.sched.Irrigation()
	})
	return ov, err
}

// ReplayToActuators queues a resend of every channel and the fan speed. It is
// meant as the actuator connect hook and does not wait.
func (e *Engine) ReplayToActuators() {
	go e.post(e.ctrl.HandleReconnect)
}
