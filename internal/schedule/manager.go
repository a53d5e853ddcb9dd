// Package schedule turns light and irrigation setpoints into timed events and
// runs irrigation sequences.
package schedule

import (
	"time"

	"grow_controller/internal/clock"
	"grow_controller/internal/logger"
	"grow_controller/internal/models"
)

// CheckInterval is how often pending events are consumed.
const CheckInterval = 10 * time.Second

// Manager holds the light and irrigation event tables. Like the control loop
// it is owned by the engine goroutine.
type Manager struct {
	state *models.AppState
	act   Actuator
	clock clock.Clock
	seq   *Sequencer
	log   *logger.Logger

	light      []models.LightEvent
	irrigation []models.IrrigationEvent
}

// NewManager builds the tables from the current state.
func NewManager(state *models.AppState, act Actuator, notifier Notifier, clk clock.Clock, log *logger.Logger) *Manager {
	if clk == nil {
		clk = clock.Real{}
	}
	log = logger.OrNop(log).Named("schedule")
	m := &Manager{
		state: state,
		act:   act,
		clock: clk,
		seq:   NewSequencer(act, notifier, clk, log),
		log:   log,
	}
	m.Recalculate()
	return m
}

// Recalculate rebuilds both tables.
func (m *Manager) Recalculate() {
	now := m.clock.Now()
	m.light = LightSchedule(m.state.Setpoints, now)
	m.irrigation = IrrigationSchedule(m.state, now)
	m.log.Infow("schedules_recalculated", "light_events", len(m.light), "irrigation_events", len(m.irrigation))
}

// RecalculateIrrigation rebuilds only the irrigation table.
func (m *Manager) RecalculateIrrigation() {
	m.irrigation = IrrigationSchedule(m.state, m.clock.Now())
	m.log.Infow("irrigation_schedule_recalculated", "events", len(m.irrigation))
}

// Check fires every event whose time has come. A light event clears the
// manual light override and applies only when it changes the channel. An
// irrigation event starts a sequence unless irrigation is under manual
// control. Empty tables are rebuilt right away.
func (m *Manager) Check() {
	now := m.clock.Now()

	for len(m.light) > 0 && !m.light[0].Time.After(now) {
		ev := m.light[0]
		m.light = m.light[1:]
		if cur, known := m.act.HardwareState(models.ChannelLight); !known || cur != ev.On {
			m.act.ClearManual(models.ChannelLight)
			m.act.SetHardwareState(models.ChannelLight, ev.On, false)
			m.log.Infow("light_schedule_enforced", "on", ev.On, "at", ev.Time)
		}
	}

	for len(m.irrigation) > 0 && !m.irrigation[0].Time.After(now) {
		ev := m.irrigation[0]
		m.irrigation = m.irrigation[1:]
		if m.act.IsManual(models.ChannelIrrigation) {
			m.log.Infow("irrigation_step_skipped_manual", "step", ev.Step, "division", ev.Division)
			continue
		}
		m.log.Infow("irrigation_step_triggered", "step", ev.Step, "division", ev.Division)
		m.seq.Start(ev.Params)
	}

	if len(m.light) == 0 {
		m.light = LightSchedule(m.state.Setpoints, now)
	}
	if len(m.irrigation) == 0 {
		m.irrigation = IrrigationSchedule(m.state, now)
	}
}

// Upcoming copies the pending tables.
func (m *Manager) Upcoming() models.Upcoming {
	return models.Upcoming{
		Light:      append([]models.LightEvent{}, m.light...),
		Irrigation: append([]models.IrrigationEvent{}, m.irrigation...),
	}
}

// RunIrrigation starts a sequence on request. Zero fields take the
// configured setpoints.
func (m *Manager) RunIrrigation(p models.PulseParams) string {
	def := PulseParamsFrom(m.state.Setpoints)
	if p.Duration == 0 {
		p.Duration = def.Duration
	}
	if p.Interval == 0 {
		p.Interval = def.Interval
	}
	if p.Count == 0 {
		p.Count = def.Count
	}
	return m.seq.Start(p)
}

// CancelIrrigation aborts the running sequence, if any.
func (m *Manager) CancelIrrigation() { m.seq.Cancel() }

// Irrigation exposes the sequencer status.
func (m *Manager) Irrigation() SequenceStatus { return m.seq.Status() }
