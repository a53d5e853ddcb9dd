// Package control runs the closed-loop climate laws and owns the hardware
// channel state.
package control

import (
	"sort"
	"strconv"
	"time"

	"grow_controller/internal/clock"
	"grow_controller/internal/logger"
	"grow_controller/internal/metrics"
	"grow_controller/internal/models"

	"github.com/google/uuid"
)

// Timing of the control loop.
const (
	MaxSnapshotAge   = 30 * time.Second
	CO2PulseDuration = 2000 * time.Millisecond
	TickInterval     = 5 * time.Second
)

// CommandSink delivers channel commands to the actuator side.
type CommandSink interface {
	SendHardwareCommand(hardwareID string, value bool)
	SendFanPWM(id string, value int)
}

// Notifier is told about externally visible changes.
type Notifier interface {
	StateChanged(models.AppState)
	FanSpeeds(models.FanSpeeds)
}

// HardwareLog records channel changes. Implementations must not block.
type HardwareLog interface {
	LogHardware(models.HardwareEvent)
}

// Deps are the collaborators of a Controller. Log is optional.
type Deps struct {
	Sink     CommandSink
	Notifier Notifier
	History  HardwareLog
	Clock    clock.Clock
	Log      *logger.Logger
}

// exclusive lists channels that must never be on together.
var exclusive = map[string]string{
	models.ChannelDehumidifier: models.ChannelHumidifier,
	models.ChannelHumidifier:   models.ChannelDehumidifier,
	models.ChannelHeaterPlus:   models.ChannelHeaterMinus,
	models.ChannelHeaterMinus:  models.ChannelHeaterPlus,
}

// Controller is not safe for concurrent use. The engine loop owns it, and
// timer callbacks must be delivered on that loop.
type Controller struct {
	state *models.AppState
	deps  Deps
	log   *logger.Logger

	channels map[string]bool
	manual   map[string]bool

	snapshot      *models.SensorSnapshot
	lastProcessed time.Time

	lastFan  *int
	fans     models.FanSpeeds
	co2Pulse clock.Timer

	dirty bool
}

// New binds a controller to the shared state. state must not be nil.
func New(state *models.AppState, deps Deps) *Controller {
	state.Normalize()
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	return &Controller{
		state:    state,
		deps:     deps,
		log:      logger.OrNop(deps.Log).Named("control"),
		channels: make(map[string]bool),
		manual:   make(map[string]bool),
	}
}

// State exposes the shared state to the owning loop.
func (c *Controller) State() *models.AppState { return c.state }

// OnSnapshot stores s as the latest data and runs a control pass.
func (c *Controller) OnSnapshot(s models.SensorSnapshot) {
	c.snapshot = &s
	c.Evaluate()
}

// LastSnapshot returns the most recent snapshot, if any.
func (c *Controller) LastSnapshot() (models.SensorSnapshot, bool) {
	if c.snapshot == nil {
		return models.SensorSnapshot{}, false
	}
	return *c.snapshot, true
}

// Evaluate runs one control pass over the latest snapshot. Stale snapshots
// and snapshots already handled are skipped.
func (c *Controller) Evaluate() {
	if c.snapshot == nil {
		return
	}
	now := c.deps.Clock.Now()
	snap := *c.snapshot
	if snap.Timestamp.IsZero() || now.Sub(snap.Timestamp) > MaxSnapshotAge {
		metrics.SnapshotsSkipped.WithLabelValues("stale").Inc()
		return
	}
	if snap.Timestamp.Equal(c.lastProcessed) {
		metrics.SnapshotsSkipped.WithLabelValues("duplicate").Inc()
		return
	}
	c.lastProcessed = snap.Timestamp

	if !snap.HasClimate() {
		return
	}
	sp := c.state.Setpoints

	c.controlCO2(snap, sp, now)
	c.controlVPD(snap, sp)
	c.controlTemperature(snap, sp)
	c.updateFans(snap.Temperature)
}

func (c *Controller) controlCO2(snap models.SensorSnapshot, sp models.Setpoints, now time.Time) {
	if c.manual[models.ChannelCO2Valve] {
		return
	}
	target := sp.Float(models.SetpointCO2, models.DefaultCO2Setpoint)
	switch {
	case !LightOn(sp, now):
		c.SetHardwareState(models.ChannelCO2Valve, false, false)
	case snap.CO2 < target-CO2Deadband:
		c.SetHardwareState(models.ChannelCO2Valve, true, false)
		if c.co2Pulse == nil {
			c.co2Pulse = c.deps.Clock.AfterFunc(CO2PulseDuration, c.endCO2Pulse)
		}
	default:
		c.SetHardwareState(models.ChannelCO2Valve, false, false)
	}
}

func (c *Controller) endCO2Pulse() {
	c.co2Pulse = nil
	c.SetHardwareState(models.ChannelCO2Valve, false, false)
}

func (c *Controller) controlVPD(snap models.SensorSnapshot, sp models.Setpoints) {
	if c.manual[models.ChannelHumidifier] || c.manual[models.ChannelDehumidifier] {
		return
	}
	target := sp.Float(models.SetpointVPD, models.DefaultVPDSetpoint)
	hum, dehum := vpdDecision(snap.VPD, target, c.channels[models.ChannelHumidifier], c.channels[models.ChannelDehumidifier])
	c.SetHardwareState(models.ChannelDehumidifier, dehum, false)
	c.SetHardwareState(models.ChannelHumidifier, hum, false)
}

func (c *Controller) controlTemperature(snap models.SensorSnapshot, sp models.Setpoints) {
	if c.manual[models.ChannelHeaterPlus] || c.manual[models.ChannelHeaterMinus] {
		return
	}
	target := sp.Float(models.SetpointTemp, models.DefaultTempSetpoint)
	plus, minus := tempDecision(snap.Temperature, target, c.channels[models.ChannelHeaterPlus], c.channels[models.ChannelHeaterMinus])
	c.SetHardwareState(models.ChannelHeaterPlus, plus, false)
	c.SetHardwareState(models.ChannelHeaterMinus, minus, false)
}

// SetHardwareState drives one channel. Repeating the recorded value is a
// no-op; the first command for a channel is always sent. Turning a channel on
// turns its exclusive partner off first in the recorded state.
func (c *Controller) SetHardwareState(id string, active, manual bool) {
	if manual {
		if id == models.ChannelLight {
			// Light overrides last until the next scheduled light event.
			c.manual[id] = true
		} else {
			c.manual[id] = active
		}
	}

	if prev, known := c.channels[id]; known && prev == active {
		return
	}
	c.channels[id] = active

	if active {
		if opposite, ok := exclusive[id]; ok {
			c.SetHardwareState(opposite, false, manual)
		}
	}

	if c.deps.Sink != nil {
		c.deps.Sink.SendHardwareCommand(id, active)
	}
	metrics.CommandsSent.WithLabelValues(id, strconv.FormatBool(active)).Inc()
	c.log.Infow("hardware_state_changed", "channel", id, "value", active, "manual", manual)

	if button, ok := models.ButtonForChannel(id); ok {
		c.state.Buttons[button] = active
		c.dirty = true
		if c.deps.Notifier != nil {
			c.deps.Notifier.StateChanged(c.state.Clone())
		}
	}

	if c.deps.History != nil {
		c.deps.History.LogHardware(models.HardwareEvent{
			ID:         uuid.NewString(),
			OccurredAt: c.deps.Clock.Now(),
			HardwareID: id,
			Value:      active,
			Manual:     manual,
		})
	}
}

// HardwareState returns the recorded value of a channel and whether any
// command was ever issued for it.
func (c *Controller) HardwareState(id string) (value, known bool) {
	value, known = c.channels[id]
	return value, known
}

// Channels copies the recorded channel values.
func (c *Controller) Channels() map[string]bool {
	out := make(map[string]bool, len(c.channels))
	for k, v := range c.channels {
		out[k] = v
	}
	return out
}

// IsManual reports whether automatic control of id is suppressed.
func (c *Controller) IsManual(id string) bool { return c.manual[id] }

// ClearManual hands id back to automatic control.
func (c *Controller) ClearManual(id string) { delete(c.manual, id) }

// SetFanCurve stores a sorted curve and re-evaluates the fans.
func (c *Controller) SetFanCurve(id string, curve models.FanCurve) {
	c.state.FanCurves[id] = append(models.FanCurve(nil), curve...)
	c.dirty = true
	c.log.Infow("fan_curve_updated", "curve", id, "points", len(curve))
	if c.snapshot != nil && c.snapshot.HasClimate() {
		c.updateFans(c.snapshot.Temperature)
	}
}

// CalculateFanSpeed evaluates the named curve at temp.
func (c *Controller) CalculateFanSpeed(curveID string, temp float64) int {
	return FanSpeed(c.state.FanCurves[curveID], temp)
}

// FanSpeeds returns the last computed speeds.
func (c *Controller) FanSpeeds() models.FanSpeeds { return c.fans }

// updateFans computes both curves but dispatches only the primary fan, and
// only when its speed changed.
func (c *Controller) updateFans(temp float64) {
	speeds := models.FanSpeeds{
		Fan1: c.CalculateFanSpeed(models.FanCurvePrimary, temp),
		Fan2: c.CalculateFanSpeed(models.FanCurveSecondary, temp),
	}
	c.fans = speeds
	if c.lastFan != nil && *c.lastFan == speeds.Fan1 {
		return
	}
	fan1 := speeds.Fan1
	c.lastFan = &fan1

	if c.deps.Sink != nil {
		c.deps.Sink.SendFanPWM(PrimaryFanPWM, fan1)
	}
	metrics.FanSpeed.Set(float64(fan1))
	if c.deps.Notifier != nil {
		c.deps.Notifier.FanSpeeds(speeds)
	}
}

// HandleReconnect replays every recorded channel value and the last fan
// speed to a freshly connected actuator controller.
func (c *Controller) HandleReconnect() {
	if c.deps.Sink == nil {
		return
	}
	ids := make([]string, 0, len(c.channels))
	for id := range c.channels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		c.deps.Sink.SendHardwareCommand(id, c.channels[id])
	}
	if c.lastFan != nil {
		c.deps.Sink.SendFanPWM(PrimaryFanPWM, *c.lastFan)
	}
	c.log.Infow("actuator_state_replayed", "channels", len(ids), "fan", c.lastFan != nil)
}

// LightScheduledOn evaluates the light window at the current time.
func (c *Controller) LightScheduledOn() bool {
	return LightOn(c.state.Setpoints, c.deps.Clock.Now())
}

// MarkDirty flags the shared state as changed outside the controller.
func (c *Controller) MarkDirty() { c.dirty = true }

// TakeDirty reports and clears the unsaved-change flag.
func (c *Controller) TakeDirty() bool {
	d := c.dirty
	c.dirty = false
	return d
}
