package schedule

import (
	"testing"
	"time"

	"grow_controller/internal/clock"
	"grow_controller/internal/models"
)

func newTestManager(now time.Time, st *models.AppState) (*Manager, *clock.Fake, *stubActuator, *stubNotifier) {
	fc := clock.NewFake(now)
	act := newStubActuator()
	notes := &stubNotifier{}
	return NewManager(st, act, notes, fc, nil), fc, act, notes
}

func TestManager_LightEventsClearOverride(t *testing.T) {
	st := models.NewAppState()
	st.Setpoints[models.SetpointLightStart] = "06:00"
	st.Setpoints[models.SetpointLightStop] = "22:00"
	m, fc, act, _ := newTestManager(time.Date(2025, 4, 2, 5, 59, 55, 0, time.UTC), st)

	act.manual[models.ChannelLight] = true
	act.channels[models.ChannelLight] = false

	m.Check()
	if act.channels[models.ChannelLight] {
		t.Fatalf("nothing due yet")
	}

	fc.Advance(10 * time.Second)
	m.Check()
	if !act.channels[models.ChannelLight] {
		t.Fatalf("light should be on after the start event")
	}
	if act.manual[models.ChannelLight] {
		t.Fatalf("scheduled light event must clear the manual override")
	}
	if up := m.Upcoming(); len(up.Light) != 1 || up.Light[0].On {
		t.Fatalf("remaining light events = %+v", up.Light)
	}
}

func TestManager_LightEventMatchingStateKeepsOverride(t *testing.T) {
	st := models.NewAppState()
	st.Setpoints[models.SetpointLightStart] = "06:00"
	st.Setpoints[models.SetpointLightStop] = "22:00"
	m, fc, act, _ := newTestManager(time.Date(2025, 4, 2, 5, 59, 55, 0, time.UTC), st)

	act.manual[models.ChannelLight] = true
	act.channels[models.ChannelLight] = true

	fc.Advance(10 * time.Second)
	m.Check()
	if !act.manual[models.ChannelLight] {
		t.Fatalf("an event that changes nothing leaves the override alone")
	}
}

func TestManager_IrrigationEventStartsSequence(t *testing.T) {
	st := models.NewAppState()
	st.Setpoints[models.SetpointLightStart] = "08:00"
	st.Buttons[models.StepButton(1)] = true
	m, fc, act, notes := newTestManager(time.Date(2025, 4, 2, 7, 59, 58, 0, time.UTC), st)

	fc.Advance(5 * time.Second)
	m.Check()
	if !act.channels[models.ChannelIrrigation] {
		t.Fatalf("irrigation should start at 08:00")
	}
	if notes.notes[0].kind != EventSequenceStart {
		t.Fatalf("notifications = %v", notes.kinds())
	}
	// table consumed and regenerated for tomorrow
	up := m.Upcoming()
	if len(up.Irrigation) != 1 || up.Irrigation[0].Time.Day() != 3 {
		t.Fatalf("regenerated table = %+v", up.Irrigation)
	}
}

func TestManager_IrrigationSkippedUnderManual(t *testing.T) {
	st := models.NewAppState()
	st.Setpoints[models.SetpointLightStart] = "08:00"
	st.Buttons[models.StepButton(1)] = true
	m, fc, act, notes := newTestManager(time.Date(2025, 4, 2, 7, 59, 58, 0, time.UTC), st)
	act.manual[models.ChannelIrrigation] = true

	fc.Advance(5 * time.Second)
	m.Check()
	if len(notes.notes) != 0 {
		t.Fatalf("no sequence expected, got %v", notes.kinds())
	}
}

func TestManager_RunIrrigationUsesSetpointDefaults(t *testing.T) {
	st := models.NewAppState()
	st.Setpoints[models.SetpointPulseDuration] = 3
	st.Setpoints[models.SetpointEventCount] = "2"
	m, _, _, notes := newTestManager(time.Unix(0, 0), st)

	m.RunIrrigation(models.PulseParams{})
	p := notes.notes[0].p
	if p.Duration != 3 || p.Total != 2 || p.Interval != models.DefaultPulseInterval {
		t.Fatalf("start payload = %+v", p)
	}
	if m.Irrigation().State != StatePulsing {
		t.Fatalf("sequence should be running")
	}
	m.CancelIrrigation()
	if m.Irrigation().State != StateCancelled {
		t.Fatalf("state = %s", m.Irrigation().State)
	}
}
