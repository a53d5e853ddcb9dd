package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"grow_controller/internal/clock"
	"grow_controller/internal/models"
	"grow_controller/internal/schedule"
)

type command struct {
	id    string
	value bool
}

type recSink struct {
	mu   sync.Mutex
	cmds []command
	fans []int
}

func (s *recSink) SendHardwareCommand(id string, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cmds = append(s.cmds, command{id, v})
}

func (s *recSink) SendFanPWM(_ string, v int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fans = append(s.fans, v)
}

// last returns the most recent command for id.
func (s *recSink) last(id string) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.cmds) - 1; i >= 0; i-- {
		if s.cmds[i].id == id {
			return s.cmds[i].value, true
		}
	}
	return false, false
}

func (s *recSink) reset() {
	s.mu.Lock()
	s.cmds, s.fans = nil, nil
	s.mu.Unlock()
}

func (s *recSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cmds)
}

type recNotifier struct {
	mu         sync.Mutex
	states     int
	sensors    int
	irrigation []string
}

func (n *recNotifier) StateChanged(models.AppState) {
	n.mu.Lock()
	n.states++
	n.mu.Unlock()
}

func (n *recNotifier) FanSpeeds(models.FanSpeeds) {}

func (n *recNotifier) SensorUpdate(models.SensorSnapshot) {
	n.mu.Lock()
	n.sensors++
	n.mu.Unlock()
}

func (n *recNotifier) Irrigation(kind string, _ models.IrrigationProgress) {
	n.mu.Lock()
	n.irrigation = append(n.irrigation, kind)
	n.mu.Unlock()
}

type memStore struct {
	mu    sync.Mutex
	saves int
	err   error
	last  models.AppState
}

func (m *memStore) Save(_ context.Context, s models.AppState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saves++
	m.last = s
	return nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

type fixture struct {
	e        *Engine
	clock    *clock.Fake
	sink     *recSink
	notes    *recNotifier
	store    *memStore
	readings chan models.Reading
	stop     func()
}

func start(t *testing.T, st *models.AppState) *fixture {
	t.Helper()
	if st == nil {
		st = models.NewAppState()
	}
	f := &fixture{
		clock:    clock.NewFake(time.Date(2025, 4, 2, 12, 0, 0, 0, time.UTC)),
		sink:     &recSink{},
		notes:    &recNotifier{},
		store:    &memStore{},
		readings: make(chan models.Reading),
	}
	f.e = New(*st, Config{ControlInterval: time.Hour, ScheduleInterval: time.Hour}, Deps{
		Sink:     f.sink,
		Notifier: f.notes,
		Store:    f.store,
		Clock:    f.clock,
	})
	ctx, cancel := context.WithCancel(context.Background())
	go f.e.Run(ctx, f.readings)
	f.stop = func() {
		cancel()
		<-f.e.Done()
	}
	t.Cleanup(f.stop)
	return f
}

func (f *fixture) barrier(t *testing.T) {
	t.Helper()
	if err := f.e.Do(context.Background(), func() {}); err != nil {
		t.Fatalf("barrier: %v", err)
	}
}

func TestPressButton_HardwareButtonIsManualOverride(t *testing.T) {
	f := start(t, nil)
	ctx := context.Background()

	changed, err := f.e.PressButton(ctx, "Btn_Heat+_0", true)
	if err != nil || !changed {
		t.Fatalf("PressButton() = %v, %v", changed, err)
	}
	if v, ok := f.sink.last(models.ChannelHeaterPlus); !ok || !v {
		t.Fatalf("heater_plus command missing")
	}
	st, _ := f.e.State(ctx)
	if !st.Buttons["Btn_Heat+_0"] {
		t.Fatalf("button mirror not updated: %+v", st.Buttons)
	}
	ov, _ := f.e.Overview(ctx)
	if !ov.Manual[models.ChannelHeaterPlus] {
		t.Fatalf("manual flag not set: %+v", ov.Manual)
	}
	if f.store.count() != 1 {
		t.Fatalf("saves = %d", f.store.count())
	}
}

func TestPressButton_PlainButtonOnlyOnChange(t *testing.T) {
	f := start(t, nil)
	ctx := context.Background()

	if changed, err := f.e.PressButton(ctx, "Btn_Theme_0", false); err != nil || changed {
		t.Fatalf("unchanged button: %v, %v", changed, err)
	}
	if f.store.count() != 0 {
		t.Fatalf("nothing should be saved")
	}
	if changed, _ := f.e.PressButton(ctx, "Btn_Theme_0", true); !changed {
		t.Fatalf("button change not applied")
	}
	if f.store.count() != 1 {
		t.Fatalf("saves = %d", f.store.count())
	}
	if _, err := f.e.PressButton(ctx, "", true); !errors.Is(err, ErrEmptyID) {
		t.Fatalf("empty id error = %v", err)
	}
}

func TestPressButton_SaveRebuildsIrrigation(t *testing.T) {
	st := models.NewAppState()
	st.Setpoints[models.SetpointLightStart] = "14:00"
	f := start(t, st)
	ctx := context.Background()

	if _, err := f.e.PressButton(ctx, models.StepButton(1), true); err != nil {
		t.Fatalf("step: %v", err)
	}
	if up, _ := f.e.Schedules(ctx); len(up.Irrigation) != 0 {
		t.Fatalf("step flags alone do not rebuild the table: %+v", up.Irrigation)
	}
	if _, err := f.e.PressButton(ctx, models.ButtonSaveIrrigation, true); err != nil {
		t.Fatalf("save: %v", err)
	}
	up, _ := f.e.Schedules(ctx)
	if len(up.Irrigation) != 1 || up.Irrigation[0].Time.Hour() != 14 {
		t.Fatalf("irrigation table = %+v", up.Irrigation)
	}
}

func TestSetSetpoint_LightWindowRebuildsSchedules(t *testing.T) {
	f := start(t, nil)
	ctx := context.Background()

	if err := f.e.SetSetpoint(ctx, models.SetpointLightStart, "06:00"); err != nil {
		t.Fatalf("SetSetpoint: %v", err)
	}
	if up, _ := f.e.Schedules(ctx); len(up.Light) != 0 {
		t.Fatalf("half a window gives no events: %+v", up.Light)
	}
	if err := f.e.SetSetpoint(ctx, models.SetpointLightStop, "22:00"); err != nil {
		t.Fatalf("SetSetpoint: %v", err)
	}
	up, _ := f.e.Schedules(ctx)
	if len(up.Light) != 2 || up.Light[0].On {
		t.Fatalf("light table = %+v", up.Light)
	}
	if f.store.count() != 2 {
		t.Fatalf("saves = %d", f.store.count())
	}
}

func TestSetSetpoint_SaveFailureKeepsMemoryState(t *testing.T) {
	f := start(t, nil)
	f.store.err = errors.New("disk full")
	ctx := context.Background()

	if err := f.e.SetSetpoint(ctx, models.SetpointTemp, 23.5); err == nil {
		t.Fatalf("expected the save error")
	}
	st, _ := f.e.State(ctx)
	if st.Setpoints[models.SetpointTemp] != 23.5 {
		t.Fatalf("setpoint lost: %+v", st.Setpoints)
	}
}

func TestSaveFanCurve(t *testing.T) {
	f := start(t, nil)
	ctx := context.Background()

	if err := f.e.SaveFanCurve(ctx, "FanCurve9", models.FanCurve{{X: 1, Y: 1}}); !errors.Is(err, ErrUnknownCurve) {
		t.Fatalf("unknown curve error = %v", err)
	}
	if err := f.e.SaveFanCurve(ctx, models.FanCurvePrimary, nil); !errors.Is(err, ErrInvalidCurve) {
		t.Fatalf("empty curve error = %v", err)
	}
	curve := models.FanCurve{{X: 30, Y: 100}, {X: 20, Y: 10}, {X: 25, Y: 50}}
	if err := f.e.SaveFanCurve(ctx, models.FanCurvePrimary, curve); err != nil {
		t.Fatalf("SaveFanCurve: %v", err)
	}
	st, _ := f.e.State(ctx)
	got := st.FanCurves[models.FanCurvePrimary]
	if len(got) != 3 || got[0].X != 20 || got[1].X != 25 || got[2].X != 30 {
		t.Fatalf("curve not sorted: %+v", got)
	}
	if curve[0].X != 30 {
		t.Fatalf("caller's slice must not be reordered")
	}
}

func TestReadingsDriveControlAndTimersRunOnLoop(t *testing.T) {
	st := models.NewAppState()
	st.Setpoints[models.SetpointLightStart] = "00:00"
	st.Setpoints[models.SetpointLightStop] = "23:59"
	st.Setpoints[models.SetpointCO2] = 1000
	f := start(t, st)

	f.readings <- models.Reading{
		Kind:    models.ReadingClimate,
		Source:  "esp3",
		Climate: &models.ClimateReading{CO2: 400, Temperature: 25, Humidity: 60},
	}
	f.barrier(t)

	if v, ok := f.sink.last(models.ChannelCO2Valve); !ok || !v {
		t.Fatalf("low CO2 must open the valve")
	}
	f.notes.mu.Lock()
	sensors := f.notes.sensors
	f.notes.mu.Unlock()
	if sensors != 1 {
		t.Fatalf("sensor updates = %d", sensors)
	}

	f.clock.Advance(2 * time.Second)
	f.barrier(t)
	if v, _ := f.sink.last(models.ChannelCO2Valve); v {
		t.Fatalf("valve must close after the pulse")
	}
}

func TestIrrigationRunsThroughLoopClock(t *testing.T) {
	f := start(t, nil)
	ctx := context.Background()

	id, err := f.e.StartIrrigation(ctx, models.PulseParams{Duration: 1, Interval: 1, Count: 1})
	if err != nil || id == "" {
		t.Fatalf("StartIrrigation() = %q, %v", id, err)
	}
	if v, _ := f.sink.last(models.ChannelIrrigation); !v {
		t.Fatalf("pump should be on")
	}
	f.clock.Advance(time.Second)
	f.barrier(t)
	if v, _ := f.sink.last(models.ChannelIrrigation); v {
		t.Fatalf("pump should be off")
	}
	f.notes.mu.Lock()
	kinds := append([]string(nil), f.notes.irrigation...)
	f.notes.mu.Unlock()
	if len(kinds) != 3 || kinds[2] != schedule.EventSequenceComplete {
		t.Fatalf("irrigation notifications = %v", kinds)
	}

	if err := f.e.CancelIrrigation(ctx); err != nil {
		t.Fatalf("CancelIrrigation: %v", err)
	}
}

func TestReplayToActuators(t *testing.T) {
	f := start(t, nil)
	ctx := context.Background()
	_, _ = f.e.PressButton(ctx, "Btn_Light_State_0", true)
	f.sink.reset()

	f.e.ReplayToActuators()
	deadline := time.Now().Add(2 * time.Second)
	for f.sink.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if v, ok := f.sink.last(models.ChannelLight); !ok || !v {
		t.Fatalf("light state not replayed")
	}
}

func TestStoppedEngineRejectsCalls(t *testing.T) {
	f := start(t, nil)
	f.stop()
	if _, err := f.e.State(context.Background()); !errors.Is(err, ErrEngineStopped) {
		t.Fatalf("State() after stop = %v", err)
	}
}

func TestPressButton_QueuedChangeReportsResultAfterDeadline(t *testing.T) {
	f := start(t, nil)

	// hold the loop so the press sits in the queue past its deadline
	release := make(chan struct{})
	busy := make(chan struct{})
	go func() {
		_ = f.e.Do(context.Background(), func() {
			close(busy)
			<-release
		})
	}()
	<-busy

	type result struct {
		changed bool
		err     error
	}
	res := make(chan result, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	go func() {
		changed, err := f.e.PressButton(ctx, "Btn_Custom_0", true)
		res <- result{changed, err}
	}()

	<-ctx.Done()
	time.Sleep(20 * time.Millisecond)
	close(release)

	select {
	case r := <-res:
		if r.err != nil || !r.changed {
			t.Fatalf("PressButton() = %v, %v; want the applied change reported", r.changed, r.err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("PressButton did not return")
	}
	st, _ := f.e.State(context.Background())
	if !st.Buttons["Btn_Custom_0"] {
		t.Fatalf("button not applied: %+v", st.Buttons)
	}
}

func TestDo_DeadlineWhileQueueFullRunsNothing(t *testing.T) {
	f := start(t, nil)

	release := make(chan struct{})
	busy := make(chan struct{})
	go func() {
		_ = f.e.Do(context.Background(), func() {
			close(busy)
			<-release
		})
	}()
	<-busy
	defer close(release)

	for i := 0; i < taskQueue; i++ {
		f.e.post(func() {})
	}
	ran := false
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := f.e.Do(ctx, func() { ran = true }); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Do() = %v, want deadline exceeded", err)
	}
	if ran {
		t.Fatalf("task must not run when it was never queued")
	}
}
