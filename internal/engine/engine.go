// Package engine serializes sensor fusion, climate control and scheduling on
// a single goroutine.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"grow_controller/internal/clock"
	"grow_controller/internal/control"
	"grow_controller/internal/fusion"
	"grow_controller/internal/logger"
	"grow_controller/internal/models"
	"grow_controller/internal/schedule"
)

var (
	ErrEngineStopped = errors.New("engine stopped")
	ErrUnknownCurve  = errors.New("unknown fan curve")
	ErrInvalidCurve  = errors.New("fan curve needs at least one point")
	ErrEmptyID       = errors.New("id is required")
)

const (
	taskQueue   = 64
	saveTimeout = 5 * time.Second
)

// StateStore persists the application state.
type StateStore interface {
	Save(ctx context.Context, s models.AppState) error
}

// Notifier receives every externally visible change.
type Notifier interface {
	control.Notifier
	schedule.Notifier
	SensorUpdate(models.SensorSnapshot)
}

// Config tunes the loop. Zero intervals take the package defaults.
type Config struct {
	Fusion           fusion.Config
	ControlInterval  time.Duration
	ScheduleInterval time.Duration
}

// Deps are the engine collaborators. With a nil Store nothing is saved.
type Deps struct {
	Sink        control.CommandSink
	Notifier    Notifier
	Store       StateStore
	SensorLog   fusion.SensorLog
	HardwareLog control.HardwareLog
	Clock       clock.Clock
	Log         *logger.Logger
}

// Engine owns the mutable controller state. Every access happens on the Run
// goroutine; other goroutines go through Do.
type Engine struct {
	cfg      Config
	store    StateStore
	notifier Notifier
	log      *logger.Logger
	clock    clock.Clock

	state *models.AppState
	proc  *fusion.Processor
	ctrl  *control.Controller
	sched *schedule.Manager

	tasks chan func()
	done  chan struct{}
}

// New builds an engine around a loaded state. Run must be called before any
// other method is used.
func New(state models.AppState, cfg Config, deps Deps) *Engine {
	if cfg.ControlInterval <= 0 {
		cfg.ControlInterval = control.TickInterval
	}
	if cfg.ScheduleInterval <= 0 {
		cfg.ScheduleInterval = schedule.CheckInterval
	}
	base := deps.Clock
	if base == nil {
		base = clock.Real{}
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = nopNotifier{}
	}
	log := logger.OrNop(deps.Log)

	e := &Engine{
		cfg:      cfg,
		store:    deps.Store,
		notifier: notifier,
		log:      log.Named("engine"),
		tasks:    make(chan func(), taskQueue),
		done:     make(chan struct{}),
	}
	e.clock = &loopClock{base: base, post: e.post}

	st := state.Clone()
	e.state = &st
	e.proc = fusion.NewProcessor(cfg.Fusion, deps.SensorLog, e.clock.Now)
	e.ctrl = control.New(e.state, control.Deps{
		Sink:     deps.Sink,
		Notifier: notifier,
		History:  deps.HardwareLog,
		Clock:    e.clock,
		Log:      log,
	})
	e.sched = schedule.NewManager(e.state, e.ctrl, notifier, e.clock, log)
	return e
}

// Run processes readings, ticks and tasks until ctx is done. A closed
// readings channel only stops sensor input.
func (e *Engine) Run(ctx context.Context, readings <-chan models.Reading) {
	defer close(e.done)

	controlTick := time.NewTicker(e.cfg.ControlInterval)
	scheduleTick := time.NewTicker(e.cfg.ScheduleInterval)
	defer func() {
		controlTick.Stop()
		scheduleTick.Stop()
	}()

	e.log.Infow("engine_started", "control_interval", e.cfg.ControlInterval, "schedule_interval", e.cfg.ScheduleInterval)
	for {
		select {
		case <-ctx.Done():
			e.flush()
			e.log.Infow("engine_stopped")
			return
		case r, ok := <-readings:
			if !ok {
				readings = nil
				e.log.Warnw("sensor_input_closed")
				continue
			}
			e.onReading(r)
		case <-controlTick.C:
			e.ctrl.Evaluate()
		case <-scheduleTick.C:
			e.sched.Check()
		case fn := <-e.tasks:
			fn()
		}
		e.flush()
	}
}

func (e *Engine) onReading(r models.Reading) {
	snap := e.proc.Update(r)
	e.notifier.SensorUpdate(snap)
	e.ctrl.OnSnapshot(snap)
}

// flush saves the state when the loop changed it on its own.
func (e *Engine) flush() {
	if err := e.commit(); err != nil {
		e.log.Errorw("state_save_failed", "err", err)
	}
}

// commit saves the state if it is dirty. A failed save keeps the in-memory
// state.
func (e *Engine) commit() error {
	if !e.ctrl.TakeDirty() || e.store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := e.store.Save(ctx, e.state.Clone()); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// post queues fn on the loop. It reports false once the loop has exited.
func (e *Engine) post(fn func()) bool {
	select {
	case e.tasks <- fn:
		return true
	case <-e.done:
		return false
	}
}

// Do runs fn on the loop and waits for it. It must not be called from the
// loop itself. ctx bounds only the wait for a queue slot: once queued, fn
// will run, so Do waits for it and its result is reported even if ctx
// expires meanwhile.
func (e *Engine) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	task := func() {
		defer close(finished)
		fn()
	}
	select {
	case e.tasks <- task:
	case <-e.done:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-e.done:
		return ErrEngineStopped
	}
}

// Done is closed when Run returns.
func (e *Engine) Done() <-chan struct{} { return e.done }

type nopNotifier struct{}

func (nopNotifier) StateChanged(models.AppState)                 {}
func (nopNotifier) FanSpeeds(models.FanSpeeds)                   {}
func (nopNotifier) Irrigation(string, models.IrrigationProgress) {}
func (nopNotifier) SensorUpdate(models.SensorSnapshot)           {}
