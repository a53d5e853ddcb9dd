package schedule

import (
	"time"

	"grow_controller/internal/clock"
	"grow_controller/internal/logger"
	"grow_controller/internal/metrics"
	"grow_controller/internal/models"

	"github.com/google/uuid"
)

// Irrigation notification kinds.
const (
	EventSequenceStart    = "irrigation_sequence_start"
	EventSequenceProgress = "irrigation_sequence_progress"
	EventSequenceComplete = "irrigation_sequence_complete"
	EventSequenceCleanup  = "irrigation_sequence_cleanup"
)

// SequenceState is the phase of the irrigation state machine.
type SequenceState string

const (
	StateIdle      SequenceState = "idle"
	StatePulsing   SequenceState = "pulsing"
	StateResting   SequenceState = "resting"
	StateComplete  SequenceState = "complete"
	StateCancelled SequenceState = "cancelled"
)

// Actuator is the control loop surface used by the scheduler.
type Actuator interface {
	SetHardwareState(id string, active, manual bool)
	HardwareState(id string) (value, known bool)
	IsManual(id string) bool
	ClearManual(id string)
}

// Notifier receives irrigation sequence notifications.
type Notifier interface {
	Irrigation(kind string, p models.IrrigationProgress)
}

// SequenceStatus describes the current or last sequence.
type SequenceStatus struct {
	ID        string             `json:"id,omitempty"`
	State     SequenceState      `json:"state"`
	Completed int                `json:"completed"`
	Params    models.PulseParams `json:"params"`
}

// Sequencer runs one irrigation sequence at a time: for each pulse the
// channel is switched on for Duration seconds, then off for Interval seconds
// before the next pulse. A single timer drives every transition.
type Sequencer struct {
	act      Actuator
	notifier Notifier
	clock    clock.Clock
	log      *logger.Logger

	id        string
	gen       int
	state     SequenceState
	params    models.PulseParams
	completed int
	timer     clock.Timer
}

// NewSequencer returns an idle sequencer.
func NewSequencer(act Actuator, notifier Notifier, clk clock.Clock, log *logger.Logger) *Sequencer {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Sequencer{act: act, notifier: notifier, clock: clk, log: logger.OrNop(log), state: StateIdle}
}

// Active reports whether a sequence is pulsing or resting.
func (s *Sequencer) Active() bool {
	return s.state == StatePulsing || s.state == StateResting
}

// Status snapshots the state machine.
func (s *Sequencer) Status() SequenceStatus {
	return SequenceStatus{ID: s.id, State: s.state, Completed: s.completed, Params: s.params}
}

// Start begins a new sequence and returns its id. A sequence that is still
// running is superseded: its timer is dropped and the new one takes over.
func (s *Sequencer) Start(p models.PulseParams) string {
	if s.Active() {
		s.log.Warnw("irrigation_sequence_superseded", "sequence", s.id, "completed", s.completed, "total", s.params.Count)
		s.stopTimer()
		metrics.IrrigationSequences.WithLabelValues("superseded").Inc()
	}

	s.gen++
	s.id = uuid.NewString()
	s.params = p
	s.completed = 0

	s.log.Infow("irrigation_sequence_started", "sequence", s.id, "count", p.Count, "duration_s", p.Duration, "interval_s", p.Interval)
	s.notify(EventSequenceStart, models.IrrigationProgress{
		SequenceID: s.id, Total: p.Count, Current: 0, Remaining: max(p.Count, 0), Duration: p.Duration, Interval: p.Interval,
	})

	if p.Count < 1 {
		s.finish()
		return s.id
	}
	s.pulse()
	return s.id
}

// Cancel aborts any running sequence, forces the channel off and emits a
// cleanup notification. It is safe to call at any time.
func (s *Sequencer) Cancel() {
	wasActive := s.Active()
	s.stopTimer()
	s.gen++
	if wasActive {
		s.state = StateCancelled
		metrics.IrrigationSequences.WithLabelValues("cancelled").Inc()
		s.log.Infow("irrigation_sequence_cancelled", "sequence", s.id, "completed", s.completed)
	}
	s.act.SetHardwareState(models.ChannelIrrigation, false, false)
	s.notify(EventSequenceCleanup, models.IrrigationProgress{
		SequenceID: s.id, Total: s.params.Count, Current: s.completed, Remaining: max(s.params.Count-s.completed, 0),
	})
}

func (s *Sequencer) pulse() {
	s.state = StatePulsing
	s.act.SetHardwareState(models.ChannelIrrigation, true, false)
	gen := s.gen
	s.timer = s.clock.AfterFunc(seconds(s.params.Duration), func() { s.endPulse(gen) })
}

func (s *Sequencer) endPulse(gen int) {
	if gen != s.gen || s.state != StatePulsing {
		return
	}
	s.timer = nil
	s.act.SetHardwareState(models.ChannelIrrigation, false, false)
	s.completed++
	s.notify(EventSequenceProgress, models.IrrigationProgress{
		SequenceID: s.id, Total: s.params.Count, Current: s.completed, Remaining: s.params.Count - s.completed,
	})

	if s.completed >= s.params.Count {
		s.finish()
		return
	}
	s.state = StateResting
	s.timer = s.clock.AfterFunc(seconds(s.params.Interval), func() { s.nextPulse(gen) })
}

func (s *Sequencer) nextPulse(gen int) {
	if gen != s.gen || s.state != StateResting {
		return
	}
	s.timer = nil
	s.pulse()
}

func (s *Sequencer) finish() {
	s.state = StateComplete
	metrics.IrrigationSequences.WithLabelValues("completed").Inc()
	s.log.Infow("irrigation_sequence_completed", "sequence", s.id, "pulses", s.completed)
	s.notify(EventSequenceComplete, models.IrrigationProgress{
		SequenceID: s.id, Total: s.params.Count, Current: s.completed, Duration: s.params.Duration, Interval: s.params.Interval,
	})
}

func (s *Sequencer) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Sequencer) notify(kind string, p models.IrrigationProgress) {
	if s.notifier != nil {
		s.notifier.Irrigation(kind, p)
	}
}

func seconds(n int) time.Duration {
	if n < 0 {
		n = 0
	}
	return time.Duration(n) * time.Second
}
