// Package journal persists sensor and hardware records off the control path.
package journal

import (
	"context"
	"time"

	"grow_controller/internal/logger"
	"grow_controller/internal/metrics"
	"grow_controller/internal/models"
	"grow_controller/internal/repository"
)

// DefaultQueueSize bounds the number of records waiting for the database.
const DefaultQueueSize = 256

const writeTimeout = 5 * time.Second

type record struct {
	sensor   *models.SensorRecord
	thermal  *models.ThermalRecord
	hardware *models.HardwareEvent
}

// Journal queues log records and writes them from one goroutine. Log calls
// never block: when the queue is full the record is dropped and counted.
type Journal struct {
	sensors  repository.SensorRepo
	hardware repository.HardwareRepo
	log      *logger.Logger
	queue    chan record
}

// New returns a journal. Call Run to start writing.
func New(sensors repository.SensorRepo, hardware repository.HardwareRepo, size int, log *logger.Logger) *Journal {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Journal{
		sensors:  sensors,
		hardware: hardware,
		log:      logger.OrNop(log).Named("journal"),
		queue:    make(chan record, size),
	}
}

func (j *Journal) LogSensor(r models.SensorRecord)     { j.enqueue(record{sensor: &r}) }
func (j *Journal) LogThermal(r models.ThermalRecord)   { j.enqueue(record{thermal: &r}) }
func (j *Journal) LogHardware(e models.HardwareEvent) { j.enqueue(record{hardware: &e}) }

func (j *Journal) enqueue(r record) {
	select {
	case j.queue <- r:
	default:
		metrics.JournalDropped.Inc()
		j.log.Warnw("journal_record_dropped", "queue", cap(j.queue))
	}
}

// Run writes queued records until ctx is cancelled, then drains what is
// already queued.
func (j *Journal) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			j.drain()
			return
		case r := <-j.queue:
			j.write(r)
		}
	}
}

func (j *Journal) drain() {
	for {
		select {
		case r := <-j.queue:
			j.write(r)
		default:
			return
		}
	}
}

func (j *Journal) write(r record) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	var err error
	switch {
	case r.sensor != nil:
		err = j.sensors.AppendReading(ctx, *r.sensor)
	case r.thermal != nil:
		err = j.sensors.AppendThermal(ctx, *r.thermal)
	case r.hardware != nil:
		err = j.hardware.Append(ctx, *r.hardware)
	}
	if err != nil {
		j.log.Errorw("journal_write_failed", "err", err)
	}
}
