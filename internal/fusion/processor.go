// Package fusion smooths incoming sensor readings and derives the values the
// control loop works on.
package fusion

import (
	"math"
	"time"

	"grow_controller/internal/models"
)

// SensorLog receives log records. Implementations must not block.
type SensorLog interface {
	LogSensor(models.SensorRecord)
	LogThermal(models.ThermalRecord)
}

// Config names the endpoints feeding the left and right halves of the heatmap.
type Config struct {
	LeftSource  string
	RightSource string
}

// Processor turns readings into snapshots. It is not safe for concurrent use;
// the engine loop owns it.
type Processor struct {
	cfg   Config
	log   SensorLog
	now   func() time.Time
	temp  *Window
	hum   *Window
	co2   *Window
	canop *Window
	sides map[string]*models.ThermalMatrix
	soil  *models.SoilReading
}

// NewProcessor builds a processor. log may be nil.
func NewProcessor(cfg Config, log SensorLog, now func() time.Time) *Processor {
	if cfg.LeftSource == "" {
		cfg.LeftSource = "esp1"
	}
	if cfg.RightSource == "" {
		cfg.RightSource = "esp2"
	}
	if now == nil {
		now = time.Now
	}
	return &Processor{
		cfg:   cfg,
		log:   log,
		now:   now,
		temp:  NewWindow(WindowSize),
		hum:   NewWindow(WindowSize),
		co2:   NewWindow(WindowSize),
		canop: NewWindow(WindowSize),
		sides: make(map[string]*models.ThermalMatrix, 2),
	}
}

// Update folds r into the windows and returns a fresh snapshot.
func (p *Processor) Update(r models.Reading) models.SensorSnapshot {
	ts := p.now()

	switch {
	case r.Climate != nil:
		p.temp.Push(r.Climate.Temperature)
		p.hum.Push(r.Climate.Humidity)
		p.co2.Push(r.Climate.CO2)
	case r.Thermal != nil && r.HasThermal:
		frame := *r.Thermal
		if r.Source == p.cfg.LeftSource || r.Source == p.cfg.RightSource {
			p.sides[r.Source] = &frame
		}
		p.canop.Push(Mean(&frame))
	case r.Soil != nil:
		s := *r.Soil
		p.soil = &s
	}

	air := p.temp.WeightedAverage()
	hum := p.hum.WeightedAverage()
	co2 := p.co2.WeightedAverage()
	canopy := p.canop.WeightedAverage()
	vpd := VPD(BlendedTemperature(air, canopy), hum)

	if p.log != nil {
		p.log.LogSensor(models.SensorRecord{
			Timestamp:       ts,
			Temperature:     round(air, 1),
			Humidity:        round(hum, 1),
			CO2:             math.Round(co2),
			VPD:             round(vpd, 2),
			LeafTemperature: round(canopy, 2),
		})
		if r.Thermal != nil {
			p.log.LogThermal(models.ThermalRecord{Timestamp: ts, Source: r.Source, Cells: Cells(r.Thermal)})
		}
	}

	return models.SensorSnapshot{
		Timestamp:   ts,
		Temperature: air,
		Humidity:    hum,
		CO2:         co2,
		VPD:         vpd,
		CanopyTemp:  canopy,
		Heatmap:     Combine(p.sides[p.cfg.LeftSource], p.sides[p.cfg.RightSource]).Heatmap(),
		Soil:        p.soil,

		ClimateSamples: p.temp.Len(),
	}
}

func round(v float64, places int) float64 {
	f := math.Pow(10, float64(places))
	return math.Round(v*f) / f
}
