package models

import (
	"encoding/json"
	"time"
)

// HeatmapPoint is one cell of the fused thermal image.
type HeatmapPoint struct {
	X     int
	Y     int
	Value float64
}

// MarshalJSON encodes the point as [x, y, value] for chart consumers.
func (p HeatmapPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]float64{float64(p.X), float64(p.Y), p.Value})
}

// UnmarshalJSON accepts the [x, y, value] form.
func (p *HeatmapPoint) UnmarshalJSON(b []byte) error {
	var raw [3]float64
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	p.X, p.Y, p.Value = int(raw[0]), int(raw[1]), raw[2]
	return nil
}

// SensorSnapshot is the fused view produced after every reading. It is never
// mutated once published.
type SensorSnapshot struct {
	Timestamp   time.Time      `json:"timestamp"`
	Temperature float64        `json:"temperature"`
	Humidity    float64        `json:"humidity"`
	CO2         float64        `json:"co2"`
	VPD         float64        `json:"vpd"`
	CanopyTemp  float64        `json:"canopyTemp"`
	Heatmap     []HeatmapPoint `json:"heatmap"`
	Soil        *SoilReading   `json:"soil,omitempty"`
	// ClimateSamples is the number of climate frames behind the averages.
	// Zero means temperature, humidity, CO2 and VPD are absent.
	ClimateSamples int `json:"climateSamples"`
}

// HasClimate reports whether the climate fields carry real data.
func (s SensorSnapshot) HasClimate() bool { return s.ClimateSamples > 0 }
