package models

import "time"

// HardwareEvent is one entry of the hardware state change log.
type HardwareEvent struct {
	ID         string    `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
	HardwareID string    `json:"hardware_id"`
	Value      bool      `json:"value"`
	Manual     bool      `json:"manual"`
}

// SensorRecord is a rounded climate sample for the sensor log.
type SensorRecord struct {
	Timestamp       time.Time `json:"timestamp"`
	Temperature     float64   `json:"temperature"`
	Humidity        float64   `json:"humidity"`
	CO2             float64   `json:"co2"`
	VPD             float64   `json:"vpd"`
	LeafTemperature float64   `json:"leaf_temperature"`
}

// ThermalCell is (row, col, temperature) of one raw thermal frame.
type ThermalCell [3]float64

// ThermalRecord is a raw thermal frame for the thermal log.
type ThermalRecord struct {
	Timestamp time.Time     `json:"timestamp"`
	Source    string        `json:"source"`
	Cells     []ThermalCell `json:"cells"`
}

// SensorBucket aggregates sensor records over a fixed interval.
type SensorBucket struct {
	Start           time.Time `json:"start"`
	Samples         int       `json:"samples"`
	Temperature     float64   `json:"temperature"`
	Humidity        float64   `json:"humidity"`
	CO2             float64   `json:"co2"`
	VPD             float64   `json:"vpd"`
	LeafTemperature float64   `json:"leaf_temperature"`
}
