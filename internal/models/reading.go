package models

import "time"

// ReadingKind tags the payload carried by a Reading.
type ReadingKind string

const (
	ReadingSoil    ReadingKind = "SOIL"
	ReadingClimate ReadingKind = "SCD30"
	ReadingThermal ReadingKind = "AMG8833"
)

// SoilChannels is the number of soil probes on the coordinator.
const SoilChannels = 7

// SoilReading is one SOIL frame: raw ADC values and moisture percentages.
type SoilReading struct {
	Raw      [SoilChannels]int `json:"raw"`
	Moisture [SoilChannels]int `json:"moisture"`
}

// ClimateReading is one SCD30 frame.
type ClimateReading struct {
	CO2         float64 `json:"co2"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

// ThermalMatrix is an 8x8 frame of temperatures in °C, row major.
type ThermalMatrix [8][8]float64

// Reading is a parsed line from one serial endpoint.
type Reading struct {
	Kind       ReadingKind     `json:"kind"`
	Source     string          `json:"source"`
	HasThermal bool            `json:"hasThermal"`
	SoilSensor bool            `json:"soilSensor"`
	Soil       *SoilReading    `json:"soil,omitempty"`
	Climate    *ClimateReading `json:"climate,omitempty"`
	Thermal    *ThermalMatrix  `json:"thermal,omitempty"`
	ReceivedAt time.Time       `json:"receivedAt"`
}
