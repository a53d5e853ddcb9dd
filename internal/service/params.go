package service

import (
	"time"

	"grow_controller/internal/models"
)

// Update kinds accepted by Control.Update.
const (
	UpdateButton       = "button"
	UpdateSetpoint     = "setpoint"
	UpdateSaveFanCurve = "saveFanCurve"
)

// UpdateRequest is one GUI change. Value is a bool for buttons and a number
// or string for setpoints; Curve is used by saveFanCurve.
type UpdateRequest struct {
	Type  string          `json:"type"`
	ID    string          `json:"id"`
	Value any             `json:"value"`
	Curve models.FanCurve `json:"curve"`
}

// HardwareFilter selects hardware log entries. Zero bounds are open.
type HardwareFilter struct {
	From       time.Time
	To         time.Time
	HardwareID string
}

// SensorFilter selects sensor samples and the bucket width. Zero From means
// the last 24 hours, zero To means now and zero Interval means 5 minutes.
type SensorFilter struct {
	From     time.Time
	To       time.Time
	Interval time.Duration
}
