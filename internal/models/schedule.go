package models

import "time"

// PulseParams parameterizes one irrigation sequence.
type PulseParams struct {
	Duration int `json:"duration"` // seconds on
	Interval int `json:"interval"` // seconds off between pulses
	Count    int `json:"count"`
}

// LightEvent switches the light channel at Time.
type LightEvent struct {
	Time time.Time `json:"time"`
	On   bool      `json:"on"`
}

// IrrigationEvent starts an irrigation sequence at Time.
type IrrigationEvent struct {
	Time     time.Time   `json:"time"`
	Step     int         `json:"step"`
	Division int         `json:"division"`
	Params   PulseParams `json:"params"`
}

// Upcoming lists pending schedule events.
type Upcoming struct {
	Light      []LightEvent      `json:"light"`
	Irrigation []IrrigationEvent `json:"irrigation"`
}

// IrrigationProgress is the payload of irrigation sequence notifications.
type IrrigationProgress struct {
	SequenceID string `json:"sequenceId,omitempty"`
	Total      int    `json:"total"`
	Current    int    `json:"current"`
	Remaining  int    `json:"remaining"`
	Duration   int    `json:"duration,omitempty"`
	Interval   int    `json:"interval,omitempty"`
}
