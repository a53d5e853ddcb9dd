package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Hardware channel identifiers understood by the actuator controller.
const (
	ChannelCO2Valve     = "co2_valve"
	ChannelHeaterPlus   = "heater_plus"
	ChannelHeaterMinus  = "heater_minus"
	ChannelHumidifier   = "humidifier"
	ChannelDehumidifier = "dehumidifier"
	ChannelLight        = "light"
	ChannelIrrigation   = "irrigation"
)

// Setpoint keys as stored in AppState.Setpoints.
const (
	SetpointTemp          = "Temp_setpoint"
	SetpointCO2           = "Co2_setpoint"
	SetpointVPD           = "VPD_setpoint"
	SetpointLightStart    = "Light_Start_setpoint"
	SetpointLightStop     = "Light_Shutdown_setpoint"
	SetpointPulseDuration = "Pulse_Duration_setpoint"
	SetpointPulseInterval = "Pulse_Interval_setpoint"
	SetpointEventCount    = "Event_Count_setpoint"
	SetpointStepDivision  = "Step_Duration_setpoint"
	SetpointSubEC         = "Sub_EC_setpoint"
)

// Defaults used when a setpoint is missing or unusable.
const (
	DefaultTempSetpoint  = 25.0
	DefaultCO2Setpoint   = 1000.0
	DefaultVPDSetpoint   = 1.2
	DefaultPulseDuration = 10
	DefaultPulseInterval = 60
	DefaultEventCount    = 1
	DefaultStepDivision  = 1
)

// Button ids that are not bound to a hardware channel.
const (
	ButtonSaveIrrigation = "Btn_Save_Irrig_0"
	IrrigationSteps      = 24
)

// Fan curve ids.
const (
	FanCurvePrimary   = "FanCurve1"
	FanCurveSecondary = "FanCurve2"
)

// hardwareButtons mirrors each channel to the button shown in the UI.
var hardwareButtons = map[string]string{
	ChannelCO2Valve:     "Btn_Co2_Status_0",
	ChannelHeaterPlus:   "Btn_Heat+_0",
	ChannelHeaterMinus:  "Btn_Heat-_0",
	ChannelDehumidifier: "Btn_Dehumidifier_0",
	ChannelHumidifier:   "Btn_Humidifier_0",
	ChannelLight:        "Btn_Light_State_0",
	ChannelIrrigation:   "Btn_Irrig_Pump_0",
}

// ButtonForChannel returns the UI button bound to a hardware channel.
func ButtonForChannel(channel string) (string, bool) {
	b, ok := hardwareButtons[channel]
	return b, ok
}

// ChannelForButton is the inverse of ButtonForChannel.
func ChannelForButton(button string) (string, bool) {
	for ch, b := range hardwareButtons {
		if b == button {
			return ch, true
		}
	}
	return "", false
}

// StepButton returns the enable flag id of irrigation step k (1-based).
func StepButton(k int) string {
	return fmt.Sprintf("Btn_Step_%d_0", k)
}

// IsStepButton reports whether id is one of the irrigation step flags.
func IsStepButton(id string) bool {
	return strings.HasPrefix(id, "Btn_Step_")
}

// FanPoint is one (temperature, speed) point of a fan curve.
type FanPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FanCurve is kept sorted by X ascending.
type FanCurve []FanPoint

// FanSpeeds is the last computed speed of both fans.
type FanSpeeds struct {
	Fan1 int `json:"fan1"`
	Fan2 int `json:"fan2"`
}

// Setpoints holds user targets. Values arrive from JSON as numbers or strings.
type Setpoints map[string]any

// AppState is the persisted, externally visible controller state.
type AppState struct {
	Buttons   map[string]bool     `json:"buttons"`
	Setpoints Setpoints           `json:"setpoints"`
	FanCurves map[string]FanCurve `json:"fanCurves"`
}

// NewAppState returns an empty state with all maps allocated.
func NewAppState() *AppState {
	return &AppState{
		Buttons:   map[string]bool{},
		Setpoints: Setpoints{},
		FanCurves: map[string]FanCurve{},
	}
}

// Normalize allocates nil maps so a decoded state is safe to mutate.
func (s *AppState) Normalize() {
	if s.Buttons == nil {
		s.Buttons = map[string]bool{}
	}
	if s.Setpoints == nil {
		s.Setpoints = Setpoints{}
	}
	if s.FanCurves == nil {
		s.FanCurves = map[string]FanCurve{}
	}
}

// Clone returns a deep copy that can leave the owning goroutine.
func (s *AppState) Clone() AppState {
	out := AppState{
		Buttons:   make(map[string]bool, len(s.Buttons)),
		Setpoints: make(Setpoints, len(s.Setpoints)),
		FanCurves: make(map[string]FanCurve, len(s.FanCurves)),
	}
	for k, v := range s.Buttons {
		out.Buttons[k] = v
	}
	for k, v := range s.Setpoints {
		out.Setpoints[k] = v
	}
	for k, v := range s.FanCurves {
		out.FanCurves[k] = append(FanCurve(nil), v...)
	}
	return out
}

// Float returns the setpoint as a float, or def when it is missing,
// malformed or zero.
func (sp Setpoints) Float(key string, def float64) float64 {
	v, ok := sp.number(key)
	if !ok || v == 0 || math.IsNaN(v) {
		return def
	}
	return v
}

// Int truncates the setpoint toward zero, falling back to def like Float.
func (sp Setpoints) Int(key string, def int) int {
	v, ok := sp.number(key)
	if !ok {
		return def
	}
	n := int(v)
	if n == 0 {
		return def
	}
	return n
}

// Clock parses an "HH:MM" setpoint.
func (sp Setpoints) Clock(key string) (hour, minute int, ok bool) {
	raw, present := sp[key]
	if !present {
		return 0, 0, false
	}
	s, isStr := raw.(string)
	if !isStr {
		return 0, 0, false
	}
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}

func (sp Setpoints) number(key string) (float64, bool) {
	switch v := sp[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
