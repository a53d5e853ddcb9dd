package schedule

import (
	"sort"
	"time"

	"grow_controller/internal/models"
)

// stepOffsets maps a step quantization level to minute offsets inside the hour.
var stepOffsets = map[int][]int{
	1: {0},
	2: {0, 30},
	3: {0, 20, 40},
	4: {0, 15, 30, 45},
	5: {0, 12, 24, 36, 48},
	6: {0, 10, 20, 30, 40, 50},
}

// Offsets returns the minute offsets for a quantization level. Unknown levels
// fall back to the top of the hour.
func Offsets(level int) []int {
	if o, ok := stepOffsets[level]; ok {
		return o
	}
	return []int{0}
}

// PulseParamsFrom reads irrigation pulse parameters from setpoints.
func PulseParamsFrom(sp models.Setpoints) models.PulseParams {
	return models.PulseParams{
		Duration: sp.Int(models.SetpointPulseDuration, models.DefaultPulseDuration),
		Interval: sp.Int(models.SetpointPulseInterval, models.DefaultPulseInterval),
		Count:    sp.Int(models.SetpointEventCount, models.DefaultEventCount),
	}
}

// LightSchedule returns the next on and off transitions after now, sorted.
// Both setpoints must be valid or the table is empty.
func LightSchedule(sp models.Setpoints, now time.Time) []models.LightEvent {
	sh, sm, ok := sp.Clock(models.SetpointLightStart)
	if !ok {
		return nil
	}
	eh, em, ok := sp.Clock(models.SetpointLightStop)
	if !ok {
		return nil
	}
	events := []models.LightEvent{
		{Time: nextAfter(now, sh, sm), On: true},
		{Time: nextAfter(now, eh, em), On: false},
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Time.Before(events[j].Time) })
	return events
}

// nextAfter is today at h:m when that is strictly after now, else tomorrow.
func nextAfter(now time.Time, h, m int) time.Time {
	t := atClock(now, 0, h, m)
	if t.After(now) {
		return t
	}
	return atClock(now, 1, h, m)
}

func atClock(now time.Time, dayOffset, h, m int) time.Time {
	y, mo, d := now.Date()
	return time.Date(y, mo, d+dayOffset, h, m, 0, 0, now.Location())
}

// IrrigationSchedule expands enabled sequencer steps into events. Step k runs
// at hour (lightStart+k-1) mod 24; an event already in the past moves to the
// next day.
func IrrigationSchedule(state *models.AppState, now time.Time) []models.IrrigationEvent {
	if state == nil || state.Buttons == nil {
		return nil
	}
	startHour, _, ok := state.Setpoints.Clock(models.SetpointLightStart)
	if !ok {
		return nil
	}
	offsets := Offsets(state.Setpoints.Int(models.SetpointStepDivision, models.DefaultStepDivision))
	params := PulseParamsFrom(state.Setpoints)

	var events []models.IrrigationEvent
	for step := 1; step <= models.IrrigationSteps; step++ {
		if !state.Buttons[models.StepButton(step)] {
			continue
		}
		hour := (startHour + step - 1) % 24
		for _, minute := range offsets {
			t := atClock(now, 0, hour, minute)
			if t.Before(now) {
				t = atClock(now, 1, hour, minute)
			}
			events = append(events, models.IrrigationEvent{Time: t, Step: step, Division: minute, Params: params})
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Time.Before(events[j].Time) })
	return events
}
