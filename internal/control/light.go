package control

import (
	"time"

	"grow_controller/internal/models"
)

// LightOn reports whether now falls inside the configured light window.
// Windows where start >= stop wrap past midnight. Missing or malformed
// setpoints mean the light is off.
func LightOn(sp models.Setpoints, now time.Time) bool {
	sh, sm, ok := sp.Clock(models.SetpointLightStart)
	if !ok {
		return false
	}
	eh, em, ok := sp.Clock(models.SetpointLightStop)
	if !ok {
		return false
	}
	cur := now.Hour()*60 + now.Minute()
	start := sh*60 + sm
	stop := eh*60 + em
	if start < stop {
		return cur >= start && cur < stop
	}
	return cur >= start || cur < stop
}
