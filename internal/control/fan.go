package control

import (
	"math"

	"grow_controller/internal/models"
)

// PrimaryFanPWM is the actuator id driven by the primary fan curve.
const PrimaryFanPWM = "fan_pwm1"

// FanSpeed evaluates a sorted curve at temp by linear interpolation, clamped
// to the end points. An empty curve yields 0.
func FanSpeed(curve models.FanCurve, temp float64) int {
	if len(curve) == 0 {
		return 0
	}
	if temp <= curve[0].X {
		return int(math.Round(curve[0].Y))
	}
	last := curve[len(curve)-1]
	if temp >= last.X {
		return int(math.Round(last.Y))
	}
	for i := 0; i < len(curve)-1; i++ {
		p1, p2 := curve[i], curve[i+1]
		if temp < p1.X || temp > p2.X {
			continue
		}
		if p2.X == p1.X {
			return int(math.Round(p1.Y))
		}
		ratio := (temp - p1.X) / (p2.X - p1.X)
		return int(math.Round(p1.Y + ratio*(p2.Y-p1.Y)))
	}
	return 0
}
