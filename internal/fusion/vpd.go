package fusion

import "math"

// Magnus coefficients.
const (
	magnusA = 17.27
	magnusB = 237.7
)

// VPD returns the vapor pressure deficit in kPa.
func VPD(tempC, rh float64) float64 {
	svp := 0.611 * math.Exp((magnusA*tempC)/(magnusB+tempC))
	avp := svp * (rh / 100)
	return svp - avp
}

// BlendedTemperature weighs canopy temperature twice against air temperature.
func BlendedTemperature(air, canopy float64) float64 {
	return (air + 2*canopy) / 3
}
