package control

// Control law constants.
const (
	CO2Deadband    = 50.0
	VPDHysteresis  = 0.1
	TempHysteresis = 0.5
)

// pairDecision is the desired state of two mutually exclusive channels.
type pairDecision struct {
	lower bool // channel that pushes the reading down
	raise bool // channel that pushes the reading up
}

// hysteresisPair decides a lower/raise channel pair around sp with band h.
// A channel that is on stays on until the reading crosses sp; a channel that
// is off turns on only outside sp±h. If both end up on, the side of sp the
// reading is on wins, the lowering channel at sp itself.
func hysteresisPair(reading, sp, h float64, lowerOn, raiseOn bool) pairDecision {
	var d pairDecision
	if lowerOn {
		d.lower = reading >= sp
	} else {
		d.lower = reading > sp+h
	}
	if raiseOn {
		d.raise = reading <= sp
	} else {
		d.raise = reading < sp-h
	}
	if d.lower && d.raise {
		if reading < sp {
			d.lower = false
		} else {
			d.raise = false
		}
	}
	return d
}

// vpdDecision maps the generic pair onto humidifier/dehumidifier. A low VPD
// means too humid, so the dehumidifier raises VPD and the humidifier lowers it.
func vpdDecision(vpd, sp float64, humOn, dehumOn bool) (humidifier, dehumidifier bool) {
	d := hysteresisPair(vpd, sp, VPDHysteresis, humOn, dehumOn)
	return d.lower, d.raise
}

// tempDecision maps the generic pair onto heater_minus (cooling) and heater_plus.
func tempDecision(temp, sp float64, plusOn, minusOn bool) (plus, minus bool) {
	d := hysteresisPair(temp, sp, TempHysteresis, minusOn, plusOn)
	return d.raise, d.lower
}
