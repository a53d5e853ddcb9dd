package notify

import (
	"math"
	"strconv"

	"grow_controller/internal/models"
)

// SensorPayload is the GUI view of a snapshot. Numbers are preformatted.
type SensorPayload struct {
	Temp           string                `json:"Temp"`
	Co2            string                `json:"Co2"`
	VPD            string                `json:"VPD"`
	CanopyTemp     string                `json:"CanopyTemp"`
	RH             string                `json:"RH"`
	SolutionEC     string                `json:"Solution_EC"`
	SolutionPH     string                `json:"Solution_PH"`
	SubEC          string                `json:"Sub_EC"`
	SubMoist       string                `json:"Sub_Moist"`
	ThermalHeatmap []models.HeatmapPoint `json:"thermalHeatmap"`
}

// FormatSnapshot renders s for the GUI. Solution EC echoes the EC target
// from sp; nothing measures the solution, so pH and substrate EC read zero.
func FormatSnapshot(s models.SensorSnapshot, sp models.Setpoints) SensorPayload {
	return SensorPayload{
		Temp:           fixed(s.Temperature, 1),
		Co2:            strconv.FormatInt(int64(math.Round(s.CO2)), 10),
		VPD:            fixed(s.VPD, 2),
		CanopyTemp:     fixed(s.CanopyTemp, 1),
		RH:             fixed(s.Humidity, 1),
		SolutionEC:     fixed(sp.Float(models.SetpointSubEC, 0), 2),
		SolutionPH:     fixed(0, 2),
		SubEC:          fixed(0, 2),
		SubMoist:       fixed(meanMoisture(s.Soil), 1),
		ThermalHeatmap: s.Heatmap,
	}
}

func meanMoisture(s *models.SoilReading) float64 {
	if s == nil {
		return 0
	}
	sum := 0
	for _, m := range s.Moisture {
		sum += m
	}
	return float64(sum) / float64(len(s.Moisture))
}

func fixed(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}
