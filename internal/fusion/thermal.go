package fusion

import "grow_controller/internal/models"

// Combined thermal image size.
const (
	CombinedRows = 8
	CombinedCols = 16
)

// CombinedMatrix is two 8x8 frames placed side by side.
type CombinedMatrix [CombinedRows][CombinedCols]float64

// Combine places left in columns 0-7 and right in columns 8-15. A nil side is
// treated as an all-zero frame.
func Combine(left, right *models.ThermalMatrix) CombinedMatrix {
	var out CombinedMatrix
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			if left != nil {
				out[r][c] = left[r][c]
			}
			if right != nil {
				out[r][c+8] = right[r][c]
			}
		}
	}
	return out
}

// Heatmap flattens the image row by row into (x=col, y=row, value) points.
func (m CombinedMatrix) Heatmap() []models.HeatmapPoint {
	out := make([]models.HeatmapPoint, 0, CombinedRows*CombinedCols)
	for r := 0; r < CombinedRows; r++ {
		for c := 0; c < CombinedCols; c++ {
			out = append(out, models.HeatmapPoint{X: c, Y: r, Value: m[r][c]})
		}
	}
	return out
}

// Mean averages all 64 cells of a frame.
func Mean(m *models.ThermalMatrix) float64 {
	var sum float64
	for r := range m {
		for c := range m[r] {
			sum += m[r][c]
		}
	}
	return sum / 64
}

// Cells lists (row, col, temp) for the thermal log.
func Cells(m *models.ThermalMatrix) []models.ThermalCell {
	out := make([]models.ThermalCell, 0, 64)
	for r := range m {
		for c := range m[r] {
			out = append(out, models.ThermalCell{float64(r), float64(c), m[r][c]})
		}
	}
	return out
}
