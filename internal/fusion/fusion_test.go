package fusion

import (
	"math"
	"testing"
	"time"

	"grow_controller/internal/models"
)

func approx(a, b, eps float64) bool { return math.Abs(a-b) <= eps }

func TestWeightedAverage(t *testing.T) {
	cases := []struct {
		in   []float64
		want float64
	}{
		{nil, 0},
		{[]float64{5}, 5},
		{[]float64{10, 20}, 50.0 / 3},
		{[]float64{1, 2, 3}, 14.0 / 6},
	}
	for _, tc := range cases {
		if got := WeightedAverage(tc.in); !approx(got, tc.want, 1e-9) {
			t.Fatalf("WeightedAverage(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestWindow_EvictsOldest(t *testing.T) {
	w := NewWindow(WindowSize)
	for i := 1; i <= 11; i++ {
		w.Push(float64(i))
	}
	if w.Len() != WindowSize {
		t.Fatalf("len = %d", w.Len())
	}
	// samples are 2..11
	want := WeightedAverage([]float64{2, 3, 4, 5, 6, 7, 8, 9, 10, 11})
	if got := w.WeightedAverage(); got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestVPD(t *testing.T) {
	if got := VPD(25, 50); !approx(got, 1.5804, 1e-3) {
		t.Fatalf("VPD(25,50) = %v", got)
	}
	if got := VPD(20, 100); !approx(got, 0, 1e-12) {
		t.Fatalf("VPD at saturation = %v", got)
	}
}

func TestCombine_MissingSideIsZero(t *testing.T) {
	var left models.ThermalMatrix
	for r := range left {
		for c := range left[r] {
			left[r][c] = float64(r*8 + c)
		}
	}
	m := Combine(&left, nil)
	if m[2][3] != 19 || m[2][11] != 0 {
		t.Fatalf("unexpected cells: %v %v", m[2][3], m[2][11])
	}
	hm := m.Heatmap()
	if len(hm) != 128 {
		t.Fatalf("heatmap len = %d", len(hm))
	}
	// row-major over 16 columns
	if p := hm[16*2+3]; p.X != 3 || p.Y != 2 || p.Value != 19 {
		t.Fatalf("unexpected point %+v", p)
	}
}

type recordingLog struct {
	sensor  []models.SensorRecord
	thermal []models.ThermalRecord
}

func (l *recordingLog) LogSensor(r models.SensorRecord)   { l.sensor = append(l.sensor, r) }
func (l *recordingLog) LogThermal(r models.ThermalRecord) { l.thermal = append(l.thermal, r) }

func uniformFrame(v float64) *models.ThermalMatrix {
	var m models.ThermalMatrix
	for r := range m {
		for c := range m[r] {
			m[r][c] = v
		}
	}
	return &m
}

func TestProcessor_Update(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	log := &recordingLog{}
	p := NewProcessor(Config{}, log, func() time.Time { return now })

	p.Update(models.Reading{Kind: models.ReadingClimate, Source: "esp3",
		Climate: &models.ClimateReading{CO2: 800, Temperature: 24, Humidity: 60}})
	snap := p.Update(models.Reading{Kind: models.ReadingThermal, Source: "esp1", HasThermal: true,
		Thermal: uniformFrame(22)})

	if snap.Temperature != 24 || snap.Humidity != 60 || snap.CO2 != 800 || snap.CanopyTemp != 22 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if want := VPD((24+2*22)/3.0, 60); !approx(snap.VPD, want, 1e-12) {
		t.Fatalf("vpd = %v, want %v", snap.VPD, want)
	}
	if !snap.Timestamp.Equal(now) {
		t.Fatalf("timestamp = %v", snap.Timestamp)
	}
	if snap.Heatmap[0].Value != 22 || snap.Heatmap[8].Value != 0 {
		t.Fatalf("left side must be filled and right side zero: %+v %+v", snap.Heatmap[0], snap.Heatmap[8])
	}

	if len(log.sensor) != 2 || len(log.thermal) != 1 {
		t.Fatalf("logged %d sensor / %d thermal records", len(log.sensor), len(log.thermal))
	}
	if rec := log.sensor[1]; rec.VPD != 1.1 || rec.LeafTemperature != 22 || rec.CO2 != 800 {
		t.Fatalf("unexpected rounded record: %+v", rec)
	}
}

func TestProcessor_ThermalWithoutCapabilityIsLoggedOnly(t *testing.T) {
	log := &recordingLog{}
	p := NewProcessor(Config{}, log, nil)

	snap := p.Update(models.Reading{Kind: models.ReadingThermal, Source: "esp3", Thermal: uniformFrame(30)})
	if snap.CanopyTemp != 0 {
		t.Fatalf("canopy must stay empty, got %v", snap.CanopyTemp)
	}
	for _, pt := range snap.Heatmap {
		if pt.Value != 0 {
			t.Fatalf("heatmap must stay blank")
		}
	}
	if len(log.thermal) != 1 {
		t.Fatalf("thermal frame should still be logged")
	}
}

func TestProcessor_SoilRidesAlong(t *testing.T) {
	p := NewProcessor(Config{}, nil, nil)
	soil := &models.SoilReading{Moisture: [7]int{1, 2, 3, 4, 5, 6, 7}}
	snap := p.Update(models.Reading{Kind: models.ReadingSoil, Source: "soil", SoilSensor: true, Soil: soil})
	if snap.Soil == nil || snap.Soil.Moisture[6] != 7 {
		t.Fatalf("soil missing from snapshot: %+v", snap.Soil)
	}
}
