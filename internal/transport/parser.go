package transport

import (
	"regexp"
	"strconv"
	"strings"

	"grow_controller/internal/models"
)

var (
	soilLine    = regexp.MustCompile(`^SOIL\s*->\s*RAW:([\d,]+)\s*PCT:([\d,]+)`)
	climateLine = regexp.MustCompile(`^SCD30\s*->\s*CO2:\s*([\d.]+)\s*ppm,\s*Temp:\s*(-?[\d.]+)\s*C,\s*RH:\s*([\d.]+)\s*%`)
	thermalLine = regexp.MustCompile(`^AMG8833\s*->\s*([-\d.\s]+)`)
)

// ParseLine decodes one device line. Unrecognized or malformed lines yield
// ok == false and must be ignored by the caller.
func ParseLine(line string) (models.Reading, bool) {
	line = strings.TrimSpace(strings.ReplaceAll(line, `"`, ""))

	if m := soilLine.FindStringSubmatch(line); m != nil {
		return parseSoil(m[1], m[2])
	}
	if m := climateLine.FindStringSubmatch(line); m != nil {
		return models.Reading{
			Kind: models.ReadingClimate,
			Climate: &models.ClimateReading{
				CO2:         parseFloatOrZero(m[1]),
				Temperature: parseFloatOrZero(m[2]),
				Humidity:    parseFloatOrZero(m[3]),
			},
		}, true
	}
	if m := thermalLine.FindStringSubmatch(line); m != nil {
		return parseThermal(m[1])
	}
	return models.Reading{}, false
}

func parseSoil(rawList, pctList string) (models.Reading, bool) {
	raw, ok := parseIntList(rawList)
	if !ok {
		return models.Reading{}, false
	}
	pct, ok := parseIntList(pctList)
	if !ok {
		return models.Reading{}, false
	}
	soil := &models.SoilReading{}
	copy(soil.Raw[:], raw)
	copy(soil.Moisture[:], pct)
	return models.Reading{Kind: models.ReadingSoil, Soil: soil}, true
}

func parseIntList(s string) ([]int, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != models.SoilChannels {
		return nil, false
	}
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, false
		}
		out = append(out, v)
	}
	return out, true
}

func parseThermal(pixels string) (models.Reading, bool) {
	fields := strings.Fields(pixels)
	if len(fields) != 64 {
		return models.Reading{}, false
	}
	var m models.ThermalMatrix
	for i, f := range fields {
		m[i/8][i%8] = parseFloatOrZero(f)
	}
	return models.Reading{Kind: models.ReadingThermal, Thermal: &m}, true
}

func parseFloatOrZero(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
