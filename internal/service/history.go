package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"grow_controller/internal/models"
	"grow_controller/internal/repository"
)

const (
	DefaultBucket        = 5 * time.Minute
	DefaultSensorHistory = 24 * time.Hour
)

var errInvalidTimeRange = errors.New("invalid time range: from must be <= to")

type HistoryService struct {
	hardware repository.HardwareRepo
	sensors  repository.SensorRepo
	now      func() time.Time
}

func NewHistoryService(hardware repository.HardwareRepo, sensors repository.SensorRepo) *HistoryService {
	return &HistoryService{hardware: hardware, sensors: sensors, now: time.Now}
}

// normalizeToUTC keeps zero times zero.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

func (s *HistoryService) Hardware(ctx context.Context, f HardwareFilter) ([]models.HardwareEvent, error) {
	from, to := normalizeToUTC(f.From), normalizeToUTC(f.To)
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return nil, errInvalidTimeRange
	}
	return s.hardware.List(ctx, from, to, strings.TrimSpace(f.HardwareID))
}

// Sensors returns bucketed averages over the requested window.
func (s *HistoryService) Sensors(ctx context.Context, f SensorFilter) ([]models.SensorBucket, error) {
	to := normalizeToUTC(f.To)
	if to.IsZero() {
		to = s.now().UTC()
	}
	from := normalizeToUTC(f.From)
	if from.IsZero() {
		from = to.Add(-DefaultSensorHistory)
	}
	if from.After(to) {
		return nil, errInvalidTimeRange
	}
	interval := f.Interval
	if interval <= 0 {
		interval = DefaultBucket
	}

	recs, err := s.sensors.ListReadings(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return Aggregate(recs, interval), nil
}

// Aggregate averages records into buckets aligned on multiples of interval
// since the Unix epoch, oldest first. Empty buckets are omitted.
func Aggregate(recs []models.SensorRecord, interval time.Duration) []models.SensorBucket {
	if interval <= 0 {
		interval = DefaultBucket
	}
	buckets := make(map[int64]*models.SensorBucket)
	for _, r := range recs {
		key := r.Timestamp.UnixNano() / int64(interval)
		b, ok := buckets[key]
		if !ok {
			b = &models.SensorBucket{Start: time.Unix(0, key*int64(interval)).UTC()}
			buckets[key] = b
		}
		b.Samples++
		b.Temperature += r.Temperature
		b.Humidity += r.Humidity
		b.CO2 += r.CO2
		b.VPD += r.VPD
		b.LeafTemperature += r.LeafTemperature
	}

	out := make([]models.SensorBucket, 0, len(buckets))
	for _, b := range buckets {
		n := float64(b.Samples)
		b.Temperature /= n
		b.Humidity /= n
		b.CO2 /= n
		b.VPD /= n
		b.LeafTemperature /= n
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}
