package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"grow_controller/internal/models"
)

type SensorSQLite struct {
	db *sql.DB
}

func NewSensorSQLite(db *sql.DB) *SensorSQLite { return &SensorSQLite{db: db} }

const (
	insertSensorReadingSQL = `
		INSERT INTO sensor_readings (recorded_at, temperature, humidity, co2, vpd, leaf_temperature)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	insertThermalFrameSQL = `
		INSERT INTO thermal_frames (recorded_at, source, cells)
		VALUES (?, ?, ?)
	`
)

func (r *SensorSQLite) AppendReading(ctx context.Context, rec models.SensorRecord) error {
	_, err := r.db.ExecContext(ctx, insertSensorReadingSQL,
		formatTS(rec.Timestamp), rec.Temperature, rec.Humidity, rec.CO2, rec.VPD, rec.LeafTemperature)
	if err != nil {
		return fmt.Errorf("insert sensor reading: %w", err)
	}
	return nil
}

// AppendThermal stores the frame cells as a JSON array of [row, col, value].
func (r *SensorSQLite) AppendThermal(ctx context.Context, rec models.ThermalRecord) error {
	cells, err := json.Marshal(rec.Cells)
	if err != nil {
		return fmt.Errorf("marshal thermal cells: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, insertThermalFrameSQL, formatTS(rec.Timestamp), rec.Source, string(cells)); err != nil {
		return fmt.Errorf("insert thermal frame from %s: %w", rec.Source, err)
	}
	return nil
}

// ListReadings returns samples in [from, to], oldest first.
func (r *SensorSQLite) ListReadings(ctx context.Context, from, to time.Time) ([]models.SensorRecord, error) {
	var (
		conds []string
		args  []any
	)
	if !from.IsZero() {
		conds = append(conds, "recorded_at >= ?")
		args = append(args, formatTS(from))
	}
	if !to.IsZero() {
		conds = append(conds, "recorded_at <= ?")
		args = append(args, formatTS(to))
	}

	q := `SELECT recorded_at, temperature, humidity, co2, vpd, leaf_temperature FROM sensor_readings`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY recorded_at ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query sensor readings: %w", err)
	}
	defer rows.Close()

	var out []models.SensorRecord
	for rows.Next() {
		var rec models.SensorRecord
		if err := rows.Scan(&rec.Timestamp, &rec.Temperature, &rec.Humidity, &rec.CO2, &rec.VPD, &rec.LeafTemperature); err != nil {
			return nil, err
		}
		rec.Timestamp = rec.Timestamp.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}
