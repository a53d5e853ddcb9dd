package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"grow_controller/internal/models"
)

type StateSQLite struct {
	db  *sql.DB
	now func() time.Time
}

func NewStateSQLite(db *sql.DB) *StateSQLite {
	return &StateSQLite{db: db, now: time.Now}
}

const (
	stateRowID = 1

	upsertStateSQL = `
		INSERT INTO grow_state (id, buttons, setpoints, fan_curves, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			buttons=excluded.buttons,
			setpoints=excluded.setpoints,
			fan_curves=excluded.fan_curves,
			updated_at=excluded.updated_at
	`

	selectStateSQL = `SELECT buttons, setpoints, fan_curves FROM grow_state WHERE id=?`
)

// Save writes the whole state into the single grow_state row.
func (r *StateSQLite) Save(ctx context.Context, s models.AppState) error {
	buttons, err := json.Marshal(s.Buttons)
	if err != nil {
		return fmt.Errorf("marshal buttons: %w", err)
	}
	setpoints, err := json.Marshal(s.Setpoints)
	if err != nil {
		return fmt.Errorf("marshal setpoints: %w", err)
	}
	curves, err := json.Marshal(s.FanCurves)
	if err != nil {
		return fmt.Errorf("marshal fan curves: %w", err)
	}

	_, err = r.db.ExecContext(ctx, upsertStateSQL,
		stateRowID, string(buttons), string(setpoints), string(curves), formatTS(r.now()))
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// Load reads the state row. Missing or null columns decode to empty maps.
func (r *StateSQLite) Load(ctx context.Context) (models.AppState, bool, error) {
	var buttons, setpoints, curves sql.NullString
	err := r.db.QueryRowContext(ctx, selectStateSQL, stateRowID).Scan(&buttons, &setpoints, &curves)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return *models.NewAppState(), false, nil
		}
		return models.AppState{}, false, fmt.Errorf("load state: %w", err)
	}

	var s models.AppState
	for _, col := range []struct {
		name string
		raw  sql.NullString
		dst  any
	}{
		{"buttons", buttons, &s.Buttons},
		{"setpoints", setpoints, &s.Setpoints},
		{"fan_curves", curves, &s.FanCurves},
	} {
		if !col.raw.Valid || col.raw.String == "" {
			continue
		}
		if err := json.Unmarshal([]byte(col.raw.String), col.dst); err != nil {
			return models.AppState{}, false, fmt.Errorf("decode %s: %w", col.name, err)
		}
	}
	s.Normalize()
	return s, true, nil
}
