package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"grow_controller/internal/models"

	"github.com/google/uuid"
)

type HardwareSQLite struct {
	db *sql.DB
}

func NewHardwareSQLite(db *sql.DB) *HardwareSQLite { return &HardwareSQLite{db: db} }

const insertHardwareEventSQL = `
	INSERT INTO hardware_events (id, occurred_at, hardware_id, value, manual)
	VALUES (?, ?, ?, ?, ?)
`

// Append inserts a hardware event. Missing ID or OccurredAt are filled in.
func (r *HardwareSQLite) Append(ctx context.Context, e models.HardwareEvent) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, insertHardwareEventSQL,
		e.ID,
		formatTS(e.OccurredAt),
		strings.TrimSpace(e.HardwareID),
		e.Value,
		e.Manual,
	)
	if err != nil {
		return fmt.Errorf("insert hardware event %s: %w", e.HardwareID, err)
	}
	return nil
}

// List returns events in [from, to] (either bound optional), optionally for
// one hardware id, oldest first.
func (r *HardwareSQLite) List(ctx context.Context, from, to time.Time, hardwareID string) ([]models.HardwareEvent, error) {
	var (
		conds []string
		args  []any
	)

	if !from.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, formatTS(from))
	}
	if !to.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, formatTS(to))
	}
	if hardwareID = strings.TrimSpace(hardwareID); hardwareID != "" {
		conds = append(conds, "hardware_id = ?")
		args = append(args, hardwareID)
	}

	q := `SELECT id, occurred_at, hardware_id, value, manual FROM hardware_events`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY occurred_at ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query hardware events: %w", err)
	}
	defer rows.Close()

	out := make([]models.HardwareEvent, 0, 64)
	for rows.Next() {
		var ev models.HardwareEvent
		if err := rows.Scan(&ev.ID, &ev.OccurredAt, &ev.HardwareID, &ev.Value, &ev.Manual); err != nil {
			return nil, err
		}
		ev.OccurredAt = ev.OccurredAt.UTC()
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
