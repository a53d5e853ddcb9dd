package repository

import (
	"context"
	"database/sql"
	"time"

	"grow_controller/internal/models"
)

// Authorization stores the accounts guarding the API.
type Authorization interface {
	Create(ctx context.Context, u models.User) (int, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Count(ctx context.Context) (int, error)
}

// StateRepo persists the single application state row.
type StateRepo interface {
	Save(ctx context.Context, s models.AppState) error
	// Load reports found=false when nothing has been saved yet.
	Load(ctx context.Context) (s models.AppState, found bool, err error)
}

// HardwareRepo is the append-only hardware state change log.
type HardwareRepo interface {
	Append(ctx context.Context, e models.HardwareEvent) error
	List(ctx context.Context, from, to time.Time, hardwareID string) ([]models.HardwareEvent, error)
}

// SensorRepo stores fused climate samples and raw thermal frames.
type SensorRepo interface {
	AppendReading(ctx context.Context, r models.SensorRecord) error
	AppendThermal(ctx context.Context, r models.ThermalRecord) error
	ListReadings(ctx context.Context, from, to time.Time) ([]models.SensorRecord, error)
}

type Repository struct {
	StateRepo    StateRepo
	HardwareRepo HardwareRepo
	SensorRepo   SensorRepo
	Auth         Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		StateRepo:    NewStateSQLite(db),
		HardwareRepo: NewHardwareSQLite(db),
		SensorRepo:   NewSensorSQLite(db),
		Auth:         NewUserRepository(db),
	}
}

// timestampLayout is how times are written so that text comparison orders them.
const timestampLayout = "2006-01-02 15:04:05.000"

func formatTS(t time.Time) string { return t.UTC().Format(timestampLayout) }
