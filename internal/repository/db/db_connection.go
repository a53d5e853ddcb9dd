package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens or creates the SQLite file and applies the schema.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{"journal_mode = WAL", "foreign_keys = ON", "busy_timeout = 5000"} {
		if _, err := db.Exec("PRAGMA " + pragma + ";"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set PRAGMA %s: %w", pragma, err)
		}
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}

const sqliteDriverName = "sqlite"

const schemaGrowState = `
CREATE TABLE IF NOT EXISTS grow_state (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    buttons TEXT NOT NULL,
    setpoints TEXT NOT NULL,
    fan_curves TEXT,
    updated_at TIMESTAMP NOT NULL
);
`

const schemaHardwareEvents = `
CREATE TABLE IF NOT EXISTS hardware_events (
    id TEXT PRIMARY KEY,
    occurred_at TIMESTAMP NOT NULL,
    hardware_id TEXT NOT NULL,
    value BOOLEAN NOT NULL,
    manual BOOLEAN NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_hardware_events_occurred ON hardware_events (occurred_at);
`

const schemaSensorReadings = `
CREATE TABLE IF NOT EXISTS sensor_readings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    recorded_at TIMESTAMP NOT NULL,
    temperature REAL,
    humidity REAL,
    co2 REAL,
    vpd REAL,
    leaf_temperature REAL
);
CREATE INDEX IF NOT EXISTS idx_sensor_readings_recorded ON sensor_readings (recorded_at);
`

const schemaThermalFrames = `
CREATE TABLE IF NOT EXISTS thermal_frames (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    recorded_at TIMESTAMP NOT NULL,
    source TEXT NOT NULL,
    cells TEXT NOT NULL
);
`

const schemaUsers = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'viewer',
    created_at TIMESTAMP NOT NULL
);
`

func ensureSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range []string{
		schemaGrowState,
		schemaHardwareEvents,
		schemaSensorReadings,
		schemaThermalFrames,
		schemaUsers,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}
