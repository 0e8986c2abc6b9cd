package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/fleetpulse/fleetpulse/pkg/types"
)

// ErrUnknownSensor is returned by queries against a sensor id that does not
// exist in the catalog.
var ErrUnknownSensor = errors.New("store: unknown sensor")

// Store is the durable telemetry, catalog, and ticket backend, on SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time // injectable for deterministic tests
}

// Open opens (creating if needed) the SQLite database at path and runs
// migrations. Use ":memory:" for an ephemeral store in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// migrate creates the schema if it does not exist. Timestamps are stored as
// integer Unix milliseconds so scanning never depends on driver location
// handling.
func (s *Store) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS assets (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE,
		type       TEXT NOT NULL,
		location   TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sensors (
		id         TEXT PRIMARY KEY,
		asset_id   TEXT NOT NULL REFERENCES assets(id),
		type       TEXT NOT NULL,
		unit       TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS readings (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		sensor_id TEXT NOT NULL,
		value     REAL NOT NULL,
		timestamp INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_readings_sensor_ts
		ON readings(sensor_id, timestamp);

	CREATE TABLE IF NOT EXISTS maintenance_tickets (
		id         TEXT PRIMARY KEY,
		sensor_id  TEXT NOT NULL,
		status     TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tickets_sensor_created
		ON maintenance_tickets(sensor_id, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// InsertReading stores one reading. A zero timestamp defaults to ingestion
// time. Returns the record id.
func (s *Store) InsertReading(ctx context.Context, sensorID string, value float64, ts time.Time) (int64, error) {
	if ts.IsZero() {
		ts = s.now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO readings (sensor_id, value, timestamp) VALUES (?, ?, ?)`,
		sensorID, value, ts.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("store: insert reading: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: insert reading id: %w", err)
	}
	return id, nil
}

// RecentReadings returns up to limit readings for the sensor, newest first.
func (s *Store) RecentReadings(ctx context.Context, sensorID string, limit int) ([]types.Reading, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT value, timestamp FROM readings
		 WHERE sensor_id = ? ORDER BY timestamp DESC, id DESC LIMIT ?`,
		sensorID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query readings: %w", err)
	}
	defer rows.Close()

	var out []types.Reading
	for rows.Next() {
		var (
			value float64
			ms    int64
		)
		if err := rows.Scan(&value, &ms); err != nil {
			return nil, fmt.Errorf("store: scan reading: %w", err)
		}
		out = append(out, types.Reading{
			Timestamp: time.UnixMilli(ms).UTC(),
			Value:     value,
		})
	}
	return out, rows.Err()
}

// CreateAsset adds a machine to the catalog.
func (s *Store) CreateAsset(ctx context.Context, name, assetType, location string) (types.Asset, error) {
	a := types.Asset{
		ID:        uuid.NewString(),
		Name:      name,
		Type:      assetType,
		Location:  location,
		CreatedAt: s.now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO assets (id, name, type, location, created_at) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.Type, a.Location, a.CreatedAt.UnixMilli())
	if err != nil {
		return types.Asset{}, fmt.Errorf("store: create asset: %w", err)
	}
	return a, nil
}

// CreateSensor attaches a sensor stream to an asset.
func (s *Store) CreateSensor(ctx context.Context, assetID, sensorType, unit string) (types.Sensor, error) {
	sn := types.Sensor{
		ID:        uuid.NewString(),
		AssetID:   assetID,
		Type:      sensorType,
		Unit:      unit,
		CreatedAt: s.now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sensors (id, asset_id, type, unit, created_at) VALUES (?, ?, ?, ?, ?)`,
		sn.ID, sn.AssetID, sn.Type, sn.Unit, sn.CreatedAt.UnixMilli())
	if err != nil {
		return types.Sensor{}, fmt.Errorf("store: create sensor: %w", err)
	}
	return sn, nil
}

// SensorExists reports whether the sensor id is present in the catalog.
func (s *Store) SensorExists(ctx context.Context, sensorID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM sensors WHERE id = ?`, sensorID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: sensor lookup: %w", err)
	}
	return true, nil
}

// ListAssets returns the catalog with each asset's sensors attached,
// ordered by name.
func (s *Store) ListAssets(ctx context.Context) ([]types.Asset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, type, location, created_at FROM assets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: query assets: %w", err)
	}
	defer rows.Close()

	var assets []types.Asset
	for rows.Next() {
		var (
			a  types.Asset
			ms int64
		)
		if err := rows.Scan(&a.ID, &a.Name, &a.Type, &a.Location, &ms); err != nil {
			return nil, fmt.Errorf("store: scan asset: %w", err)
		}
		a.CreatedAt = time.UnixMilli(ms).UTC()
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range assets {
		sensors, err := s.sensorsForAsset(ctx, assets[i].ID)
		if err != nil {
			return nil, err
		}
		assets[i].Sensors = sensors
	}
	return assets, nil
}

func (s *Store) sensorsForAsset(ctx context.Context, assetID string) ([]types.Sensor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, asset_id, type, unit, created_at FROM sensors WHERE asset_id = ?`, assetID)
	if err != nil {
		return nil, fmt.Errorf("store: query sensors: %w", err)
	}
	defer rows.Close()

	var out []types.Sensor
	for rows.Next() {
		var (
			sn types.Sensor
			ms int64
		)
		if err := rows.Scan(&sn.ID, &sn.AssetID, &sn.Type, &sn.Unit, &ms); err != nil {
			return nil, fmt.Errorf("store: scan sensor: %w", err)
		}
		sn.CreatedAt = time.UnixMilli(ms).UTC()
		out = append(out, sn)
	}
	return out, rows.Err()
}

// CreateTicket records a maintenance dispatch for a sensor.
func (s *Store) CreateTicket(ctx context.Context, sensorID, status string) (types.MaintenanceTicket, error) {
	ok, err := s.SensorExists(ctx, sensorID)
	if err != nil {
		return types.MaintenanceTicket{}, err
	}
	if !ok {
		return types.MaintenanceTicket{}, ErrUnknownSensor
	}
	t := types.MaintenanceTicket{
		ID:        uuid.NewString(),
		SensorID:  sensorID,
		Status:    status,
		CreatedAt: s.now().UTC(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO maintenance_tickets (id, sensor_id, status, created_at) VALUES (?, ?, ?, ?)`,
		t.ID, t.SensorID, t.Status, t.CreatedAt.UnixMilli())
	if err != nil {
		return types.MaintenanceTicket{}, fmt.Errorf("store: create ticket: %w", err)
	}
	return t, nil
}

// RecentTickets returns up to limit tickets for the sensor, newest first.
func (s *Store) RecentTickets(ctx context.Context, sensorID string, limit int) ([]types.MaintenanceTicket, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sensor_id, status, created_at FROM maintenance_tickets
		 WHERE sensor_id = ? ORDER BY created_at DESC LIMIT ?`,
		sensorID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query tickets: %w", err)
	}
	defer rows.Close()

	var out []types.MaintenanceTicket
	for rows.Next() {
		var (
			t  types.MaintenanceTicket
			ms int64
		)
		if err := rows.Scan(&t.ID, &t.SensorID, &t.Status, &ms); err != nil {
			return nil, fmt.Errorf("store: scan ticket: %w", err)
		}
		t.CreatedAt = time.UnixMilli(ms).UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}
