package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

// SeedMachine describes one asset-plus-sensor pair for fleet seeding.
type SeedMachine struct {
	Name       string
	Type       string
	Location   string
	SensorType string
	SensorUnit string
}

// DefaultFleet is the demo fleet: one slowly failing turbine, one healthy
// pump, and one erratic compressor.
var DefaultFleet = []SeedMachine{
	{Name: "Turbine-A (Main)", Type: "Gas Turbine", Location: "Sector 1", SensorType: "vibration", SensorUnit: "hertz"},
	{Name: "Pump-B (Auxiliary)", Type: "Hydraulic Pump", Location: "Sector 2", SensorType: "vibration", SensorUnit: "hertz"},
	{Name: "Compressor-C", Type: "Air Compressor", Location: "Sector 1", SensorType: "vibration", SensorUnit: "hertz"},
}

// Seed creates the given machines with one sensor each. Idempotent by asset
// name: machines that already exist are skipped.
func (s *Store) Seed(ctx context.Context, fleet []SeedMachine) error {
	for _, m := range fleet {
		var existing string
		err := s.db.QueryRowContext(ctx,
			`SELECT id FROM assets WHERE name = ?`, m.Name).Scan(&existing)
		switch {
		case err == nil:
			slog.Info("store: asset already seeded, skipping", "name", m.Name, "id", existing)
			continue
		case errors.Is(err, sql.ErrNoRows):
			// fall through and create
		default:
			return fmt.Errorf("store: seed lookup %q: %w", m.Name, err)
		}

		asset, err := s.CreateAsset(ctx, m.Name, m.Type, m.Location)
		if err != nil {
			return err
		}
		sensor, err := s.CreateSensor(ctx, asset.ID, m.SensorType, m.SensorUnit)
		if err != nil {
			return err
		}
		slog.Info("store: seeded machine",
			"name", asset.Name, "asset_id", asset.ID, "sensor_id", sensor.ID)
	}
	return nil
}
