// Command seedfleet populates the FleetPulse database with the demo fleet:
// three assets (a turbine, a pump, and a compressor), each carrying one
// vibration sensor. Running it twice is safe — existing assets are skipped.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/fleetpulse/fleetpulse/server/internal/store"
)

func main() {
	dbPath := flag.String("db", "fleetpulse.db", "path to the SQLite database file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	st, err := store.Open(*dbPath)
	if err != nil {
		slog.Error("failed to open store", "path", *dbPath, "err", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.Seed(context.Background(), store.DefaultFleet); err != nil {
		slog.Error("seeding failed", "err", err)
		os.Exit(1)
	}
	slog.Info("fleet seeded", "db", *dbPath)
}
