package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAndRecentReadings(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		_, err := s.InsertReading(ctx, "sensor-1", 100+float64(i), base.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}
	// A reading for another sensor must not leak into the query.
	_, err := s.InsertReading(ctx, "sensor-2", 999, base)
	require.NoError(t, err)

	rs, err := s.RecentReadings(ctx, "sensor-1", 3)
	require.NoError(t, err)
	require.Len(t, rs, 3)

	// Newest first, and only the most recent three.
	assert.Equal(t, 104.0, rs[0].Value)
	assert.Equal(t, 103.0, rs[1].Value)
	assert.Equal(t, 102.0, rs[2].Value)
	assert.Equal(t, base.Add(4*time.Second), rs[0].Timestamp)
}

func TestInsertReading_ZeroTimestampDefaultsToNow(t *testing.T) {
	s := openTestStore(t)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	_, err := s.InsertReading(context.Background(), "sensor-1", 100, time.Time{})
	require.NoError(t, err)

	rs, err := s.RecentReadings(context.Background(), "sensor-1", 1)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, fixed, rs[0].Timestamp)
}

func TestCatalog(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	asset, err := s.CreateAsset(ctx, "Turbine-A", "Gas Turbine", "Sector 1")
	require.NoError(t, err)
	require.NotEmpty(t, asset.ID)

	sensor, err := s.CreateSensor(ctx, asset.ID, "vibration", "hertz")
	require.NoError(t, err)

	ok, err := s.SensorExists(ctx, sensor.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.SensorExists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	assets, err := s.ListAssets(ctx)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	require.Len(t, assets[0].Sensors, 1)
	assert.Equal(t, sensor.ID, assets[0].Sensors[0].ID)
}

func TestTickets(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	asset, err := s.CreateAsset(ctx, "Pump-B", "Hydraulic Pump", "Sector 2")
	require.NoError(t, err)
	sensor, err := s.CreateSensor(ctx, asset.ID, "vibration", "hertz")
	require.NoError(t, err)

	tick := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}

	for _, status := range []string{"open", "in_progress", "closed"} {
		_, err := s.CreateTicket(ctx, sensor.ID, status)
		require.NoError(t, err)
	}

	ts, err := s.RecentTickets(ctx, sensor.ID, 2)
	require.NoError(t, err)
	require.Len(t, ts, 2)
	assert.Equal(t, "closed", ts[0].Status, "newest ticket first")

	_, err = s.CreateTicket(ctx, "missing", "open")
	assert.True(t, errors.Is(err, ErrUnknownSensor))
}

func TestSeed_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Seed(ctx, DefaultFleet))
	require.NoError(t, s.Seed(ctx, DefaultFleet))

	assets, err := s.ListAssets(ctx)
	require.NoError(t, err)
	require.Len(t, assets, 3, "second seed must not duplicate the fleet")
	for _, a := range assets {
		assert.Len(t, a.Sensors, 1)
	}
}
