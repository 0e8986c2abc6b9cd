// Command fleetsim drives the FleetPulse ingest API with synthetic telemetry.
// It discovers the fleet from the server's asset catalog, assigns each sensor
// a behavior (Turbine failing, Pump stable, Compressor erratic, others
// round-robin), and posts one reading per sensor per interval.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fleetpulse/fleetpulse/pkg/types"
	"github.com/fleetpulse/fleetpulse/simulator/internal/machine"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "base URL of the fleetpulse server")
	interval := flag.Duration("interval", time.Second, "delay between readings per sensor")
	apiKeyEnv := flag.String("api-key-env", "", "environment variable holding the ingest API key")
	seed := flag.Int64("seed", 42, "base seed for the machine noise generators")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := &http.Client{Timeout: 10 * time.Second}

	assets, err := fetchAssets(ctx, client, *server)
	if err != nil {
		slog.Error("failed to fetch asset catalog", "server", *server, "err", err)
		os.Exit(1)
	}

	machines := buildMachines(assets, *seed)
	if len(machines) == 0 {
		slog.Error("no sensors found — seed the fleet first (seedfleet)")
		os.Exit(1)
	}

	apiKey := ""
	if *apiKeyEnv != "" {
		apiKey = os.Getenv(*apiKeyEnv)
	}

	slog.Info("fleetsim starting",
		"server", *server,
		"machines", len(machines),
		"interval", *interval,
	)

	var wg sync.WaitGroup
	for _, m := range machines {
		wg.Add(1)
		go func(m *machine.Machine) {
			defer wg.Done()
			runMachine(ctx, client, *server, apiKey, m, *interval)
		}(m)
	}
	wg.Wait()
	slog.Info("fleetsim stopped")
}

// fetchAssets loads the fleet catalog from GET /api/v1/assets.
func fetchAssets(ctx context.Context, client *http.Client, server string) ([]types.Asset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server+"/api/v1/assets", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected HTTP %d", resp.StatusCode)
	}

	var assets []types.Asset
	if err := json.NewDecoder(resp.Body).Decode(&assets); err != nil {
		return nil, err
	}
	return assets, nil
}

// buildMachines assigns one Machine per sensor. Behavior is inferred from the
// asset name where possible, otherwise rotated through the three behaviors.
func buildMachines(assets []types.Asset, baseSeed int64) []*machine.Machine {
	rotation := []machine.Behavior{machine.Failing, machine.Stable, machine.Erratic}

	var out []*machine.Machine
	i := 0
	for _, a := range assets {
		for _, s := range a.Sensors {
			behavior := behaviorForAsset(a.Name)
			if behavior == "" {
				behavior = rotation[i%len(rotation)]
			}
			m, err := machine.New(s.ID, behavior, baseSeed+int64(i))
			if err != nil {
				continue
			}
			slog.Info("simulating sensor",
				"asset", a.Name,
				"sensor", s.ID,
				"behavior", behavior,
			)
			out = append(out, m)
			i++
		}
	}
	return out
}

// behaviorForAsset maps the demo fleet's asset names to their intended
// behavior. Returns "" when the name gives no hint.
func behaviorForAsset(name string) machine.Behavior {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "turbine"):
		return machine.Failing
	case strings.Contains(lower, "pump"):
		return machine.Stable
	case strings.Contains(lower, "compressor"):
		return machine.Erratic
	default:
		return ""
	}
}

// runMachine posts one reading per interval until ctx is cancelled.
// Post failures are logged and the loop keeps going.
func runMachine(ctx context.Context, client *http.Client, server, apiKey string, m *machine.Machine, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := postReading(ctx, client, server, apiKey, m.SensorID(), m.Next()); err != nil {
				slog.Warn("ingest failed", "sensor", m.SensorID(), "err", err)
			}
		}
	}
}

func postReading(ctx context.Context, client *http.Client, server, apiKey, sensorID string, value float64) error {
	body, err := json.Marshal(map[string]interface{}{
		"sensor_id": sensorID,
		"value":     value,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server+"/api/v1/ingest", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected HTTP %d", resp.StatusCode)
	}
	return nil
}
