package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/fleetpulse/fleetpulse/monitor/internal/config"
	"github.com/fleetpulse/fleetpulse/pkg/types"
)

// promBufferCap bounds the sample history a promSource retains. It only
// needs to cover the largest window capacity a config can ask for.
const promBufferCap = 512

// promSource samples a gauge from a Prometheus text exposition endpoint on
// every Readings call and accumulates the samples into a bounded local
// buffer. This lets the monitor watch a sensor that exposes /metrics
// directly, with no ingestion path in between.
type promSource struct {
	endpoint string
	metric   string
	client   *http.Client

	mu      sync.Mutex
	samples []types.Reading
	now     func() time.Time
}

func newPromSource(src config.SourceConfig) *promSource {
	return &promSource{
		endpoint: src.Endpoint,
		metric:   src.Metric,
		client:   &http.Client{Timeout: defaultFetchTimeout},
		now:      time.Now,
	}
}

func (s *promSource) Readings(ctx context.Context, sensorID string, limit int) ([]types.Reading, error) {
	value, err := s.sample(ctx)
	if err != nil {
		return nil, fmt.Errorf("source: prometheus sample for %q: %w", sensorID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.samples = append(s.samples, types.Reading{Timestamp: s.now().UTC(), Value: value})
	if len(s.samples) > promBufferCap {
		s.samples = s.samples[len(s.samples)-promBufferCap:]
	}

	start := 0
	if limit > 0 && len(s.samples) > limit {
		start = len(s.samples) - limit
	}
	out := make([]types.Reading, len(s.samples)-start)
	copy(out, s.samples[start:])
	return out, nil
}

// Maintenance always returns empty: a raw exposition endpoint carries no
// ticket context.
func (s *promSource) Maintenance(ctx context.Context, sensorID string, limit int) ([]types.MaintenanceTicket, error) {
	return nil, nil
}

// sample scrapes the endpoint and extracts the configured metric's value.
func (s *promSource) sample(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	mfs, err := parseMetrics(resp.Body)
	if err != nil {
		return 0, err
	}
	mf, ok := mfs[s.metric]
	if !ok {
		return 0, fmt.Errorf("metric %q not present in exposition", s.metric)
	}
	return firstValue(mf)
}

// parseMetrics decodes a Prometheus text exposition from r into metric
// families. A partial result with a non-fatal parse warning is still
// returned successfully.
func parseMetrics(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("parse prometheus text: %w", err)
	}
	return mfs, nil
}

// firstValue extracts the first gauge, counter, or untyped sample in mf.
func firstValue(mf *dto.MetricFamily) (float64, error) {
	for _, m := range mf.GetMetric() {
		switch {
		case m.Gauge != nil:
			return m.Gauge.GetValue(), nil
		case m.Counter != nil:
			return m.Counter.GetValue(), nil
		case m.Untyped != nil:
			return m.Untyped.GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric family %q has no samples", mf.GetName())
}
