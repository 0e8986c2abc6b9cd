package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/fleetpulse/fleetpulse/monitor/internal/config"
	"github.com/fleetpulse/fleetpulse/pkg/types"
)

const (
	backoffInitial    = 1 * time.Second
	backoffMax        = 60 * time.Second
	backoffMultiplier = 2.0
	sendTimeout       = 10 * time.Second
)

// Reporter buffers CycleReports and ships them to fleetpulse-server.
// Ship() is non-blocking; when the buffer is full the oldest report is
// evicted. Run() must be called in a goroutine to drain the buffer and
// back off while the server is unreachable.
type Reporter struct {
	endpoint string
	buf      chan *types.CycleReport
	client   *http.Client
}

// New creates a Reporter for the given server config and buffer size.
func New(server config.ServerConfig, bufferSize int) *Reporter {
	if bufferSize <= 0 {
		bufferSize = config.DefaultReportBufferSize
	}
	return &Reporter{
		endpoint: server.Endpoint + "/api/v1/verdicts",
		buf:      make(chan *types.CycleReport, bufferSize),
		client: &http.Client{
			Transport: &authRoundTripper{base: http.DefaultTransport, auth: server.Auth},
			Timeout:   sendTimeout,
		},
	}
}

// Ship enqueues a report. If the buffer is full the oldest entry is evicted
// to make room — the server prefers the freshest verdict anyway.
func (r *Reporter) Ship(rep *types.CycleReport) {
	select {
	case r.buf <- rep:
	default:
		select {
		case <-r.buf:
			slog.Warn("reporter: buffer full, evicted oldest report",
				"sensor", rep.SensorID, "buffer_cap", cap(r.buf))
		default:
		}
		r.buf <- rep
	}
}

// Run drains the buffer, posting reports to the server. Failed sends are
// requeued and retried after a truncated exponential backoff with jitter.
// Run blocks until ctx is cancelled.
func (r *Reporter) Run(ctx context.Context) {
	bo := newBackoff()

	for {
		select {
		case <-ctx.Done():
			return

		case rep := <-r.buf:
			err := r.send(ctx, rep)
			if err == nil {
				bo.reset()
				slog.Debug("reporter: verdict delivered",
					"sensor", rep.SensorID, "status", rep.Status)
				continue
			}

			if permanent(err) {
				slog.Error("reporter: server rejected report, discarding",
					"sensor", rep.SensorID, "err", err)
				continue
			}

			// Transient failure — requeue if there's room and wait.
			select {
			case r.buf <- rep:
			default:
				// Buffer refilled in the meantime; this report is stale
				// anyway, the next cycle replaces it.
			}

			wait := bo.next()
			slog.Warn("reporter: send failed, backing off",
				"endpoint", r.endpoint, "err", err, "retry_in", wait)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
		}
	}
}

// send posts one report.
func (r *Reporter) send(ctx context.Context, rep *types.CycleReport) error {
	body, err := json.Marshal(rep)
	if err != nil {
		return &statusError{code: http.StatusBadRequest, msg: fmt.Sprintf("marshal: %v", err)}
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(sendCtx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &statusError{code: resp.StatusCode, msg: resp.Status}
	}
	return nil
}

// statusError carries an HTTP status so drain can tell permanent rejections
// (4xx — the report itself is bad) from transient server trouble.
type statusError struct {
	code int
	msg  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("server returned %s", e.msg)
}

func permanent(err error) bool {
	se, ok := err.(*statusError)
	return ok && se.code >= 400 && se.code < 500
}

// authRoundTripper injects authentication headers into every outgoing request.
type authRoundTripper struct {
	base http.RoundTripper
	auth config.AuthConfig
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	switch t.auth.Mode {
	case "apikey":
		req = req.Clone(req.Context())
		req.Header.Set(t.auth.EffectiveHeader(), t.auth.Key())
	case "bearer":
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+t.auth.Token())
	}
	return t.base.RoundTrip(req)
}

// backoff implements truncated exponential backoff with jitter.
type backoff struct {
	current time.Duration
}

func newBackoff() *backoff {
	return &backoff{current: backoffInitial}
}

// next returns the current backoff duration and advances the internal state.
func (b *backoff) next() time.Duration {
	d := b.current
	// Apply ±25 % jitter.
	jitter := time.Duration(float64(b.current) * 0.25 * (rand.Float64()*2 - 1)) //nolint:gosec // not crypto
	d += jitter
	if d < 0 {
		d = 0
	}

	b.current = time.Duration(float64(b.current) * backoffMultiplier)
	if b.current > backoffMax {
		b.current = backoffMax
	}
	return d
}

func (b *backoff) reset() {
	b.current = backoffInitial
}
