package backend

import (
	"context"
	"log/slog"
	"time"

	"github.com/crosstalk-ai/crosstalk/internal/clock"
)

// Monitor periodically probes the backend health endpoint and logs the
// result. It is fire-and-forget: the outcome has no behavioral effect, the
// per-request fallback paths make that decision on their own.
type Monitor struct {
	client   *Client
	interval time.Duration
	clk      clock.Clock
	logger   *slog.Logger
}

func NewMonitor(client *Client, interval time.Duration, clk clock.Clock, logger *slog.Logger) *Monitor {
	return &Monitor{client: client, interval: interval, clk: clk, logger: logger}
}

// Start schedules the periodic probe and returns its cancellation handle.
func (m *Monitor) Start() clock.CancelFunc {
	return m.clk.Every(m.interval, m.probe)
}

func (m *Monitor) probe() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := m.client.Health(ctx); err != nil {
		m.logger.Info("backend unreachable", "error", err)
		return
	}
	m.logger.Debug("backend healthy")
}
