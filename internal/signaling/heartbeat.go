package signaling

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/wilsonzlin/aero/proxy/signaling-relay/internal/metrics"
)

const DefaultHeartbeatInterval = 10 * time.Second

// Heartbeat pings every registered Session on a fixed period and evicts the
// ones that did not answer the previous ping. An unresponsive peer is gone
// after one to two periods.
type Heartbeat struct {
	registry *Registry
	interval time.Duration
	log      *slog.Logger
	metrics  *metrics.Metrics
}

// SweepResult counts what one sweep did.
type SweepResult struct {
	Pinged  int
	Evicted int
}

func NewHeartbeat(registry *Registry, interval time.Duration, logger *slog.Logger, m *metrics.Metrics) *Heartbeat {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Heartbeat{
		registry: registry,
		interval: interval,
		log:      logger,
		metrics:  m,
	}
}

func (h *Heartbeat) Interval() time.Duration { return h.interval }

// Run sweeps once per interval until ctx is done.
func (h *Heartbeat) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			res := h.Sweep()
			h.log.Debug("heartbeat_sweep", "pinged", res.Pinged, "evicted", res.Evicted)
		}
	}
}

// Sweep visits every registered Session exactly once. Sessions that have not
// ponged since the last sweep are terminated and torn down; the rest are
// marked as awaiting a pong and pinged.
func (h *Heartbeat) Sweep() SweepResult {
	var res SweepResult
	for _, sess := range h.registry.Sessions() {
		if !sess.alive.Swap(false) {
			h.evict(sess)
			res.Evicted++
			continue
		}
		if err := sess.conn.Ping(); err != nil {
			// The next sweep evicts the session if the transport stays broken.
			h.log.Debug("heartbeat_ping_failed", "peer_id", sess.ID(), "conn_id", sess.ConnID(), "err", err)
			continue
		}
		h.metrics.Inc(metrics.HeartbeatPings)
		res.Pinged++
	}
	return res
}

func (h *Heartbeat) evict(sess *Session) {
	if err := sess.close(0, "", true); err != nil {
		h.log.Debug("heartbeat_terminate_failed", "peer_id", sess.ID(), "conn_id", sess.ConnID(), "err", err)
	}
	if h.registry.Teardown(sess) {
		h.metrics.Inc(metrics.HeartbeatEvictions)
		h.log.Info("heartbeat_evicted", "peer_id", sess.ID(), "conn_id", sess.ConnID())
	}
}
