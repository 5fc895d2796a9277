package signaling

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/wilsonzlin/aero/proxy/signaling-relay/internal/metrics"
)

// RouteResult describes what happened to one inbound frame.
type RouteResult int

const (
	Delivered RouteResult = iota
	DroppedMalformed
	DroppedUnresolved
	DroppedUndeliverable
)

func (r RouteResult) String() string {
	switch r {
	case Delivered:
		return "delivered"
	case DroppedMalformed:
		return "malformed"
	case DroppedUnresolved:
		return "unresolved"
	case DroppedUndeliverable:
		return "undeliverable"
	default:
		return fmt.Sprintf("route_result(%d)", int(r))
	}
}

// Router forwards envelopes between registered Sessions.
//
// Delivery is at most once with no acknowledgement. Nothing the Router does
// ever closes the sending connection.
type Router struct {
	registry *Registry
	log      *slog.Logger
	metrics  *metrics.Metrics
}

func NewRouter(registry *Registry, logger *slog.Logger, m *metrics.Metrics) *Router {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Router{registry: registry, log: logger, metrics: m}
}

// Route parses frame as an Envelope sent by from and forwards it to the
// addressed Session in the same frame mode. The returned error explains a
// drop and is meant for logging only.
func (rt *Router) Route(from *Session, mode FrameMode, frame []byte) (RouteResult, error) {
	env, err := ParseEnvelope(frame)
	if err != nil {
		rt.metrics.Inc(metrics.EnvelopesDroppedMalformed)
		rt.log.Warn("envelope_dropped",
			"reason", DroppedMalformed.String(),
			"peer_id", from.ID(),
			"conn_id", from.ConnID(),
			"err", err,
		)
		return DroppedMalformed, err
	}

	if env.To == nil {
		rt.metrics.Inc(metrics.EnvelopesDroppedUnresolved)
		return DroppedUnresolved, fmt.Errorf("%w: no recipient", ErrUnresolvedTarget)
	}
	target, ok := rt.registry.Lookup(*env.To)
	if !ok {
		rt.metrics.Inc(metrics.EnvelopesDroppedUnresolved)
		rt.log.Debug("envelope_dropped",
			"reason", DroppedUnresolved.String(),
			"peer_id", from.ID(),
			"to", *env.To,
		)
		return DroppedUnresolved, fmt.Errorf("%w: %q", ErrUnresolvedTarget, *env.To)
	}

	env.From = from.ID()
	out, err := env.MarshalJSON()
	if err != nil {
		rt.metrics.Inc(metrics.EnvelopesDroppedMalformed)
		return DroppedMalformed, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	if err := target.Conn().Send(mode, out); err != nil {
		rt.metrics.Inc(metrics.EnvelopesDroppedUndeliverable)
		rt.log.Debug("envelope_dropped",
			"reason", DroppedUndeliverable.String(),
			"peer_id", from.ID(),
			"to", target.ID(),
			"err", err,
		)
		return DroppedUndeliverable, err
	}

	rt.metrics.Inc(metrics.EnvelopesRelayed)
	return Delivered, nil
}
