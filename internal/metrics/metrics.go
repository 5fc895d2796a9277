package metrics

import "sync"

// Event names recorded by the relay.
const (
	PeersAdmitted          = "peers_admitted"
	PeersRejectedMissingID = "peers_rejected_missing_id"
	PeersRejectedIDTaken   = "peers_rejected_id_taken"
	PeersDisconnected      = "peers_disconnected"

	EnvelopesRelayed              = "envelopes_relayed"
	EnvelopesDroppedMalformed     = "envelopes_dropped_malformed"
	EnvelopesDroppedUnresolved    = "envelopes_dropped_unresolved"
	EnvelopesDroppedUndeliverable = "envelopes_dropped_undeliverable"

	HeartbeatPings     = "heartbeat_pings"
	HeartbeatEvictions = "heartbeat_evictions"

	TURNCredentialsIssued    = "turn_credentials_issued"
	TURNCredentialsForbidden = "turn_credentials_forbidden"
)

// Metrics is a minimal, concurrency-safe counter registry.
//
// A nil *Metrics is valid and discards everything, so components can take
// one optionally.
type Metrics struct {
	mu sync.Mutex
	m  map[string]uint64
}

func New() *Metrics {
	return &Metrics{
		m: make(map[string]uint64),
	}
}

func (m *Metrics) Inc(name string) {
	m.Add(name, 1)
}

func (m *Metrics) Add(name string, delta uint64) {
	if m == nil {
		return
	}
	m.mu.Lock()
	if m.m == nil {
		m.m = make(map[string]uint64)
	}
	m.m[name] += delta
	m.mu.Unlock()
}

func (m *Metrics) Get(name string) uint64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.m[name]
}

// Snapshot returns a copy of every counter.
func (m *Metrics) Snapshot() map[string]uint64 {
	out := make(map[string]uint64)
	if m == nil {
		return out
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range m.m {
		out[k] = v
	}
	return out
}
