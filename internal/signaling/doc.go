// Package signaling is the peer signaling relay engine.
//
// Browser peers hold one WebSocket each, announce a self-chosen identifier via
// the `id` query parameter, and exchange JSON envelopes addressed to other
// identifiers. The relay stamps the sender and forwards envelopes verbatim; it
// never interprets SDP or ICE payloads.
//
// The moving parts are a Registry of live Sessions, a Gatekeeper that admits
// new connections, a Router that forwards envelopes, and a Heartbeat that
// evicts peers which stop answering pings.
package signaling
