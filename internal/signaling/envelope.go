package signaling

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	fieldTo   = "to"
	fieldFrom = "from"
)

// Envelope is the addressed unit relayed between peers.
//
// To and From are the only fields the relay understands. Everything else is
// kept as raw JSON in Fields and passed through untouched.
type Envelope struct {
	To     *PeerID
	From   PeerID
	Fields map[string]json.RawMessage
}

// ParseEnvelope decodes a JSON object frame. A `to` that is missing, null or
// not a string leaves To nil. Any client-supplied `from` is parsed but will be
// overwritten before relay.
func ParseEnvelope(data []byte) (Envelope, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if fields == nil {
		return Envelope{}, fmt.Errorf("%w: not a JSON object", ErrMalformedEnvelope)
	}

	env := Envelope{Fields: fields}
	if raw, ok := fields[fieldTo]; ok {
		delete(fields, fieldTo)
		var to *string
		if err := json.Unmarshal(raw, &to); err == nil && to != nil {
			id := PeerID(*to)
			env.To = &id
		}
	}
	if raw, ok := fields[fieldFrom]; ok {
		delete(fields, fieldFrom)
		var from string
		if err := json.Unmarshal(raw, &from); err == nil {
			env.From = PeerID(from)
		}
	}
	return env, nil
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Fields)+2)
	for k, v := range e.Fields {
		out[k] = v
	}
	if e.To != nil {
		out[fieldTo] = string(*e.To)
	} else {
		out[fieldTo] = nil
	}
	out[fieldFrom] = string(e.From)

	// Passthrough values must not be rewritten, so HTML escaping stays off.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
