package signaling

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/wilsonzlin/aero/proxy/signaling-relay/internal/metrics"
)

func newTestRouter() (*Registry, *Gatekeeper, *Router, *metrics.Metrics) {
	reg := NewRegistry()
	m := metrics.New()
	return reg, NewGatekeeper(reg), NewRouter(reg, nil, m), m
}

func decodeFrame(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal %q: %v", data, err)
	}
	return out
}

func TestRouter_RelaysWithServerStampedFrom(t *testing.T) {
	_, g, rt, m := newTestRouter()
	alice, _ := admitFake(t, g, "A")
	_, bobConn := admitFake(t, g, "B")

	res, err := rt.Route(alice, TextFrame, []byte(`{"to":"B","from":"spoofed","foo":1}`))
	if err != nil || res != Delivered {
		t.Fatalf("Route=%s,%v, want delivered,nil", res, err)
	}

	sent := bobConn.Sent()
	if len(sent) != 1 {
		t.Fatalf("B received %d frames, want 1", len(sent))
	}
	if sent[0].mode != TextFrame {
		t.Fatalf("mode=%s, want text", sent[0].mode)
	}
	got := decodeFrame(t, sent[0].data)
	want := map[string]any{"to": "B", "from": "A", "foo": float64(1)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if m.Get(metrics.EnvelopesRelayed) != 1 {
		t.Fatalf("relayed=%d, want 1", m.Get(metrics.EnvelopesRelayed))
	}
}

func TestRouter_PreservesBinaryMode(t *testing.T) {
	_, g, rt, _ := newTestRouter()
	alice, _ := admitFake(t, g, "A")
	_, bobConn := admitFake(t, g, "B")

	if res, _ := rt.Route(alice, BinaryFrame, []byte(`{"to":"B"}`)); res != Delivered {
		t.Fatalf("Route=%s, want delivered", res)
	}
	sent := bobConn.Sent()
	if len(sent) != 1 || sent[0].mode != BinaryFrame {
		t.Fatalf("sent=%v, want one binary frame", sent)
	}
}

func TestRouter_UnresolvedIsDroppedSilently(t *testing.T) {
	_, g, rt, m := newTestRouter()
	alice, aliceConn := admitFake(t, g, "A")

	for _, frame := range []string{`{"to":"ghost","x":1}`, `{"x":1}`, `{"to":null}`, `{"to":5}`} {
		res, err := rt.Route(alice, TextFrame, []byte(frame))
		if res != DroppedUnresolved || !errors.Is(err, ErrUnresolvedTarget) {
			t.Fatalf("Route(%s)=%s,%v, want unresolved", frame, res, err)
		}
	}
	if len(aliceConn.Sent()) != 0 {
		t.Fatalf("sender received feedback frames")
	}
	if alice.State() != StateOpen {
		t.Fatalf("sender state=%s, want open", alice.State())
	}
	if got := m.Get(metrics.EnvelopesDroppedUnresolved); got != 4 {
		t.Fatalf("unresolved=%d, want 4", got)
	}
}

func TestRouter_MalformedKeepsSenderOpen(t *testing.T) {
	_, g, rt, m := newTestRouter()
	alice, aliceConn := admitFake(t, g, "A")
	_, bobConn := admitFake(t, g, "B")

	res, err := rt.Route(alice, TextFrame, []byte(`{"to":"B",`))
	if res != DroppedMalformed || !errors.Is(err, ErrMalformedEnvelope) {
		t.Fatalf("Route=%s,%v, want malformed", res, err)
	}
	if aliceConn.closed || aliceConn.terminated || alice.State() != StateOpen {
		t.Fatalf("sender was closed after malformed frame")
	}
	if len(bobConn.Sent()) != 0 {
		t.Fatalf("malformed frame was relayed")
	}

	if res, _ := rt.Route(alice, TextFrame, []byte(`{"to":"B","ok":true}`)); res != Delivered {
		t.Fatalf("follow-up Route=%s, want delivered", res)
	}
	if m.Get(metrics.EnvelopesDroppedMalformed) != 1 {
		t.Fatalf("malformed=%d, want 1", m.Get(metrics.EnvelopesDroppedMalformed))
	}
}

func TestRouter_UndeliverableWhenQueueFull(t *testing.T) {
	_, g, rt, m := newTestRouter()
	alice, _ := admitFake(t, g, "A")
	_, bobConn := admitFake(t, g, "B")
	bobConn.sendErr = ErrSendQueueFull

	res, err := rt.Route(alice, TextFrame, []byte(`{"to":"B"}`))
	if res != DroppedUndeliverable || !errors.Is(err, ErrSendQueueFull) {
		t.Fatalf("Route=%s,%v, want undeliverable", res, err)
	}
	if m.Get(metrics.EnvelopesDroppedUndeliverable) != 1 {
		t.Fatalf("undeliverable=%d, want 1", m.Get(metrics.EnvelopesDroppedUndeliverable))
	}
}

func TestRouter_SelfAddressed(t *testing.T) {
	_, g, rt, _ := newTestRouter()
	alice, aliceConn := admitFake(t, g, "A")

	if res, _ := rt.Route(alice, TextFrame, []byte(`{"to":"A","n":1}`)); res != Delivered {
		t.Fatalf("Route=%s, want delivered", res)
	}
	if len(aliceConn.Sent()) != 1 {
		t.Fatalf("self-addressed envelope not delivered")
	}
}
