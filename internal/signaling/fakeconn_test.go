package signaling

import (
	"sync"
	"testing"
)

type sentFrame struct {
	mode FrameMode
	data []byte
}

type fakeConn struct {
	mu         sync.Mutex
	sent       []sentFrame
	pings      int
	closed     bool
	closeCode  int
	terminated bool
	sendErr    error
	pingErr    error
}

func (c *fakeConn) Send(mode FrameMode, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	if c.closed || c.terminated {
		return ErrConnClosed
	}
	c.sent = append(c.sent, sentFrame{mode: mode, data: append([]byte(nil), data...)})
	return nil
}

func (c *fakeConn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pingErr != nil {
		return c.pingErr
	}
	c.pings++
	return nil
}

func (c *fakeConn) Close(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.closeCode = code
	return nil
}

func (c *fakeConn) Terminate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.terminated = true
	return nil
}

func (c *fakeConn) Sent() []sentFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sentFrame(nil), c.sent...)
}

func (c *fakeConn) Pings() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pings
}

func (c *fakeConn) Terminated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.terminated
}

func admitFake(t testing.TB, g *Gatekeeper, id string) (*Session, *fakeConn) {
	t.Helper()
	c := &fakeConn{}
	sess, err := g.Admit(id, c)
	if err != nil {
		t.Fatalf("Admit(%q): %v", id, err)
	}
	return sess, c
}
