package signaling

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// PeerID is the client-chosen identifier of a connection. It is opaque and
// case-sensitive.
type PeerID string

// State is the lifecycle state of a connection.
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Event drives a Session from one State to the next.
type Event int

const (
	// EventAdmit is fired by the Gatekeeper once the id is registered.
	EventAdmit Event = iota
	// EventReject is fired when the handshake is refused.
	EventReject
	// EventClose is fired when the relay starts closing the connection
	// (heartbeat eviction or shutdown).
	EventClose
	// EventTransportDown is fired when the underlying transport is gone.
	EventTransportDown
)

func (e Event) String() string {
	switch e {
	case EventAdmit:
		return "admit"
	case EventReject:
		return "reject"
	case EventClose:
		return "close"
	case EventTransportDown:
		return "transport_down"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// transitions is the complete lifecycle table. Pairs missing from the table
// are invalid, except that any event in StateClosed is a no-op.
var transitions = map[State]map[Event]State{
	StateConnecting: {
		EventAdmit:         StateOpen,
		EventReject:        StateClosed,
		EventTransportDown: StateClosed,
	},
	StateOpen: {
		EventClose:         StateClosing,
		EventTransportDown: StateClosed,
	},
	StateClosing: {
		EventClose:         StateClosing,
		EventTransportDown: StateClosed,
	},
}

// Session is the relay-side state bound to one admitted connection.
type Session struct {
	id     PeerID
	connID string
	conn   Conn

	// alive is cleared by the heartbeat when it pings and set by the pong
	// handler.
	alive atomic.Bool

	mu    sync.Mutex
	state State
	done  chan struct{}
}

func newSession(id PeerID, connID string, conn Conn) *Session {
	s := &Session{
		id:     id,
		connID: connID,
		conn:   conn,
		state:  StateConnecting,
		done:   make(chan struct{}),
	}
	s.alive.Store(true)
	return s
}

func (s *Session) ID() PeerID { return s.id }

// ConnID is a relay-assigned identifier used to correlate log lines.
func (s *Session) ConnID() string { return s.connID }

func (s *Session) Conn() Conn { return s.conn }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed once the Session reaches StateClosed.
func (s *Session) Done() <-chan struct{} { return s.done }

// Alive reports whether a pong arrived since the last heartbeat ping.
func (s *Session) Alive() bool { return s.alive.Load() }

// MarkAlive records a pong.
func (s *Session) MarkAlive() { s.alive.Store(true) }

// Fire applies ev to the Session's state machine and returns the resulting
// state. Events on a closed Session are ignored.
func (s *Session) Fire(ev Event) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return StateClosed, nil
	}
	next, ok := transitions[s.state][ev]
	if !ok {
		return s.state, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev, s.state)
	}
	s.state = next
	if next == StateClosed {
		close(s.done)
	}
	return next, nil
}

// close moves the Session into StateClosing and asks the transport to go
// away. With force set the transport is dropped without a close handshake.
func (s *Session) close(code int, reason string, force bool) error {
	if st, _ := s.Fire(EventClose); st == StateClosed {
		return nil
	}
	if force {
		return s.conn.Terminate()
	}
	return s.conn.Close(code, reason)
}
