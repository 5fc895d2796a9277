package signaling

// FrameMode is the WebSocket data frame type an envelope arrived in. Relayed
// envelopes leave in the same mode.
type FrameMode int

const (
	TextFrame FrameMode = iota + 1
	BinaryFrame
)

func (m FrameMode) String() string {
	switch m {
	case TextFrame:
		return "text"
	case BinaryFrame:
		return "binary"
	default:
		return "unknown"
	}
}

// Conn is the transport handle owned by a Session.
//
// Implementations must allow Send, Ping, Close and Terminate to be called
// concurrently from different goroutines.
type Conn interface {
	// Send queues data for delivery and never blocks on the remote peer.
	Send(mode FrameMode, data []byte) error
	// Ping sends a transport-level ping control frame.
	Ping() error
	// Close sends a close frame with the given code and releases the transport.
	Close(code int, reason string) error
	// Terminate releases the transport without a closing handshake.
	Terminate() error
}
