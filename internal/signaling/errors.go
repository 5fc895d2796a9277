package signaling

import "errors"

// WebSocket close codes reported to clients whose handshake is rejected.
const (
	CloseIDTaken   = 4000
	CloseMissingID = 4001
	// CloseInvalidID is reserved for identifier format validation. No rule
	// currently produces it.
	CloseInvalidID = 4002
)

var (
	ErrMissingID = errors.New("signaling: missing peer id")
	ErrIDTaken   = errors.New("signaling: peer id already taken")
	ErrInvalidID = errors.New("signaling: invalid peer id")

	ErrMalformedEnvelope = errors.New("signaling: malformed envelope")
	ErrUnresolvedTarget  = errors.New("signaling: unresolved target")

	ErrSendQueueFull     = errors.New("signaling: send queue full")
	ErrConnClosed        = errors.New("signaling: connection closed")
	ErrInvalidTransition = errors.New("signaling: invalid session state transition")
)

// CloseCode maps an admission error to the close code and reason sent to the
// rejected client.
func CloseCode(err error) (code int, reason string, ok bool) {
	switch {
	case errors.Is(err, ErrIDTaken):
		return CloseIDTaken, "ID_TAKEN", true
	case errors.Is(err, ErrMissingID):
		return CloseMissingID, "MISSING_ID", true
	case errors.Is(err, ErrInvalidID):
		return CloseInvalidID, "INVALID_ID", true
	default:
		return 0, "", false
	}
}
