package signaling

import (
	"fmt"

	"github.com/google/uuid"
)

// Gatekeeper admits or rejects new connections based on the identifier they
// claim.
//
// Identifier contents are not validated beyond presence; ErrInvalidID and
// CloseInvalidID stay reserved for a future format rule.
type Gatekeeper struct {
	registry *Registry
}

func NewGatekeeper(registry *Registry) *Gatekeeper {
	return &Gatekeeper{registry: registry}
}

// Admit registers a new Session for rawID on conn. It returns ErrMissingID
// when rawID is empty and ErrIDTaken when another Session holds the id. The
// decision is final; there is no retry.
func (g *Gatekeeper) Admit(rawID string, conn Conn) (*Session, error) {
	if rawID == "" {
		return nil, ErrMissingID
	}
	id := PeerID(rawID)
	sess := newSession(id, uuid.NewString(), conn)
	if !g.registry.InsertIfAbsent(id, sess) {
		_, _ = sess.Fire(EventReject)
		return nil, fmt.Errorf("%w: %q", ErrIDTaken, rawID)
	}
	if _, err := sess.Fire(EventAdmit); err != nil {
		g.registry.Remove(sess)
		return nil, err
	}
	return sess, nil
}
