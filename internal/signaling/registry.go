package signaling

import "sync"

// Registry maps each PeerID to its live Session. It is the single source of
// truth for who is connected.
//
// At most one Session exists per PeerID at any instant. The Gatekeeper is the
// only caller of InsertIfAbsent; Teardown is the only remover.
type Registry struct {
	mu       sync.RWMutex
	sessions map[PeerID]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[PeerID]*Session)}
}

func (r *Registry) Lookup(id PeerID) (*Session, bool) {
	r.mu.RLock()
	sess, ok := r.sessions[id]
	r.mu.RUnlock()
	return sess, ok
}

// InsertIfAbsent registers sess under id unless id is already taken. The
// check and the insert happen under one lock.
func (r *Registry) InsertIfAbsent(id PeerID, sess *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; ok {
		return false
	}
	r.sessions[id] = sess
	return true
}

// Remove deletes the entry for sess.ID() if it still refers to sess. A stale
// Session whose id was already reused by a newer connection leaves the newer
// entry alone. Remove reports whether an entry was deleted.
func (r *Registry) Remove(sess *Session) bool {
	if sess == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[sess.id]; !ok || cur != sess {
		return false
	}
	delete(r.sessions, sess.id)
	return true
}

// Teardown marks sess closed and removes it. It may be called any number of
// times from any goroutine; only the first call that finds sess registered
// returns true.
func (r *Registry) Teardown(sess *Session) bool {
	if sess == nil {
		return false
	}
	_, _ = sess.Fire(EventTransportDown)
	return r.Remove(sess)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sessions returns a snapshot of every registered Session.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		out = append(out, sess)
	}
	return out
}
