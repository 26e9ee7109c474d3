package ws

import "sync"

// Presence maps a user ID to the ID of its most recently registered
// connection. Last write wins: a reconnect from another tab replaces the
// older connection's entry, and the older connection loses deliverability.
type Presence struct {
	mu     sync.RWMutex
	online map[uint]string
}

func NewPresence() *Presence {
	return &Presence{online: map[uint]string{}}
}

// Register overwrites any existing entry for userID.
func (p *Presence) Register(userID uint, connID string) {
	p.mu.Lock()
	p.online[userID] = connID
	p.mu.Unlock()
}

// Unregister removes the entry for userID only if connID is still the
// registered connection. A superseded connection closing later must not
// knock the newer one offline. Safe to call repeatedly.
func (p *Presence) Unregister(userID uint, connID string) {
	p.mu.Lock()
	if p.online[userID] == connID {
		delete(p.online, userID)
	}
	p.mu.Unlock()
}

// Lookup returns the connection ID for userID, if online.
func (p *Presence) Lookup(userID uint) (string, bool) {
	p.mu.RLock()
	connID, ok := p.online[userID]
	p.mu.RUnlock()
	return connID, ok
}

// ListOnline returns a snapshot of the online user IDs. The snapshot may be
// stale by the time the caller reads it; concurrent disconnects race with it.
func (p *Presence) ListOnline() []uint {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]uint, 0, len(p.online))
	for id := range p.online {
		ids = append(ids, id)
	}
	return ids
}
