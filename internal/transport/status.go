package transport

import (
	"sort"
	"sync"

	"grow_controller/internal/models"
)

// StatusObserver receives the flattened connection map after every change.
type StatusObserver func(models.ConnectionStatus)

// StatusBoard tracks presence and session health per endpoint. It is safe for
// concurrent use by the poller, sessions and the actuator link.
type StatusBoard struct {
	mu        sync.Mutex
	endpoints map[string]models.EndpointStatus
	last      models.ConnectionStatus
	observers []StatusObserver
}

// NewStatusBoard registers ids with an all-false status.
func NewStatusBoard(ids ...string) *StatusBoard {
	b := &StatusBoard{endpoints: make(map[string]models.EndpointStatus, len(ids))}
	for _, id := range ids {
		b.endpoints[id] = models.EndpointStatus{}
	}
	b.last = b.flattenLocked()
	return b
}

// Observe adds an observer. Observers run synchronously and must not block.
func (b *StatusBoard) Observe(o StatusObserver) {
	b.mu.Lock()
	b.observers = append(b.observers, o)
	b.mu.Unlock()
}

// Set replaces the status of one endpoint.
func (b *StatusBoard) Set(id string, st models.EndpointStatus) {
	b.update(func() { b.endpoints[id] = st })
}

// SetPresent changes only the presence flag.
func (b *StatusBoard) SetPresent(id string, present bool) {
	b.update(func() {
		st := b.endpoints[id]
		st.Present = present
		b.endpoints[id] = st
	})
}

// SetOpen changes only the session flag.
func (b *StatusBoard) SetOpen(id string, open bool) {
	b.update(func() {
		st := b.endpoints[id]
		st.Open = open
		b.endpoints[id] = st
	})
}

// Get returns the status of one endpoint.
func (b *StatusBoard) Get(id string) models.EndpointStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.endpoints[id]
}

// Snapshot returns a copy of all endpoint statuses.
func (b *StatusBoard) Snapshot() map[string]models.EndpointStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]models.EndpointStatus, len(b.endpoints))
	for k, v := range b.endpoints {
		out[k] = v
	}
	return out
}

// Connection returns the flattened indicator map.
func (b *StatusBoard) Connection() models.ConnectionStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flattenLocked()
}

// IDs lists the tracked endpoints in sorted order.
func (b *StatusBoard) IDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]string, 0, len(b.endpoints))
	for id := range b.endpoints {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (b *StatusBoard) update(mutate func()) {
	b.mu.Lock()
	mutate()
	next := b.flattenLocked()
	if next.Equal(b.last) {
		b.mu.Unlock()
		return
	}
	b.last = next
	observers := append([]StatusObserver(nil), b.observers...)
	b.mu.Unlock()

	for _, o := range observers {
		o(copyStatus(next))
	}
}

func (b *StatusBoard) flattenLocked() models.ConnectionStatus {
	out := make(models.ConnectionStatus, len(b.endpoints))
	for id, st := range b.endpoints {
		out[id] = st.Connected()
	}
	return out
}

func copyStatus(s models.ConnectionStatus) models.ConnectionStatus {
	out := make(models.ConnectionStatus, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
