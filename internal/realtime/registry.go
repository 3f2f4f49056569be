package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Event is the envelope for every server-to-client message.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Channel is a live, authenticated connection that can receive pushed events.
type Channel interface {
	Push(ctx context.Context, event Event) error
}

// Registry maps a user id to that user's single live channel.
type Registry interface {
	// Register stores ch for userID, replacing any previous channel. It
	// returns the replaced channel, if any.
	Register(userID uuid.UUID, ch Channel) Channel
	Lookup(userID uuid.UUID) (Channel, bool)
	// Remove deletes the entry for userID only while it still holds ch, so a
	// late teardown never evicts a newer registration. A nil ch removes
	// unconditionally. Removing a missing entry is a no-op.
	Remove(userID uuid.UUID, ch Channel) bool
	Len() int
}

// MemoryRegistry is the process-local Registry. It starts empty on every
// process start and is never persisted.
type MemoryRegistry struct {
	mu       sync.RWMutex
	channels map[uuid.UUID]Channel
}

var _ Registry = (*MemoryRegistry)(nil)

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{channels: make(map[uuid.UUID]Channel)}
}

func (r *MemoryRegistry) Register(userID uuid.UUID, ch Channel) Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.channels[userID]
	r.channels[userID] = ch
	if prev == ch {
		return nil
	}
	return prev
}

func (r *MemoryRegistry) Lookup(userID uuid.UUID) (Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[userID]
	return ch, ok
}

func (r *MemoryRegistry) Remove(userID uuid.UUID, ch Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.channels[userID]
	if !ok {
		return false
	}
	if ch != nil && current != ch {
		return false
	}
	delete(r.channels, userID)
	return true
}

func (r *MemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}
