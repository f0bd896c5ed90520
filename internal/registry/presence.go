package registry

import (
	"math"
	"sync"

	"github.com/google/uuid"
)

// Position is a player's last reported location. It is advisory data used
// for distance eviction and marker throttling, never authoritative state.
type Position struct {
	World string
	X     float64
	Y     float64
	Z     float64
}

// DistanceTo returns the euclidean distance to other. It is only
// meaningful when both positions are in the same world.
func (p Position) DistanceTo(other Position) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	dz := p.Z - other.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Presence reports player connectivity. The registry consults it for
// leader succession, play-time accrual and distance eviction; it never
// mutates it.
type Presence interface {
	IsOnline(id uuid.UUID) bool
	Position(id uuid.UUID) (Position, bool)
	OnlinePlayers() []uuid.UUID
}

// Tracker is an in-memory Presence fed by connection and movement events
// from the embedding application.
type Tracker struct {
	mu        sync.RWMutex
	online    map[uuid.UUID]struct{}
	positions map[uuid.UUID]Position
}

var _ Presence = (*Tracker)(nil)

// NewTracker creates an empty presence tracker.
func NewTracker() *Tracker {
	return &Tracker{
		online:    make(map[uuid.UUID]struct{}),
		positions: make(map[uuid.UUID]Position),
	}
}

// Connect marks a player online.
func (t *Tracker) Connect(id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.online[id] = struct{}{}
}

// Disconnect marks a player offline and drops its position.
func (t *Tracker) Disconnect(id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.online, id)
	delete(t.positions, id)
}

// Move records a player's position.
func (t *Tracker) Move(id uuid.UUID, pos Position) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.positions[id] = pos
}

func (t *Tracker) IsOnline(id uuid.UUID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.online[id]
	return ok
}

func (t *Tracker) Position(id uuid.UUID) (Position, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	pos, ok := t.positions[id]
	return pos, ok
}

func (t *Tracker) OnlinePlayers() []uuid.UUID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]uuid.UUID, 0, len(t.online))
	for id := range t.online {
		out = append(out, id)
	}
	return out
}
