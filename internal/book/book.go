// Package book holds the authoritative in-memory set of open positions and
// the ratchet (trailing-stop) state machine that governs their exits.
package book

import (
	"sort"
	"sync"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

// PositionBook is the owned collection of open positions, keyed by position
// ID. Membership changes only on open/close events; it is safe for concurrent
// use, though all trading mutations happen sequentially within one cycle.
type PositionBook struct {
	mu        sync.RWMutex
	positions map[string]*domain.Position
}

// NewPositionBook returns an empty, ready-to-use PositionBook.
func NewPositionBook() *PositionBook {
	return &PositionBook{
		positions: make(map[string]*domain.Position),
	}
}

// Open adds a freshly created position. It returns domain.ErrAlreadyExists
// when a position with the same ID is already open.
func (b *PositionBook) Open(pos domain.Position) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.positions[pos.ID]; ok {
		return domain.ErrAlreadyExists
	}
	p := pos
	b.positions[pos.ID] = &p
	return nil
}

// Load replaces the book's contents with the given positions. Used to restore
// state from a persistence store on startup.
func (b *PositionBook) Load(positions []domain.Position) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.positions = make(map[string]*domain.Position, len(positions))
	for i := range positions {
		p := positions[i]
		b.positions[p.ID] = &p
	}
}

// Remove deletes a position, typically after a filled sell. It returns
// domain.ErrNotFound when the ID is not present.
func (b *PositionBook) Remove(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.positions[id]; !ok {
		return domain.ErrNotFound
	}
	delete(b.positions, id)
	return nil
}

// Get returns the position with the given ID, or domain.ErrNotFound.
func (b *PositionBook) Get(id string) (*domain.Position, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	p, ok := b.positions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

// List returns the open positions ordered by open time (oldest first, ID as
// tie-break) so each cycle processes them in a stable order.
func (b *PositionBook) List() []*domain.Position {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]*domain.Position, 0, len(b.positions))
	for _, p := range b.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].OpenedAt.Before(out[j].OpenedAt)
	})
	return out
}

// Len returns the number of open positions.
func (b *PositionBook) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.positions)
}

// TotalQuantity returns the total committed base-asset quantity across all
// open positions.
func (b *PositionBook) TotalQuantity() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var total float64
	for _, p := range b.positions {
		total += p.Quantity
	}
	return total
}
