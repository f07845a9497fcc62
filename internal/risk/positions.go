package risk

import (
	"sort"
	"sync"
	"time"

	"SignalDesk/internal/model"
)

// PositionBook holds closed positions per balance.
type PositionBook struct {
	mu        sync.RWMutex
	byBalance map[int][]model.ClosedPosition
}

func NewPositionBook() *PositionBook {
	return &PositionBook{byBalance: make(map[int][]model.ClosedPosition)}
}

// Add appends a closed position. Duplicate order IDs are ignored.
func (b *PositionBook) Add(p model.ClosedPosition) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.byBalance[p.Balance.ID] {
		if e.OrderID == p.OrderID {
			return false
		}
	}
	b.byBalance[p.Balance.ID] = append(b.byBalance[p.Balance.ID], p)
	return true
}

// ForBalance returns a copy of the balance's positions.
func (b *PositionBook) ForBalance(balanceID int) []model.ClosedPosition {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]model.ClosedPosition(nil), b.byBalance[balanceID]...)
}

// Balances returns the balance IDs with at least one position, ascending.
func (b *PositionBook) Balances() []int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]int, 0, len(b.byBalance))
	for id, ps := range b.byBalance {
		if len(ps) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// Prune drops positions closed before the cutoff and returns how many went.
func (b *PositionBook) Prune(before time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	removed := 0
	for id, ps := range b.byBalance {
		kept := ps[:0]
		for _, p := range ps {
			if p.CloseTime.Before(before) {
				removed++
				continue
			}
			kept = append(kept, p)
		}
		if len(kept) == 0 {
			delete(b.byBalance, id)
		} else {
			b.byBalance[id] = kept
		}
	}
	return removed
}
