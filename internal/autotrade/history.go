package autotrade

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const (
	MaxAmountHistory = 5
	InactiveAfter    = 14 * 24 * time.Hour
)

type historyKey struct {
	assetID   int
	balanceID int
}

type historyEntry struct {
	amounts    []decimal.Decimal
	lastActive time.Time
}

// AmountHistory remembers the most recent distinct stake amounts per asset
// and balance, newest first.
type AmountHistory struct {
	mu      sync.Mutex
	entries map[historyKey]*historyEntry
	now     func() time.Time
}

// NewAmountHistory creates an empty history. now may be nil.
func NewAmountHistory(now func() time.Time) *AmountHistory {
	if now == nil {
		now = time.Now
	}
	return &AmountHistory{entries: make(map[historyKey]*historyEntry), now: now}
}

// Add moves amount to the front, dropping a previous copy and anything past
// MaxAmountHistory.
func (h *AmountHistory) Add(assetID, balanceID int, amount decimal.Decimal) {
	h.mu.Lock()
	defer h.mu.Unlock()

	k := historyKey{assetID, balanceID}
	e, ok := h.entries[k]
	if !ok {
		e = &historyEntry{}
		h.entries[k] = e
	}
	amounts := make([]decimal.Decimal, 0, MaxAmountHistory)
	amounts = append(amounts, amount)
	for _, a := range e.amounts {
		if len(amounts) == MaxAmountHistory {
			break
		}
		if !a.Equal(amount) {
			amounts = append(amounts, a)
		}
	}
	e.amounts = amounts
	e.lastActive = h.now()
}

// History returns the remembered amounts, newest first.
func (h *AmountHistory) History(assetID, balanceID int) []decimal.Decimal {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.entries[historyKey{assetID, balanceID}]
	if !ok {
		return nil
	}
	return append([]decimal.Decimal(nil), e.amounts...)
}

// Touch marks the entry as in use without changing its amounts.
func (h *AmountHistory) Touch(assetID, balanceID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if e, ok := h.entries[historyKey{assetID, balanceID}]; ok {
		e.lastActive = h.now()
	}
}

// Prune drops entries inactive for longer than InactiveAfter and returns how
// many were removed.
func (h *AmountHistory) Prune() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	cutoff := h.now().Add(-InactiveAfter)
	n := 0
	for k, e := range h.entries {
		if e.lastActive.Before(cutoff) {
			delete(h.entries, k)
			n++
		}
	}
	return n
}
