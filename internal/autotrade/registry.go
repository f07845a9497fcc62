// Package autotrade holds the per-asset auto-trade switches and places
// orders when an enabled asset's signal turns directional.
package autotrade

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"SignalDesk/internal/model"
)

// Setting is the auto-trade configuration of one asset.
type Setting struct {
	AssetID int
	Balance model.Balance
	Enabled bool
	Amount  decimal.Decimal
}

// Registry stores Settings by asset.
type Registry struct {
	mu       sync.RWMutex
	settings map[int]Setting
}

func NewRegistry() *Registry {
	return &Registry{settings: make(map[int]Setting)}
}

// Set stores s, replacing the asset's previous setting.
func (r *Registry) Set(s Setting) {
	r.mu.Lock()
	r.settings[s.AssetID] = s
	r.mu.Unlock()
}

func (r *Registry) Get(assetID int) (Setting, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.settings[assetID]
	return s, ok
}

// Enabled reports whether auto-trade is on for the asset.
func (r *Registry) Enabled(assetID int) bool {
	s, ok := r.Get(assetID)
	return ok && s.Enabled
}

// Disable switches one asset off, keeping its amount.
func (r *Registry) Disable(assetID int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.settings[assetID]
	if !ok || !s.Enabled {
		return false
	}
	s.Enabled = false
	r.settings[assetID] = s
	return true
}

// DisableForBalance switches off every enabled asset trading on the balance
// and returns how many were switched.
func (r *Registry) DisableForBalance(balanceID int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.settings {
		if s.Enabled && s.Balance.ID == balanceID {
			s.Enabled = false
			r.settings[id] = s
			n++
		}
	}
	if n > 0 {
		log.Info().Int("balance", balanceID).Int("assets", n).Msg("auto-trade switched off")
	}
	return n
}

// Assets lists configured assets in ascending order.
func (r *Registry) Assets() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int, 0, len(r.settings))
	for id := range r.settings {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
