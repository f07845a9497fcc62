package martingale

import "errors"

// Store errors. Every rejection leaves the store unchanged.
var (
	ErrChainNotFound  = errors.New("chain not found")
	ErrOrderNotFound  = errors.New("order not found")
	ErrChainNotActive = errors.New("chain is not active")
	ErrChainExpired   = errors.New("chain expired")
	ErrLevelExhausted = errors.New("chain reached max level")
	ErrOrderPending   = errors.New("chain already has a pending order")
	ErrOrderResolved  = errors.New("order already resolved")
	ErrInvalidChain   = errors.New("invalid chain parameters")
	ErrInvalidOutcome = errors.New("invalid order outcome")
)
