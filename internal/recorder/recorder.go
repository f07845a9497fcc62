package recorder

import (
	"github.com/shopspring/decimal"

	"SignalDesk/internal/model"
)

// SignalChangeEvent records a classification that differed from the last one.
type SignalChangeEvent struct {
	AssetID  int
	Previous model.Signal
	Current  model.Signal
	Score    float64
}

// ChainEvent records a martingale chain transition.
type ChainEvent struct {
	ChainID         string
	OriginalOrderID string
	BalanceID       int
	Status          model.ChainStatus
	Level           int
	MaxLevel        int
	TotalInvested   decimal.Decimal
	Reason          model.CancellationReason
	Note            string
}

// CleanupEvent records what a periodic sweep evicted.
type CleanupEvent struct {
	Chains    int
	Orders    int
	Amounts   int
	Positions int
}

// Recorder journals domain events for later analysis.
type Recorder interface {
	RecordSignalChange(evt *SignalChangeEvent) error
	RecordChainEvent(evt *ChainEvent) error
	RecordGoalFulfillment(f *model.GoalFulfillment) error
	RecordBreakWarning(w *model.BreakWarning) error
	RecordCleanup(evt *CleanupEvent) error
	Close() error
}

// OrNoop returns r, or a NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NewNoopRecorder()
	}
	return r
}
