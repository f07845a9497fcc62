package risk

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"SignalDesk/internal/model"
)

var (
	ErrAlreadyRecorded = errors.New("fulfillment already recorded for today")
	ErrWarningActive   = errors.New("break warning already active")
	ErrNotFound        = errors.New("record not found")
)

// Ledger keeps goal fulfillments, break warnings and daily starting balances.
// When a path is set every mutation is persisted to it.
type Ledger struct {
	mu       sync.Mutex
	state    *model.RiskState
	filePath string
	now      func() time.Time
}

// NewLedger creates a Ledger, loading state from filePath when it is not empty.
func NewLedger(filePath string, now func() time.Time) (*Ledger, error) {
	if now == nil {
		now = time.Now
	}
	state := &model.RiskState{}
	if filePath != "" {
		var err error
		if state, err = LoadState(filePath); err != nil {
			return nil, err
		}
	}
	return &Ledger{state: state, filePath: filePath, now: now}, nil
}

// State returns a copy of the ledger contents.
func (l *Ledger) State() model.RiskState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return model.RiskState{
		Fulfillments: append([]model.GoalFulfillment(nil), l.state.Fulfillments...),
		Warnings:     append([]model.BreakWarning(nil), l.state.Warnings...),
		Snapshots:    append([]model.DailyBalanceSnapshot(nil), l.state.Snapshots...),
		UpdatedAt:    l.state.UpdatedAt,
	}
}

// CaptureStartingBalance stores amount as the balance's starting amount for
// today. Only the first capture of a day is kept; the returned bool reports
// whether this call stored it.
func (l *Ledger) CaptureStartingBalance(balance model.Balance, amount decimal.Decimal) (model.DailyBalanceSnapshot, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	today := now.Format(model.DateLayout)
	for _, s := range l.state.Snapshots {
		if s.Balance.ID == balance.ID && s.Date == today {
			return s, false
		}
	}
	snap := model.DailyBalanceSnapshot{Balance: balance, StartingAmount: amount, Date: today, CapturedAt: now}
	l.state.Snapshots = append(l.state.Snapshots, snap)
	l.save()
	log.Info().Int("balance", balance.ID).Str("amount", amount.String()).Msg("daily starting balance captured")
	return snap, true
}

// StartingBalance returns today's starting amount for the balance.
func (l *Ledger) StartingBalance(balanceID int) (decimal.Decimal, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	today := l.now().Format(model.DateLayout)
	for _, s := range l.state.Snapshots {
		if s.Balance.ID == balanceID && s.Date == today {
			return s.StartingAmount, true
		}
	}
	return decimal.Zero, false
}

// FulfillmentForToday returns the first fulfillment recorded today for the balance.
func (l *Ledger) FulfillmentForToday(balanceID int) *model.GoalFulfillment {
	l.mu.Lock()
	defer l.mu.Unlock()
	today := l.now().Format(model.DateLayout)
	for _, f := range l.state.Fulfillments {
		if f.BalanceID == balanceID && f.Date == today {
			return &f
		}
	}
	return nil
}

// RecordFulfillment stores f unless a fulfillment of the same type exists for
// the balance on f's date.
func (l *Ledger) RecordFulfillment(f model.GoalFulfillment) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.state.Fulfillments {
		if e.BalanceID == f.BalanceID && e.Date == f.Date && e.Type == f.Type {
			return ErrAlreadyRecorded
		}
	}
	l.state.Fulfillments = append(l.state.Fulfillments, f)
	l.save()
	return nil
}

// AcknowledgeFulfillment marks a fulfillment as seen by the user.
func (l *Ledger) AcknowledgeFulfillment(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.state.Fulfillments {
		if l.state.Fulfillments[i].ID == id {
			l.state.Fulfillments[i].Acknowledged = true
			l.save()
			return nil
		}
	}
	return ErrNotFound
}

// HasUnacknowledgedFulfillment reports whether the balance reached a goal
// today that the user has not acknowledged yet.
func (l *Ledger) HasUnacknowledgedFulfillment(balanceID int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	today := l.now().Format(model.DateLayout)
	for _, f := range l.state.Fulfillments {
		if f.BalanceID == balanceID && f.Date == today && !f.Acknowledged {
			return true
		}
	}
	return false
}

// Blocked stops martingale follow-ups after an unacknowledged daily goal.
func (l *Ledger) Blocked(balanceID int) bool {
	return l.HasUnacknowledgedFulfillment(balanceID)
}

// ActiveWarning returns the balance's warning if it is in force now.
// Acknowledging a warning does not end it.
func (l *Ledger) ActiveWarning(balanceID int) *model.BreakWarning {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.activeWarningLocked(balanceID, l.now())
}

// RecordWarning stores w as the balance's warning, replacing an expired one.
func (l *Ledger) RecordWarning(w model.BreakWarning) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.activeWarningLocked(w.BalanceID, l.now()) != nil {
		return ErrWarningActive
	}
	kept := l.state.Warnings[:0]
	for _, e := range l.state.Warnings {
		if e.BalanceID != w.BalanceID {
			kept = append(kept, e)
		}
	}
	l.state.Warnings = append(kept, w)
	l.save()
	return nil
}

// AcknowledgeWarning stamps the warning as seen.
func (l *Ledger) AcknowledgeWarning(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.state.Warnings {
		if l.state.Warnings[i].ID == id {
			if l.state.Warnings[i].AcknowledgedAt.IsZero() {
				l.state.Warnings[i].AcknowledgedAt = l.now()
				l.save()
			}
			return nil
		}
	}
	return ErrNotFound
}

// ResetForNewDay drops fulfillments and snapshots from previous days and
// expired warnings. It returns how many records were removed.
func (l *Ledger) ResetForNewDay() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	today := now.Format(model.DateLayout)
	removed := 0

	fs := l.state.Fulfillments[:0]
	for _, f := range l.state.Fulfillments {
		if f.Date == today {
			fs = append(fs, f)
		} else {
			removed++
		}
	}
	l.state.Fulfillments = fs

	ss := l.state.Snapshots[:0]
	for _, s := range l.state.Snapshots {
		if s.Date == today {
			ss = append(ss, s)
		} else {
			removed++
		}
	}
	l.state.Snapshots = ss

	ws := l.state.Warnings[:0]
	for _, w := range l.state.Warnings {
		if now.Before(w.ExpiresAt) {
			ws = append(ws, w)
		} else {
			removed++
		}
	}
	l.state.Warnings = ws

	if removed > 0 {
		l.save()
	}
	log.Info().Int("removed", removed).Str("date", today).Msg("risk ledger reset for new day")
	return removed
}

func (l *Ledger) activeWarningLocked(balanceID int, now time.Time) *model.BreakWarning {
	for _, w := range l.state.Warnings {
		if w.BalanceID == balanceID && w.ActiveAt(now) {
			return &w
		}
	}
	return nil
}

func (l *Ledger) save() {
	if l.filePath == "" {
		return
	}
	if err := SaveState(l.filePath, l.state, l.now()); err != nil {
		log.Error().Err(err).Str("path", l.filePath).Msg("failed to save risk state")
	}
}
