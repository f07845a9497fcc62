package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"SignalDesk/internal/model"
)

// SQLiteRecorder persists the event journal to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL so dashboards can read while the service writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS signal_changes (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			asset_id    INTEGER NOT NULL,
			prev_signal TEXT,
			new_signal  TEXT NOT NULL,
			score       REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signal_asset_ts ON signal_changes(asset_id, timestamp)`,

		`CREATE TABLE IF NOT EXISTS chain_events (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp         INTEGER NOT NULL,
			chain_id          TEXT NOT NULL,
			original_order_id TEXT,
			balance_id        INTEGER,
			status            TEXT,
			level             INTEGER,
			max_level         INTEGER,
			total_invested    TEXT,
			reason            TEXT,
			note              TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chain_id ON chain_events(chain_id)`,
		`CREATE INDEX IF NOT EXISTS idx_chain_ts ON chain_events(timestamp)`,

		`CREATE TABLE IF NOT EXISTS goal_fulfillments (
			id           TEXT PRIMARY KEY,
			timestamp    INTEGER NOT NULL,
			balance_id   INTEGER NOT NULL,
			type         TEXT NOT NULL,
			target_value TEXT,
			actual_value TEXT,
			date         TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_goal_balance_date ON goal_fulfillments(balance_id, date)`,

		`CREATE TABLE IF NOT EXISTS break_warnings (
			id           TEXT PRIMARY KEY,
			timestamp    INTEGER NOT NULL,
			balance_id   INTEGER NOT NULL,
			time_window  INTEGER,
			total_orders INTEGER,
			loss_count   INTEGER,
			trigger_time INTEGER,
			expires_at   INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_break_balance_ts ON break_warnings(balance_id, timestamp)`,

		`CREATE TABLE IF NOT EXISTS cleanup_sweeps (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			chains    INTEGER,
			orders    INTEGER,
			amounts   INTEGER,
			positions INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cleanup_ts ON cleanup_sweeps(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordSignalChange(evt *SignalChangeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO signal_changes
		(timestamp, asset_id, prev_signal, new_signal, score)
		VALUES (?,?,?,?,?)`,
		time.Now().Unix(), evt.AssetID, string(evt.Previous), string(evt.Current), evt.Score,
	)
	return err
}

func (r *SQLiteRecorder) RecordChainEvent(evt *ChainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO chain_events
		(timestamp, chain_id, original_order_id, balance_id, status, level, max_level, total_invested, reason, note)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), evt.ChainID, evt.OriginalOrderID, evt.BalanceID,
		string(evt.Status), evt.Level, evt.MaxLevel, evt.TotalInvested.String(),
		string(evt.Reason), evt.Note,
	)
	return err
}

func (r *SQLiteRecorder) RecordGoalFulfillment(f *model.GoalFulfillment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT OR IGNORE INTO goal_fulfillments
		(id, timestamp, balance_id, type, target_value, actual_value, date)
		VALUES (?,?,?,?,?,?,?)`,
		f.ID, f.CreatedAt.Unix(), f.BalanceID, string(f.Type),
		f.TargetValue.String(), f.ActualValue.String(), f.Date,
	)
	return err
}

func (r *SQLiteRecorder) RecordBreakWarning(w *model.BreakWarning) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT OR IGNORE INTO break_warnings
		(id, timestamp, balance_id, time_window, total_orders, loss_count, trigger_time, expires_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		w.ID, time.Now().Unix(), w.BalanceID, w.TimeWindow, w.TotalOrders, w.LossCount,
		w.TriggerTime.Unix(), w.ExpiresAt.Unix(),
	)
	return err
}

func (r *SQLiteRecorder) RecordCleanup(evt *CleanupEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO cleanup_sweeps
		(timestamp, chains, orders, amounts, positions)
		VALUES (?,?,?,?,?)`,
		time.Now().Unix(), evt.Chains, evt.Orders, evt.Amounts, evt.Positions,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
