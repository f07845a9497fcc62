package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds all Prometheus collectors of the service.
type Metrics struct {
	// Candle aggregator
	CandlesAccepted prometheus.Counter
	CandlesRejected *prometheus.CounterVec // labels: reason
	Backfills       prometheus.Counter

	// Signal classifier
	SignalEvaluations *prometheus.CounterVec // labels: result
	SignalChanges     *prometheus.CounterVec // labels: signal
	EvaluationDur     prometheus.Histogram

	// Martingale
	ChainsCreated  prometheus.Counter
	ChainsFinished *prometheus.CounterVec // labels: status
	OrdersCreated  prometheus.Counter
	ActiveChains   prometheus.Gauge

	// Sweeps
	CleanupRemoved *prometheus.CounterVec // labels: kind

	// Risk
	GoalFulfillments *prometheus.CounterVec // labels: type
	BreakWarnings    prometheus.Counter
	AutoTradeDisable prometheus.Counter
}

// New builds the collectors and registers them with reg. A nil reg leaves
// them unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CandlesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signaldesk_candles_accepted_total",
			Help: "Streamed candles applied to a series",
		}),
		CandlesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signaldesk_candles_rejected_total",
			Help: "Streamed candles rejected (stale, gap, backfill)",
		}, []string{"reason"}),
		Backfills: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signaldesk_backfills_total",
			Help: "Bulk historical fetches applied",
		}),

		SignalEvaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signaldesk_signal_evaluations_total",
			Help: "Per-asset classifier runs",
		}, []string{"result"}),
		SignalChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signaldesk_signal_changes_total",
			Help: "Signal store writes caused by a changed classification",
		}, []string{"signal"}),
		EvaluationDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signaldesk_signal_evaluation_duration_seconds",
			Help:    "Classifier latency per asset",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),

		ChainsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signaldesk_martingale_chains_created_total",
			Help: "Martingale chains opened",
		}),
		ChainsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signaldesk_martingale_chains_finished_total",
			Help: "Martingale chains reaching a terminal status",
		}, []string{"status"}),
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signaldesk_martingale_orders_created_total",
			Help: "Martingale follow-up orders derived",
		}),
		ActiveChains: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signaldesk_martingale_active_chains",
			Help: "Chains currently ACTIVE",
		}),

		CleanupRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signaldesk_cleanup_removed_total",
			Help: "Records evicted by periodic sweeps",
		}, []string{"kind"}),

		GoalFulfillments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signaldesk_goal_fulfillments_total",
			Help: "Daily goal fulfillments recorded",
		}, []string{"type"}),
		BreakWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signaldesk_break_warnings_total",
			Help: "Break warnings raised",
		}),
		AutoTradeDisable: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signaldesk_autotrade_disabled_total",
			Help: "Assets whose auto-trade was switched off by a risk event",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.CandlesAccepted,
			m.CandlesRejected,
			m.Backfills,
			m.SignalEvaluations,
			m.SignalChanges,
			m.EvaluationDur,
			m.ChainsCreated,
			m.ChainsFinished,
			m.OrdersCreated,
			m.ActiveChains,
			m.CleanupRemoved,
			m.GoalFulfillments,
			m.BreakWarnings,
			m.AutoTradeDisable,
		)
	}
	return m
}

// OrDefault returns m, or an unregistered set when m is nil.
func OrDefault(m *Metrics) *Metrics {
	if m != nil {
		return m
	}
	return New(nil)
}
