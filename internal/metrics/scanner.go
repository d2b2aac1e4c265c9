package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/shielded/model"
)

var (
	scannerFetchTipTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scanner",
		Name:      "fetch_tip_total",
		Help:      "Count of chain tip lookups.",
	}, []string{"coin", "network", "status"})

	scannerFetchTipDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "scanner",
		Name:      "fetch_tip_duration_seconds",
		Help:      "Duration of chain tip lookups.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"coin", "network", "status"})

	scannerProcessRangeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scanner",
		Name:      "process_range_total",
		Help:      "Count of scanned block ranges.",
	}, []string{"coin", "network", "status"})

	scannerProcessRangeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "scanner",
		Name:      "process_range_duration_seconds",
		Help:      "Duration of scanning a block range.",
		Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"coin", "network", "status"})

	scannerProcessRangeSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "scanner",
		Name:      "process_range_size",
		Help:      "Number of blocks per scanned range.",
		Buckets:   prometheus.LinearBuckets(1, 4, 8),
	}, []string{"coin", "network"})

	scannerTransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scanner",
		Name:      "transactions_total",
		Help:      "Count of transactions by handling outcome.",
	}, []string{"coin", "network", "outcome"})

	scannerCursor = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "scanner",
		Name:      "cursor_height",
		Help:      "Last fully scanned height.",
	}, []string{"coin", "network"})

	scannerTip = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "scanner",
		Name:      "tip_height",
		Help:      "Last observed chain tip.",
	}, []string{"coin", "network"})

	scannerTracked = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "scanner",
		Name:      "tracked_transactions",
		Help:      "Number of reported txids held by the confirmation tracker.",
	}, []string{"coin", "network"})
)

// Scanner tracks metrics for the chain scanner loop.
type Scanner struct {
	coin    model.Coin
	network model.Network
}

// NewScanner constructs a Scanner with defaults.
func NewScanner(coin model.Coin, network model.Network) *Scanner {
	if coin == "" {
		coin = "unknown"
	}
	if network == "" {
		network = "unknown"
	}
	return &Scanner{coin: coin, network: network}
}

// ObserveFetchTip records a tip lookup outcome and duration.
func (m Scanner) ObserveFetchTip(err error, tip uint64, started time.Time) {
	status := statusOf(err)
	scannerFetchTipTotal.WithLabelValues(string(m.coin), string(m.network), status).Inc()
	scannerFetchTipDuration.WithLabelValues(string(m.coin), string(m.network), status).
		Observe(time.Since(started).Seconds())
	if err == nil {
		scannerTip.WithLabelValues(string(m.coin), string(m.network)).Set(float64(tip))
	}
}

// ObserveProcessRange records a scanned range.
func (m Scanner) ObserveProcessRange(err error, blocks int, started time.Time) {
	status := statusOf(err)
	scannerProcessRangeTotal.WithLabelValues(string(m.coin), string(m.network), status).Inc()
	scannerProcessRangeDuration.WithLabelValues(string(m.coin), string(m.network), status).
		Observe(time.Since(started).Seconds())
	scannerProcessRangeSize.WithLabelValues(string(m.coin), string(m.network)).Observe(float64(blocks))
}

// ObserveTransaction counts one transaction by how the scanner handled it.
func (m Scanner) ObserveTransaction(outcome string) {
	scannerTransactionsTotal.WithLabelValues(string(m.coin), string(m.network), outcome).Inc()
}

// SetProgress publishes the cursor and the tracker size.
func (m Scanner) SetProgress(cursor uint64, tracked int) {
	scannerCursor.WithLabelValues(string(m.coin), string(m.network)).Set(float64(cursor))
	scannerTracked.WithLabelValues(string(m.coin), string(m.network)).Set(float64(tracked))
}
