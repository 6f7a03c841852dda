package verifier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "zktx"
	subsystem        = "verifier"
)

var (
	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "batch_duration_seconds",
			Help:      "Time taken to verify a batch of transactions",
			Buckets:   prometheus.DefBuckets,
		},
	)

	TransactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "transactions_total",
			Help:      "Total number of transactions checked",
		},
		[]string{"status"}, // status: valid, invalid, malformed
	)

	LedgerAppliedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "ledger_applied_total",
			Help:      "Total number of transactions applied to the ledger",
		},
		[]string{"status"}, // status: success, error
	)

	LedgerSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "ledger_note_commitments",
			Help:      "Number of note commitments in the ledger tree",
		},
	)
)
