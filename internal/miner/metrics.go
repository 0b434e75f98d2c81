package miner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	blocksMined  prometheus.Counter
	hashAttempts prometheus.Counter
	poolSize     prometheus.Gauge
}

// newMetrics registers the miner collectors with reg. A nil registerer
// leaves the collectors unregistered, which is what the tests use.
func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)

	return &metrics{
		blocksMined: factory.NewCounter(prometheus.CounterOpts{
			Name: "minibit_blocks_mined_total",
			Help: "Number of blocks mined and committed to the ledger store.",
		}),
		hashAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "minibit_hash_attempts_total",
			Help: "Number of nonce attempts made by the proof-of-work search.",
		}),
		poolSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "minibit_txpool_size",
			Help: "Number of transactions waiting in the pending pool.",
		}),
	}
}
