// Package miner assembles pending transactions into candidate blocks, drives
// the proof-of-work search and commits mined blocks to the ledger store.
package miner

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/schollz/progressbar/v3"

	"github.com/minibit/minibit/internal/chain"
	"github.com/minibit/minibit/internal/crypto"
	"github.com/minibit/minibit/internal/ledger"
)

var (
	// ErrNoTip is returned when the chain tip cannot be read from the
	// ledger store.
	ErrNoTip = errors.New("chain tip unavailable")

	// ErrClockUnavailable is returned when the wall clock cannot supply a
	// block timestamp. The mining attempt aborts and the pool is untouched.
	ErrClockUnavailable = errors.New("system clock unavailable")
)

// ValidateFunc decides whether a submitted transaction is admitted to the
// pending pool. The default policy accepts everything; stricter checks
// (signatures, double spends against a UTXO provider) plug in here.
type ValidateFunc func(*chain.Transaction) bool

// Config carries the mining parameters bound by the command layer.
type Config struct {
	Difficulty   int
	Reward       float32
	PollInterval time.Duration
	ShowProgress bool
}

// Miner owns the pending-transaction pool and the only write capability on
// the ledger store.
type Miner struct {
	store    *ledger.Store
	address  string
	payout   [20]byte
	cfg      Config
	validate ValidateFunc
	clock    func() time.Time
	metrics  *metrics

	mu   sync.Mutex
	pool []chain.Transaction
	seen map[[32]byte]struct{}

	runMu     sync.Mutex
	cancelRun context.CancelFunc
}

// New builds a miner paying its rewards to address. The address must decode
// to a public key hash; reg may be nil to skip metrics registration.
func New(store *ledger.Store, address string, cfg Config, reg prometheus.Registerer) (*Miner, error) {
	payout, err := crypto.AddressToPubKeyHash(address)
	if err != nil {
		return nil, fmt.Errorf("invalid reward address %q: %w", address, err)
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}

	return &Miner{
		store:    store,
		address:  address,
		payout:   payout,
		cfg:      cfg,
		validate: func(*chain.Transaction) bool { return true },
		clock:    time.Now,
		metrics:  newMetrics(reg),
		seen:     make(map[[32]byte]struct{}),
	}, nil
}

// SetValidateFunc replaces the pool admission policy.
func (m *Miner) SetValidateFunc(fn ValidateFunc) {
	m.validate = fn
}

// SetClock replaces the timestamp source. A clock returning the zero time
// makes mining fail with ErrClockUnavailable.
func (m *Miner) SetClock(fn func() time.Time) {
	m.clock = fn
}

// Submit offers a transaction to the pending pool. It returns false when the
// admission policy rejects it or the pool already holds its hash.
func (m *Miner) Submit(tx chain.Transaction) bool {
	if !m.validate(&tx) {
		slog.Debug("Transaction rejected by pool policy", "hash", hex.EncodeToString(tx.Hash[:]))
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.seen[tx.Hash]; ok {
		return false
	}
	m.seen[tx.Hash] = struct{}{}
	m.pool = append(m.pool, tx)
	m.metrics.poolSize.Set(float64(len(m.pool)))
	return true
}

// PendingTransactions returns a snapshot of the pool in insertion order.
func (m *Miner) PendingTransactions() []chain.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]chain.Transaction(nil), m.pool...)
}

// PoolSize returns the number of pending transactions.
func (m *Miner) PoolSize() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pool)
}

// MineNextBlock assembles a block from the pending pool plus one coinbase
// reward, runs the proof-of-work search and commits the result. Committed
// transactions leave the pool; any failure leaves the pool untouched.
func (m *Miner) MineNextBlock(ctx context.Context) ([32]byte, error) {
	tip, err := m.store.GetLastBlock()
	if err != nil {
		return [32]byte{}, errors.WithMessage(ErrNoTip, err.Error())
	}

	now := m.clock()
	if now.IsZero() {
		return [32]byte{}, ErrClockUnavailable
	}

	block := chain.NewBlock()
	for _, tx := range m.PendingTransactions() {
		block.AddTransaction(tx)
	}

	coinbase := chain.NewTransaction(nil, []chain.TxOut{{Amount: m.cfg.Reward, Destination: m.payout}})
	coinbase.ComputeHash()
	block.AddTransaction(*coinbase)

	// Empty store means the genesis base case: index zero, zero prev hash.
	if tip != nil {
		block.Index = tip.Index + 1
		block.PrevHash = tip.Hash
	}
	block.Timestamp = uint64(now.UnixMilli())
	block.ComputeMerkleRoot()

	slog.Info("Mining block", "index", block.Index, "difficulty", m.cfg.Difficulty, "transactions", len(block.Transactions))

	var bar *progressbar.ProgressBar
	if m.cfg.ShowProgress {
		bar = progressbar.NewOptions64(-1,
			progressbar.OptionSetDescription("Searching nonce..."),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionClearOnFinish(),
		)
	}

	err = block.Mine(ctx, m.cfg.Difficulty, func(attempts uint64) {
		m.metrics.hashAttempts.Add(float64(attempts))
		if bar != nil {
			bar.Add(int(attempts))
		}
	})
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return [32]byte{}, err
	}

	if err := m.store.PutBlock(block); err != nil {
		return [32]byte{}, fmt.Errorf("failed to persist mined block %d: %w", block.Index, err)
	}

	m.removeCommitted(block)
	m.metrics.blocksMined.Inc()
	slog.Info("Mined block",
		"index", block.Index,
		"hash", hex.EncodeToString(block.Hash[:]),
		"nonce", block.Nonce)

	return block.Hash, nil
}

// removeCommitted drops every pool entry whose hash appears in the committed
// block. Identity is hash-based only.
func (m *Miner) removeCommitted(block *chain.Block) {
	committed := make(map[[32]byte]struct{}, len(block.Transactions))
	for _, tx := range block.Transactions {
		committed[tx.Hash] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	remaining := m.pool[:0]
	for _, tx := range m.pool {
		if _, ok := committed[tx.Hash]; ok {
			delete(m.seen, tx.Hash)
			continue
		}
		remaining = append(remaining, tx)
	}
	m.pool = remaining
	m.metrics.poolSize.Set(float64(len(m.pool)))
}
