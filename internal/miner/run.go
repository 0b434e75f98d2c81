package miner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/minibit/minibit/internal/instruction"
)

// Run mines blocks until ctx is cancelled, sleeping between attempts while
// the pool is empty. Cancellation mid-search is not an error.
func (m *Miner) Run(ctx context.Context) error {
	slog.Info("Mining loop started", "address", m.address, "difficulty", m.cfg.Difficulty)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Mining loop stopped")
			return nil
		default:
		}

		if m.PoolSize() == 0 {
			select {
			case <-ctx.Done():
			case <-time.After(m.cfg.PollInterval):
			}
			continue
		}

		if _, err := m.MineNextBlock(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			slog.Error("Mining attempt failed", "error", err)
			return err
		}
	}
}

// StartMining launches the background mining loop. It returns false when a
// loop is already running.
func (m *Miner) StartMining(parent context.Context) bool {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	if m.cancelRun != nil {
		return false
	}

	ctx, cancel := context.WithCancel(parent)
	m.cancelRun = cancel

	go func() {
		if err := m.Run(ctx); err != nil {
			slog.Error("Mining loop exited", "error", err)
		}
		m.runMu.Lock()
		m.cancelRun = nil
		m.runMu.Unlock()
	}()

	return true
}

// StopMining cancels the background loop. It returns false when no loop is
// running.
func (m *Miner) StopMining() bool {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	if m.cancelRun == nil {
		return false
	}
	m.cancelRun()
	m.cancelRun = nil
	return true
}

// Execute dispatches miner instructions from the front-end. Verbs addressed
// to other subsystems are ignored.
func (m *Miner) Execute(ctx context.Context, inst instruction.Instruction) {
	if inst.Target != instruction.TargetMiner {
		return
	}

	switch inst.Verb {
	case instruction.VerbStart:
		if m.StartMining(ctx) {
			fmt.Println("Mining started")
		} else {
			fmt.Println("Mining is already running")
		}
	case instruction.VerbStop:
		if m.StopMining() {
			fmt.Println("Mining stopped")
		} else {
			fmt.Println("Mining is not running")
		}
	case instruction.VerbShowTxPool:
		pending := m.PendingTransactions()
		if len(pending) == 0 {
			fmt.Println("Transaction pool is empty")
			return
		}
		for _, tx := range pending {
			fmt.Print(tx.String())
		}
	}
}
