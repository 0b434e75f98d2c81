package miner

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minibit/minibit/internal/chain"
	"github.com/minibit/minibit/internal/crypto"
	"github.com/minibit/minibit/internal/ledger"
)

func newTestMiner(t *testing.T, difficulty int) (*Miner, *ledger.Store) {
	t.Helper()

	store, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)

	m, err := New(store, crypto.Address(key), Config{Difficulty: difficulty, Reward: 50.0}, nil)
	require.NoError(t, err)
	return m, store
}

func pendingTransaction(t *testing.T, seed byte) chain.Transaction {
	t.Helper()

	tx := chain.NewTransaction(
		[]chain.TxIn{{N: 0, PrevUTXO: [32]byte{seed}, PubKey: []byte{0x04, seed}}},
		[]chain.TxOut{{Amount: 10.0, Destination: [20]byte{seed}}},
	)
	tx.ComputeHash()
	return *tx
}

func TestNewRejectsInvalidAddress(t *testing.T) {
	store, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer store.Close()

	_, err = New(store, "not-an-address", Config{}, nil)
	assert.ErrorIs(t, err, crypto.ErrAddressDecode)
}

func TestMineNextBlockEstablishesGenesis(t *testing.T) {
	m, store := newTestMiner(t, 0)

	hash, err := m.MineNextBlock(context.Background())
	require.NoError(t, err)

	genesis, err := store.GetBlock(hash)
	require.NoError(t, err)
	require.NotNil(t, genesis)

	assert.Equal(t, uint32(0), genesis.Index)
	assert.Equal(t, chain.ZeroHash, genesis.PrevHash)
	require.Len(t, genesis.Transactions, 1, "genesis must hold exactly the reward transaction")
	assert.True(t, genesis.Transactions[0].IsCoinbase())
	assert.Equal(t, float32(50.0), genesis.Transactions[0].Outputs[0].Amount)
}

func TestMiningExtendsChain(t *testing.T) {
	m, store := newTestMiner(t, 1)

	first, err := m.MineNextBlock(context.Background())
	require.NoError(t, err)

	second, err := m.MineNextBlock(context.Background())
	require.NoError(t, err)

	block, err := store.GetBlock(second)
	require.NoError(t, err)
	require.NotNil(t, block)

	assert.Equal(t, uint32(1), block.Index)
	assert.Equal(t, first, block.PrevHash)

	tip, err := store.GetLastBlock()
	require.NoError(t, err)
	require.NotNil(t, tip)
	assert.Equal(t, second, tip.Hash)
}

func TestMiningClearsCommittedPoolEntries(t *testing.T) {
	m, store := newTestMiner(t, 0)

	tx1 := pendingTransaction(t, 0x01)
	tx2 := pendingTransaction(t, 0x02)
	require.True(t, m.Submit(tx1))
	require.True(t, m.Submit(tx2))
	require.Equal(t, 2, m.PoolSize())

	hash, err := m.MineNextBlock(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, m.PoolSize())

	block, err := store.GetBlock(hash)
	require.NoError(t, err)
	require.NotNil(t, block)
	require.Len(t, block.Transactions, 3)
	assert.Equal(t, tx1.Hash, block.Transactions[0].Hash)
	assert.Equal(t, tx2.Hash, block.Transactions[1].Hash)
	assert.True(t, block.Transactions[2].IsCoinbase())
}

func TestSubmitRejectsDuplicatesByHash(t *testing.T) {
	m, _ := newTestMiner(t, 0)

	tx := pendingTransaction(t, 0x03)
	assert.True(t, m.Submit(tx))
	assert.False(t, m.Submit(tx))
	assert.Equal(t, 1, m.PoolSize())
}

func TestSubmitHonorsValidateFunc(t *testing.T) {
	m, _ := newTestMiner(t, 0)
	m.SetValidateFunc(func(tx *chain.Transaction) bool {
		return !tx.IsCoinbase()
	})

	coinbase := chain.NewTransaction(nil, []chain.TxOut{{Amount: 1.0, Destination: [20]byte{0x01}}})
	coinbase.ComputeHash()

	assert.False(t, m.Submit(*coinbase))
	assert.True(t, m.Submit(pendingTransaction(t, 0x04)))
}

func TestClockFailureAbortsWithoutTouchingPool(t *testing.T) {
	m, _ := newTestMiner(t, 0)
	m.SetClock(func() time.Time { return time.Time{} })

	require.True(t, m.Submit(pendingTransaction(t, 0x05)))

	_, err := m.MineNextBlock(context.Background())
	assert.ErrorIs(t, err, ErrClockUnavailable)
	assert.Equal(t, 1, m.PoolSize(), "a failed attempt must leave the pool untouched")
}

func TestUnreadableStoreSurfacesAsNoTip(t *testing.T) {
	m, store := newTestMiner(t, 0)
	require.NoError(t, store.Close())

	_, err := m.MineNextBlock(context.Background())
	assert.ErrorIs(t, err, ErrNoTip)
}

func TestMineNextBlockIsCancellable(t *testing.T) {
	m, _ := newTestMiner(t, 16)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.MineNextBlock(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, m.PoolSize())
}
