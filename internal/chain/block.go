package chain

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/minibit/minibit/internal/crypto"
)

// nonceBatchSize is how many nonce attempts run between cancellation checks
// and batch callbacks during the proof-of-work search.
const nonceBatchSize = 1024

// ZeroHash is the previous-block hash of the genesis block.
var ZeroHash [32]byte

// Block is a sealed batch of transactions chained to its parent by hash.
type Block struct {
	Index        uint32        `json:"index"`
	Hash         [32]byte      `json:"hash"`
	PrevHash     [32]byte      `json:"prev_hash"`
	MerkleRoot   [32]byte      `json:"merkle_root"`
	Timestamp    uint64        `json:"timestamp"`
	Nonce        uint32        `json:"nonce"`
	Transactions []Transaction `json:"transactions"`
}

// NewBlock returns an empty, unmined block.
func NewBlock() *Block {
	return &Block{}
}

// AddTransaction appends tx to the block. Only valid before mining starts.
func (b *Block) AddTransaction(tx Transaction) {
	b.Transactions = append(b.Transactions, tx)
}

// headerString is the canonical header concatenation the block hash covers:
// index, hex previous hash, timestamp, hex merkle root, nonce.
func (b *Block) headerString() string {
	var data strings.Builder

	data.WriteString(strconv.FormatUint(uint64(b.Index), 10))
	data.WriteString(hex.EncodeToString(b.PrevHash[:]))
	data.WriteString(strconv.FormatUint(b.Timestamp, 10))
	data.WriteString(hex.EncodeToString(b.MerkleRoot[:]))
	data.WriteString(strconv.FormatUint(uint64(b.Nonce), 10))

	return data.String()
}

// ComputeHash recalculates the header hash from the current field values.
func (b *Block) ComputeHash() {
	b.Hash = crypto.Sha256([]byte(b.headerString()))
}

// ComputeMerkleRoot digests the transaction set: SHA-256 over the
// concatenated transaction hashes in block order, or the zero hash for an
// empty block.
func (b *Block) ComputeMerkleRoot() {
	if len(b.Transactions) == 0 {
		b.MerkleRoot = ZeroHash
		return
	}

	concatenated := make([]byte, 0, len(b.Transactions)*crypto.HashSize)
	for _, tx := range b.Transactions {
		concatenated = append(concatenated, tx.Hash[:]...)
	}
	b.MerkleRoot = crypto.Sha256(concatenated)
}

// MeetsDifficulty reports whether the current hash has at least difficulty
// leading zero hex digits.
func (b *Block) MeetsDifficulty(difficulty int) bool {
	return crypto.LeadingZeroHexDigits(hex.EncodeToString(b.Hash[:])) >= difficulty
}

// Mine searches for the first nonce, starting at zero, whose header hash
// satisfies the difficulty. The search is unbounded and scales with
// 16^difficulty, so ctx is checked between nonce batches; onBatch, when
// non-nil, receives the number of attempts in each completed batch.
func (b *Block) Mine(ctx context.Context, difficulty int, onBatch func(attempts uint64)) error {
	b.Nonce = 0
	b.ComputeHash()

	attempts := uint64(1)
	for !b.MeetsDifficulty(difficulty) {
		if attempts >= nonceBatchSize {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("proof-of-work search aborted: %w", err)
			}
			if onBatch != nil {
				onBatch(attempts)
			}
			attempts = 0
		}

		b.Nonce++
		b.ComputeHash()
		attempts++
	}

	if onBatch != nil {
		onBatch(attempts)
	}
	return nil
}

// Encode returns the deterministic persisted encoding of the block.
func (b *Block) Encode() ([]byte, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("failed to encode block %d: %w", b.Index, err)
	}
	return data, nil
}

// DecodeBlock rebuilds a block from its persisted encoding.
func DecodeBlock(data []byte) (*Block, error) {
	var b Block
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to decode block: %w", err)
	}
	return &b, nil
}

func (b *Block) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Block %d\n", b.Index)
	fmt.Fprintf(&sb, "  hash: %x\n", b.Hash)
	fmt.Fprintf(&sb, "  prev_hash: %x\n", b.PrevHash)
	fmt.Fprintf(&sb, "  merkle_root: %x\n", b.MerkleRoot)
	fmt.Fprintf(&sb, "  timestamp: %d\n", b.Timestamp)
	fmt.Fprintf(&sb, "  nonce: %d\n", b.Nonce)
	fmt.Fprintf(&sb, "  transactions: %d\n", len(b.Transactions))
	for _, tx := range b.Transactions {
		sb.WriteString(tx.String())
	}

	return sb.String()
}
