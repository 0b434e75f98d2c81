// Package chain holds the ledger data model: transactions, blocks and the
// proof-of-work search that seals a block.
package chain

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/minibit/minibit/internal/crypto"
)

// TxIn references an unspent output of an earlier transaction.
type TxIn struct {
	N        uint     `json:"n"`
	PrevUTXO [32]byte `json:"prev_utxo"`
	PubKey   []byte   `json:"public_key"`
}

// TxOut transfers an amount to the holder of a public key hash.
type TxOut struct {
	Amount      float32  `json:"amount"`
	Destination [20]byte `json:"destination"`
}

// UTXO is an unspent transaction output as reported by an external provider.
// The ledger core consumes this view; it does not maintain the set itself.
type UTXO struct {
	Reference [32]byte
	N         uint
	Amount    float32
}

// Transaction moves value between public key hashes. A transaction with no
// inputs is a coinbase transaction paying the miner's block reward.
type Transaction struct {
	Hash      [32]byte `json:"hash"`
	Signature []byte   `json:"signature"`
	Inputs    []TxIn   `json:"inputs"`
	Outputs   []TxOut  `json:"outputs"`
}

// NewTransaction builds an unsigned transaction. Empty input and output
// slices are permitted; no inputs denotes a coinbase transaction.
func NewTransaction(inputs []TxIn, outputs []TxOut) *Transaction {
	return &Transaction{Inputs: inputs, Outputs: outputs}
}

// IsCoinbase reports whether the transaction is a miner reward, i.e. it
// spends no previous outputs.
func (t *Transaction) IsCoinbase() bool {
	return len(t.Inputs) == 0
}

// SigningBytes returns the canonical unsigned encoding, the exact byte
// sequence covered by the transaction signature.
func (t *Transaction) SigningBytes() []byte {
	return t.canonicalBytes(false)
}

// ComputeHash recalculates the content hash over the canonical encoding
// including the signature. It is idempotent for unchanged fields.
func (t *Transaction) ComputeHash() {
	t.Hash = crypto.Sha256(t.canonicalBytes(true))
}

// AttachSignature overwrites the transaction signature. The content hash is
// stale until ComputeHash is called again.
func (t *Transaction) AttachSignature(signature []byte) {
	t.Signature = signature
}

// canonicalBytes concatenates the signature (when included), the input and
// output counts, and the aggregated input and output digests. Field order is
// fixed; any change breaks stored hashes.
func (t *Transaction) canonicalBytes(withSignature bool) []byte {
	var data strings.Builder

	if withSignature {
		data.WriteString(hex.EncodeToString(t.Signature))
	}

	data.WriteString(strconv.Itoa(len(t.Inputs)))
	data.WriteString(strconv.Itoa(len(t.Outputs)))

	inputsHash := t.inputsHash()
	outputsHash := t.outputsHash()
	data.WriteString(hex.EncodeToString(inputsHash[:]))
	data.WriteString(hex.EncodeToString(outputsHash[:]))

	return []byte(data.String())
}

// inputsHash digests every input individually, then digests the hex
// concatenation of the per-input digests.
func (t *Transaction) inputsHash() [32]byte {
	var concatenated strings.Builder
	for _, in := range t.Inputs {
		entry := strconv.FormatUint(uint64(in.N), 10) +
			hex.EncodeToString(in.PrevUTXO[:]) +
			hex.EncodeToString(in.PubKey)
		sum := crypto.Sha256([]byte(entry))
		concatenated.WriteString(hex.EncodeToString(sum[:]))
	}
	return crypto.Sha256([]byte(concatenated.String()))
}

func (t *Transaction) outputsHash() [32]byte {
	var concatenated strings.Builder
	for _, out := range t.Outputs {
		entry := formatAmount(out.Amount) + hex.EncodeToString(out.Destination[:])
		sum := crypto.Sha256([]byte(entry))
		concatenated.WriteString(hex.EncodeToString(sum[:]))
	}
	return crypto.Sha256([]byte(concatenated.String()))
}

// formatAmount renders an amount with the shortest decimal representation
// that round-trips a float32. Used only inside canonical encodings.
func formatAmount(amount float32) string {
	return strconv.FormatFloat(float64(amount), 'g', -1, 32)
}

func (t *Transaction) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Transaction %x\n", t.Hash)
	fmt.Fprintf(&sb, "  signature: %x\n", t.Signature)
	sb.WriteString("  inputs:\n")
	for _, in := range t.Inputs {
		fmt.Fprintf(&sb, "    n: %d prev_utxo: %x public_key: %x\n", in.N, in.PrevUTXO, in.PubKey)
	}
	sb.WriteString("  outputs:\n")
	for _, out := range t.Outputs {
		fmt.Fprintf(&sb, "    amount: %s destination: %x\n", formatAmount(out.Amount), out.Destination)
	}

	return sb.String()
}

func (u UTXO) String() string {
	return fmt.Sprintf("UTXO reference: %x n: %d amount: %s", u.Reference, u.N, formatAmount(u.Amount))
}
