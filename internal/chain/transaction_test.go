package chain

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTransaction() *Transaction {
	inputs := []TxIn{
		{N: 0, PrevUTXO: [32]byte{0x01}, PubKey: []byte{0x04, 0xaa}},
		{N: 1, PrevUTXO: [32]byte{0x02}, PubKey: []byte{0x04, 0xbb}},
	}
	outputs := []TxOut{
		{Amount: 10.0, Destination: [20]byte{0x03}},
		{Amount: 5.0, Destination: [20]byte{0x04}},
	}
	return NewTransaction(inputs, outputs)
}

func TestComputeHashIsDeterministic(t *testing.T) {
	tx := sampleTransaction()
	tx.ComputeHash()
	first := tx.Hash

	tx.ComputeHash()
	assert.Equal(t, first, tx.Hash, "recomputing over unchanged fields must not change the hash")

	other := sampleTransaction()
	other.ComputeHash()
	assert.Equal(t, first, other.Hash, "identical transactions must be equal by hash")
}

func TestComputeHashCoversSignature(t *testing.T) {
	tx := sampleTransaction()
	tx.ComputeHash()
	unsigned := tx.Hash

	tx.AttachSignature([]byte{0x30, 0x45, 0x02, 0x21})
	tx.ComputeHash()

	assert.NotEqual(t, unsigned, tx.Hash, "attaching a signature must change the content hash")
}

func TestSigningBytesExcludeSignature(t *testing.T) {
	tx := sampleTransaction()
	before := tx.SigningBytes()

	tx.AttachSignature([]byte{0x30, 0x45})
	after := tx.SigningBytes()

	require.True(t, bytes.Equal(before, after), "the signed digest must not depend on the signature field")
}

func TestHashChangesWithContent(t *testing.T) {
	tx := sampleTransaction()
	tx.ComputeHash()

	modified := sampleTransaction()
	modified.Outputs[0].Amount = 11.0
	modified.ComputeHash()

	assert.NotEqual(t, tx.Hash, modified.Hash)
}

func TestIsCoinbase(t *testing.T) {
	reward := NewTransaction(nil, []TxOut{{Amount: 50.0, Destination: [20]byte{0x01}}})
	assert.True(t, reward.IsCoinbase())

	spend := sampleTransaction()
	assert.False(t, spend.IsCoinbase())
}

func TestEmptyCollectionsPermitted(t *testing.T) {
	tx := NewTransaction(nil, nil)
	tx.ComputeHash()
	assert.NotEqual(t, [32]byte{}, tx.Hash)
}
