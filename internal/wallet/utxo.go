package wallet

import "github.com/minibit/minibit/internal/chain"

// UTXOProvider supplies the unspent outputs controlled by a public key hash.
// Maintaining the UTXO set is not the wallet's job; it consumes a snapshot
// from an injected provider.
type UTXOProvider interface {
	UnspentOutputs(pubKeyHash [20]byte) ([]chain.UTXO, error)
}

// StaticUTXOProvider returns a fixed set of outputs regardless of owner.
// It stands in until a real UTXO index exists.
type StaticUTXOProvider struct {
	Outputs []chain.UTXO
}

func (p *StaticUTXOProvider) UnspentOutputs(_ [20]byte) ([]chain.UTXO, error) {
	return append([]chain.UTXO(nil), p.Outputs...), nil
}

// DefaultUTXOProvider mirrors the fixture outputs the ledger bootstraps
// with: two unspent outputs worth 10 and 5 coins.
func DefaultUTXOProvider() *StaticUTXOProvider {
	return &StaticUTXOProvider{
		Outputs: []chain.UTXO{
			{Reference: [32]byte{0x01}, N: 123, Amount: 10.0},
			{Reference: [32]byte{0x02}, N: 123, Amount: 5.0},
		},
	}
}
