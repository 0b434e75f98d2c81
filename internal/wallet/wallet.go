// Package wallet manages the owned signing keys and builds signed spend
// transactions against externally supplied unspent outputs.
package wallet

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/pkg/errors"

	"github.com/minibit/minibit/internal/chain"
	"github.com/minibit/minibit/internal/crypto"
	"github.com/minibit/minibit/internal/ledger"
)

var (
	// ErrInsufficientFunds is returned when the available outputs do not
	// strictly exceed the requested amount. Equality is not spendable:
	// the change output must be non-zero.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrSelfVerification is returned when a freshly produced signature
	// fails verification against the signer's own public key.
	ErrSelfVerification = errors.New("signature failed self-verification")

	ErrIndexOutOfRange = errors.New("key index out of range")
)

// Submitter hands a finished transaction to the mining pool. The wallet gets
// this capability instead of a store writer.
type Submitter interface {
	Submit(tx chain.Transaction) bool
}

// Wallet holds the private keys loaded from the key file and a read-only
// view of the chain. One key, the current one, signs everything.
type Wallet struct {
	keys    []*btcec.PrivateKey
	current int
	file    *keyFile
	chain   ledger.Reader
	utxos   UTXOProvider
	submit  Submitter
}

// New opens the key file at path and loads every key in it. An empty file
// triggers generation of exactly one new key, which is appended before New
// returns.
func New(reader ledger.Reader, provider UTXOProvider, submitter Submitter, path string) (*Wallet, error) {
	file, err := openKeyFile(path)
	if err != nil {
		return nil, err
	}

	w := &Wallet{
		file:   file,
		chain:  reader,
		utxos:  provider,
		submit: submitter,
	}

	if err := w.loadKeys(); err != nil {
		file.close()
		return nil, err
	}

	if len(w.keys) == 0 {
		if _, err := w.NewPrivateKey(); err != nil {
			file.close()
			return nil, err
		}
	}

	return w, nil
}

// SetSubmitter wires the pool capability. The wallet and the miner are
// constructed in that order, so the submitter arrives after New.
func (w *Wallet) SetSubmitter(s Submitter) {
	w.submit = s
}

// Close releases the key file handle.
func (w *Wallet) Close() error {
	return w.file.close()
}

func (w *Wallet) loadKeys() error {
	raws, err := w.file.load()
	if err != nil {
		return err
	}

	known := make(map[[crypto.PrivateKeySize]byte]struct{}, len(raws))
	for _, raw := range raws {
		var scalar [crypto.PrivateKeySize]byte
		copy(scalar[:], raw)
		if _, ok := known[scalar]; ok {
			continue
		}
		known[scalar] = struct{}{}

		key, err := crypto.PrivateKeyFromBytes(raw)
		if err != nil {
			return err
		}
		w.keys = append(w.keys, key)
	}

	return nil
}

// NewPrivateKey generates a key, appends it to the key file and returns its
// address.
func (w *Wallet) NewPrivateKey() (string, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return "", err
	}
	if err := w.file.append(key.Serialize()); err != nil {
		return "", err
	}

	w.keys = append(w.keys, key)
	return crypto.Address(key), nil
}

// Address returns the Base58Check address of the key at index.
func (w *Wallet) Address(index int) (string, error) {
	if index < 0 || index >= len(w.keys) {
		return "", errors.WithMessagef(ErrIndexOutOfRange, "index %d, %d keys", index, len(w.keys))
	}
	return crypto.Address(w.keys[index]), nil
}

// CurrentAddress returns the address of the signing key in use.
func (w *Wallet) CurrentAddress() (string, error) {
	return w.Address(w.current)
}

// PubKeyHash returns the public key hash of the signing key in use.
func (w *Wallet) PubKeyHash() ([20]byte, error) {
	if w.current >= len(w.keys) {
		return [20]byte{}, ErrIndexOutOfRange
	}
	return crypto.PubKeyHash(crypto.PublicKeyBytes(w.keys[w.current])), nil
}

// UnspentOutputs fetches the snapshot of outputs spendable by the current
// key from the injected provider.
func (w *Wallet) UnspentOutputs() ([]chain.UTXO, error) {
	hash, err := w.PubKeyHash()
	if err != nil {
		return nil, err
	}

	outputs, err := w.utxos.UnspentOutputs(hash)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unspent outputs: %w", err)
	}
	return outputs, nil
}

// Spend builds an unsigned transaction paying amount to destination,
// selecting from available in order until the selection strictly exceeds
// amount. One change output returns the remainder to the wallet's own
// public key hash.
func (w *Wallet) Spend(amount float32, destination string, available []chain.UTXO) (*chain.Transaction, error) {
	destHash, err := crypto.AddressToPubKeyHash(destination)
	if err != nil {
		return nil, err
	}

	ownHash, err := w.PubKeyHash()
	if err != nil {
		return nil, err
	}
	pubKey := crypto.PublicKeyBytes(w.keys[w.current])

	var inputs []chain.TxIn
	var total float32
	for _, utxo := range available {
		if total > amount {
			break
		}
		inputs = append(inputs, chain.TxIn{
			N:        utxo.N,
			PrevUTXO: utxo.Reference,
			PubKey:   pubKey,
		})
		total += utxo.Amount
	}

	if total <= amount {
		return nil, errors.WithMessagef(ErrInsufficientFunds, "have %s, want more than %s",
			formatAmount(total), formatAmount(amount))
	}

	outputs := []chain.TxOut{
		{Amount: amount, Destination: destHash},
		{Amount: total - amount, Destination: ownHash},
	}

	return chain.NewTransaction(inputs, outputs), nil
}

// SignTransaction signs the canonical unsigned encoding with the current
// key, re-verifies the signature against the signer's own public key and
// only then attaches it.
func (w *Wallet) SignTransaction(tx *chain.Transaction) error {
	if w.current >= len(w.keys) {
		return ErrIndexOutOfRange
	}
	key := w.keys[w.current]

	message := tx.SigningBytes()
	signature := crypto.Sign(key, message)

	if !crypto.Verify(crypto.PublicKeyBytes(key), signature, message) {
		return ErrSelfVerification
	}

	tx.AttachSignature(signature)
	return nil
}

func formatAmount(amount float32) string {
	return fmt.Sprintf("%g", amount)
}
