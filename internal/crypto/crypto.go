// Package crypto provides the hashing, key and address primitives used by the
// ledger: SHA-256 and RIPEMD-160 digests, secp256k1 ECDSA key generation and
// DER signatures, and Base58Check address encoding.
package crypto

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/pkg/errors"
	"golang.org/x/crypto/ripemd160"
)

const (
	// AddressVersion is the version byte prepended to a public key hash
	// before Base58Check encoding.
	AddressVersion byte = 0x00

	HashSize       = 32
	PubKeyHashSize = 20
	PrivateKeySize = 32
)

var (
	ErrAddressDecode     = errors.New("malformed address")
	ErrInvalidPrivateKey = errors.New("invalid private key")
)

// Sha256 returns the SHA-256 digest of data.
func Sha256(data []byte) [HashSize]byte {
	return sha256.Sum256(data)
}

// Ripemd160 returns the RIPEMD-160 digest of data.
func Ripemd160(data []byte) [PubKeyHashSize]byte {
	h := ripemd160.New()
	h.Write(data)

	var digest [PubKeyHashSize]byte
	copy(digest[:], h.Sum(nil))
	return digest
}

// LeadingZeroHexDigits counts the consecutive '0' characters at the start of
// s. It is the proof-of-work difficulty metric applied to hex-encoded hashes.
func LeadingZeroHexDigits(s string) int {
	count := 0
	for _, c := range s {
		if c != '0' {
			break
		}
		count++
	}
	return count
}

// GeneratePrivateKey returns a new random secp256k1 signing key.
func GeneratePrivateKey() (*btcec.PrivateKey, error) {
	key, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, errors.WithMessage(err, "failed to generate private key")
	}
	return key, nil
}

// PrivateKeyFromBytes rebuilds a signing key from its 32-byte scalar.
func PrivateKeyFromBytes(b []byte) (*btcec.PrivateKey, error) {
	if len(b) != PrivateKeySize {
		return nil, errors.WithMessagef(ErrInvalidPrivateKey, "got %d bytes, want %d", len(b), PrivateKeySize)
	}
	priv, _ := btcec.PrivKeyFromBytes(b)
	return priv, nil
}

// PublicKeyBytes returns the uncompressed SEC1 encoding of the public key
// derived from priv.
func PublicKeyBytes(priv *btcec.PrivateKey) []byte {
	return priv.PubKey().SerializeUncompressed()
}

// PubKeyHash returns RIPEMD160(SHA256(pubKey)), the identity embedded in
// addresses and transaction outputs.
func PubKeyHash(pubKey []byte) [PubKeyHashSize]byte {
	sum := Sha256(pubKey)
	return Ripemd160(sum[:])
}

// Address derives the Base58Check address of priv's public key. The encoded
// payload is the version byte followed by the public key hash, with a 4-byte
// double-SHA256 checksum appended.
func Address(priv *btcec.PrivateKey) string {
	hash := PubKeyHash(PublicKeyBytes(priv))
	return base58.CheckEncode(hash[:], AddressVersion)
}

// AddressToPubKeyHash decodes a Base58Check address back to its 20-byte
// public key hash. Checksum mismatches and payloads of the wrong length are
// rejected.
func AddressToPubKeyHash(address string) ([PubKeyHashSize]byte, error) {
	var hash [PubKeyHashSize]byte

	payload, _, err := base58.CheckDecode(address)
	if err != nil {
		return hash, errors.WithMessage(ErrAddressDecode, err.Error())
	}
	if len(payload) != PubKeyHashSize {
		return hash, errors.WithMessagef(ErrAddressDecode, "decoded payload is %d bytes, want %d", len(payload), PubKeyHashSize)
	}

	copy(hash[:], payload)
	return hash, nil
}

// Sign hashes message with SHA-256 and returns a DER-encoded ECDSA signature
// over the digest.
func Sign(priv *btcec.PrivateKey, message []byte) []byte {
	digest := Sha256(message)
	return btcecdsa.Sign(priv, digest[:]).Serialize()
}

// Verify reports whether derSignature is a valid signature over message by
// the holder of pubKey. Malformed keys or signatures verify as false rather
// than failing.
func Verify(pubKey, derSignature, message []byte) bool {
	parsedKey, err := btcec.ParsePubKey(pubKey)
	if err != nil {
		return false
	}

	sig, err := btcecdsa.ParseDERSignature(derSignature)
	if err != nil {
		return false
	}

	digest := Sha256(message)
	return sig.Verify(digest[:], parsedKey)
}
