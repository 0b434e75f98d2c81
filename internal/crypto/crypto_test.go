package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeadingZeroHexDigits(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want int
	}{
		{name: "no zeros", in: "deadbeef", want: 0},
		{name: "two zeros", in: "00ab12", want: 2},
		{name: "all zeros", in: "0000", want: 4},
		{name: "zero after nonzero not counted", in: "a000", want: 0},
		{name: "empty string", in: "", want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, LeadingZeroHexDigits(tc.in))
		})
	}
}

func TestAddressRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)

	address := Address(key)
	hash, err := AddressToPubKeyHash(address)
	require.NoError(t, err)

	assert.Equal(t, PubKeyHash(PublicKeyBytes(key)), hash)
}

func TestAddressToPubKeyHashRejectsMalformedInput(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	address := Address(key)

	// Flip one character to break the checksum. '1' and '2' are both in the
	// Base58 alphabet so the string still decodes, but the checksum no
	// longer matches.
	tampered := []byte(address)
	if tampered[len(tampered)-1] == '2' {
		tampered[len(tampered)-1] = '3'
	} else {
		tampered[len(tampered)-1] = '2'
	}

	cases := []struct {
		name string
		in   string
	}{
		{name: "empty", in: ""},
		{name: "not base58", in: "0OIl"},
		{name: "too short", in: "1abc"},
		{name: "checksum mismatch", in: string(tampered)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := AddressToPubKeyHash(tc.in)
			assert.ErrorIs(t, err, ErrAddressDecode)
		})
	}
}

func TestSignAndVerify(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)

	message := []byte("transfer 10 coins")
	signature := Sign(key, message)
	pubKey := PublicKeyBytes(key)

	assert.True(t, Verify(pubKey, signature, message))

	t.Run("mutated message fails", func(t *testing.T) {
		mutated := append([]byte(nil), message...)
		mutated[0] ^= 0x01
		assert.False(t, Verify(pubKey, signature, mutated))
	})

	t.Run("mutated signature fails", func(t *testing.T) {
		mutated := append([]byte(nil), signature...)
		mutated[len(mutated)-1] ^= 0x01
		assert.False(t, Verify(pubKey, mutated, message))
	})

	t.Run("garbage public key fails", func(t *testing.T) {
		assert.False(t, Verify([]byte{0x04, 0x01}, signature, message))
	})

	t.Run("garbage signature fails", func(t *testing.T) {
		assert.False(t, Verify(pubKey, []byte{0x30, 0x00}, message))
	})
}

func TestPrivateKeyFromBytes(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)

	restored, err := PrivateKeyFromBytes(key.Serialize())
	require.NoError(t, err)
	assert.Equal(t, PublicKeyBytes(key), PublicKeyBytes(restored))

	_, err = PrivateKeyFromBytes([]byte{0x01, 0x02})
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)
}

func TestPubKeyHashIsDeterministic(t *testing.T) {
	pub, err := hex.DecodeString("04d2bb60cc37f89b5b07ea53724cd198acb5223b72ba98017278a428fdace203aedb21e038e8f7546a6d45e30737ad2d85236e187ee30f01bcb2aee6e94a3f143c")
	require.NoError(t, err)

	first := PubKeyHash(pub)
	second := PubKeyHash(pub)
	assert.Equal(t, first, second)

	sum := Sha256(pub)
	assert.Equal(t, Ripemd160(sum[:]), first)
}
