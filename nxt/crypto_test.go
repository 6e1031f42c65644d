package nxt

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"nxt-tipbot/errors"
)

func Test_Address_Codec_Round_Trip(t *testing.T) {
	req := require.New(t)

	for _, id := range []uint64{0, 1, 42, 12345, 5873880488492319831, math.MaxUint64} {
		address := EncodeAddress(id)
		req.True(strings.HasPrefix(address, "NXT-"), "id %d: %s", id, address)
		req.Len(address, 24, "id %d: %s", id, address)

		decoded, err := DecodeAddress(address)
		req.NoError(err, "id %d: %s", id, address)
		req.Equal(id, decoded)
		req.True(ValidAddress(address))
	}
}

func Test_DecodeAddress_Tolerates_Case_And_Prefix(t *testing.T) {
	req := require.New(t)
	address := EncodeAddress(12345)

	decoded, err := DecodeAddress(strings.ToLower(address))
	req.NoError(err)
	req.Equal(uint64(12345), decoded)

	decoded, err = DecodeAddress(strings.TrimPrefix(address, "NXT-"))
	req.NoError(err)
	req.Equal(uint64(12345), decoded)
}

func Test_DecodeAddress_Detects_Corruption(t *testing.T) {
	req := require.New(t)
	address := EncodeAddress(12345)

	// Swap one symbol for a different alphabet symbol.
	index := len(address) - 1
	original := address[index]
	replacement := byte('2')
	if original == replacement {
		replacement = '3'
	}
	corrupted := address[:index] + string(replacement) + address[index+1:]

	_, err := DecodeAddress(corrupted)
	req.ErrorIs(err, errors.ErrInvalidAddress)
	req.False(ValidAddress(corrupted))
}

func Test_ValidAddress_Rejects_Garbage(t *testing.T) {
	req := require.New(t)

	for _, address := range []string{
		"",
		"hello",
		"NXT-1111-1111-1111-11111", // '1' is not in the alphabet
		"NXT-MRCC-2YLS",
	} {
		req.False(ValidAddress(address), "address %q", address)
	}
}

func Test_DerivePassphrase_Is_Deterministic_Per_User(t *testing.T) {
	req := require.New(t)

	first := DerivePassphrase("secret", "U1")
	req.Equal(first, DerivePassphrase("secret", "U1"))
	req.NotEqual(first, DerivePassphrase("secret", "U2"))
	req.NotEqual(first, DerivePassphrase("other", "U1"))
	req.Len(first, 64)
}

func Test_DeriveAccount(t *testing.T) {
	req := require.New(t)

	publicKey, address, err := DeriveAccount("correct horse battery staple")
	req.NoError(err)
	req.Len(publicKey, 64)
	req.True(ValidAddress(address))

	// Same passphrase, same account.
	publicKey2, address2, err := DeriveAccount("correct horse battery staple")
	req.NoError(err)
	req.Equal(publicKey, publicKey2)
	req.Equal(address, address2)

	_, address3, err := DeriveAccount("a different passphrase")
	req.NoError(err)
	req.NotEqual(address, address3)
}

func Test_GeneratePassphrase(t *testing.T) {
	req := require.New(t)

	first, err := GeneratePassphrase()
	req.NoError(err)
	req.Len(first, 64)

	second, err := GeneratePassphrase()
	req.NoError(err)
	req.NotEqual(first, second)
}
