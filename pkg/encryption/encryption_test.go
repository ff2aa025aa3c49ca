package encryption

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func TestRoundTrip(t *testing.T) {
	c, err := New(testKey)
	require.NoError(t, err)

	plaintexts := []string{
		`{"access_token":"tok123"}`,
		"",
		"short",
		"payload with unicode: héllo wörld 🔑",
	}

	for _, plaintext := range plaintexts {
		sealed, err := c.Encrypt(plaintext)
		require.NoError(t, err)
		assert.NotEqual(t, plaintext, sealed)

		opened, err := c.Decrypt(sealed)
		require.NoError(t, err)
		assert.Equal(t, plaintext, opened)
	}
}

func TestNonceVariesPerCall(t *testing.T) {
	c, err := New(testKey)
	require.NoError(t, err)

	a, err := c.Encrypt("same input")
	require.NoError(t, err)

	b, err := c.Encrypt("same input")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestInvalidKey(t *testing.T) {
	for _, size := range []int{0, 16, 31, 33} {
		_, err := New(make([]byte, size))
		assert.ErrorIs(t, err, ErrInvalidKey)
	}
}

func TestDecryptRejectsBadInput(t *testing.T) {
	c, err := New(testKey)
	require.NoError(t, err)

	t.Run("not base64", func(t *testing.T) {
		_, err := c.Decrypt("%%% not base64 %%%")
		assert.Error(t, err)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := c.Decrypt("YWJj") // "abc", shorter than a nonce
		assert.Error(t, err)
	})

	t.Run("tampered ciphertext", func(t *testing.T) {
		sealed, err := c.Encrypt("secret")
		require.NoError(t, err)

		tampered := []byte(sealed)
		tampered[len(tampered)-5] ^= 'x'

		_, err = c.Decrypt(string(tampered))
		assert.Error(t, err)
	})

	t.Run("wrong key", func(t *testing.T) {
		other, err := New([]byte("ffffffffffffffffffffffffffffffff"))
		require.NoError(t, err)

		sealed, err := c.Encrypt("secret")
		require.NoError(t, err)

		_, err = other.Decrypt(sealed)
		assert.Error(t, err)
	})
}
