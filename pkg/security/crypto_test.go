package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	c, err := NewCipher(testKey)
	require.NoError(t, err)
	return c
}

func TestNewCipherRejectsBadKeySizes(t *testing.T) {
	for _, size := range []int{0, 16, 24, 31, 33, 64} {
		_, err := NewCipher(make([]byte, size))
		assert.ErrorIs(t, err, ErrInvalidKeySize, "key size %d", size)
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c := newTestCipher(t)

	for _, plaintext := range []string{
		"Jean Mballa",
		"+237 699 000 000",
		"reporter@example.com",
		"accented: éàü, emoji: é",
	} {
		ct, err := c.Encrypt(plaintext)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(ct, "v1:"))

		pt, err := c.Decrypt(ct)
		require.NoError(t, err)
		assert.Equal(t, plaintext, pt)
	}
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	c := newTestCipher(t)

	first, err := c.Encrypt("same input")
	require.NoError(t, err)
	second, err := c.Encrypt("same input")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestDecryptLegacyUnversionedFormat(t *testing.T) {
	c := newTestCipher(t)

	// Build a ciphertext the way the first deployment wrote it: bare
	// base64(nonce || sealed), no version prefix.
	block, err := aes.NewCipher(testKey)
	require.NoError(t, err)
	aead, err := cipher.NewGCM(block)
	require.NoError(t, err)

	nonce := make([]byte, aead.NonceSize())
	_, err = rand.Read(nonce)
	require.NoError(t, err)
	sealed := aead.Seal(nil, nonce, []byte("legacy row"), nil)
	legacy := base64.StdEncoding.EncodeToString(append(nonce, sealed...))

	pt, err := c.Decrypt(legacy)
	require.NoError(t, err)
	assert.Equal(t, "legacy row", pt)
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	c := newTestCipher(t)

	ct, err := c.Encrypt("sensitive")
	require.NoError(t, err)

	payload, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(ct, "v1:"))
	require.NoError(t, err)
	payload[len(payload)-1] ^= 0x01
	tampered := "v1:" + base64.StdEncoding.EncodeToString(payload)

	_, err = c.Decrypt(tampered)
	assert.ErrorIs(t, err, ErrCiphertextInvalid)
}

func TestDecryptRejectsGarbage(t *testing.T) {
	c := newTestCipher(t)

	cases := []string{
		"v1:not-base64!!!",
		"v1:" + base64.StdEncoding.EncodeToString([]byte("short")),
		"v1:",
		base64.StdEncoding.EncodeToString([]byte("short")),
	}
	for _, ct := range cases {
		_, err := c.Decrypt(ct)
		assert.ErrorIs(t, err, ErrCiphertextInvalid, "input %q", ct)
	}
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	c := newTestCipher(t)
	other, err := NewCipher([]byte("ffffffffffffffffffffffffffffffff"))
	require.NoError(t, err)

	ct, err := c.Encrypt("cross-key")
	require.NoError(t, err)

	_, err = other.Decrypt(ct)
	assert.ErrorIs(t, err, ErrCiphertextInvalid)
}
