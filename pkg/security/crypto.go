package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
)

// Ciphertext format marker. Everything written today carries it; the bare
// base64 format produced by the first deployment is readable through exactly
// one legacy path until the re-encryption pass finishes.
const formatV1Prefix = "v1:"

var (
	ErrInvalidKeySize    = errors.New("encryption key must be 32 bytes")
	ErrCiphertextInvalid = errors.New("ciphertext is malformed or corrupted")
)

// Cipher encrypts and decrypts personal report fields with AES-256-GCM.
// It is built once at startup from the validated configuration key and
// shared read-only across requests.
type Cipher struct {
	aead cipher.AEAD
}

func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != 32 {
		return nil, ErrInvalidKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext with a fresh random nonce. The same input never
// yields the same output twice. Output: "v1:" + base64(nonce || ct || tag).
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce generation: %w", err)
	}
	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	payload := append(nonce, sealed...)
	return formatV1Prefix + base64.StdEncoding.EncodeToString(payload), nil
}

// Decrypt opens a ciphertext produced by Encrypt. Unversioned inputs fall
// back to the legacy reader. Any authentication or framing failure is a hard
// error; corrupted personal data must never pass as "not provided".
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	if !strings.HasPrefix(ciphertext, formatV1Prefix) {
		return c.decryptLegacy(ciphertext)
	}

	payload, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(ciphertext, formatV1Prefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCiphertextInvalid, err)
	}
	ns := c.aead.NonceSize()
	if len(payload) <= ns {
		return "", ErrCiphertextInvalid
	}
	pt, err := c.aead.Open(nil, payload[:ns], payload[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCiphertextInvalid, err)
	}
	return string(pt), nil
}

// decryptLegacy reads the first deployment's unversioned base64(nonce||ct)
// format. TODO: remove after the one-time re-encryption pass has rewritten
// all rows to the v1 format.
func (c *Cipher) decryptLegacy(ciphertext string) (string, error) {
	log.Printf("[WARN] legacy ciphertext format encountered; row pending re-encryption")

	payload, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCiphertextInvalid, err)
	}
	ns := c.aead.NonceSize()
	if len(payload) <= ns {
		return "", ErrCiphertextInvalid
	}
	pt, err := c.aead.Open(nil, payload[:ns], payload[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCiphertextInvalid, err)
	}
	return string(pt), nil
}
