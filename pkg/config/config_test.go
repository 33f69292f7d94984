package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		EncryptionKey: []byte("0123456789abcdef0123456789abcdef"),
		JWTSecret:     []byte(strings.Repeat("s", 48)),
	}
}

func TestValidateAcceptsProperSecrets(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateRejectsMissingEncryptionKey(t *testing.T) {
	cfg := validConfig()
	cfg.EncryptionKey = nil
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ENCRYPTION_KEY")
}

func TestValidateRejectsWrongKeyLength(t *testing.T) {
	for _, size := range []int{1, 16, 31, 33, 64} {
		cfg := validConfig()
		cfg.EncryptionKey = []byte(strings.Repeat("k", size))
		err := cfg.Validate()
		require.Error(t, err, "size %d", size)
		assert.Contains(t, err.Error(), "32 bytes")
	}
}

func TestValidateRejectsPlaceholderEncryptionKey(t *testing.T) {
	cfg := validConfig()
	cfg.EncryptionKey = []byte(placeholderEncryptionKey)
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "placeholder")
}

func TestValidateRejectsShortJWTSecret(t *testing.T) {
	cfg := validConfig()
	cfg.JWTSecret = []byte("short")
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestValidateRejectsPlaceholderJWTSecret(t *testing.T) {
	cfg := validConfig()
	cfg.JWTSecret = []byte(placeholderJWTSecret)
	err := cfg.Validate()
	require.Error(t, err)
}

func TestValidateRejectsMissingJWTSecret(t *testing.T) {
	cfg := validConfig()
	cfg.JWTSecret = nil
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET is not set")
}
