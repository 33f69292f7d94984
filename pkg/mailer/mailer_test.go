package mailer

import (
	"errors"
	"net/smtp"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCodeShape(t *testing.T) {
	codeRe := regexp.MustCompile(`^[0-9]{6}$`)
	for i := 0; i < 1000; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		assert.Regexp(t, codeRe, code)
	}
}

func TestGenerateCodeVaries(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 150)
}

func newTestMailer(send func(string, smtp.Auth, string, []string, []byte) error) (*Mailer, *[]time.Duration) {
	m := New("smtp.example.com", "587", "user", "pass", "portal@example.com")
	var slept []time.Duration
	m.sleep = func(d time.Duration) { slept = append(slept, d) }
	m.send = send
	return m, &slept
}

func TestSend2FASucceedsFirstAttempt(t *testing.T) {
	var calls int
	m, slept := newTestMailer(func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		calls++
		assert.Equal(t, "smtp.example.com:587", addr)
		assert.Equal(t, []string{"admin@example.com"}, to)
		assert.Contains(t, string(msg), "123456")
		return nil
	})

	ok := m.Send2FA("admin@example.com", "123456")
	assert.True(t, ok)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *slept)
}

func TestSend2FARetriesWithBackoff(t *testing.T) {
	var calls int
	m, slept := newTestMailer(func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		calls++
		if calls < 3 {
			return errors.New("transient smtp failure")
		}
		return nil
	})

	ok := m.Send2FA("admin@example.com", "123456")
	assert.True(t, ok)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, *slept)
}

func TestSend2FAGivesUpAfterRetries(t *testing.T) {
	var calls int
	m, _ := newTestMailer(func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		calls++
		return errors.New("permanent smtp failure")
	})

	ok := m.Send2FA("admin@example.com", "123456")
	assert.False(t, ok)
	assert.Equal(t, 3, calls)
}

func TestSend2FARejectsBadInputsWithoutSending(t *testing.T) {
	var calls int
	m, _ := newTestMailer(func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		calls++
		return nil
	})

	assert.False(t, m.Send2FA("not-an-email", "123456"))
	assert.False(t, m.Send2FA("admin@example.com", "12345"))
	assert.False(t, m.Send2FA("admin@example.com", ""))
	assert.Equal(t, 0, calls)
}
