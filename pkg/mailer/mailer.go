package mailer

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net/smtp"
	"regexp"
	"time"
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// GenerateCode returns a crypto-random 6-digit 2FA code.
func GenerateCode() (string, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("code generation: %w", err)
	}
	n := binary.BigEndian.Uint32(buf[:])
	return fmt.Sprintf("%06d", 100000+(n%900000)), nil
}

// Mailer delivers 2FA codes over SMTP. Delivery is best-effort: the calling
// flow persists the code regardless and reports the send outcome separately.
type Mailer struct {
	host string
	port string
	user string
	pass string
	from string

	maxRetries int
	sleep      func(time.Duration)
	send       func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func New(host, port, user, pass, from string) *Mailer {
	return &Mailer{
		host:       host,
		port:       port,
		user:       user,
		pass:       pass,
		from:       from,
		maxRetries: 2,
		sleep:      time.Sleep,
		send:       smtp.SendMail,
	}
}

// Send2FA emails the code. Retries twice with a short exponential backoff
// since this is the one external call a security-critical flow depends on.
func (m *Mailer) Send2FA(email, code string) bool {
	if !emailRegex.MatchString(email) {
		return false
	}
	if len(code) != 6 {
		return false
	}

	msg := []byte("From: Corruption Reporting Portal <" + m.from + ">\r\n" +
		"To: " + email + "\r\n" +
		"Subject: Security code - confidential\r\n" +
		"\r\n" +
		"Your administrator security code: " + code + "\r\n" +
		"This code expires in 10 minutes. Never share it.\r\n")

	addr := m.host + ":" + m.port
	auth := smtp.PlainAuth("", m.user, m.pass, m.host)

	var err error
	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		if attempt > 0 {
			m.sleep(time.Duration(1<<(attempt-1)) * 2 * time.Second)
		}
		if err = m.send(addr, auth, m.from, []string{email}, msg); err == nil {
			return true
		}
	}
	return false
}
