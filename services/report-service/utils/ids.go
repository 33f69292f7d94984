package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const trackingAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateReportID returns a human-traceable case label: fixed prefix,
// current year, time-derived suffix. Uniqueness is backstopped by the
// primary key, not by this generator.
func GenerateReportID() string {
	now := time.Now()
	return fmt.Sprintf("TCHREP-%d-%06d", now.Year(), now.UnixMilli()%1000000)
}

// GenerateTrackingCode returns 8 characters drawn uniformly from [A-Z0-9],
// the only credential an anonymous submitter retains. About 41 bits of
// entropy: enough to resist casual guessing of the lookup endpoint, not a
// cryptographic secret. The database unique index is the collision
// backstop.
func GenerateTrackingCode() (string, error) {
	max := big.NewInt(int64(len(trackingAlphabet)))
	code := make([]byte, 8)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("tracking code generation: %w", err)
		}
		code[i] = trackingAlphabet[n.Int64()]
	}
	return string(code), nil
}
