package utils

import (
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	reportIDRe     = regexp.MustCompile(`^TCHREP-\d{4}-\d{6}$`)
	trackingCodeRe = regexp.MustCompile(`^[A-Z0-9]{8}$`)
)

func TestGenerateReportIDFormat(t *testing.T) {
	id := GenerateReportID()
	assert.Regexp(t, reportIDRe, id)
	assert.Contains(t, id, fmt.Sprintf("-%d-", time.Now().Year()))
}

func TestGenerateTrackingCodeShapeAndSpread(t *testing.T) {
	seen := make(map[string]bool, 10000)
	for i := 0; i < 10000; i++ {
		code, err := GenerateTrackingCode()
		require.NoError(t, err)
		require.Regexp(t, trackingCodeRe, code)
		require.False(t, seen[code], "duplicate code %q after %d draws", code, i)
		seen[code] = true
	}
}

func TestGenerateTrackingCodeUsesWholeAlphabet(t *testing.T) {
	// 2000 draws of 8 characters make a missing alphabet symbol
	// vanishingly unlikely unless generation is biased.
	counts := make(map[byte]int)
	for i := 0; i < 2000; i++ {
		code, err := GenerateTrackingCode()
		require.NoError(t, err)
		for j := 0; j < len(code); j++ {
			counts[code[j]]++
		}
	}
	assert.Len(t, counts, 36)
}
