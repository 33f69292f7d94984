package intake

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFailureStatusCodes(t *testing.T) {
	cases := map[FailureKind]int{
		KindBadRequest:     http.StatusBadRequest,
		KindValidation:     http.StatusBadRequest,
		KindSecurityConfig: http.StatusServiceUnavailable,
		KindNotFound:       http.StatusNotFound,
		KindConflict:       http.StatusInternalServerError,
		KindPersistence:    http.StatusInternalServerError,
		KindDecryption:     http.StatusInternalServerError,
		KindInternal:       http.StatusInternalServerError,
	}
	for kind, want := range cases {
		f := &Failure{Kind: kind}
		assert.Equal(t, want, f.StatusCode(), "kind %d", kind)
	}
}

func TestFailureMessagesNeverLeakInternals(t *testing.T) {
	kinds := []FailureKind{
		KindBadRequest, KindValidation, KindSecurityConfig, KindNotFound,
		KindConflict, KindPersistence, KindDecryption, KindInternal,
	}
	seen := make(map[string]bool)
	for _, kind := range kinds {
		f := &Failure{Kind: kind}
		msg := f.Message()
		assert.NotEmpty(t, msg, "kind %d", kind)
		assert.False(t, seen[msg], "kind %d reuses message %q", kind, msg)
		seen[msg] = true
	}
}
