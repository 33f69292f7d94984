package intake

import "net/http"

// FailureKind enumerates the absorbing failure states of the intake state
// machine. Each kind maps deterministically to one HTTP status and one
// fixed, non-leaking caller message.
type FailureKind int

const (
	KindBadRequest FailureKind = iota
	KindValidation
	KindSecurityConfig
	KindNotFound
	KindConflict
	KindPersistence
	KindDecryption
	KindInternal
)

// Failure is the structured outcome of any failed stage. Details are only
// populated for validation failures, where they describe the caller's own
// input and are safe to return verbatim.
type Failure struct {
	Kind    FailureKind
	Details []string
}

func (f *Failure) StatusCode() int {
	switch f.Kind {
	case KindBadRequest, KindValidation:
		return http.StatusBadRequest
	case KindSecurityConfig:
		return http.StatusServiceUnavailable
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Message is the caller-facing text. Internal detail goes to the operator
// log, never here.
func (f *Failure) Message() string {
	switch f.Kind {
	case KindBadRequest:
		return "Invalid request payload"
	case KindValidation:
		return "Invalid submission data"
	case KindSecurityConfig:
		return "Security configuration required"
	case KindNotFound:
		return "Report not found"
	case KindConflict:
		return "Could not allocate a tracking code"
	case KindPersistence:
		return "Failed to save the report"
	case KindDecryption:
		return "Failed to read protected report data"
	default:
		return "Unexpected server error"
	}
}
