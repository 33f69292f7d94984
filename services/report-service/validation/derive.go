package validation

import (
	"fmt"

	"corruption-reporting-portal/pkg/middleware"
	"corruption-reporting-portal/pkg/security"
)

// Bracket midpoints in FCFA. The submitter picks a bracket; the stored
// amount is always one of these representative values, never free text.
var amountBrackets = map[string]int64{
	"moins_100000":       50000,
	"100000_1000000":     500000,
	"1000000_10000000":   5000000,
	"10000000_100000000": 50000000,
	"plus_100000000":     200000000,
}

// DeriveAmount maps a bracket token to its representative value. Unknown
// tokens map to nil: zero would be indistinguishable from a confirmed zero
// loss.
func DeriveAmount(bracket string) *int64 {
	if v, ok := amountBrackets[bracket]; ok {
		return &v
	}
	return nil
}

var severityWords = map[string]string{
	"faible":   "low",
	"moyen":    "medium",
	"eleve":    "high",
	"critique": "critical",
}

// DeriveSeverity maps the submitter's urgency word to the canonical enum.
// Severity is a cosmetic classification: an unmapped word passes through
// unchanged and is logged as a data-quality signal, so a vocabulary gap
// never blocks a citizen's report.
func DeriveSeverity(word string) string {
	if mapped, ok := severityWords[word]; ok {
		return mapped
	}
	middleware.LogWarn("", fmt.Sprintf("unmapped severity word %q stored as-is", word))
	return word
}

var anonymityWords = map[string]security.AnonymityLevel{
	"total":   security.LevelAnonymous,
	"partiel": security.LevelConfidential,
	"aucun":   security.LevelPublic,
}

// DeriveAnonymity maps the submitter's anonymity word to the level that
// will govern every future read of the personal fields. Unlike severity
// this mapping is security-relevant and total by contract: validation has
// already rejected anything outside the three recognized tokens, so an
// unmapped word here is a programming error.
func DeriveAnonymity(word string) (security.AnonymityLevel, error) {
	level, ok := anonymityWords[word]
	if !ok {
		return "", fmt.Errorf("unvalidated anonymity word %q reached derivation", word)
	}
	return level, nil
}
