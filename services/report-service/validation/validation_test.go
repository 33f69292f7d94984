package validation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPayload() map[string]interface{} {
	return map[string]interface{}{
		"corruptionType":  "pot_de_vin",
		"sector":          "public",
		"sectorName":      "Ministry of Public Works",
		"severity":        "eleve",
		"incidentDate":    "2026-03-15",
		"location":        "Yaounde",
		"description":     "An official demanded a payment before signing the permit.",
		"relationToFacts": "direct witness",
		"anonymity":       "partiel",
		"amountRange":     "100000_1000000",
		"reporterName":    "Jean Mballa",
		"reporterEmail":   "jean@example.com",
		"files": []map[string]interface{}{
			{"name": "receipt.pdf", "size": 20480, "type": "application/pdf"},
		},
	}
}

func marshal(t *testing.T, payload interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return raw
}

func TestValidateAcceptsCompleteSubmission(t *testing.T) {
	sub, violations, err := Validate(marshal(t, validPayload()))
	require.NoError(t, err)
	require.Empty(t, violations)
	require.NotNil(t, sub)

	assert.Equal(t, "pot_de_vin", sub.CorruptionType)
	assert.Equal(t, "partiel", sub.Anonymity)
	assert.Len(t, sub.Files, 1)
	assert.Equal(t, int64(20480), sub.Files[0].Size)
}

func TestValidateRejectsNonJSONBody(t *testing.T) {
	_, _, err := Validate([]byte("this is not json"))
	assert.ErrorIs(t, err, ErrMalformedBody)
}

func TestValidateReportsTypeMismatchAsViolation(t *testing.T) {
	payload := validPayload()
	payload["description"] = 12345

	_, violations, err := Validate(marshal(t, payload))
	require.NoError(t, err)
	require.NotEmpty(t, violations)
	assert.Contains(t, violations[0], "description")
}

func TestValidateRejectsUnknownAnonymityWord(t *testing.T) {
	payload := validPayload()
	payload["anonymity"] = "invalide"

	_, violations, err := Validate(marshal(t, payload))
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0], "anonymity")
	assert.Contains(t, violations[0], "must be one of")
}

func TestValidateRejectsMissingRequiredFields(t *testing.T) {
	payload := validPayload()
	delete(payload, "description")
	delete(payload, "location")

	_, violations, err := Validate(marshal(t, payload))
	require.NoError(t, err)
	assert.Len(t, violations, 2)
	joined := violations[0] + " " + violations[1]
	assert.Contains(t, joined, "description: required")
	assert.Contains(t, joined, "location: required")
}

func TestValidateRejectsShortDescription(t *testing.T) {
	payload := validPayload()
	payload["description"] = "too short"

	_, violations, err := Validate(marshal(t, payload))
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0], "description: too short")
}

func TestValidateRejectsScriptInjection(t *testing.T) {
	for _, text := range []string{
		"An official <script>alert(1)</script> demanded money repeatedly.",
		"Click javascript:steal() to see the evidence I collected here.",
		"Details in the file onload= attached to this honest report.",
	} {
		payload := validPayload()
		payload["description"] = text

		_, violations, err := Validate(marshal(t, payload))
		require.NoError(t, err)
		require.Len(t, violations, 1, "text %q", text)
		assert.Contains(t, violations[0], "description: suspicious content")
	}
}

func TestValidateRejectsMalformedFileEntry(t *testing.T) {
	payload := validPayload()
	payload["files"] = []map[string]interface{}{
		{"name": "receipt.pdf", "size": 20480, "type": "application/pdf"},
		{"name": "empty.bin", "size": 0, "type": "application/octet-stream"},
	}

	_, violations, err := Validate(marshal(t, payload))
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0], "files[1].size")
}

func TestValidateRejectsInvalidDate(t *testing.T) {
	for _, date := range []string{"15-03-2026", "2026-13-01", "2026-02-30", "yesterday"} {
		payload := validPayload()
		payload["incidentDate"] = date

		_, violations, err := Validate(marshal(t, payload))
		require.NoError(t, err)
		require.Len(t, violations, 1, "date %q", date)
		assert.Contains(t, violations[0], "incidentDate")
	}
}

func TestValidateTrimsWhitespace(t *testing.T) {
	payload := validPayload()
	payload["location"] = "  Yaounde  "

	sub, violations, err := Validate(marshal(t, payload))
	require.NoError(t, err)
	require.Empty(t, violations)
	assert.Equal(t, "Yaounde", sub.Location)
}

func TestValidateWhitespaceOnlyRequiredFieldFails(t *testing.T) {
	payload := validPayload()
	payload["location"] = "    "

	_, violations, err := Validate(marshal(t, payload))
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0], "location: required")
}

func TestValidateNormalizesNilFiles(t *testing.T) {
	payload := validPayload()
	delete(payload, "files")

	sub, violations, err := Validate(marshal(t, payload))
	require.NoError(t, err)
	require.Empty(t, violations)
	require.NotNil(t, sub.Files)
	assert.Empty(t, sub.Files)
}

func TestValidateRejectsBadReporterEmail(t *testing.T) {
	payload := validPayload()
	payload["reporterEmail"] = "not-an-email"

	_, violations, err := Validate(marshal(t, payload))
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0], "reporterEmail: invalid email format")
}

func TestValidTrackingCode(t *testing.T) {
	assert.True(t, ValidTrackingCode("A1B2C3D4"))
	assert.True(t, ValidTrackingCode("ZZZZZZZZ"))

	for _, code := range []string{"", "a1b2c3d4", "A1B2C3D", "A1B2C3D45", "A1B2C3D!", "A1B2 3D4"} {
		assert.False(t, ValidTrackingCode(code), "code %q", code)
	}
}
