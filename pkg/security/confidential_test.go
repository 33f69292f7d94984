package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProtectSkipsAbsentFields(t *testing.T) {
	c := newTestCipher(t)

	enc, err := c.Protect(PersonalFields{Name: "Jean Mballa"})
	require.NoError(t, err)

	require.NotNil(t, enc.Name)
	assert.Nil(t, enc.Phone)
	assert.Nil(t, enc.Email)

	pt, err := c.Decrypt(*enc.Name)
	require.NoError(t, err)
	assert.Equal(t, "Jean Mballa", pt)
}

func TestProjectAnonymousRedactsForEveryRole(t *testing.T) {
	c := newTestCipher(t)

	// Encrypted fields exist, simulating an accidental capture. They must
	// not be readable under an anonymous report.
	enc, err := c.Protect(PersonalFields{
		Name:  "Jean Mballa",
		Phone: "+237 699 000 000",
		Email: "jean@example.com",
	})
	require.NoError(t, err)

	for _, role := range []CallerRole{RolePublic, RoleAdmin} {
		id, err := c.Project(LevelAnonymous, role, enc)
		require.NoError(t, err)
		assert.Equal(t, PlaceholderName, id.Name, "role %s", role)
		assert.Equal(t, PlaceholderContact, id.Phone, "role %s", role)
		assert.Equal(t, PlaceholderContact, id.Email, "role %s", role)
	}
}

func TestProjectAdminDecryptsConfidentialReport(t *testing.T) {
	c := newTestCipher(t)

	enc, err := c.Protect(PersonalFields{
		Name:  "Jean Mballa",
		Email: "jean@example.com",
	})
	require.NoError(t, err)

	id, err := c.Project(LevelConfidential, RoleAdmin, enc)
	require.NoError(t, err)
	assert.Equal(t, "Jean Mballa", id.Name)
	assert.Equal(t, PlaceholderContact, id.Phone)
	assert.Equal(t, "jean@example.com", id.Email)
}

func TestProjectPublicCallerOnNonAnonymousIsAnError(t *testing.T) {
	c := newTestCipher(t)

	for _, level := range []AnonymityLevel{LevelConfidential, LevelPublic} {
		_, err := c.Project(level, RolePublic, EncryptedFields{})
		assert.ErrorIs(t, err, ErrPublicProjection, "level %s", level)
	}
}

func TestProjectDecryptionFailurePropagates(t *testing.T) {
	c := newTestCipher(t)

	corrupt := "v1:AAAA"
	_, err := c.Project(LevelConfidential, RoleAdmin, EncryptedFields{Name: &corrupt})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCiphertextInvalid)
}

func TestProjectAllFieldsAbsent(t *testing.T) {
	c := newTestCipher(t)

	id, err := c.Project(LevelPublic, RoleAdmin, EncryptedFields{})
	require.NoError(t, err)
	assert.Equal(t, PlaceholderContact, id.Name)
	assert.Equal(t, PlaceholderContact, id.Phone)
	assert.Equal(t, PlaceholderContact, id.Email)
}
