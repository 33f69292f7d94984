package security

import (
	"errors"
	"fmt"
)

// AnonymityLevel is fixed at submission time and governs every later read of
// the reporter's personal fields. It never changes after creation.
type AnonymityLevel string

const (
	LevelAnonymous    AnonymityLevel = "anonymous"
	LevelConfidential AnonymityLevel = "confidential"
	LevelPublic       AnonymityLevel = "public"
)

// CallerRole identifies who is asking for a projection of a report.
type CallerRole string

const (
	RolePublic CallerRole = "public"
	RoleAdmin  CallerRole = "admin"
)

// Fixed placeholders. The admin UI relies on "Not provided" to tell an
// uncaptured field apart from a decryption failure, which is a hard error.
const (
	PlaceholderName    = "Anonymous"
	PlaceholderContact = "Not provided"
)

// ErrPublicProjection marks a code path that should be unreachable: public
// callers only ever see the anonymous redaction or the tracking view.
var ErrPublicProjection = errors.New("public caller may not project reporter identity")

// PersonalFields is the plaintext reporter contact info, straight out of a
// validated submission. Empty strings mean the field was not supplied.
type PersonalFields struct {
	Name  string
	Phone string
	Email string
}

// EncryptedFields is the at-rest form. Nil means the plaintext was absent;
// an "encrypted empty string" is never produced.
type EncryptedFields struct {
	Name  *string
	Phone *string
	Email *string
}

// ReporterIdentity is the projected, display-ready view of the reporter.
type ReporterIdentity struct {
	Name  string `json:"reporter_name"`
	Phone string `json:"reporter_phone"`
	Email string `json:"reporter_email"`
}

// Protect selectively encrypts the personal fields that are present. The
// anonymity level does not gate capture here; redaction is enforced on every
// read by Project, so an accidentally captured field under an anonymous
// report can never leak.
func (c *Cipher) Protect(fields PersonalFields) (EncryptedFields, error) {
	var enc EncryptedFields
	var err error
	if enc.Name, err = c.sealField(fields.Name); err != nil {
		return EncryptedFields{}, fmt.Errorf("reporter name: %w", err)
	}
	if enc.Phone, err = c.sealField(fields.Phone); err != nil {
		return EncryptedFields{}, fmt.Errorf("reporter phone: %w", err)
	}
	if enc.Email, err = c.sealField(fields.Email); err != nil {
		return EncryptedFields{}, fmt.Errorf("reporter email: %w", err)
	}
	return enc, nil
}

func (c *Cipher) sealField(plaintext string) (*string, error) {
	if plaintext == "" {
		return nil, nil
	}
	ct, err := c.Encrypt(plaintext)
	if err != nil {
		return nil, err
	}
	return &ct, nil
}

// Project returns the view of the reporter the caller is entitled to.
//
// Anonymous reports redact unconditionally, for every role, even when
// encrypted fields happen to exist. Non-anonymous reports decrypt for admins
// only; a public caller reaching this path is a programming error surfaced
// as ErrPublicProjection, never handled by silently redacting.
func (c *Cipher) Project(level AnonymityLevel, role CallerRole, enc EncryptedFields) (ReporterIdentity, error) {
	if level == LevelAnonymous {
		return ReporterIdentity{
			Name:  PlaceholderName,
			Phone: PlaceholderContact,
			Email: PlaceholderContact,
		}, nil
	}

	if role != RoleAdmin {
		return ReporterIdentity{}, ErrPublicProjection
	}

	var id ReporterIdentity
	var err error
	if id.Name, err = c.openField(enc.Name); err != nil {
		return ReporterIdentity{}, fmt.Errorf("reporter name: %w", err)
	}
	if id.Phone, err = c.openField(enc.Phone); err != nil {
		return ReporterIdentity{}, fmt.Errorf("reporter phone: %w", err)
	}
	if id.Email, err = c.openField(enc.Email); err != nil {
		return ReporterIdentity{}, fmt.Errorf("reporter email: %w", err)
	}
	return id, nil
}

func (c *Cipher) openField(ciphertext *string) (string, error) {
	if ciphertext == nil || *ciphertext == "" {
		return PlaceholderContact, nil
	}
	return c.Decrypt(*ciphertext)
}
