package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrMalformedBody means the request body was not parseable JSON at all.
// Shape and field violations are reported as field-tagged messages instead.
var ErrMalformedBody = errors.New("request body is not valid JSON")

// FileMeta is the client-declared metadata for one attached file. A
// malformed entry fails the whole submission; entries are never dropped.
type FileMeta struct {
	Name string `json:"name" validate:"required,max=255"`
	Size int64  `json:"size" validate:"required,gt=0"`
	Type string `json:"type" validate:"required,max=100"`
}

// Submission is the strongly-typed result of validating an untrusted
// payload. Nothing downstream of Validate ever sees the untyped form.
// Optional fields are normalized to the empty string.
type Submission struct {
	CorruptionType  string `json:"corruptionType" validate:"required,oneof=pot_de_vin detournement favoritisme abus_pouvoir marche_public concussion racket autre"`
	Sector          string `json:"sector" validate:"required,oneof=public parapublic prive"`
	SectorName      string `json:"sectorName" validate:"required,min=2,max=200"`
	Severity        string `json:"severity" validate:"required,max=50"`
	IncidentDate    string `json:"incidentDate" validate:"required,dateymd"`
	Location        string `json:"location" validate:"required,min=2,max=200"`
	Description     string `json:"description" validate:"required,min=10,max=5000,safetext"`
	RelationToFacts string `json:"relationToFacts" validate:"required,min=5,max=500"`

	// Anonymity is security-relevant: an unrecognized token is a hard
	// validation failure, unlike the severity word which derive treats
	// leniently.
	Anonymity   string `json:"anonymity" validate:"required,oneof=total partiel aucun"`
	AmountRange string `json:"amountRange" validate:"required,max=50"`

	Circumstances      string `json:"circumstances" validate:"omitempty,max=2000,safetext"`
	Frequency          string `json:"frequency" validate:"omitempty,max=100"`
	Impact             string `json:"impact" validate:"omitempty,max=1000,safetext"`
	SuspectNames       string `json:"suspectNames" validate:"omitempty,max=500"`
	SuspectPositions   string `json:"suspectPositions" validate:"omitempty,max=500"`
	SuspectInstitution string `json:"suspectInstitution" validate:"omitempty,max=200"`
	Witnesses          string `json:"witnesses" validate:"omitempty,max=1000"`
	WitnessContacts    string `json:"witnessContacts" validate:"omitempty,max=500"`

	ReporterName  string `json:"reporterName" validate:"omitempty,max=100"`
	ReporterPhone string `json:"reporterPhone" validate:"omitempty,max=20"`
	ReporterEmail string `json:"reporterEmail" validate:"omitempty,email"`

	Files []FileMeta `json:"files" validate:"omitempty,dive"`
}

// Script-injection patterns blocked in free text. Defense in depth against
// stored XSS, not a full sanitizer.
var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)vbscript:`),
	regexp.MustCompile(`(?i)data:text/html`),
	regexp.MustCompile(`(?i)\bon\w+\s*=`),
}

var dateYMD = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

var trackingCodeRe = regexp.MustCompile(`^[A-Z0-9]{8}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report violations against the JSON field names the client sent.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("safetext", func(fl validator.FieldLevel) bool {
		text := fl.Field().String()
		for _, p := range suspiciousPatterns {
			if p.MatchString(text) {
				return false
			}
		}
		return true
	})

	_ = v.RegisterValidation("dateymd", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if !dateYMD.MatchString(s) {
			return false
		}
		_, err := time.Parse("2006-01-02", s)
		return err == nil
	})

	return v
}

// Validate converts an untrusted body into a Submission.
//
// A non-nil error means the body was not JSON (BadRequest). A non-empty
// message list means field-level violations (ValidationError); each message
// is "<field path>: <reason>" and safe to return verbatim. On success both
// are empty and the returned Submission is fully normalized.
func Validate(raw []byte) (*Submission, []string, error) {
	var sub Submission
	if err := json.Unmarshal(raw, &sub); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			field := typeErr.Field
			if field == "" {
				field = "body"
			}
			return nil, []string{fmt.Sprintf("%s: expected %s", field, typeErr.Type)}, nil
		}
		return nil, nil, ErrMalformedBody
	}

	sub.normalize()

	if err := validate.Struct(&sub); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, nil, ErrMalformedBody
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fieldMessage(fe))
		}
		return nil, msgs, nil
	}

	return &sub, nil, nil
}

// normalize trims every free-text field so "   " never passes a required
// check and downstream code never re-trims.
func (s *Submission) normalize() {
	fields := []*string{
		&s.CorruptionType, &s.Sector, &s.SectorName, &s.Severity,
		&s.IncidentDate, &s.Location, &s.Description, &s.RelationToFacts,
		&s.Anonymity, &s.AmountRange, &s.Circumstances, &s.Frequency,
		&s.Impact, &s.SuspectNames, &s.SuspectPositions,
		&s.SuspectInstitution, &s.Witnesses, &s.WitnessContacts,
		&s.ReporterName, &s.ReporterPhone, &s.ReporterEmail,
	}
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
	if s.Files == nil {
		s.Files = []FileMeta{}
	}
}

func fieldMessage(fe validator.FieldError) string {
	field := fieldPath(fe)
	switch fe.Tag() {
	case "required":
		return field + ": required"
	case "oneof":
		return fmt.Sprintf("%s: must be one of [%s]", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s: too short (minimum %s characters)", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s: too long (maximum %s characters)", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s: must be greater than %s", field, fe.Param())
	case "email":
		return field + ": invalid email format"
	case "dateymd":
		return field + ": invalid date (expected YYYY-MM-DD)"
	case "safetext":
		return field + ": suspicious content detected"
	default:
		return field + ": invalid value"
	}
}

// fieldPath strips the struct name from the validator's namespace so errors
// read "files[0].size" rather than "Submission.files[0].size".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// ValidTrackingCode reports whether code has the exact public lookup shape:
// 8 characters, upper-case alphanumeric. Checked before any storage access.
func ValidTrackingCode(code string) bool {
	return trackingCodeRe.MatchString(code)
}
