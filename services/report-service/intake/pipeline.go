package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"corruption-reporting-portal/pkg/middleware"
	"corruption-reporting-portal/pkg/security"
	"corruption-reporting-portal/services/report-service/models"
	"corruption-reporting-portal/services/report-service/store"
	"corruption-reporting-portal/services/report-service/utils"
	"corruption-reporting-portal/services/report-service/validation"
)

// EventPublisher pushes the report.created event to the dispatcher.
// Publishing is best-effort; a failure is logged and never fails intake.
type EventPublisher interface {
	Publish(ctx context.Context, payload interface{}) error
}

// Receipt is the complete success response of a submission: identifiers,
// initial status, accepted file count, nothing else. Personal fields are
// never echoed back, not even the ones just submitted.
type Receipt struct {
	ReportID     string `json:"reportId"`
	TrackingCode string `json:"trackingCode"`
	Status       string `json:"status"`
	FilesCount   int    `json:"filesCount"`
}

// Pipeline runs a submission through
// validate -> derive -> encrypt -> persist. It is stateless between
// requests; every collaborator is read-only after construction.
type Pipeline struct {
	store  store.ReportStore
	cipher *security.Cipher
	events EventPublisher
}

func NewPipeline(s store.ReportStore, cipher *security.Cipher, events EventPublisher) *Pipeline {
	return &Pipeline{store: s, cipher: cipher, events: events}
}

// Process handles one submission end to end. Exactly one of receipt and
// failure is non-nil; an escaped panic in any stage still produces a
// structured failure.
func (p *Pipeline) Process(ctx context.Context, raw []byte, ip, userAgent string) (receipt *Receipt, failure *Failure) {
	defer func() {
		if r := recover(); r != nil {
			middleware.LogError("", "intake panic recovered", fmt.Errorf("%v", r))
			receipt = nil
			failure = &Failure{Kind: KindInternal}
		}
	}()

	// Validating
	sub, violations, err := validation.Validate(raw)
	if err != nil {
		return nil, &Failure{Kind: KindBadRequest}
	}
	if len(violations) > 0 {
		return nil, &Failure{Kind: KindValidation, Details: violations}
	}

	// Deriving. Total for validated input except the anonymity mapping,
	// which validation already guaranteed; a failure here is a bug.
	amount := validation.DeriveAmount(sub.AmountRange)
	severity := validation.DeriveSeverity(sub.Severity)
	level, err := validation.DeriveAnonymity(sub.Anonymity)
	if err != nil {
		middleware.LogError("", "anonymity derivation", err)
		return nil, &Failure{Kind: KindInternal}
	}
	incidentDate, err := time.Parse("2006-01-02", sub.IncidentDate)
	if err != nil {
		return nil, &Failure{Kind: KindValidation, Details: []string{"incidentDate: invalid date (expected YYYY-MM-DD)"}}
	}

	// Encrypting. The key was validated at startup, so a cipher failure
	// here is an operational incident, not user error.
	enc, err := p.cipher.Protect(security.PersonalFields{
		Name:  sub.ReporterName,
		Phone: sub.ReporterPhone,
		Email: sub.ReporterEmail,
	})
	if err != nil {
		middleware.LogError("", "personal field encryption", err)
		return nil, &Failure{Kind: KindSecurityConfig}
	}

	// Persisting, with one retry on a tracking-code collision.
	report, err := p.buildReport(sub, amount, severity, level, incidentDate, enc, ip, userAgent)
	if err != nil {
		middleware.LogError("", "report assembly", err)
		return nil, &Failure{Kind: KindInternal}
	}

	if err := p.store.Create(ctx, report); err != nil {
		if errors.Is(err, store.ErrDuplicateTrackingCode) {
			if err = p.retryWithFreshCode(ctx, report); err != nil {
				middleware.LogError("", "tracking code retry", err)
				return nil, &Failure{Kind: KindConflict}
			}
		} else {
			middleware.LogError("", "report persistence", err)
			return nil, &Failure{Kind: KindPersistence}
		}
	}

	p.publishCreated(ctx, report)

	return &Receipt{
		ReportID:     report.ID,
		TrackingCode: report.TrackingCode,
		Status:       report.Status,
		FilesCount:   len(sub.Files),
	}, nil
}

func (p *Pipeline) buildReport(
	sub *validation.Submission,
	amount *int64,
	severity string,
	level security.AnonymityLevel,
	incidentDate time.Time,
	enc security.EncryptedFields,
	ip, userAgent string,
) (*models.Report, error) {
	trackingCode, err := utils.GenerateTrackingCode()
	if err != nil {
		return nil, err
	}

	files := make([]models.FileMeta, 0, len(sub.Files))
	for _, f := range sub.Files {
		files = append(files, models.FileMeta{Name: f.Name, Size: f.Size, Type: f.Type})
	}
	filesJSON, err := json.Marshal(files)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &models.Report{
		ID:           utils.GenerateReportID(),
		TrackingCode: trackingCode,

		CorruptionType:  sub.CorruptionType,
		Sector:          sub.Sector,
		SectorName:      sub.SectorName,
		Severity:        severity,
		IncidentDate:    incidentDate,
		Location:        sub.Location,
		Description:     sub.Description,
		RelationToFacts: sub.RelationToFacts,
		Amount:          amount,

		Circumstances:      sub.Circumstances,
		Frequency:          sub.Frequency,
		Impact:             sub.Impact,
		SuspectNames:       sub.SuspectNames,
		SuspectPositions:   sub.SuspectPositions,
		SuspectInstitution: sub.SuspectInstitution,
		Witnesses:          sub.Witnesses,
		WitnessContacts:    sub.WitnessContacts,

		AnonymityLevel:         string(level),
		ReporterNameEncrypted:  enc.Name,
		ReporterPhoneEncrypted: enc.Phone,
		ReporterEmailEncrypted: enc.Email,

		Status:    models.StatusNew,
		Files:     string(filesJSON),
		IPAddress: ip,
		UserAgent: userAgent,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// retryWithFreshCode regenerates the tracking code once. A second collision
// surfaces as failure; at 41 bits of entropy that means something is wrong
// beyond bad luck.
func (p *Pipeline) retryWithFreshCode(ctx context.Context, report *models.Report) error {
	code, err := utils.GenerateTrackingCode()
	if err != nil {
		return err
	}
	report.TrackingCode = code
	return p.store.Create(ctx, report)
}

func (p *Pipeline) publishCreated(ctx context.Context, report *models.Report) {
	if p.events == nil {
		return
	}
	event := models.ReportEvent{
		ID:             report.ID,
		CorruptionType: report.CorruptionType,
		Sector:         report.Sector,
		SectorName:     report.SectorName,
		Severity:       report.Severity,
		Location:       report.Location,
		AnonymityLevel: report.AnonymityLevel,
		CreatedAt:      report.CreatedAt,
	}
	if err := p.events.Publish(ctx, event); err != nil {
		middleware.LogError("", "report.created publish", err)
	}
}
