package models

import (
	"encoding/json"
	"time"
)

// Report statuses, mutated only through the admin status workflow.
const (
	StatusNew           = "new"
	StatusInvestigating = "investigating"
	StatusResolved      = "resolved"
	StatusClosed        = "closed"
)

var ValidStatuses = map[string]bool{
	StatusNew:           true,
	StatusInvestigating: true,
	StatusResolved:      true,
	StatusClosed:        true,
}

// Report is the canonical at-rest representation of a citizen submission.
// Encrypted reporter fields and abuse-trace fields are never serialized into
// any API response; views are built through projection instead.
type Report struct {
	ID           string `gorm:"primaryKey;size:32" json:"id"`
	TrackingCode string `gorm:"uniqueIndex;size:8;not null" json:"tracking_code"`

	CorruptionType  string    `gorm:"not null" json:"corruption_type"`
	Sector          string    `gorm:"not null" json:"sector"`
	SectorName      string    `gorm:"not null" json:"sector_name"`
	Severity        string    `gorm:"not null" json:"severity"`
	IncidentDate    time.Time `gorm:"not null" json:"incident_date"`
	Location        string    `gorm:"not null" json:"location"`
	Description     string    `gorm:"type:text;not null" json:"description"`
	RelationToFacts string    `gorm:"not null" json:"relation_to_facts"`

	// Amount is a representative bracket midpoint, never a submitter-typed
	// number. Nil means the bracket was unknown, which is distinct from zero.
	Amount *int64 `json:"amount,omitempty"`

	Circumstances      string `json:"circumstances,omitempty"`
	Frequency          string `json:"frequency,omitempty"`
	Impact             string `json:"impact,omitempty"`
	SuspectNames       string `json:"suspect_names,omitempty"`
	SuspectPositions   string `json:"suspect_positions,omitempty"`
	SuspectInstitution string `json:"suspect_institution,omitempty"`
	Witnesses          string `json:"witnesses,omitempty"`
	WitnessContacts    string `json:"witness_contacts,omitempty"`

	// AnonymityLevel is set once at creation and is the sole authority for
	// whether the encrypted fields below may ever be decrypted for display.
	AnonymityLevel string `gorm:"not null" json:"anonymity_level"`

	ReporterNameEncrypted  *string `json:"-"`
	ReporterPhoneEncrypted *string `json:"-"`
	ReporterEmailEncrypted *string `json:"-"`

	Status string `gorm:"default:new" json:"status"`

	// Files is the JSON-encoded file metadata list, mutated only by the
	// upload service.
	Files string `gorm:"type:text;default:'[]'" json:"-"`

	// Abuse-trace fields; captured at creation, surfaced to nobody.
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FileMeta is one attached evidence file as stored in Report.Files.
type FileMeta struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Type       string    `json:"type"`
	URL        string    `json:"url,omitempty"`
	UploadedAt time.Time `json:"uploaded_at,omitempty"`
}

// FileList decodes Report.Files, treating corrupt JSON as an empty list for
// display purposes (the authoritative rows live in uploaded_files).
func (r *Report) FileList() []FileMeta {
	var files []FileMeta
	if r.Files == "" {
		return files
	}
	if err := json.Unmarshal([]byte(r.Files), &files); err != nil {
		return nil
	}
	return files
}

// UploadedFile is the authoritative metadata row for one stored object.
type UploadedFile struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ReportID     string    `gorm:"index;not null" json:"report_id"`
	OriginalName string    `gorm:"not null" json:"name"`
	ObjectKey    string    `gorm:"uniqueIndex;not null" json:"-"`
	Mimetype     string    `json:"type"`
	Size         int64     `json:"size"`
	URL          string    `json:"url"`
	UploadedAt   time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
}

// ReportEvent is published to the dispatcher when a report is created. It
// carries no reporter identity at all; the dispatcher works from the case
// facts only.
type ReportEvent struct {
	ID             string    `json:"id"`
	CorruptionType string    `json:"corruption_type"`
	Sector         string    `json:"sector"`
	SectorName     string    `json:"sector_name"`
	Severity       string    `json:"severity"`
	Location       string    `json:"location"`
	AnonymityLevel string    `json:"anonymity_level"`
	CreatedAt      time.Time `json:"created_at"`
}
