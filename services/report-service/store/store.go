package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"corruption-reporting-portal/services/report-service/models"

	"gorm.io/gorm"
)

var (
	ErrNotFound              = errors.New("report not found")
	ErrDuplicateTrackingCode = errors.New("tracking code already in use")
)

// Filter narrows the admin report listing.
type Filter struct {
	Status   string
	Sector   string
	Severity string
	Since    time.Time
}

// Analytics is the dashboard summary over a time range.
type Analytics struct {
	Total         int64            `json:"total"`
	ByStatus      map[string]int64 `json:"by_status"`
	BySeverity    map[string]int64 `json:"by_severity"`
	ResolutionPct float64          `json:"resolution_rate"`
	TimeRange     string           `json:"time_range"`
}

// ReportStore is the persistence contract the intake pipeline and the admin
// handlers depend on. The database's transaction and uniqueness guarantees
// are the only serialization points; callers never coordinate beyond this
// interface.
type ReportStore interface {
	Create(ctx context.Context, report *models.Report) error
	FindByID(ctx context.Context, id string) (*models.Report, error)
	FindByTrackingCode(ctx context.Context, code string) (*models.Report, error)
	UpdateStatus(ctx context.Context, id, status string) (*models.Report, error)
	AppendFile(ctx context.Context, id string, meta models.FileMeta) error
	List(ctx context.Context, f Filter) ([]models.Report, error)
	Summarize(ctx context.Context, since time.Time, label string) (*Analytics, error)
}

// Gorm implements ReportStore on the relational database.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (s *Gorm) Create(ctx context.Context, report *models.Report) error {
	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateTrackingCode
		}
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

func (s *Gorm) FindByID(ctx context.Context, id string) (*models.Report, error) {
	var report models.Report
	err := s.db.WithContext(ctx).First(&report, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find report: %w", err)
	}
	return &report, nil
}

func (s *Gorm) FindByTrackingCode(ctx context.Context, code string) (*models.Report, error) {
	var report models.Report
	err := s.db.WithContext(ctx).First(&report, "tracking_code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find report by tracking code: %w", err)
	}
	return &report, nil
}

func (s *Gorm) UpdateStatus(ctx context.Context, id, status string) (*models.Report, error) {
	result := s.db.WithContext(ctx).Model(&models.Report{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()})
	if result.Error != nil {
		return nil, fmt.Errorf("update status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.FindByID(ctx, id)
}

func (s *Gorm) AppendFile(ctx context.Context, id string, meta models.FileMeta) error {
	report, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	files := report.FileList()
	files = append(files, meta)
	encoded, err := json.Marshal(files)
	if err != nil {
		return fmt.Errorf("encode file list: %w", err)
	}
	err = s.db.WithContext(ctx).Model(&models.Report{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"files": string(encoded), "updated_at": time.Now()}).Error
	if err != nil {
		return fmt.Errorf("append file: %w", err)
	}
	return nil
}

func (s *Gorm) List(ctx context.Context, f Filter) ([]models.Report, error) {
	q := s.db.WithContext(ctx).Model(&models.Report{}).Order("created_at DESC")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Sector != "" {
		q = q.Where("sector = ?", f.Sector)
	}
	if f.Severity != "" {
		q = q.Where("severity = ?", f.Severity)
	}
	if !f.Since.IsZero() {
		q = q.Where("created_at >= ?", f.Since)
	}

	var reports []models.Report
	if err := q.Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

func (s *Gorm) Summarize(ctx context.Context, since time.Time, label string) (*Analytics, error) {
	base := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.Report{}).Where("created_at >= ?", since)
	}

	out := &Analytics{
		ByStatus:   make(map[string]int64),
		BySeverity: make(map[string]int64),
		TimeRange:  label,
	}
	if err := base().Count(&out.Total).Error; err != nil {
		return nil, fmt.Errorf("summarize reports: %w", err)
	}

	for status := range models.ValidStatuses {
		var n int64
		if err := base().Where("status = ?", status).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("summarize reports: %w", err)
		}
		out.ByStatus[status] = n
	}

	for _, severity := range []string{"low", "medium", "high", "critical"} {
		var n int64
		if err := base().Where("severity = ?", severity).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("summarize reports: %w", err)
		}
		out.BySeverity[severity] = n
	}

	resolved := out.ByStatus[models.StatusResolved] + out.ByStatus[models.StatusClosed]
	if out.Total > 0 {
		out.ResolutionPct = float64(resolved) / float64(out.Total) * 100
	}
	return out, nil
}
