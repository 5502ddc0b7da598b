package repository

import (
	"context"
	"time"

	"finreports/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReportFilter is the composite search predicate. Zero fields are ignored.
type ReportFilter struct {
	Type        model.ReportType
	ClientID    string
	ProjectID   string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

type ReportRepository interface {
	Create(ctx context.Context, report *model.Report) error
	Update(ctx context.Context, report *model.Report) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Report, error)
	// FindByIDForUpdate locks the row for the rest of the enclosing transaction.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Report, error)
	FindPublic(ctx context.Context, accessToken string) (*model.Report, error)
	// UpdateStatusIf applies updates only while the row is still in one of the
	// expected statuses and reports whether it did.
	UpdateStatusIf(ctx context.Context, id uuid.UUID, expected []model.ReportStatus, updates map[string]interface{}) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
	Search(ctx context.Context, filter ReportFilter, page, limit int) ([]model.Report, int64, error)
	FindDue(ctx context.Context, now time.Time) ([]model.Report, error)
	FindStale(ctx context.Context, status model.ReportStatus, updatedBefore time.Time) ([]model.Report, error)
	DetachTemplate(ctx context.Context, templateID uuid.UUID) error
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func orderedParameters(db *gorm.DB) *gorm.DB {
	return db.Order("display_order asc, name asc")
}

func (r *reportRepository) Create(ctx context.Context, report *model.Report) error {
	return translateError(GetDB(ctx, r.db).Omit(clause.Associations).Create(report).Error)
}

func (r *reportRepository) Update(ctx context.Context, report *model.Report) error {
	return translateError(GetDB(ctx, r.db).Omit(clause.Associations).Save(report).Error)
}

func (r *reportRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Report, error) {
	var report model.Report
	err := GetDB(ctx, r.db).
		Preload("Parameters", orderedParameters).
		Preload("Template").
		First(&report, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *reportRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Report, error) {
	var report model.Report
	db := GetDB(ctx, r.db)
	if err := forUpdate(ctx, db).First(&report, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := orderedParameters(db).Where("report_id = ?", id).Find(&report.Parameters).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *reportRepository) FindPublic(ctx context.Context, accessToken string) (*model.Report, error) {
	var report model.Report
	err := GetDB(ctx, r.db).
		Preload("Parameters", orderedParameters).
		Where("is_public = ? AND access_token = ?", true, accessToken).
		First(&report).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *reportRepository) UpdateStatusIf(ctx context.Context, id uuid.UUID, expected []model.ReportStatus, updates map[string]interface{}) (bool, error) {
	res := GetDB(ctx, r.db).Model(&model.Report{}).
		Where("id = ? AND status IN ?", id, expected).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *reportRepository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := GetDB(ctx, r.db).Delete(&model.Report{}, "id = ?", id)
	return res.RowsAffected, res.Error
}

func (r *reportRepository) Search(ctx context.Context, filter ReportFilter, page, limit int) ([]model.Report, int64, error) {
	var reports []model.Report
	var total int64

	query := GetDB(ctx, r.db).Model(&model.Report{})
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.ClientID != "" {
		query = query.Where("client_id = ?", filter.ClientID)
	}
	if filter.ProjectID != "" {
		query = query.Where("project_id = ?", filter.ProjectID)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	query = query.Session(&gorm.Session{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Preload("Parameters", orderedParameters).
		Order("created_at desc").Offset(offset).Limit(limit).
		Find(&reports).Error; err != nil {
		return nil, 0, err
	}

	return reports, total, nil
}

func (r *reportRepository) FindDue(ctx context.Context, now time.Time) ([]model.Report, error) {
	var reports []model.Report
	err := GetDB(ctx, r.db).
		Where("scheduled = ? AND next_generation < ?", true, now).
		Order("next_generation asc").
		Find(&reports).Error
	return reports, err
}

func (r *reportRepository) FindStale(ctx context.Context, status model.ReportStatus, updatedBefore time.Time) ([]model.Report, error) {
	var reports []model.Report
	err := GetDB(ctx, r.db).
		Where("status = ? AND updated_at < ?", status, updatedBefore).
		Find(&reports).Error
	return reports, err
}

func (r *reportRepository) DetachTemplate(ctx context.Context, templateID uuid.UUID) error {
	return GetDB(ctx, r.db).Model(&model.Report{}).
		Where("template_id = ?", templateID).
		Update("template_id", nil).Error
}
