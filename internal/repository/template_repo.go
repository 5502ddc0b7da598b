package repository

import (
	"context"

	"finreports/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TemplateFilter selects templates. ActiveOnly and ExcludeSystem are opt-in.
type TemplateFilter struct {
	Type          model.ReportType
	ActiveOnly    bool
	ExcludeSystem bool
}

type TemplateRepository interface {
	Create(ctx context.Context, tmpl *model.ReportTemplate) error
	Update(ctx context.Context, tmpl *model.ReportTemplate) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ReportTemplate, error)
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
	List(ctx context.Context, filter TemplateFilter, page, limit int) ([]model.ReportTemplate, int64, error)
}

type templateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &templateRepository{db: db}
}

func (r *templateRepository) Create(ctx context.Context, tmpl *model.ReportTemplate) error {
	return translateError(GetDB(ctx, r.db).Omit(clause.Associations).Create(tmpl).Error)
}

func (r *templateRepository) Update(ctx context.Context, tmpl *model.ReportTemplate) error {
	return translateError(GetDB(ctx, r.db).Omit(clause.Associations).Save(tmpl).Error)
}

func (r *templateRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ReportTemplate, error) {
	var tmpl model.ReportTemplate
	if err := GetDB(ctx, r.db).Preload("Parameters", orderedParameters).First(&tmpl, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tmpl, nil
}

func (r *templateRepository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := GetDB(ctx, r.db).Delete(&model.ReportTemplate{}, "id = ?", id)
	return res.RowsAffected, res.Error
}

func (r *templateRepository) List(ctx context.Context, filter TemplateFilter, page, limit int) ([]model.ReportTemplate, int64, error) {
	var templates []model.ReportTemplate
	var total int64

	query := GetDB(ctx, r.db).Model(&model.ReportTemplate{})
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.ActiveOnly {
		query = query.Where("active = ?", true)
	}
	if filter.ExcludeSystem {
		query = query.Where("system_template = ?", false)
	}

	query = query.Session(&gorm.Session{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Preload("Parameters", orderedParameters).
		Order("name asc").Offset(offset).Limit(limit).
		Find(&templates).Error; err != nil {
		return nil, 0, err
	}
	return templates, total, nil
}
