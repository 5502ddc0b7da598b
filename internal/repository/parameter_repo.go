package repository

import (
	"context"

	"finreports/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ParameterRepository stores parameters for both owners. Callers set exactly one
// of ReportID or TemplateID on every row.
type ParameterRepository interface {
	CreateBatch(ctx context.Context, params []model.ReportParameter) error
	ListByReport(ctx context.Context, reportID uuid.UUID) ([]model.ReportParameter, error)
	ListByTemplate(ctx context.Context, templateID uuid.UUID) ([]model.ReportParameter, error)
	DeleteByReport(ctx context.Context, reportID uuid.UUID) error
	DeleteByTemplate(ctx context.Context, templateID uuid.UUID) error
}

type parameterRepository struct {
	db *gorm.DB
}

func NewParameterRepository(db *gorm.DB) ParameterRepository {
	return &parameterRepository{db: db}
}

func (r *parameterRepository) CreateBatch(ctx context.Context, params []model.ReportParameter) error {
	if len(params) == 0 {
		return nil
	}
	return translateError(GetDB(ctx, r.db).Create(&params).Error)
}

func (r *parameterRepository) ListByReport(ctx context.Context, reportID uuid.UUID) ([]model.ReportParameter, error) {
	var params []model.ReportParameter
	err := orderedParameters(GetDB(ctx, r.db)).Where("report_id = ?", reportID).Find(&params).Error
	return params, err
}

func (r *parameterRepository) ListByTemplate(ctx context.Context, templateID uuid.UUID) ([]model.ReportParameter, error) {
	var params []model.ReportParameter
	err := orderedParameters(GetDB(ctx, r.db)).Where("template_id = ?", templateID).Find(&params).Error
	return params, err
}

func (r *parameterRepository) DeleteByReport(ctx context.Context, reportID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("report_id = ?", reportID).Delete(&model.ReportParameter{}).Error
}

func (r *parameterRepository) DeleteByTemplate(ctx context.Context, templateID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("template_id = ?", templateID).Delete(&model.ReportParameter{}).Error
}
