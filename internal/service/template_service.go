package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"finreports/internal/model"
	"finreports/internal/parameter"
	"finreports/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// --- DTOs ---

type CreateTemplateRequest struct {
	Name            string           `json:"name" binding:"required,max=255"`
	Description     string           `json:"description"`
	Type            string           `json:"type" binding:"required,oneof=FINANCIAL_STATEMENT ACCOUNTS_PAYABLE ACCOUNTS_RECEIVABLE PROJECT_PROFITABILITY CASH_FLOW EXPENSE REVENUE TAX ASSET CUSTOM"`
	TemplatePath    string           `json:"template_path" binding:"max=500"`
	TemplateContent string           `json:"template_content"`
	DefaultFormat   string           `json:"default_format" binding:"omitempty,oneof=PDF EXCEL CSV HTML JSON"`
	SystemTemplate  bool             `json:"system_template"`
	Version         string           `json:"version" binding:"max=20"`
	Parameters      []ParameterInput `json:"parameters" binding:"dive"`
}

type UpdateTemplateRequest struct {
	Name            *string          `json:"name" binding:"omitempty,min=1,max=255"`
	Description     *string          `json:"description"`
	TemplatePath    *string          `json:"template_path" binding:"omitempty,max=500"`
	TemplateContent *string          `json:"template_content"`
	DefaultFormat   *string          `json:"default_format" binding:"omitempty,oneof=PDF EXCEL CSV HTML JSON"`
	Active          *bool            `json:"active"`
	Version         *string          `json:"version" binding:"omitempty,max=20"`
	Parameters      []ParameterInput `json:"parameters" binding:"omitempty,dive"`
}

type TemplateFilter struct {
	Type          string
	ActiveOnly    bool
	ExcludeSystem bool
	Page          int
	Limit         int
}

type TemplateResponse struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	Description     string              `json:"description"`
	Type            string              `json:"type"`
	TemplatePath    string              `json:"template_path"`
	TemplateContent string              `json:"template_content,omitempty"`
	DefaultFormat   string              `json:"default_format"`
	SystemTemplate  bool                `json:"system_template"`
	Active          bool                `json:"active"`
	Version         string              `json:"version"`
	Parameters      []ParameterResponse `json:"parameters"`
	CreatedAt       string              `json:"created_at"`
	CreatedBy       string              `json:"created_by"`
	UpdatedAt       string              `json:"updated_at"`
	UpdatedBy       string              `json:"updated_by"`
}

// --- Interface ---

type TemplateService interface {
	CreateTemplate(ctx context.Context, actor string, req CreateTemplateRequest) (TemplateResponse, error)
	GetTemplate(ctx context.Context, id string) (TemplateResponse, error)
	UpdateTemplate(ctx context.Context, id string, actor string, req UpdateTemplateRequest) (TemplateResponse, error)
	DeleteTemplate(ctx context.Context, id string, actor string) error
	ListTemplates(ctx context.Context, filter TemplateFilter) ([]TemplateResponse, int64, error)
}

type templateService struct {
	templateRepo repository.TemplateRepository
	paramRepo    repository.ParameterRepository
	reportRepo   repository.ReportRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	validate     *validator.Validate
}

const defaultTemplateVersion = "1.0"

func NewTemplateService(
	templateRepo repository.TemplateRepository,
	paramRepo repository.ParameterRepository,
	reportRepo repository.ReportRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) TemplateService {
	return &templateService{
		templateRepo: templateRepo,
		paramRepo:    paramRepo,
		reportRepo:   reportRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		validate:     newValidator(),
	}
}

// --- Implementation ---

func (s *templateService) CreateTemplate(ctx context.Context, actor string, req CreateTemplateRequest) (TemplateResponse, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return TemplateResponse{}, err
	}

	params, err := templateParameters(req.Parameters)
	if err != nil {
		return TemplateResponse{}, err
	}

	tmpl := model.ReportTemplate{
		Name:            strings.TrimSpace(req.Name),
		Description:     req.Description,
		Type:            model.ReportType(req.Type),
		TemplatePath:    req.TemplatePath,
		TemplateContent: req.TemplateContent,
		DefaultFormat:   model.ReportFormat(req.DefaultFormat),
		SystemTemplate:  req.SystemTemplate,
		Active:          true,
		Version:         strings.TrimSpace(req.Version),
		CreatedBy:       actor,
		UpdatedBy:       actor,
	}
	if tmpl.DefaultFormat == "" {
		tmpl.DefaultFormat = model.DefaultFormat
	}
	if tmpl.Version == "" {
		tmpl.Version = defaultTemplateVersion
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.templateRepo.Create(txCtx, &tmpl); err != nil {
			return fmt.Errorf("failed to create template: %w", err)
		}
		for i := range params {
			params[i].TemplateID = &tmpl.ID
		}
		if err := s.paramRepo.CreateBatch(txCtx, params); err != nil {
			return fmt.Errorf("failed to create template parameters: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateTemplate, tmpl.ID.String(), tmpl.Name, map[string]interface{}{
			"type":       tmpl.Type,
			"system":     tmpl.SystemTemplate,
			"parameters": len(params),
		})
	})
	if err != nil {
		return TemplateResponse{}, err
	}

	tmpl.Parameters = params
	return toTemplateResponse(tmpl), nil
}

// templateParameters builds template-owned definitions. Values on templates live
// in DefaultValue only.
func templateParameters(inputs []ParameterInput) ([]model.ReportParameter, error) {
	params, err := parameter.FromOverrides(overrides(inputs))
	if err != nil {
		return nil, err
	}
	for i := range params {
		if params[i].DefaultValue == "" {
			params[i].DefaultValue = params[i].Value
		}
		params[i].Value = ""
		if err := parameter.ValidateDefinition(params[i]); err != nil {
			return nil, err
		}
	}
	return params, parameter.CheckUniqueNames(params)
}

func (s *templateService) GetTemplate(ctx context.Context, id string) (TemplateResponse, error) {
	templateID, err := parseID("template", id)
	if err != nil {
		return TemplateResponse{}, err
	}
	tmpl, err := s.templateRepo.FindByID(ctx, templateID)
	if err != nil {
		return TemplateResponse{}, notFound("template "+id, err)
	}
	return toTemplateResponse(*tmpl), nil
}

func (s *templateService) UpdateTemplate(ctx context.Context, id string, actor string, req UpdateTemplateRequest) (TemplateResponse, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return TemplateResponse{}, err
	}
	templateID, err := parseID("template", id)
	if err != nil {
		return TemplateResponse{}, err
	}

	var params []model.ReportParameter
	if req.Parameters != nil {
		if params, err = templateParameters(req.Parameters); err != nil {
			return TemplateResponse{}, err
		}
	}

	var updated *model.ReportTemplate
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		tmpl, err := s.templateRepo.FindByID(txCtx, templateID)
		if err != nil {
			return notFound("template "+id, err)
		}

		if req.Name != nil {
			tmpl.Name = strings.TrimSpace(*req.Name)
		}
		if req.Description != nil {
			tmpl.Description = *req.Description
		}
		if req.TemplatePath != nil {
			tmpl.TemplatePath = *req.TemplatePath
		}
		if req.TemplateContent != nil {
			tmpl.TemplateContent = *req.TemplateContent
		}
		if req.DefaultFormat != nil {
			tmpl.DefaultFormat = model.ReportFormat(*req.DefaultFormat)
		}
		if req.Active != nil {
			tmpl.Active = *req.Active
		}
		if req.Version != nil && strings.TrimSpace(*req.Version) != "" {
			tmpl.Version = strings.TrimSpace(*req.Version)
		}
		tmpl.UpdatedBy = actor

		if err := s.templateRepo.Update(txCtx, tmpl); err != nil {
			return fmt.Errorf("failed to update template: %w", err)
		}

		if req.Parameters != nil {
			if err := s.paramRepo.DeleteByTemplate(txCtx, tmpl.ID); err != nil {
				return fmt.Errorf("failed to clear template parameters: %w", err)
			}
			for i := range params {
				params[i].TemplateID = &tmpl.ID
			}
			if err := s.paramRepo.CreateBatch(txCtx, params); err != nil {
				return fmt.Errorf("failed to create template parameters: %w", err)
			}
			tmpl.Parameters = params
		}

		updated = tmpl
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateTemplate, tmpl.ID.String(), tmpl.Name, map[string]interface{}{
			"active":              tmpl.Active,
			"replaced_parameters": req.Parameters != nil,
		})
	})
	if err != nil {
		return TemplateResponse{}, err
	}
	return toTemplateResponse(*updated), nil
}

// DeleteTemplate removes a user template and its parameters. Reports built from
// it keep their own parameters and lose only the reference.
func (s *templateService) DeleteTemplate(ctx context.Context, id string, actor string) error {
	templateID, err := parseID("template", id)
	if err != nil {
		return err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		tmpl, err := s.templateRepo.FindByID(txCtx, templateID)
		if err != nil {
			return notFound("template "+id, err)
		}
		if tmpl.SystemTemplate {
			return fmt.Errorf("template %s: %w", id, ErrSystemTemplate)
		}
		if err := s.reportRepo.DetachTemplate(txCtx, templateID); err != nil {
			return fmt.Errorf("failed to detach reports: %w", err)
		}
		if err := s.paramRepo.DeleteByTemplate(txCtx, templateID); err != nil {
			return fmt.Errorf("failed to delete template parameters: %w", err)
		}
		if _, err := s.templateRepo.Delete(txCtx, templateID); err != nil {
			return fmt.Errorf("failed to delete template: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionDeleteTemplate, id, tmpl.Name, map[string]interface{}{
			"parameters": len(tmpl.Parameters),
		})
	})
	if err != nil {
		return err
	}

	zerolog.Ctx(ctx).Info().Str("template_id", id).Str("actor", actor).Msg("template deleted")
	return nil
}

func (s *templateService) ListTemplates(ctx context.Context, filter TemplateFilter) ([]TemplateResponse, int64, error) {
	page, limit := normalizePage(filter.Page, filter.Limit)

	repoFilter := repository.TemplateFilter{
		ActiveOnly:    filter.ActiveOnly,
		ExcludeSystem: filter.ExcludeSystem,
	}
	if filter.Type != "" {
		t := model.ReportType(strings.ToUpper(filter.Type))
		if !t.Valid() {
			return nil, 0, invalid("unknown report type %q", filter.Type)
		}
		repoFilter.Type = t
	}

	templates, total, err := s.templateRepo.List(ctx, repoFilter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list templates: %w", err)
	}

	res := make([]TemplateResponse, 0, len(templates))
	for _, t := range templates {
		res = append(res, toTemplateResponse(t))
	}
	return res, total, nil
}

// --- Helpers ---

func toTemplateResponse(t model.ReportTemplate) TemplateResponse {
	return TemplateResponse{
		ID:              t.ID.String(),
		Name:            t.Name,
		Description:     t.Description,
		Type:            string(t.Type),
		TemplatePath:    t.TemplatePath,
		TemplateContent: t.TemplateContent,
		DefaultFormat:   string(t.DefaultFormat),
		SystemTemplate:  t.SystemTemplate,
		Active:          t.Active,
		Version:         t.Version,
		Parameters:      toParameterResponses(t.Parameters),
		CreatedAt:       t.CreatedAt.UTC().Format(time.RFC3339),
		CreatedBy:       t.CreatedBy,
		UpdatedAt:       t.UpdatedAt.UTC().Format(time.RFC3339),
		UpdatedBy:       t.UpdatedBy,
	}
}
