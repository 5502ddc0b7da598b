package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"finreports/internal/model"
	"finreports/internal/parameter"
	"finreports/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type CreateReportRequest struct {
	Name         string           `json:"name" binding:"required,max=255"`
	Description  string           `json:"description"`
	Type         string           `json:"type" binding:"required,oneof=FINANCIAL_STATEMENT ACCOUNTS_PAYABLE ACCOUNTS_RECEIVABLE PROJECT_PROFITABILITY CASH_FLOW EXPENSE REVENUE TAX ASSET CUSTOM"`
	Format       string           `json:"format" binding:"omitempty,oneof=PDF EXCEL CSV HTML JSON"`
	StartDate    string           `json:"start_date"` // YYYY-MM-DD or RFC 3339
	EndDate      string           `json:"end_date"`
	Scheduled    bool             `json:"scheduled"`
	ScheduleCron string           `json:"schedule_cron" binding:"max=100"`
	TotalAmount  string           `json:"total_amount"` // Decimal string
	CurrencyCode string           `json:"currency_code" binding:"omitempty,len=3,alpha"`
	TemplateID   string           `json:"template_id" binding:"omitempty,uuid"`
	ProjectID    string           `json:"project_id" binding:"max=64"`
	ClientID     string           `json:"client_id" binding:"max=64"`
	IsPublic     bool             `json:"is_public"`
	Parameters   []ParameterInput `json:"parameters" binding:"dive"`
}

// UpdateReportRequest changes only the fields that are set. A non-nil
// Parameters slice replaces the report's parameters.
type UpdateReportRequest struct {
	Name         *string          `json:"name" binding:"omitempty,min=1,max=255"`
	Description  *string          `json:"description"`
	Format       *string          `json:"format" binding:"omitempty,oneof=PDF EXCEL CSV HTML JSON"`
	StartDate    *string          `json:"start_date"`
	EndDate      *string          `json:"end_date"`
	Scheduled    *bool            `json:"scheduled"`
	ScheduleCron *string          `json:"schedule_cron" binding:"omitempty,max=100"`
	TotalAmount  *string          `json:"total_amount"`
	CurrencyCode *string          `json:"currency_code" binding:"omitempty,len=3,alpha"`
	TemplateID   *string          `json:"template_id" binding:"omitempty,uuid"`
	ProjectID    *string          `json:"project_id" binding:"omitempty,max=64"`
	ClientID     *string          `json:"client_id" binding:"omitempty,max=64"`
	IsPublic     *bool            `json:"is_public"`
	Parameters   []ParameterInput `json:"parameters" binding:"omitempty,dive"`
}

type ReportSearchRequest struct {
	Type        string
	ClientID    string
	ProjectID   string
	CreatedFrom string
	CreatedTo   string
	Page        int
	Limit       int
}

type ReportResponse struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Description    string              `json:"description"`
	Type           string              `json:"type"`
	Format         string              `json:"format"`
	Status         string              `json:"status"`
	StartDate      *string             `json:"start_date"`
	EndDate        *string             `json:"end_date"`
	FileName       string              `json:"file_name,omitempty"`
	FileSize       int64               `json:"file_size"`
	Scheduled      bool                `json:"scheduled"`
	ScheduleCron   string              `json:"schedule_cron,omitempty"`
	LastGenerated  *string             `json:"last_generated"`
	NextGeneration *string             `json:"next_generation"`
	TotalAmount    string              `json:"total_amount"`
	CurrencyCode   string              `json:"currency_code"`
	TemplateID     *string             `json:"template_id"`
	ProjectID      *string             `json:"project_id"`
	ClientID       *string             `json:"client_id"`
	IsPublic       bool                `json:"is_public"`
	AccessToken    string              `json:"access_token,omitempty"`
	Parameters     []ParameterResponse `json:"parameters"`
	CreatedAt      string              `json:"created_at"`
	CreatedBy      string              `json:"created_by"`
	UpdatedAt      string              `json:"updated_at"`
	UpdatedBy      string              `json:"updated_by"`
}

// --- Interface ---

type ReportService interface {
	CreateReport(ctx context.Context, actor string, req CreateReportRequest) (ReportResponse, error)
	GetReport(ctx context.Context, id string) (ReportResponse, error)
	UpdateReport(ctx context.Context, id string, actor string, req UpdateReportRequest) (ReportResponse, error)
	DeleteReport(ctx context.Context, id string, actor string) error
	SearchReports(ctx context.Context, req ReportSearchRequest) ([]ReportResponse, int64, error)
	FindPublic(ctx context.Context, accessToken string) (ReportResponse, error)
	DownloadPath(ctx context.Context, id string) (string, error)
	PublicDownloadPath(ctx context.Context, accessToken string) (string, error)
}

type reportService struct {
	reportRepo   repository.ReportRepository
	paramRepo    repository.ParameterRepository
	templateRepo repository.TemplateRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	tokens       TokenSource
	scheduler    ScheduleConfig
	validate     *validator.Validate
	now          func() time.Time
}

// ScheduleConfig controls how completions advance scheduled reports.
type ScheduleConfig struct {
	NextRunOffset time.Duration
}

// NextRun is the fixed-offset successor of a completion at t.
func (c ScheduleConfig) NextRun(t time.Time) time.Time {
	offset := c.NextRunOffset
	if offset <= 0 {
		offset = 24 * time.Hour
	}
	return t.Add(offset)
}

func NewReportService(
	reportRepo repository.ReportRepository,
	paramRepo repository.ParameterRepository,
	templateRepo repository.TemplateRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	tokens TokenSource,
	scheduler ScheduleConfig,
) ReportService {
	if tokens == nil {
		tokens = UUIDTokens{}
	}
	return &reportService{
		reportRepo:   reportRepo,
		paramRepo:    paramRepo,
		templateRepo: templateRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		tokens:       tokens,
		scheduler:    scheduler,
		validate:     newValidator(),
		now:          time.Now,
	}
}

// --- Implementation ---

func (s *reportService) CreateReport(ctx context.Context, actor string, req CreateReportRequest) (ReportResponse, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return ReportResponse{}, err
	}

	report := model.Report{
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		Type:         model.ReportType(req.Type),
		Format:       model.ReportFormat(req.Format),
		Status:       model.StatusPending,
		Scheduled:    req.Scheduled,
		ScheduleCron: strings.TrimSpace(req.ScheduleCron),
		CurrencyCode: strings.ToUpper(req.CurrencyCode),
		ProjectID:    optional(req.ProjectID),
		ClientID:     optional(req.ClientID),
		IsPublic:     req.IsPublic,
		CreatedBy:    actor,
		UpdatedBy:    actor,
	}

	var err error
	if report.StartDate, err = parseDay("start_date", req.StartDate); err != nil {
		return ReportResponse{}, err
	}
	if report.EndDate, err = parseDay("end_date", req.EndDate); err != nil {
		return ReportResponse{}, err
	}
	if err := checkWindow(report.StartDate, report.EndDate); err != nil {
		return ReportResponse{}, err
	}
	if report.TotalAmount, err = parseAmount(req.TotalAmount); err != nil {
		return ReportResponse{}, err
	}

	var templateParams []model.ReportParameter
	if req.TemplateID != "" {
		tmpl, err := s.loadUsableTemplate(ctx, req.TemplateID)
		if err != nil {
			return ReportResponse{}, err
		}
		report.TemplateID = &tmpl.ID
		templateParams = tmpl.Parameters
		if report.Format == "" {
			report.Format = tmpl.DefaultFormat
		}
	}

	params, err := parameter.Merge(templateParams, overrides(req.Parameters))
	if err != nil {
		return ReportResponse{}, err
	}
	if err := parameter.ValidateValues(params); err != nil {
		return ReportResponse{}, err
	}

	s.applyDefaults(&report)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.reportRepo.Create(txCtx, &report); err != nil {
			return fmt.Errorf("failed to create report: %w", err)
		}
		for i := range params {
			params[i].ReportID = &report.ID
		}
		if err := s.paramRepo.CreateBatch(txCtx, params); err != nil {
			return fmt.Errorf("failed to bind report parameters: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateReport, report.ID.String(), report.Name, map[string]interface{}{
			"type":        report.Type,
			"format":      report.Format,
			"template_id": req.TemplateID,
			"scheduled":   report.Scheduled,
			"is_public":   report.IsPublic,
			"parameters":  len(params),
		})
	})
	if err != nil {
		return ReportResponse{}, err
	}

	zerolog.Ctx(ctx).Info().
		Str("report_id", report.ID.String()).
		Str("type", string(report.Type)).
		Str("actor", actor).
		Msg("report created")

	report.Parameters = params
	return toReportResponse(report), nil
}

// applyDefaults fills format, currency, access token and the first run time.
func (s *reportService) applyDefaults(report *model.Report) {
	if report.Format == "" {
		report.Format = model.DefaultFormat
	}
	if report.CurrencyCode == "" {
		report.CurrencyCode = model.DefaultCurrency
	}
	if report.IsPublic && (report.AccessToken == nil || *report.AccessToken == "") {
		token := s.tokens.NewToken()
		report.AccessToken = &token
	}
	if report.ScheduleActive() && report.NextGeneration == nil {
		next := s.now().UTC()
		report.NextGeneration = &next
	}
}

func (s *reportService) loadUsableTemplate(ctx context.Context, id string) (*model.ReportTemplate, error) {
	templateID, err := parseID("template", id)
	if err != nil {
		return nil, err
	}
	tmpl, err := s.templateRepo.FindByID(ctx, templateID)
	if err != nil {
		return nil, notFound("template "+id, err)
	}
	if !tmpl.Active {
		return nil, &parameter.ValidationError{Kind: parameter.InvalidDefinition, Parameter: "template_id", Message: "template " + id + " is inactive"}
	}
	return tmpl, nil
}

func (s *reportService) GetReport(ctx context.Context, id string) (ReportResponse, error) {
	reportID, err := parseID("report", id)
	if err != nil {
		return ReportResponse{}, err
	}
	report, err := s.reportRepo.FindByID(ctx, reportID)
	if err != nil {
		return ReportResponse{}, notFound("report "+id, err)
	}
	return toReportResponse(*report), nil
}

func (s *reportService) UpdateReport(ctx context.Context, id string, actor string, req UpdateReportRequest) (ReportResponse, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return ReportResponse{}, err
	}
	reportID, err := parseID("report", id)
	if err != nil {
		return ReportResponse{}, err
	}

	var updated *model.Report
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		report, err := s.reportRepo.FindByIDForUpdate(txCtx, reportID)
		if err != nil {
			return notFound("report "+id, err)
		}
		if report.Status == model.StatusGenerating {
			return fmt.Errorf("%w: report %s is generating", ErrTransitionConflict, id)
		}

		if err := s.applyUpdate(txCtx, report, req); err != nil {
			return err
		}
		report.UpdatedBy = actor
		s.applyDefaults(report)

		if err := s.reportRepo.Update(txCtx, report); err != nil {
			return fmt.Errorf("failed to update report: %w", err)
		}

		if req.Parameters != nil {
			var templateParams []model.ReportParameter
			if report.TemplateID != nil {
				if templateParams, err = s.paramRepo.ListByTemplate(txCtx, *report.TemplateID); err != nil {
					return fmt.Errorf("failed to load template parameters: %w", err)
				}
			}
			params, err := parameter.Merge(templateParams, overrides(req.Parameters))
			if err != nil {
				return err
			}
			if err := parameter.ValidateValues(params); err != nil {
				return err
			}
			if err := s.paramRepo.DeleteByReport(txCtx, report.ID); err != nil {
				return fmt.Errorf("failed to clear report parameters: %w", err)
			}
			for i := range params {
				params[i].ReportID = &report.ID
			}
			if err := s.paramRepo.CreateBatch(txCtx, params); err != nil {
				return fmt.Errorf("failed to bind report parameters: %w", err)
			}
			report.Parameters = params
		}

		updated = report
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateReport, report.ID.String(), report.Name, map[string]interface{}{
			"replaced_parameters": req.Parameters != nil,
		})
	})
	if err != nil {
		return ReportResponse{}, err
	}

	return toReportResponse(*updated), nil
}

func (s *reportService) applyUpdate(ctx context.Context, report *model.Report, req UpdateReportRequest) error {
	var err error
	if req.Name != nil {
		report.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		report.Description = *req.Description
	}
	if req.Format != nil {
		report.Format = model.ReportFormat(*req.Format)
	}
	if req.StartDate != nil {
		if report.StartDate, err = parseDay("start_date", *req.StartDate); err != nil {
			return err
		}
	}
	if req.EndDate != nil {
		if report.EndDate, err = parseDay("end_date", *req.EndDate); err != nil {
			return err
		}
	}
	if err := checkWindow(report.StartDate, report.EndDate); err != nil {
		return err
	}
	if req.Scheduled != nil {
		report.Scheduled = *req.Scheduled
	}
	if req.ScheduleCron != nil {
		report.ScheduleCron = strings.TrimSpace(*req.ScheduleCron)
	}
	if req.TotalAmount != nil {
		if report.TotalAmount, err = parseAmount(*req.TotalAmount); err != nil {
			return err
		}
	}
	if req.CurrencyCode != nil {
		report.CurrencyCode = strings.ToUpper(*req.CurrencyCode)
	}
	if req.ProjectID != nil {
		report.ProjectID = optional(*req.ProjectID)
	}
	if req.ClientID != nil {
		report.ClientID = optional(*req.ClientID)
	}
	if req.IsPublic != nil {
		report.IsPublic = *req.IsPublic
	}
	if req.TemplateID != nil {
		if *req.TemplateID == "" {
			report.TemplateID = nil
		} else {
			tmpl, err := s.loadUsableTemplate(ctx, *req.TemplateID)
			if err != nil {
				return err
			}
			report.TemplateID = &tmpl.ID
		}
	}
	return nil
}

// DeleteReport removes the owned parameters first, then the report, in one transaction.
func (s *reportService) DeleteReport(ctx context.Context, id string, actor string) error {
	reportID, err := parseID("report", id)
	if err != nil {
		return err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		report, err := s.reportRepo.FindByIDForUpdate(txCtx, reportID)
		if err != nil {
			return notFound("report "+id, err)
		}
		if report.Status == model.StatusGenerating {
			return fmt.Errorf("%w: report %s is generating", ErrTransitionConflict, id)
		}
		if err := s.paramRepo.DeleteByReport(txCtx, reportID); err != nil {
			return fmt.Errorf("failed to delete report parameters: %w", err)
		}
		rows, err := s.reportRepo.Delete(txCtx, reportID)
		if err != nil {
			return fmt.Errorf("failed to delete report: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("report %s: %w", id, ErrNotFound)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionDeleteReport, id, report.Name, map[string]interface{}{
			"parameters": len(report.Parameters),
			"file_path":  report.FilePath,
		})
	})
	if err != nil {
		return err
	}

	zerolog.Ctx(ctx).Info().Str("report_id", id).Str("actor", actor).Msg("report deleted")
	return nil
}

func (s *reportService) SearchReports(ctx context.Context, req ReportSearchRequest) ([]ReportResponse, int64, error) {
	page, limit := normalizePage(req.Page, req.Limit)

	filter := repository.ReportFilter{
		ClientID:  strings.TrimSpace(req.ClientID),
		ProjectID: strings.TrimSpace(req.ProjectID),
	}
	if req.Type != "" {
		t := model.ReportType(strings.ToUpper(req.Type))
		if !t.Valid() {
			return nil, 0, invalid("unknown report type %q", req.Type)
		}
		filter.Type = t
	}
	var err error
	if filter.CreatedFrom, err = parseDay("start_date", req.CreatedFrom); err != nil {
		return nil, 0, err
	}
	if filter.CreatedTo, err = parseDay("end_date", req.CreatedTo); err != nil {
		return nil, 0, err
	}
	if filter.CreatedTo != nil && len(strings.TrimSpace(req.CreatedTo)) == len(parameter.DateLayout) {
		// A bare date includes the whole day.
		end := filter.CreatedTo.Add(24*time.Hour - time.Nanosecond)
		filter.CreatedTo = &end
	}

	reports, total, err := s.reportRepo.Search(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search reports: %w", err)
	}

	result := make([]ReportResponse, 0, len(reports))
	for _, r := range reports {
		result = append(result, toReportResponse(r))
	}
	return result, total, nil
}

// FindPublic resolves a public report by token. Unknown tokens and tokens of
// private reports are both reported as ErrNotFound.
func (s *reportService) FindPublic(ctx context.Context, accessToken string) (ReportResponse, error) {
	report, err := s.findPublic(ctx, accessToken)
	if err != nil {
		return ReportResponse{}, err
	}
	return toPublicResponse(*report), nil
}

func (s *reportService) findPublic(ctx context.Context, accessToken string) (*model.Report, error) {
	token := strings.TrimSpace(accessToken)
	if token == "" {
		return nil, fmt.Errorf("public report: %w", ErrNotFound)
	}
	report, err := s.reportRepo.FindPublic(ctx, token)
	if err != nil {
		return nil, notFound("public report", err)
	}
	return report, nil
}

func (s *reportService) DownloadPath(ctx context.Context, id string) (string, error) {
	reportID, err := parseID("report", id)
	if err != nil {
		return "", err
	}
	report, err := s.reportRepo.FindByID(ctx, reportID)
	if err != nil {
		return "", notFound("report "+id, err)
	}
	return artifactPath(report)
}

func (s *reportService) PublicDownloadPath(ctx context.Context, accessToken string) (string, error) {
	report, err := s.findPublic(ctx, accessToken)
	if err != nil {
		return "", err
	}
	return artifactPath(report)
}

func artifactPath(report *model.Report) (string, error) {
	if report.Status != model.StatusCompleted || report.FilePath == "" {
		return "", fmt.Errorf("report %s has no artifact: %w", report.ID, ErrFileNotFound)
	}
	if _, err := os.Stat(report.FilePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("report %s: %w", report.ID, ErrFileNotFound)
		}
		return "", fmt.Errorf("failed to stat report file: %w", err)
	}
	return report.FilePath, nil
}

// --- Helpers ---

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func parseDay(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(parameter.DateLayout, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, invalid("%s must be YYYY-MM-DD or RFC 3339, got %q", field, raw)
	}
	t = t.UTC()
	return &t, nil
}

func checkWindow(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return invalid("end_date must not be before start_date")
	}
	return nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, invalid("invalid total_amount %q", raw)
	}
	return amount, nil
}

func toReportResponse(r model.Report) ReportResponse {
	resp := ReportResponse{
		ID:             r.ID.String(),
		Name:           r.Name,
		Description:    r.Description,
		Type:           string(r.Type),
		Format:         string(r.Format),
		Status:         string(r.Status),
		StartDate:      formatDay(r.StartDate),
		EndDate:        formatDay(r.EndDate),
		FileSize:       r.FileSize,
		Scheduled:      r.Scheduled,
		ScheduleCron:   r.ScheduleCron,
		LastGenerated:  formatTime(r.LastGenerated),
		NextGeneration: formatTime(r.NextGeneration),
		TotalAmount:    r.TotalAmount.StringFixed(4),
		CurrencyCode:   r.CurrencyCode,
		ProjectID:      r.ProjectID,
		ClientID:       r.ClientID,
		IsPublic:       r.IsPublic,
		Parameters:     toParameterResponses(r.Parameters),
		CreatedAt:      r.CreatedAt.UTC().Format(time.RFC3339),
		CreatedBy:      r.CreatedBy,
		UpdatedAt:      r.UpdatedAt.UTC().Format(time.RFC3339),
		UpdatedBy:      r.UpdatedBy,
	}
	if r.FilePath != "" {
		resp.FileName = filepath.Base(r.FilePath)
	}
	if r.TemplateID != nil {
		id := r.TemplateID.String()
		resp.TemplateID = &id
	}
	if r.IsPublic && r.AccessToken != nil {
		resp.AccessToken = *r.AccessToken
	}
	return resp
}

func toPublicResponse(r model.Report) ReportResponse {
	resp := toReportResponse(r)
	resp.AccessToken = ""
	resp.CreatedBy = ""
	resp.UpdatedBy = ""
	resp.TemplateID = nil
	return resp
}

func formatDay(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(parameter.DateLayout)
	return &s
}
