package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"finreports/internal/metrics"
	"finreports/internal/model"
	"finreports/internal/parameter"
	"finreports/internal/producer"
	"finreports/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Producer renders a report artifact. It may be slow and is never called inside
// a database transaction.
type Producer interface {
	Produce(ctx context.Context, report model.Report, params []model.ReportParameter) (producer.Artifact, error)
}

// --- DTOs ---

// StatusUpdateRequest is the operator override. Moving to COMPLETED requires the
// artifact that the report now points at.
type StatusUpdateRequest struct {
	Status   string `json:"status" binding:"required"`
	FilePath string `json:"file_path"`
	FileSize int64  `json:"file_size" binding:"gte=0"`
}

type LifecycleConfig struct {
	Schedule          ScheduleConfig
	GenerationTimeout time.Duration
}

// --- Interface ---

type LifecycleService interface {
	// Generate moves a PENDING, ERROR or COMPLETED report through GENERATING to
	// COMPLETED or ERROR.
	Generate(ctx context.Context, id string, actor string) (ReportResponse, error)
	CreateAndGenerate(ctx context.Context, actor string, req CreateReportRequest) (ReportResponse, error)
	UpdateStatus(ctx context.Context, id string, actor string, req StatusUpdateRequest) (ReportResponse, error)
	// RecoverStale fails reports left GENERATING since before cutoff.
	RecoverStale(ctx context.Context, cutoff time.Time) (int, error)
}

type lifecycleService struct {
	reports    ReportService
	reportRepo repository.ReportRepository
	auditRepo  repository.AuditRepository
	txManager  repository.TransactionManager
	producer   Producer
	notifier   Notifier
	metrics    *metrics.Metrics
	cfg        LifecycleConfig
	validate   validatorFunc
	now        func() time.Time
}

type validatorFunc func(interface{}) error

func NewLifecycleService(
	reports ReportService,
	reportRepo repository.ReportRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	producer Producer,
	notifier Notifier,
	m *metrics.Metrics,
	cfg LifecycleConfig,
) LifecycleService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = 5 * time.Minute
	}
	v := newValidator()
	return &lifecycleService{
		reports:    reports,
		reportRepo: reportRepo,
		auditRepo:  auditRepo,
		txManager:  txManager,
		producer:   producer,
		notifier:   notifier,
		metrics:    m,
		cfg:        cfg,
		validate:   func(req interface{}) error { return validateRequest(v, req) },
		now:        time.Now,
	}
}

// --- Implementation ---

func (s *lifecycleService) Generate(ctx context.Context, id string, actor string) (ReportResponse, error) {
	reportID, err := parseID("report", id)
	if err != nil {
		return ReportResponse{}, err
	}

	claimed, from, err := s.claim(ctx, reportID, actor)
	if err != nil {
		return ReportResponse{}, err
	}
	s.announce(ctx, claimed, from, actor)

	return s.run(ctx, claimed, actor)
}

// claim validates the report's parameters and flips it to GENERATING in its own
// transaction, so observers see the in-flight state while the file is produced.
func (s *lifecycleService) claim(ctx context.Context, reportID uuid.UUID, actor string) (*model.Report, model.ReportStatus, error) {
	var claimed *model.Report
	var from model.ReportStatus

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		report, err := s.reportRepo.FindByIDForUpdate(txCtx, reportID)
		if err != nil {
			return notFound("report "+reportID.String(), err)
		}
		if !report.Status.CanGenerate() {
			return fmt.Errorf("%w: report %s is %s", ErrTransitionConflict, reportID, report.Status)
		}
		if err := parameter.ValidateForGeneration(report.Parameters); err != nil {
			return err
		}

		from = report.Status
		ok, err := s.reportRepo.UpdateStatusIf(txCtx, reportID, []model.ReportStatus{from}, map[string]interface{}{
			"status":     model.StatusGenerating,
			"file_path":  "",
			"file_size":  0,
			"updated_by": actor,
		})
		if err != nil {
			return fmt.Errorf("failed to claim report: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: report %s changed state", ErrTransitionConflict, reportID)
		}

		report.Status = model.StatusGenerating
		report.FilePath = ""
		report.FileSize = 0
		report.UpdatedBy = actor
		claimed = report
		return s.auditTransition(txCtx, report, from, actor, nil)
	})
	return claimed, from, err
}

func (s *lifecycleService) run(ctx context.Context, report *model.Report, actor string) (ReportResponse, error) {
	logger := zerolog.Ctx(ctx).With().Str("report_id", report.ID.String()).Str("actor", actor).Logger()

	start := s.now()
	artifact, produceErr := s.produce(ctx, report)
	elapsed := s.now().Sub(start)

	// The outcome is persisted even when the caller has gone away.
	ctx = context.WithoutCancel(ctx)
	now := s.now().UTC()

	if produceErr != nil {
		s.metrics.ObserveGeneration("error", elapsed)
		logger.Error().Err(produceErr).Msg("report generation failed")

		genErr := &GenerationError{ReportID: report.ID.String(), Err: produceErr}
		if err := s.finish(ctx, report, model.StatusError, map[string]interface{}{
			"status":     model.StatusError,
			"file_path":  "",
			"file_size":  0,
			"updated_by": actor,
		}, actor, map[string]interface{}{"error": produceErr.Error()}); err != nil {
			return ReportResponse{}, errors.Join(genErr, err)
		}
		return ReportResponse{}, genErr
	}

	updates := map[string]interface{}{
		"status":         model.StatusCompleted,
		"file_path":      artifact.Path,
		"file_size":      artifact.Size,
		"last_generated": now,
		"updated_by":     actor,
	}
	if report.ScheduleActive() {
		updates["next_generation"] = s.cfg.Schedule.NextRun(now)
	}
	if err := s.finish(ctx, report, model.StatusCompleted, updates, actor, map[string]interface{}{
		"file_path": artifact.Path,
		"file_size": artifact.Size,
	}); err != nil {
		_ = os.Remove(artifact.Path)
		s.metrics.ObserveGeneration("error", elapsed)
		return ReportResponse{}, err
	}

	s.metrics.ObserveGeneration("completed", elapsed)
	logger.Info().Str("file", artifact.Path).Int64("size", artifact.Size).Dur("elapsed", elapsed).Msg("report generated")

	return s.reports.GetReport(ctx, report.ID.String())
}

// finish persists the outcome of an attempt that this caller claimed.
func (s *lifecycleService) finish(ctx context.Context, report *model.Report, to model.ReportStatus, updates map[string]interface{}, actor string, details map[string]interface{}) error {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		ok, err := s.reportRepo.UpdateStatusIf(txCtx, report.ID, []model.ReportStatus{model.StatusGenerating}, updates)
		if err != nil {
			return fmt.Errorf("failed to record %s: %w", to, err)
		}
		if !ok {
			return fmt.Errorf("%w: report %s left GENERATING during production", ErrTransitionConflict, report.ID)
		}
		return s.auditTransition(txCtx, report, model.StatusGenerating, actor, withStatus(details, to))
	})
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("report_id", report.ID.String()).Msg("failed to persist generation outcome")
		return err
	}

	report.Status = to
	s.announce(ctx, report, model.StatusGenerating, actor)
	return nil
}

type produceResult struct {
	artifact producer.Artifact
	err      error
}

// produce runs the producer under the generation timeout. Panics and timeouts
// become errors; an artifact that arrives after the deadline is removed.
func (s *lifecycleService) produce(ctx context.Context, report *model.Report) (producer.Artifact, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.GenerationTimeout)
	defer cancel()

	done := make(chan produceResult, 1)
	go func() {
		var res produceResult
		defer func() {
			if r := recover(); r != nil {
				res = produceResult{err: fmt.Errorf("producer panicked: %v", r)}
			}
			done <- res
		}()
		res.artifact, res.err = s.producer.Produce(ctx, *report, report.Parameters)
	}()

	select {
	case res := <-done:
		return res.artifact, res.err
	case <-ctx.Done():
		go func() {
			if late := <-done; late.err == nil && late.artifact.Path != "" {
				_ = os.Remove(late.artifact.Path)
			}
		}()
		return producer.Artifact{}, fmt.Errorf("file production aborted: %w", ctx.Err())
	}
}

func (s *lifecycleService) CreateAndGenerate(ctx context.Context, actor string, req CreateReportRequest) (ReportResponse, error) {
	created, err := s.reports.CreateReport(ctx, actor, req)
	if err != nil {
		return ReportResponse{}, err
	}
	return s.Generate(ctx, created.ID, actor)
}

func (s *lifecycleService) UpdateStatus(ctx context.Context, id string, actor string, req StatusUpdateRequest) (ReportResponse, error) {
	if err := s.validate(req); err != nil {
		return ReportResponse{}, err
	}
	to, err := model.ParseReportStatus(req.Status)
	if err != nil {
		return ReportResponse{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	reportID, err := parseID("report", id)
	if err != nil {
		return ReportResponse{}, err
	}

	var changed *model.Report
	var from model.ReportStatus
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		report, err := s.reportRepo.FindByIDForUpdate(txCtx, reportID)
		if err != nil {
			return notFound("report "+id, err)
		}
		from = report.Status
		if !model.CanTransition(from, to) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
		}

		updates := map[string]interface{}{"status": to, "updated_by": actor}
		if to == model.StatusCompleted {
			if req.FilePath == "" {
				return invalid("file_path is required to mark a report COMPLETED")
			}
			now := s.now().UTC()
			updates["file_path"] = req.FilePath
			updates["file_size"] = req.FileSize
			updates["last_generated"] = now
			if report.ScheduleActive() {
				updates["next_generation"] = s.cfg.Schedule.NextRun(now)
			}
		} else {
			updates["file_path"] = ""
			updates["file_size"] = 0
		}

		ok, err := s.reportRepo.UpdateStatusIf(txCtx, reportID, []model.ReportStatus{from}, updates)
		if err != nil {
			return fmt.Errorf("failed to update report status: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: report %s changed state", ErrTransitionConflict, id)
		}
		report.Status = to
		changed = report
		return s.auditTransition(txCtx, report, from, actor, map[string]interface{}{"override": true})
	})
	if err != nil {
		return ReportResponse{}, err
	}

	zerolog.Ctx(ctx).Info().
		Str("report_id", id).
		Str("from", string(from)).
		Str("to", string(to)).
		Str("actor", actor).
		Msg("report status overridden")
	s.announce(ctx, changed, from, actor)

	return s.reports.GetReport(ctx, id)
}

func (s *lifecycleService) RecoverStale(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := s.reportRepo.FindStale(ctx, model.StatusGenerating, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to find stale reports: %w", err)
	}

	recovered := 0
	for i := range stale {
		report := &stale[i]
		err := s.finish(ctx, report, model.StatusError, map[string]interface{}{
			"status":     model.StatusError,
			"file_path":  "",
			"file_size":  0,
			"updated_by": SchedulerActor,
		}, SchedulerActor, map[string]interface{}{"error": "generation did not finish before " + cutoff.UTC().Format(time.RFC3339)})
		if errors.Is(err, ErrTransitionConflict) {
			continue
		}
		if err != nil {
			return recovered, err
		}
		recovered++
	}
	s.metrics.ObserveStale(recovered)
	return recovered, nil
}

func (s *lifecycleService) auditTransition(ctx context.Context, report *model.Report, from model.ReportStatus, actor string, details map[string]interface{}) error {
	if details == nil {
		details = map[string]interface{}{}
	}
	details["from"] = from
	if _, ok := details["to"]; !ok {
		details["to"] = report.Status
	}
	return writeAudit(ctx, s.auditRepo, actor, model.ActionReportStatusChange, report.ID.String(), report.Name, details)
}

func (s *lifecycleService) announce(ctx context.Context, report *model.Report, from model.ReportStatus, actor string) {
	zerolog.Ctx(ctx).Info().
		Str("report_id", report.ID.String()).
		Str("from", string(from)).
		Str("to", string(report.Status)).
		Str("actor", actor).
		Msg("report status changed")
	s.notifier.NotifyStatus(StatusEvent{
		ReportID: report.ID.String(),
		Name:     report.Name,
		From:     string(from),
		To:       string(report.Status),
		Actor:    actor,
		At:       s.now().UTC(),
	})
}

func withStatus(details map[string]interface{}, to model.ReportStatus) map[string]interface{} {
	if details == nil {
		details = map[string]interface{}{}
	}
	details["to"] = to
	return details
}
