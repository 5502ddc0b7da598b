// Package app wires repositories and services from configuration.
package app

import (
	"finreports/internal/config"
	"finreports/internal/metrics"
	"finreports/internal/producer"
	"finreports/internal/repository"
	"finreports/internal/service"

	"gorm.io/gorm"
)

// Services is the dependency graph shared by the API server and reportctl.
type Services struct {
	Reports   service.ReportService
	Lifecycle service.LifecycleService
	Templates service.TemplateService
	Audit     service.AuditService
	Scanner   *service.Scanner
}

// New sets up dependencies (Repository -> Service). A nil notifier drops status
// events; nil metrics disables instrumentation.
func New(cfg config.Config, db *gorm.DB, notifier service.Notifier, m *metrics.Metrics) *Services {
	reportRepo := repository.NewReportRepository(db)
	paramRepo := repository.NewParameterRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	txManager := repository.NewTransactionManager(db)

	schedule := service.ScheduleConfig{NextRunOffset: cfg.Scheduler.NextRunOffset}

	reports := service.NewReportService(reportRepo, paramRepo, templateRepo, auditRepo, txManager, service.UUIDTokens{}, schedule)
	lifecycle := service.NewLifecycleService(reports, reportRepo, auditRepo, txManager, producer.New(cfg.Storage.Dir), notifier, m,
		service.LifecycleConfig{Schedule: schedule, GenerationTimeout: cfg.Scheduler.GenerationTimeout})

	return &Services{
		Reports:   reports,
		Lifecycle: lifecycle,
		Templates: service.NewTemplateService(templateRepo, paramRepo, reportRepo, auditRepo, txManager),
		Audit:     service.NewAuditService(auditRepo),
		Scanner: service.NewScanner(reportRepo, lifecycle, m, service.ScannerConfig{
			Interval:   cfg.Scheduler.Interval,
			Workers:    cfg.Scheduler.Workers,
			StaleAfter: cfg.Scheduler.StaleAfter,
		}),
	}
}
