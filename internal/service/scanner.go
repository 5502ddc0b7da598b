package service

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"finreports/internal/metrics"
	"finreports/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type ScannerConfig struct {
	Interval   time.Duration
	Workers    int
	StaleAfter time.Duration
}

// ScanResult summarizes one pass over the due reports.
type ScanResult struct {
	Due       int `json:"due"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Recovered int `json:"recovered"`
}

// Scanner feeds due scheduled reports into the lifecycle service.
type Scanner struct {
	reportRepo repository.ReportRepository
	lifecycle  LifecycleService
	metrics    *metrics.Metrics
	cfg        ScannerConfig
	now        func() time.Time
}

func NewScanner(reportRepo repository.ReportRepository, lifecycle LifecycleService, m *metrics.Metrics, cfg ScannerConfig) *Scanner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	return &Scanner{
		reportRepo: reportRepo,
		lifecycle:  lifecycle,
		metrics:    m,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Run scans every interval until ctx is cancelled.
func (s *Scanner) Run(ctx context.Context) {
	logger := zerolog.Ctx(ctx).With().Str("component", "scanner").Logger()
	ctx = logger.WithContext(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	logger.Info().Dur("interval", s.cfg.Interval).Int("workers", s.cfg.Workers).Msg("scanner started")
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("scanner stopped")
			return
		case <-ticker.C:
			if _, err := s.ScanOnce(ctx); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("scan pass failed")
			}
		}
	}
}

// ScanOnce recovers stale runs, then generates every due report with at most
// Workers in flight. A failing report never stops the rest of the pass.
func (s *Scanner) ScanOnce(ctx context.Context) (ScanResult, error) {
	logger := zerolog.Ctx(ctx)
	now := s.now().UTC()

	var result ScanResult
	if s.cfg.StaleAfter > 0 {
		recovered, err := s.lifecycle.RecoverStale(ctx, now.Add(-s.cfg.StaleAfter))
		if err != nil {
			logger.Error().Err(err).Msg("stale report recovery failed")
		}
		result.Recovered = recovered
	}

	due, err := s.reportRepo.FindDue(ctx, now)
	if err != nil {
		return result, err
	}
	result.Due = len(due)

	var completed, failed, skipped atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Workers)
	for _, report := range due {
		id := report.ID.String()
		g.Go(func() error {
			if ctx.Err() != nil {
				skipped.Add(1)
				return nil
			}
			_, err := s.lifecycle.Generate(ctx, id, SchedulerActor)
			switch {
			case err == nil:
				completed.Add(1)
			case errors.Is(err, ErrTransitionConflict):
				skipped.Add(1)
				logger.Debug().Str("report_id", id).Msg("due report already in flight")
			default:
				failed.Add(1)
				logger.Warn().Err(err).Str("report_id", id).Msg("scheduled generation failed")
			}
			return nil
		})
	}
	_ = g.Wait()

	result.Completed = int(completed.Load())
	result.Failed = int(failed.Load())
	result.Skipped = int(skipped.Load())
	s.metrics.ObserveScan(result.Due, result.Failed)

	logger.Info().
		Int("due", result.Due).
		Int("completed", result.Completed).
		Int("failed", result.Failed).
		Int("skipped", result.Skipped).
		Int("recovered", result.Recovered).
		Msg("scan pass finished")
	return result, nil
}
