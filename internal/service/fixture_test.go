package service

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"finreports/internal/metrics"
	"finreports/internal/model"
	"finreports/internal/producer"
	"finreports/internal/repository"
	"finreports/internal/testutil"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testActor = "user-1"

var testNow = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

type producerFunc func(ctx context.Context, report model.Report, params []model.ReportParameter) (producer.Artifact, error)

func (f producerFunc) Produce(ctx context.Context, report model.Report, params []model.ReportParameter) (producer.Artifact, error) {
	return f(ctx, report, params)
}

// writingProducer writes a small file per call into dir.
func writingProducer(t *testing.T) producerFunc {
	dir := t.TempDir()
	return func(_ context.Context, report model.Report, _ []model.ReportParameter) (producer.Artifact, error) {
		return writeArtifact(t, dir, report.ID.String()+"-"+uuid.NewString()[:8]+".csv"), nil
	}
}

func writeArtifact(t *testing.T, dir, name string) producer.Artifact {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("section,field,value\n"), 0o644))
	return producer.Artifact{Path: path, Size: 20}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []StatusEvent
}

func (n *recordingNotifier) NotifyStatus(e StatusEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) transitions() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.From+"->"+e.To)
	}
	return out
}

type fixture struct {
	db         *gorm.DB
	reportRepo repository.ReportRepository
	paramRepo  repository.ParameterRepository
	auditRepo  repository.AuditRepository
	reports    *reportService
	lifecycle  *lifecycleService
	templates  TemplateService
	notifier   *recordingNotifier
	metrics    *metrics.Metrics
	clock      time.Time
}

func newFixture(t *testing.T, prod Producer) *fixture {
	return newFixtureWithConfig(t, prod, LifecycleConfig{
		Schedule:          ScheduleConfig{NextRunOffset: 24 * time.Hour},
		GenerationTimeout: 5 * time.Second,
	})
}

func newFixtureWithConfig(t *testing.T, prod Producer, cfg LifecycleConfig) *fixture {
	t.Helper()
	db := testutil.NewDB(t)

	f := &fixture{
		db:         db,
		reportRepo: repository.NewReportRepository(db),
		paramRepo:  repository.NewParameterRepository(db),
		auditRepo:  repository.NewAuditRepository(db),
		notifier:   &recordingNotifier{},
		metrics:    metrics.New(prometheus.NewRegistry()),
		clock:      testNow,
	}
	templateRepo := repository.NewTemplateRepository(db)
	txManager := repository.NewTransactionManager(db)

	f.reports = NewReportService(f.reportRepo, f.paramRepo, templateRepo, f.auditRepo, txManager, nil, cfg.Schedule).(*reportService)
	f.reports.now = f.now
	f.lifecycle = NewLifecycleService(f.reports, f.reportRepo, f.auditRepo, txManager, prod, f.notifier, f.metrics, cfg).(*lifecycleService)
	f.lifecycle.now = f.now
	f.templates = NewTemplateService(templateRepo, f.paramRepo, f.reportRepo, f.auditRepo, txManager)
	return f
}

func (f *fixture) now() time.Time { return f.clock }

func (f *fixture) createReport(t *testing.T, req CreateReportRequest) ReportResponse {
	t.Helper()
	if req.Name == "" {
		req.Name = "Q1"
	}
	if req.Type == "" {
		req.Type = string(model.ReportTypeExpense)
	}
	res, err := f.reports.CreateReport(context.Background(), testActor, req)
	require.NoError(t, err)
	return res
}

func (f *fixture) load(t *testing.T, id string) *model.Report {
	t.Helper()
	r, err := f.reportRepo.FindByID(context.Background(), uuid.MustParse(id))
	require.NoError(t, err)
	return r
}

func (f *fixture) countParameters(t *testing.T, column string, id string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&model.ReportParameter{}).Where(column+" = ?", uuid.MustParse(id)).Count(&n).Error)
	return n
}

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }

func filepathBase(p string) string { return filepath.Base(p) }
