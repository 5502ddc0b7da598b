package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"finreports/internal/model"
	"finreports/internal/producer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScanner(f *fixture, workers int) *Scanner {
	s := NewScanner(f.reportRepo, f.lifecycle, f.metrics, ScannerConfig{Workers: workers, StaleAfter: time.Hour})
	s.now = func() time.Time { return f.clock }
	return s
}

func TestScanOnceContinuesPastFailures(t *testing.T) {
	dir := t.TempDir()
	f := newFixture(t, producerFunc(func(_ context.Context, report model.Report, _ []model.ReportParameter) (producer.Artifact, error) {
		if report.Name == "broken" {
			return producer.Artifact{}, errors.New("template missing")
		}
		return writeArtifact(t, dir, report.ID.String()+".pdf"), nil
	}))

	f.createReport(t, CreateReportRequest{Name: "ok-1", Scheduled: true, ScheduleCron: "@daily"})
	f.createReport(t, CreateReportRequest{Name: "broken", Scheduled: true, ScheduleCron: "@daily"})
	f.createReport(t, CreateReportRequest{
		Name: "unbound", Scheduled: true, ScheduleCron: "@daily",
		Parameters: []ParameterInput{{Name: "period", Required: boolPtr(true)}},
	})
	f.createReport(t, CreateReportRequest{Name: "ok-2", Scheduled: true, ScheduleCron: "@daily"})
	f.createReport(t, CreateReportRequest{Name: "manual"})

	f.clock = testNow.Add(time.Minute)
	scanner := newTestScanner(f, 2)

	res, err := scanner.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ScanResult{Due: 4, Completed: 2, Failed: 2}, res)

	statuses := map[string]model.ReportStatus{}
	var reports []model.Report
	require.NoError(t, f.db.Find(&reports).Error)
	for _, r := range reports {
		statuses[r.Name] = r.Status
	}
	assert.Equal(t, map[string]model.ReportStatus{
		"ok-1":    model.StatusCompleted,
		"ok-2":    model.StatusCompleted,
		"broken":  model.StatusError,
		"unbound": model.StatusPending,
		"manual":  model.StatusPending,
	}, statuses)

	// Completed reports moved a day ahead; the failures are retried next pass.
	res, err = scanner.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Due)
	assert.Equal(t, 2, res.Failed)
}

func TestScanOnceRespectsWorkerLimit(t *testing.T) {
	dir := t.TempDir()
	var inFlight, peak atomic.Int32
	f := newFixture(t, producerFunc(func(_ context.Context, report model.Report, _ []model.ReportParameter) (producer.Artifact, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return writeArtifact(t, dir, report.ID.String()+".pdf"), nil
	}))

	for i := 0; i < 6; i++ {
		f.createReport(t, CreateReportRequest{Scheduled: true, ScheduleCron: "@hourly"})
	}
	f.clock = testNow.Add(time.Second)

	res, err := newTestScanner(f, 2).ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, res.Completed)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestScanOnceRecoversStaleFirst(t *testing.T) {
	f := newFixture(t, writingProducer(t))

	res := f.createReport(t, CreateReportRequest{Scheduled: true, ScheduleCron: "@daily"})
	require.NoError(t, f.db.Model(&model.Report{}).Where("id = ?", res.ID).
		UpdateColumns(map[string]interface{}{"status": model.StatusGenerating, "updated_at": testNow.Add(-3 * time.Hour)}).Error)

	f.clock = testNow.Add(time.Minute)
	result, err := newTestScanner(f, 1).ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Recovered)
	assert.Equal(t, 1, result.Completed, "the recovered report is still due and runs in the same pass")
	assert.Equal(t, model.StatusCompleted, f.load(t, res.ID).Status)
}

func TestScannerRunStopsOnCancel(t *testing.T) {
	f := newFixture(t, writingProducer(t))
	s := NewScanner(f.reportRepo, f.lifecycle, f.metrics, ScannerConfig{Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(stopped)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("scanner did not stop")
	}
}
