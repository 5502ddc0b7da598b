package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"finreports/internal/middleware"
	"finreports/internal/model"
	"finreports/internal/producer"
	"finreports/internal/repository"
	"finreports/internal/service"
	"finreports/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	router *gin.Engine
	auth   *middleware.Authenticator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)

	reportRepo := repository.NewReportRepository(db)
	paramRepo := repository.NewParameterRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	txManager := repository.NewTransactionManager(db)

	reports := service.NewReportService(reportRepo, paramRepo, templateRepo, auditRepo, txManager, nil, service.ScheduleConfig{NextRunOffset: 24 * time.Hour})
	lifecycle := service.NewLifecycleService(reports, reportRepo, auditRepo, txManager, producer.New(t.TempDir()), nil, nil,
		service.LifecycleConfig{GenerationTimeout: 10 * time.Second})
	templates := service.NewTemplateService(templateRepo, paramRepo, reportRepo, auditRepo, txManager)
	audits := service.NewAuditService(auditRepo)

	auth := middleware.NewAuthenticator([]byte("test-secret"))
	r := gin.New()
	api := r.Group("")
	NewReportHandler(reports, auth).RegisterRoutes(api)
	NewGenerationHandler(lifecycle, auth).RegisterRoutes(api)
	NewTemplateHandler(templates, auth).RegisterRoutes(api)
	NewPublicHandler(reports, middleware.NewIPRateLimiter(1000, 1000)).RegisterRoutes(api)
	NewAuditHandler(audits, auth).RegisterRoutes(api)

	return &testEnv{router: r, auth: auth}
}

func (e *testEnv) do(t *testing.T, method, path, role string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		token, err := e.auth.Issue("user-"+role, role, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, into interface{}) {
	t.Helper()
	var env struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  string          `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	require.Equal(t, "success", env.Status, env.Error)
	require.NoError(t, json.Unmarshal(env.Data, into))
}

func (e *testEnv) createReport(t *testing.T, body map[string]interface{}) service.ReportResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/reports", model.RoleAccountant, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var res service.ReportResponse
	decodeData(t, w, &res)
	return res
}

func TestReportLifecycleOverHTTP(t *testing.T) {
	e := newTestEnv(t)

	created := e.createReport(t, map[string]interface{}{
		"name": "Q1 expenses", "type": "EXPENSE", "format": "CSV",
		"parameters": []map[string]interface{}{{"name": "period_end", "type": "DATE", "required": true}},
	})
	assert.Equal(t, "PENDING", created.Status)
	assert.Equal(t, "user-ACCOUNTANT", created.CreatedBy)

	w := e.do(t, http.MethodPost, "/api/reports/"+created.ID+"/generate", model.RoleAccountant, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "required parameter is unbound")
	assert.Contains(t, w.Body.String(), "period_end")

	w = e.do(t, http.MethodPut, "/api/reports/"+created.ID, model.RoleFinancialManager, map[string]interface{}{
		"parameters": []map[string]interface{}{{"name": "period_end", "type": "DATE", "required": true, "value": "2024-03-31"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, http.MethodPost, "/api/reports/"+created.ID+"/generate", model.RoleAccountant, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var done service.ReportResponse
	decodeData(t, w, &done)
	assert.Equal(t, "COMPLETED", done.Status)
	assert.Contains(t, done.FileName, "expense_q1_expenses_")

	w = e.do(t, http.MethodGet, "/api/reports/"+created.ID+"/download", model.RoleProjectManager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), done.FileName)
	assert.Contains(t, w.Body.String(), "period_end")

	w = e.do(t, http.MethodDelete, "/api/reports/"+created.ID, model.RoleAccountant, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "accountants cannot delete")

	w = e.do(t, http.MethodDelete, "/api/reports/"+created.ID, model.RoleFinancialManager, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/api/reports/"+created.ID, model.RoleAdmin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateReportRejections(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/api/reports", "", map[string]interface{}{"name": "x", "type": "TAX"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodPost, "/api/reports", model.RoleProjectManager, map[string]interface{}{"name": "x", "type": "TAX"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodPost, "/api/reports", model.RoleAccountant, map[string]interface{}{"name": "x", "type": "WEEKLY"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, "/api/reports", model.RoleAccountant, map[string]interface{}{
		"name": "x", "type": "TAX",
		"parameters": []map[string]interface{}{{"name": "rate", "type": "PERCENTAGE", "max_value": "100", "value": "120%"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateAndGenerateEndpoint(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/api/report-generations", model.RoleAdmin, map[string]interface{}{
		"name": "Cash", "type": "CASH_FLOW", "format": "JSON", "total_amount": "1250.50",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var res service.ReportResponse
	decodeData(t, w, &res)
	assert.Equal(t, "COMPLETED", res.Status)
	assert.Equal(t, "1250.5000", res.TotalAmount)
}

func TestStatusOverride(t *testing.T) {
	e := newTestEnv(t)
	created := e.createReport(t, map[string]interface{}{"name": "r", "type": "TAX"})
	path := "/api/reports/" + created.ID + "/status"

	w := e.do(t, http.MethodPatch, path, model.RoleFinancialManager, map[string]string{"status": "ERROR"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodPatch, path, model.RoleAdmin, map[string]string{"status": "COMPLETED", "file_path": "/tmp/x.pdf"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, http.MethodPatch, path, model.RoleAdmin, map[string]string{"status": "ARCHIVED"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPatch, path, model.RoleAdmin, map[string]string{"status": "ERROR"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res service.ReportResponse
	decodeData(t, w, &res)
	assert.Equal(t, "ERROR", res.Status)
	assert.Equal(t, "user-ADMIN", res.UpdatedBy)
}

func TestPublicAccess(t *testing.T) {
	e := newTestEnv(t)
	created := e.createReport(t, map[string]interface{}{"name": "Public P&L", "type": "REVENUE", "format": "HTML", "is_public": true})
	require.NotEmpty(t, created.AccessToken)

	w := e.do(t, http.MethodGet, "/api/public/reports/"+created.AccessToken, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res service.ReportResponse
	decodeData(t, w, &res)
	assert.Equal(t, created.ID, res.ID)
	assert.NotContains(t, w.Body.String(), created.AccessToken)
	assert.NotContains(t, w.Body.String(), "user-ACCOUNTANT")

	w = e.do(t, http.MethodGet, "/api/public/reports/"+created.AccessToken+"/download", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "nothing generated yet")

	w = e.do(t, http.MethodPost, "/api/reports/"+created.ID+"/generate", model.RoleAccountant, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, http.MethodGet, "/api/public/reports/"+created.AccessToken+"/download", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Public P&amp;L")

	w = e.do(t, http.MethodGet, "/api/public/reports/not-a-token", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTemplateEndpoints(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/api/templates", model.RoleAccountant, map[string]interface{}{"name": "t", "type": "TAX"})
	assert.Equal(t, http.StatusForbidden, w.Code, "template writes need manager rights")

	w = e.do(t, http.MethodPost, "/api/templates", model.RoleAdmin, map[string]interface{}{"name": "Balance", "type": "FINANCIAL_STATEMENT", "system_template": true})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var system service.TemplateResponse
	decodeData(t, w, &system)

	w = e.do(t, http.MethodDelete, "/api/templates/"+system.ID, model.RoleAdmin, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodPost, "/api/templates", model.RoleFinancialManager, map[string]interface{}{
		"name": "AP", "type": "ACCOUNTS_PAYABLE", "default_format": "EXCEL",
		"parameters": []map[string]interface{}{{"name": "vendor", "default_value": "ACME"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var tmpl service.TemplateResponse
	decodeData(t, w, &tmpl)

	report := e.createReport(t, map[string]interface{}{"name": "June AP", "type": "ACCOUNTS_PAYABLE", "template_id": tmpl.ID})
	assert.Equal(t, "EXCEL", report.Format)
	require.Len(t, report.Parameters, 1)
	assert.Equal(t, "ACME", report.Parameters[0].Value)

	w = e.do(t, http.MethodGet, "/api/templates?exclude_system=true", model.RoleProjectManager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Templates []service.TemplateResponse `json:"templates"`
		Total     int64                      `json:"total"`
	}
	decodeData(t, w, &list)
	assert.EqualValues(t, 1, list.Total)

	w = e.do(t, http.MethodDelete, "/api/templates/"+tmpl.ID, model.RoleFinancialManager, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/api/reports/"+report.ID, model.RoleAccountant, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detached service.ReportResponse
	decodeData(t, w, &detached)
	assert.Nil(t, detached.TemplateID)
}

func TestSearchAndAuditEndpoints(t *testing.T) {
	e := newTestEnv(t)
	first := e.createReport(t, map[string]interface{}{"name": "a", "type": "TAX", "client_id": "c-1"})
	e.createReport(t, map[string]interface{}{"name": "b", "type": "ASSET", "client_id": "c-2"})

	w := e.do(t, http.MethodGet, "/api/reports?client_id=c-1", model.RoleProjectManager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Reports []service.ReportResponse `json:"reports"`
		Total   int64                    `json:"total"`
	}
	decodeData(t, w, &page)
	assert.EqualValues(t, 1, page.Total)
	assert.Equal(t, first.ID, page.Reports[0].ID)

	w = e.do(t, http.MethodGet, "/api/reports?type=bogus", model.RoleProjectManager, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodGet, "/api/audit-logs?entity_id="+first.ID, model.RoleAccountant, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodGet, "/api/audit-logs?entity_id="+first.ID, model.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var logs struct {
		Logs  []service.AuditLogResponse `json:"logs"`
		Total int64                      `json:"total"`
	}
	decodeData(t, w, &logs)
	require.EqualValues(t, 1, logs.Total)
	assert.Equal(t, model.ActionCreateReport, logs.Logs[0].Action)
}
