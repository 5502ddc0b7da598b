package service

import (
	"context"
	"testing"

	"finreports/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTemplateDefaults(t *testing.T) {
	f := newFixture(t, writingProducer(t))

	tmpl, err := f.templates.CreateTemplate(context.Background(), testActor, CreateTemplateRequest{
		Name: "Quarterly tax",
		Type: "TAX",
		Parameters: []ParameterInput{
			{Name: "rate", Type: "PERCENTAGE", Value: "13%", MinValue: "0", MaxValue: "100"},
		},
	})
	require.NoError(t, err)
	assert.True(t, tmpl.Active)
	assert.Equal(t, "1.0", tmpl.Version)
	assert.Equal(t, "PDF", tmpl.DefaultFormat)
	require.Len(t, tmpl.Parameters, 1)
	assert.Equal(t, "13%", tmpl.Parameters[0].DefaultValue)
	assert.Empty(t, tmpl.Parameters[0].Value, "template parameters carry defaults only")

	got, err := f.templates.GetTemplate(context.Background(), tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, tmpl.Name, got.Name)
	assert.Len(t, got.Parameters, 1)
}

func TestCreateTemplateRejectsBadDefinitions(t *testing.T) {
	f := newFixture(t, writingProducer(t))
	ctx := context.Background()

	_, err := f.templates.CreateTemplate(ctx, testActor, CreateTemplateRequest{
		Name: "bad", Type: "TAX",
		Parameters: []ParameterInput{{Name: "code", ValidationRegex: "([a-z"}},
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.templates.CreateTemplate(ctx, testActor, CreateTemplateRequest{
		Name: "dup", Type: "TAX",
		Parameters: []ParameterInput{{Name: "a"}, {Name: "a"}},
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.templates.CreateTemplate(ctx, testActor, CreateTemplateRequest{Name: "x", Type: "BOGUS"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDeleteTemplate(t *testing.T) {
	f := newFixture(t, writingProducer(t))
	ctx := context.Background()

	system, err := f.templates.CreateTemplate(ctx, "admin", CreateTemplateRequest{Name: "Balance sheet", Type: "FINANCIAL_STATEMENT", SystemTemplate: true})
	require.NoError(t, err)
	assert.ErrorIs(t, f.templates.DeleteTemplate(ctx, system.ID, "admin"), ErrSystemTemplate)

	tmpl, err := f.templates.CreateTemplate(ctx, testActor, CreateTemplateRequest{
		Name: "AR aging", Type: "ACCOUNTS_RECEIVABLE",
		Parameters: []ParameterInput{{Name: "bucket", DefaultValue: "30"}, {Name: "client"}},
	})
	require.NoError(t, err)
	report := f.createReport(t, CreateReportRequest{Type: "ACCOUNTS_RECEIVABLE", TemplateID: tmpl.ID})
	require.EqualValues(t, 2, f.countParameters(t, "report_id", report.ID))

	require.NoError(t, f.templates.DeleteTemplate(ctx, tmpl.ID, testActor))

	assert.Zero(t, f.countParameters(t, "template_id", tmpl.ID))
	_, err = f.templates.GetTemplate(ctx, tmpl.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	detached := f.load(t, report.ID)
	assert.Nil(t, detached.TemplateID)
	assert.Len(t, detached.Parameters, 2, "reports keep their own parameters")

	assert.ErrorIs(t, f.templates.DeleteTemplate(ctx, tmpl.ID, testActor), ErrNotFound)
}

func TestUpdateTemplateReplacesParameters(t *testing.T) {
	f := newFixture(t, writingProducer(t))
	ctx := context.Background()

	tmpl, err := f.templates.CreateTemplate(ctx, testActor, CreateTemplateRequest{
		Name: "P&L", Type: "PROJECT_PROFITABILITY",
		Parameters: []ParameterInput{{Name: "a"}, {Name: "b"}},
	})
	require.NoError(t, err)

	updated, err := f.templates.UpdateTemplate(ctx, tmpl.ID, "user-2", UpdateTemplateRequest{
		Name:       strPtr("P&L by project"),
		Version:    strPtr("1.1"),
		Parameters: []ParameterInput{{Name: "project", Required: boolPtr(true)}},
	})
	require.NoError(t, err)
	assert.Equal(t, "P&L by project", updated.Name)
	assert.Equal(t, "1.1", updated.Version)
	assert.Equal(t, "user-2", updated.UpdatedBy)
	assert.EqualValues(t, 1, f.countParameters(t, "template_id", tmpl.ID))

	kept, err := f.templates.UpdateTemplate(ctx, tmpl.ID, testActor, UpdateTemplateRequest{Active: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, kept.Active)
	assert.Len(t, kept.Parameters, 1, "parameters untouched when not given")
}

func TestListTemplatesFilters(t *testing.T) {
	f := newFixture(t, writingProducer(t))
	ctx := context.Background()

	create := func(name, typ string, system bool) string {
		res, err := f.templates.CreateTemplate(ctx, testActor, CreateTemplateRequest{Name: name, Type: typ, SystemTemplate: system})
		require.NoError(t, err)
		return res.ID
	}
	create("sys", "TAX", true)
	create("user tax", "TAX", false)
	inactive := create("old", "EXPENSE", false)
	_, err := f.templates.UpdateTemplate(ctx, inactive, testActor, UpdateTemplateRequest{Active: boolPtr(false)})
	require.NoError(t, err)

	_, total, err := f.templates.ListTemplates(ctx, TemplateFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	_, total, err = f.templates.ListTemplates(ctx, TemplateFilter{Type: "tax"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	_, total, err = f.templates.ListTemplates(ctx, TemplateFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	res, total, err := f.templates.ListTemplates(ctx, TemplateFilter{ExcludeSystem: true, ActiveOnly: true})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "user tax", res[0].Name)

	var stored model.ReportTemplate
	require.NoError(t, f.db.First(&stored, "name = ?", "old").Error)
	assert.False(t, stored.Active)
}
