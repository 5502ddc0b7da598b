package parameter

import (
	"testing"

	"finreports/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestMergeOverrideWinsOnNameCollision(t *testing.T) {
	tmpl := []model.ReportParameter{
		{Name: "currency", Type: model.ParamList, ListValues: "CAD,USD", DefaultValue: "CAD", Required: true, DisplayOrder: 1},
		{Name: "threshold", Type: model.ParamNumber, DefaultValue: "10", MinValue: "0"},
	}
	overrides := []Override{
		{Name: "currency", Value: "USD"},
		{Name: "project_code", Type: model.ParamString, Value: "P-42", Required: boolPtr(true)},
	}

	merged, err := Merge(tmpl, overrides)
	require.NoError(t, err)
	require.Len(t, merged, 3)

	assert.Equal(t, "currency", merged[0].Name)
	assert.Equal(t, "USD", merged[0].Value)
	assert.Equal(t, "CAD,USD", merged[0].ListValues)
	assert.True(t, merged[0].Required)
	assert.Equal(t, 1, merged[0].DisplayOrder)

	assert.Equal(t, "10", merged[1].Value, "template default seeds the value")
	assert.Equal(t, "0", merged[1].MinValue)

	assert.Equal(t, "project_code", merged[2].Name)
	assert.True(t, merged[2].Required)

	for _, p := range merged {
		assert.Nil(t, p.ReportID)
		assert.Nil(t, p.TemplateID)
	}
}

func TestMergeOverrideDefaultReplacesSeededValue(t *testing.T) {
	tmpl := []model.ReportParameter{{Name: "threshold", Type: model.ParamNumber, DefaultValue: "10"}}
	merged, err := Merge(tmpl, []Override{{Name: "threshold", DefaultValue: "20"}})
	require.NoError(t, err)
	assert.Equal(t, "20", merged[0].Value)
	assert.Equal(t, "20", merged[0].DefaultValue)
}

func TestMergeRejectsBadOverrides(t *testing.T) {
	_, err := Merge(nil, []Override{{Name: "a"}, {Name: "a"}})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = Merge(nil, []Override{{Name: " "}})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = Merge(nil, []Override{{Name: "a", Type: "BLOB"}})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestFromOverridesDefaultsToString(t *testing.T) {
	params, err := FromOverrides([]Override{{Name: "memo", Value: "x"}})
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Equal(t, model.ParamString, params[0].Type)
}

func TestCheckUniqueNames(t *testing.T) {
	assert.NoError(t, CheckUniqueNames([]model.ReportParameter{{Name: "a"}, {Name: "b"}}))
	assert.ErrorIs(t, CheckUniqueNames([]model.ReportParameter{{Name: "a"}, {Name: "a"}}), ErrValidation)
}
