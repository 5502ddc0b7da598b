package parameter

import (
	"fmt"
	"strings"

	"finreports/internal/model"
)

// Override is a caller-supplied parameter. Nil or empty fields inherit from the
// template parameter of the same name.
type Override struct {
	Name              string
	DisplayName       string
	Description       string
	Type              model.ParameterType
	Required          *bool
	Value             string
	DefaultValue      string
	ValidationRegex   string
	ValidationMessage string
	ListValues        string
	MinValue          string
	MaxValue          string
	DisplayOrder      *int
}

// Merge builds the report-level parameter set: template parameters seed the
// result with value := defaultValue, overrides win on a name collision, and
// overrides with new names are appended. The returned parameters have no owner.
func Merge(templateParams []model.ReportParameter, overrides []Override) ([]model.ReportParameter, error) {
	merged := make([]model.ReportParameter, 0, len(templateParams)+len(overrides))
	index := make(map[string]int, len(templateParams)+len(overrides))

	for _, tp := range templateParams {
		p := model.ReportParameter{
			Name:              tp.Name,
			DisplayName:       tp.DisplayName,
			Description:       tp.Description,
			Type:              tp.Type,
			Required:          tp.Required,
			DefaultValue:      tp.DefaultValue,
			Value:             tp.DefaultValue,
			ValidationRegex:   tp.ValidationRegex,
			ValidationMessage: tp.ValidationMessage,
			ListValues:        tp.ListValues,
			MinValue:          tp.MinValue,
			MaxValue:          tp.MaxValue,
			DisplayOrder:      tp.DisplayOrder,
		}
		index[p.Name] = len(merged)
		merged = append(merged, p)
	}

	seen := make(map[string]bool, len(overrides))
	for _, o := range overrides {
		name := strings.TrimSpace(o.Name)
		if name == "" {
			return nil, newError(name, InvalidDefinition, "name is required")
		}
		if seen[name] {
			return nil, newError(name, InvalidDefinition, "duplicate parameter name")
		}
		seen[name] = true

		if i, ok := index[name]; ok {
			apply(&merged[i], o)
			continue
		}
		p := model.ReportParameter{Name: name, Type: model.ParamString, Value: o.DefaultValue}
		apply(&p, o)
		index[name] = len(merged)
		merged = append(merged, p)
	}

	for _, p := range merged {
		if !p.Type.Valid() {
			return nil, newError(p.Name, InvalidDefinition, "unknown parameter type %q", p.Type)
		}
	}
	return merged, nil
}

// FromOverrides builds an owner-less parameter set without a template.
func FromOverrides(overrides []Override) ([]model.ReportParameter, error) {
	return Merge(nil, overrides)
}

// CheckUniqueNames rejects definitions whose names collide within one owner.
func CheckUniqueNames(params []model.ReportParameter) error {
	seen := make(map[string]bool, len(params))
	for _, p := range params {
		if seen[p.Name] {
			return &ValidationError{Parameter: p.Name, Kind: InvalidDefinition, Message: fmt.Sprintf("duplicate parameter name %q", p.Name)}
		}
		seen[p.Name] = true
	}
	return nil
}

func apply(p *model.ReportParameter, o Override) {
	if o.DisplayName != "" {
		p.DisplayName = o.DisplayName
	}
	if o.Description != "" {
		p.Description = o.Description
	}
	if o.Type != "" {
		p.Type = o.Type
	}
	if o.Required != nil {
		p.Required = *o.Required
	}
	if o.DefaultValue != "" {
		if p.Value == p.DefaultValue {
			p.Value = o.DefaultValue
		}
		p.DefaultValue = o.DefaultValue
	}
	if o.Value != "" {
		p.Value = o.Value
	}
	if o.ValidationRegex != "" {
		p.ValidationRegex = o.ValidationRegex
	}
	if o.ValidationMessage != "" {
		p.ValidationMessage = o.ValidationMessage
	}
	if o.ListValues != "" {
		p.ListValues = o.ListValues
	}
	if o.MinValue != "" {
		p.MinValue = o.MinValue
	}
	if o.MaxValue != "" {
		p.MaxValue = o.MaxValue
	}
	if o.DisplayOrder != nil {
		p.DisplayOrder = *o.DisplayOrder
	}
}
