package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"finreports/internal/model"
	"finreports/internal/parameter"
	"finreports/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// SchedulerActor is recorded for changes made by the due-report scanner.
const SchedulerActor = "scheduler"

// newValidator shares gin's `binding` tags so requests arriving outside HTTP
// are held to the same rules.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName("binding")
	return v
}

func validateRequest(v *validator.Validate, req interface{}) error {
	if err := v.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

func parseID(kind, id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return uuid.Nil, invalid("invalid %s id %q", kind, id)
	}
	return parsed, nil
}

func writeAudit(ctx context.Context, repo repository.AuditRepository, actor, action, entityID, entityName string, details map[string]interface{}) error {
	payload, _ := json.Marshal(details)
	entry := &model.AuditLog{
		Actor:      actor,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
	}
	if err := repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func normalizePage(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return page, limit
}

// --- Parameter DTOs shared by reports and templates ---

type ParameterInput struct {
	Name              string `json:"name" binding:"required,max=100"`
	DisplayName       string `json:"display_name" binding:"max=255"`
	Description       string `json:"description"`
	Type              string `json:"type" binding:"omitempty,oneof=STRING NUMBER DATE DATETIME BOOLEAN LIST MULTI_LIST CURRENCY PERCENTAGE"`
	Required          *bool  `json:"required"`
	Value             string `json:"value"`
	DefaultValue      string `json:"default_value"`
	ValidationRegex   string `json:"validation_regex" binding:"max=500"`
	ValidationMessage string `json:"validation_message" binding:"max=500"`
	ListValues        string `json:"list_values"`
	MinValue          string `json:"min_value" binding:"max=50"`
	MaxValue          string `json:"max_value" binding:"max=50"`
	DisplayOrder      *int   `json:"display_order"`
}

func (p ParameterInput) override() parameter.Override {
	return parameter.Override{
		Name:              p.Name,
		DisplayName:       p.DisplayName,
		Description:       p.Description,
		Type:              model.ParameterType(p.Type),
		Required:          p.Required,
		Value:             p.Value,
		DefaultValue:      p.DefaultValue,
		ValidationRegex:   p.ValidationRegex,
		ValidationMessage: p.ValidationMessage,
		ListValues:        p.ListValues,
		MinValue:          p.MinValue,
		MaxValue:          p.MaxValue,
		DisplayOrder:      p.DisplayOrder,
	}
}

func overrides(inputs []ParameterInput) []parameter.Override {
	out := make([]parameter.Override, 0, len(inputs))
	for _, in := range inputs {
		out = append(out, in.override())
	}
	return out
}

type ParameterResponse struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	DisplayName       string `json:"display_name"`
	Description       string `json:"description"`
	Type              string `json:"type"`
	Required          bool   `json:"required"`
	Value             string `json:"value,omitempty"`
	DefaultValue      string `json:"default_value,omitempty"`
	ValidationRegex   string `json:"validation_regex,omitempty"`
	ValidationMessage string `json:"validation_message,omitempty"`
	ListValues        string `json:"list_values,omitempty"`
	MinValue          string `json:"min_value,omitempty"`
	MaxValue          string `json:"max_value,omitempty"`
	DisplayOrder      int    `json:"display_order"`
}

func toParameterResponses(params []model.ReportParameter) []ParameterResponse {
	res := make([]ParameterResponse, 0, len(params))
	for _, p := range params {
		res = append(res, ParameterResponse{
			ID:                p.ID.String(),
			Name:              p.Name,
			DisplayName:       p.DisplayName,
			Description:       p.Description,
			Type:              string(p.Type),
			Required:          p.Required,
			Value:             p.Value,
			DefaultValue:      p.DefaultValue,
			ValidationRegex:   p.ValidationRegex,
			ValidationMessage: p.ValidationMessage,
			ListValues:        p.ListValues,
			MinValue:          p.MinValue,
			MaxValue:          p.MaxValue,
			DisplayOrder:      p.DisplayOrder,
		})
	}
	return res
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
