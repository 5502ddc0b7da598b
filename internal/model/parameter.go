package model

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrParameterOwner is returned when a parameter is bound to neither or both owners.
var ErrParameterOwner = errors.New("parameter must belong to exactly one of template or report")

// ReportParameter is a typed input. Rows with TemplateID set carry template defaults,
// rows with ReportID set carry values bound to a report.
type ReportParameter struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string        `gorm:"type:varchar(100);not null" json:"name"`
	DisplayName string        `gorm:"type:varchar(255)" json:"display_name"`
	Description string        `gorm:"type:text" json:"description"`
	Type        ParameterType `gorm:"type:varchar(20);not null" json:"type"`
	Required    bool          `gorm:"not null;default:false" json:"required"`

	DefaultValue      string `gorm:"type:text" json:"default_value"`
	Value             string `gorm:"type:text" json:"value"`
	ValidationRegex   string `gorm:"type:varchar(500)" json:"validation_regex"`
	ValidationMessage string `gorm:"type:varchar(500)" json:"validation_message"`
	ListValues        string `gorm:"type:text" json:"list_values"`
	MinValue          string `gorm:"type:varchar(50)" json:"min_value"`
	MaxValue          string `gorm:"type:varchar(50)" json:"max_value"`
	DisplayOrder      int    `gorm:"not null;default:0" json:"display_order"`

	TemplateID *uuid.UUID `gorm:"type:uuid;index" json:"template_id,omitempty"`
	ReportID   *uuid.UUID `gorm:"type:uuid;index" json:"report_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *ReportParameter) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return p.checkOwner()
}

func (p *ReportParameter) BeforeSave(tx *gorm.DB) error {
	return p.checkOwner()
}

func (p *ReportParameter) checkOwner() error {
	if (p.TemplateID == nil) == (p.ReportID == nil) {
		return ErrParameterOwner
	}
	return nil
}

// Missing reports whether a required parameter has no bound value.
func (p *ReportParameter) Missing() bool {
	return p.Required && strings.TrimSpace(p.Value) == ""
}
