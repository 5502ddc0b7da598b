package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportTemplate is a reusable blueprint: default parameters and a default output format.
// System templates are built in and cannot be deleted.
type ReportTemplate struct {
	ID              uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Name            string       `gorm:"type:varchar(255);not null;index" json:"name"`
	Description     string       `gorm:"type:text" json:"description"`
	Type            ReportType   `gorm:"type:varchar(40);not null;index" json:"type"`
	TemplatePath    string       `gorm:"type:varchar(500)" json:"template_path"`
	TemplateContent string       `gorm:"type:text" json:"template_content"`
	DefaultFormat   ReportFormat `gorm:"type:varchar(10);not null" json:"default_format"`
	SystemTemplate  bool         `gorm:"not null;default:false" json:"system_template"`
	Active          bool         `gorm:"not null;index" json:"active"`
	Version         string       `gorm:"type:varchar(20)" json:"version"`

	Parameters []ReportParameter `gorm:"foreignKey:TemplateID" json:"parameters"`

	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `gorm:"type:varchar(100)" json:"created_by"`
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `gorm:"type:varchar(100)" json:"updated_by"`
}

func (t *ReportTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
