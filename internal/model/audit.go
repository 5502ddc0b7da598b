package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreateReport       = "CREATE_REPORT"
	ActionUpdateReport       = "UPDATE_REPORT"
	ActionDeleteReport       = "DELETE_REPORT"
	ActionReportStatusChange = "REPORT_STATUS_CHANGE"
	ActionCreateTemplate     = "CREATE_TEMPLATE"
	ActionUpdateTemplate     = "UPDATE_TEMPLATE"
	ActionDeleteTemplate     = "DELETE_TEMPLATE"
)

// AuditLog tracks who changed what, and when.
type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Actor      string    `gorm:"type:varchar(100);index" json:"actor"` // empty for the scheduler
	Action     string    `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string    `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string    `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string    `gorm:"type:text" json:"details"` // JSON payload of the action
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
