package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReportStatus is the lifecycle state of a report.
type ReportStatus string

const (
	StatusPending    ReportStatus = "PENDING"
	StatusGenerating ReportStatus = "GENERATING"
	StatusCompleted  ReportStatus = "COMPLETED"
	StatusError      ReportStatus = "ERROR"
)

// DefaultCurrency is applied to reports created without a currency code.
const DefaultCurrency = "CAD"

// ParseReportStatus accepts only the four known statuses (case-insensitive).
func ParseReportStatus(s string) (ReportStatus, error) {
	st := ReportStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("unknown report status %q", s)
	}
	return st, nil
}

func (s ReportStatus) Valid() bool {
	switch s {
	case StatusPending, StatusGenerating, StatusCompleted, StatusError:
		return true
	}
	return false
}

var transitions = map[ReportStatus][]ReportStatus{
	StatusPending:    {StatusGenerating, StatusError},
	StatusGenerating: {StatusCompleted, StatusError, StatusPending},
	StatusCompleted:  {StatusGenerating, StatusPending},
	StatusError:      {StatusGenerating, StatusPending},
}

// CanTransition reports whether a report may move from one status to another.
func CanTransition(from, to ReportStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// GeneratableStatuses are the states from which a generation attempt may start.
var GeneratableStatuses = []ReportStatus{StatusPending, StatusError, StatusCompleted}

// CanGenerate reports whether a new generation attempt may start from s.
func (s ReportStatus) CanGenerate() bool {
	return CanTransition(s, StatusGenerating)
}

// Report is a report definition together with the state of its latest generated artifact.
type Report struct {
	ID          uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string       `gorm:"type:varchar(255);not null" json:"name"`
	Description string       `gorm:"type:text" json:"description"`
	Type        ReportType   `gorm:"type:varchar(40);not null;index" json:"type"`
	Format      ReportFormat `gorm:"type:varchar(10);not null" json:"format"`
	Status      ReportStatus `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`

	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`

	// FilePath and FileSize describe the artifact of the latest completed attempt.
	FilePath string `gorm:"type:varchar(500)" json:"file_path"`
	FileSize int64  `json:"file_size"`

	Scheduled      bool       `gorm:"not null;default:false;index" json:"scheduled"`
	ScheduleCron   string     `gorm:"type:varchar(100)" json:"schedule_cron"`
	LastGenerated  *time.Time `json:"last_generated"`
	NextGeneration *time.Time `gorm:"index" json:"next_generation"`

	TotalAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"total_amount"`
	CurrencyCode string          `gorm:"type:varchar(3);not null;default:'CAD'" json:"currency_code"`

	TemplateID *uuid.UUID      `gorm:"type:uuid;index" json:"template_id"`
	Template   *ReportTemplate `gorm:"foreignKey:TemplateID" json:"template,omitempty"`

	ProjectID *string `gorm:"type:varchar(64);index" json:"project_id"`
	ClientID  *string `gorm:"type:varchar(64);index" json:"client_id"`

	IsPublic    bool    `gorm:"not null;default:false" json:"is_public"`
	AccessToken *string `gorm:"type:varchar(64);uniqueIndex" json:"-"`

	Parameters []ReportParameter `gorm:"foreignKey:ReportID" json:"parameters"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	CreatedBy string    `gorm:"type:varchar(100)" json:"created_by"`
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `gorm:"type:varchar(100)" json:"updated_by"`
}

func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// ScheduleActive reports whether completion should advance NextGeneration.
func (r *Report) ScheduleActive() bool {
	return r.Scheduled && strings.TrimSpace(r.ScheduleCron) != ""
}
