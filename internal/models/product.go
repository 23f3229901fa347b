package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WorkflowStatus is the derived state of a product's labeling workflow
type WorkflowStatus string

const (
	WorkflowPending    WorkflowStatus = "pending"
	WorkflowInProgress WorkflowStatus = "in_progress"
	WorkflowCompleted  WorkflowStatus = "completed"
	WorkflowFailed     WorkflowStatus = "failed"
)

// IsTerminal reports whether no further automatic transition will occur
// without a new explicit run.
func (s WorkflowStatus) IsTerminal() bool {
	return s == WorkflowCompleted || s == WorkflowFailed
}

// Product is a manufactured item tracked through the quality-check and
// labeling pipeline. workflow_status is derived from the product's quality
// checks and only mutated by the workflow engine.
type Product struct {
	ID                string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name              string         `gorm:"size:100;not null" json:"name"`
	Description       string         `json:"description"`
	Category          string         `gorm:"size:50;index" json:"category"`
	Manufacturer      string         `gorm:"size:100" json:"manufacturer"`
	BatchNumber       string         `gorm:"size:50;index" json:"batch_number"`
	ManufacturingDate *time.Time     `json:"manufacturing_date"`
	ExpiryDate        *time.Time     `json:"expiry_date"`
	AutoLabelEnabled  bool           `gorm:"default:true" json:"auto_label_enabled"`
	WorkflowStatus    WorkflowStatus `gorm:"size:20;default:pending;index" json:"workflow_status"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`

	QualityChecks []QualityCheck `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"quality_checks,omitempty"`
	Labels        []Label        `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"labels,omitempty"`
	WorkflowLogs  []WorkflowLog  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"workflow_logs,omitempty"`
}

func (Product) TableName() string { return "products" }

// BeforeCreate assigns a UUID primary key when none is provided
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.WorkflowStatus == "" {
		p.WorkflowStatus = WorkflowPending
	}
	return nil
}
