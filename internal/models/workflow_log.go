package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LogOutcome is the recorded outcome of an orchestration step
type LogOutcome string

const (
	LogInProgress LogOutcome = "in_progress"
	LogSuccess    LogOutcome = "success"
	LogFailed     LogOutcome = "failed"
)

// WorkflowLog is an append-only audit record of a single orchestration
// step. Entries are never mutated or reordered; a reset bulk-deletes all
// of a product's entries.
type WorkflowLog struct {
	ID        string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	ProductID string     `gorm:"type:varchar(36);not null;index" json:"product_id"`
	Action    string     `gorm:"size:50;not null" json:"action"`
	Status    LogOutcome `gorm:"size:20;not null" json:"status"`
	Details   string     `json:"details"`
	CreatedAt time.Time  `json:"created_at"`
}

func (WorkflowLog) TableName() string { return "workflow_logs" }

func (wl *WorkflowLog) BeforeCreate(tx *gorm.DB) error {
	if wl.ID == "" {
		wl.ID = uuid.NewString()
	}
	return nil
}
