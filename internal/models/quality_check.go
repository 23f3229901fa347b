package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CheckStatus is the outcome of a single quality check
type CheckStatus string

const (
	CheckPending CheckStatus = "pending"
	CheckPassed  CheckStatus = "passed"
	CheckFailed  CheckStatus = "failed"
)

// QualityCheck is one measured parameter for a product. AutoGenerated
// separates simulator-created checks from human-entered ones; bulk reset
// operations may only ever remove the former.
type QualityCheck struct {
	ID            string      `gorm:"type:varchar(36);primaryKey" json:"id"`
	ProductID     string      `gorm:"type:varchar(36);not null;index" json:"product_id"`
	ParameterName string      `gorm:"size:100;not null" json:"parameter_name"`
	ExpectedValue string      `gorm:"size:100" json:"expected_value"`
	ActualValue   *string     `gorm:"size:100" json:"actual_value"`
	Unit          string      `gorm:"size:20" json:"unit"`
	Tolerance     *float64    `json:"tolerance"`
	Status        CheckStatus `gorm:"size:20;default:pending" json:"status"`
	CheckedBy     string      `gorm:"size:100" json:"checked_by"`
	AutoGenerated bool        `gorm:"default:false;index" json:"auto_generated"`
	Notes         string      `json:"notes"`
	CheckedAt     time.Time   `json:"checked_at"`
}

func (QualityCheck) TableName() string { return "quality_checks" }

func (q *QualityCheck) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.Status == "" {
		q.Status = CheckPending
	}
	if q.CheckedAt.IsZero() {
		q.CheckedAt = time.Now().UTC()
	}
	return nil
}
