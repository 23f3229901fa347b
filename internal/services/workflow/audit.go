package workflow

import (
	"log"

	"gorm.io/gorm"

	"github.com/prodtrace/smartlabel/internal/models"
)

// Notifier receives every appended audit entry, e.g. for live streaming to
// connected viewers
type Notifier interface {
	NotifyWorkflowLog(entry models.WorkflowLog)
}

// AuditLog appends workflow log entries. Entries are append-only; an
// append failure is logged but never interrupts the orchestration that
// produced it.
type AuditLog struct {
	db       *gorm.DB
	notifier Notifier
}

// NewAuditLog creates an audit log writer. notifier may be nil.
func NewAuditLog(db *gorm.DB, notifier Notifier) *AuditLog {
	return &AuditLog{db: db, notifier: notifier}
}

// Append records one orchestration step for a product
func (a *AuditLog) Append(productID, action string, outcome models.LogOutcome, details string) {
	entry := models.WorkflowLog{
		ProductID: productID,
		Action:    action,
		Status:    outcome,
		Details:   details,
	}
	if err := a.db.Create(&entry).Error; err != nil {
		log.Printf("⚠️  Failed to append workflow log for product %s: %v", productID, err)
		return
	}
	if a.notifier != nil {
		a.notifier.NotifyWorkflowLog(entry)
	}
}
