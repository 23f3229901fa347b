package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Label types understood by the renderer
const (
	LabelTypeQRCode  = "qr_code"
	LabelTypeBarcode = "barcode"
)

// PrintStatus tracks the simulated print lifecycle of a label
type PrintStatus string

const (
	PrintPending PrintStatus = "pending"
	PrintPrinted PrintStatus = "printed"
	PrintFailed  PrintStatus = "failed"
)

// Label is an issued trace label. LabelData carries the canonical payload
// (a trace reference, not a data dump) and is the information of record;
// LabelImage is a presentational derivative and may be nil when rendering
// failed. Immutable once created except for verification and print status.
type Label struct {
	ID            string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	ProductID     string         `gorm:"type:varchar(36);not null;index" json:"product_id"`
	LabelType     string         `gorm:"size:20;not null" json:"label_type"`
	LabelData     string         `gorm:"not null" json:"label_data"`
	LabelImage    []byte         `gorm:"type:bytea" json:"-"`
	Meta          datatypes.JSON `json:"meta,omitempty"`
	IsVerified    bool           `gorm:"default:false" json:"is_verified"`
	VerifiedAt    *time.Time     `json:"verified_at"`
	AutoGenerated bool           `gorm:"default:false;index" json:"auto_generated"`
	PrintStatus   PrintStatus    `gorm:"size:20;default:pending" json:"print_status"`
	GeneratedAt   time.Time      `json:"generated_at"`
}

func (Label) TableName() string { return "labels" }

func (l *Label) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.PrintStatus == "" {
		l.PrintStatus = PrintPending
	}
	if l.GeneratedAt.IsZero() {
		l.GeneratedAt = time.Now().UTC()
	}
	return nil
}

// HasImage reports whether rendering produced binary image data
func (l *Label) HasImage() bool { return len(l.LabelImage) > 0 }
