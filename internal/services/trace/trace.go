// Package trace aggregates everything known about a product into one
// traceability view: the record itself, its checks, labels and workflow
// history, plus a derived score and compliance status.
package trace

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/prodtrace/smartlabel/internal/errs"
	"github.com/prodtrace/smartlabel/internal/models"
)

// ComplianceStatus summarizes a product's quality-check record
type ComplianceStatus string

const (
	ComplianceUnknown      ComplianceStatus = "unknown"
	ComplianceNonCompliant ComplianceStatus = "non_compliant"
	CompliancePending      ComplianceStatus = "pending"
	ComplianceCompliant    ComplianceStatus = "compliant"
)

// Bundle is the full trace exposed to an external viewer
type Bundle struct {
	Product          models.Product       `json:"product"`
	QualityChecks    []models.QualityCheck `json:"quality_checks"`
	Labels           []models.Label        `json:"labels"`
	WorkflowLogs     []models.WorkflowLog  `json:"workflow_logs"`
	Score            int                   `json:"traceability_score"`
	ComplianceStatus ComplianceStatus      `json:"compliance_status"`
	IsGood           bool                  `json:"is_good"`
	QualityStatus    string                `json:"quality_status"`
}

// Score computes the deterministic traceability score in [0,100]: presence
// points for descriptive fields, additive points per check and label, and
// a completion bonus. Monotonic in every contributing factor.
func Score(product *models.Product, checks []models.QualityCheck, labels []models.Label) int {
	score := 0

	if product.Name != "" {
		score += 10
	}
	if product.Description != "" {
		score += 5
	}
	if product.Category != "" {
		score += 5
	}
	if product.Manufacturer != "" {
		score += 10
	}
	if product.BatchNumber != "" {
		score += 15
	}
	if product.ManufacturingDate != nil {
		score += 10
	}
	if product.ExpiryDate != nil {
		score += 5
	}

	if len(checks) > 0 {
		score += len(checks) * 3
		for _, c := range checks {
			if c.Status == models.CheckPassed {
				score += 5
			}
		}
	}

	if len(labels) > 0 {
		score += len(labels) * 8
		for _, l := range labels {
			if l.IsVerified {
				score += 7
			}
		}
	}

	if product.WorkflowStatus == models.WorkflowCompleted {
		score += 10
	}

	if score > 100 {
		score = 100
	}
	return score
}

// Compliance evaluates the check record. Order matters: failed dominates
// pending, pending dominates compliant.
func Compliance(checks []models.QualityCheck) ComplianceStatus {
	if len(checks) == 0 {
		return ComplianceUnknown
	}
	for _, c := range checks {
		if c.Status == models.CheckFailed {
			return ComplianceNonCompliant
		}
	}
	for _, c := range checks {
		if c.Status == models.CheckPending {
			return CompliancePending
		}
	}
	return ComplianceCompliant
}

// Freshness reports whether a product is within its expiry date, with a
// viewer-facing message
func Freshness(product *models.Product, now time.Time) (bool, string) {
	if product.ExpiryDate == nil {
		return true, "No expiry date recorded"
	}
	if now.After(*product.ExpiryDate) {
		return false, fmt.Sprintf("Product expired on %s", product.ExpiryDate.Format("2006-01-02"))
	}
	return true, "Product within expiry date"
}

// Resolver looks up traces by any identifier a viewer may hold
type Resolver struct {
	db *gorm.DB
}

// NewResolver creates a trace resolver
func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// Resolve finds a product by id, by batch number, or by containment match
// against label payloads, and returns its full trace bundle
func (r *Resolver) Resolve(identifier string) (*Bundle, error) {
	var product models.Product
	err := r.db.Where("id = ? OR batch_number = ?", identifier, identifier).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Maybe the identifier came from a scanned label
		var label models.Label
		err = r.db.Where("label_data LIKE ?", "%"+identifier+"%").First(&label).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Wrapf(errs.ErrNotFound, "no product for identifier %q", identifier)
		}
		if err != nil {
			return nil, fmt.Errorf("resolve label payload: %w", err)
		}
		if err := r.db.First(&product, "id = ?", label.ProductID).Error; err != nil {
			return nil, fmt.Errorf("load labeled product: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("resolve product: %w", err)
	}

	return r.Bundle(&product)
}

// Bundle assembles the trace view for an already-loaded product
func (r *Resolver) Bundle(product *models.Product) (*Bundle, error) {
	var checks []models.QualityCheck
	if err := r.db.Where("product_id = ?", product.ID).Order("checked_at").Find(&checks).Error; err != nil {
		return nil, fmt.Errorf("load checks: %w", err)
	}
	var labels []models.Label
	if err := r.db.Where("product_id = ?", product.ID).Order("generated_at").Find(&labels).Error; err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}
	var logs []models.WorkflowLog
	if err := r.db.Where("product_id = ?", product.ID).Order("created_at").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("load logs: %w", err)
	}

	isGood, statusMsg := Freshness(product, time.Now().UTC())
	return &Bundle{
		Product:          *product,
		QualityChecks:    checks,
		Labels:           labels,
		WorkflowLogs:     logs,
		Score:            Score(product, checks, labels),
		ComplianceStatus: Compliance(checks),
		IsGood:           isGood,
		QualityStatus:    statusMsg,
	}, nil
}
