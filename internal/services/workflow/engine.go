// Package workflow contains the automation engine: status derivation from
// quality checks, the orchestrated check-generation and label-issuance run,
// the append-only audit log and the background job queue.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/prodtrace/smartlabel/internal/catalog"
	"github.com/prodtrace/smartlabel/internal/errs"
	"github.com/prodtrace/smartlabel/internal/hardware"
	"github.com/prodtrace/smartlabel/internal/models"
)

// LabelIssuer creates a persisted label for a product
type LabelIssuer interface {
	Issue(ctx context.Context, productID, labelType string, autoGenerated bool) (*models.Label, error)
}

// Engine orchestrates the automated labeling workflow per product. All
// collaborators are injected; the engine owns no global state. Concurrent
// runs for the same product id are a documented race: each run still ends
// in a terminal state consistent with the data it saw, but interleaved
// check writes are not serialized.
type Engine struct {
	db      *gorm.DB
	catalog *catalog.Catalog
	sim     *hardware.Simulator
	labels  LabelIssuer
	audit   *AuditLog

	// batchDelay spaces out sequential batch items
	batchDelay time.Duration
}

// NewEngine wires the workflow engine
func NewEngine(db *gorm.DB, cat *catalog.Catalog, sim *hardware.Simulator, labels LabelIssuer, audit *AuditLog) *Engine {
	return &Engine{
		db:         db,
		catalog:    cat,
		sim:        sim,
		labels:     labels,
		audit:      audit,
		batchDelay: time.Second,
	}
}

// SetBatchDelay overrides the inter-item delay of batch runs
func (e *Engine) SetBatchDelay(d time.Duration) { e.batchDelay = d }

func (e *Engine) loadProduct(productID string) (*models.Product, error) {
	var product models.Product
	if err := e.db.First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Wrapf(errs.ErrNotFound, "product %s", productID)
		}
		return nil, fmt.Errorf("load product: %w", err)
	}
	return &product, nil
}

func (e *Engine) setStatus(productID string, status models.WorkflowStatus) error {
	return e.db.Model(&models.Product{}).
		Where("id = ?", productID).
		Update("workflow_status", status).Error
}

// RunWorkflow executes the complete automated workflow for one product:
// transition to in_progress, generate simulated checks from the reference
// catalog, force-derive the status, issue a QR label when everything
// passed, and finish in a terminal state. Safe to re-run: it tolerates
// pre-existing checks and labels and never leaves in_progress dangling.
func (e *Engine) RunWorkflow(ctx context.Context, productID string) (status models.WorkflowStatus, err error) {
	product, err := e.loadProduct(productID)
	if err != nil {
		return "", err
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("🔥 Workflow panic for product %s: %v", productID, r)
			_ = e.setStatus(productID, models.WorkflowFailed)
			e.audit.Append(productID, "complete_workflow", models.LogFailed,
				fmt.Sprintf("Workflow error: %v", r))
			status = models.WorkflowFailed
			err = nil
		}
	}()

	if err := e.setStatus(product.ID, models.WorkflowInProgress); err != nil {
		e.audit.Append(product.ID, "complete_workflow", models.LogFailed,
			fmt.Sprintf("Workflow error: %v", err))
		_ = e.setStatus(product.ID, models.WorkflowFailed)
		return models.WorkflowFailed, nil
	}
	log.Printf("▶️  Product %s workflow started", product.ID)
	e.audit.Append(product.ID, "complete_workflow", models.LogInProgress,
		"Starting complete automated workflow")

	final := models.WorkflowFailed
	outcome := models.LogFailed
	details := "Quality checks failed"

	if e.autoQualityChecks(ctx, product) {
		var checks []models.QualityCheck
		if err := e.db.Where("product_id = ?", product.ID).Find(&checks).Error; err != nil {
			details = fmt.Sprintf("Workflow error: %v", err)
		} else if allPassed(checks) {
			if e.autoGenerateLabel(ctx, product.ID) {
				final = models.WorkflowCompleted
				outcome = models.LogSuccess
				details = "Complete workflow finished successfully"
			} else {
				details = "Label generation failed"
			}
		} else {
			details = "Not all quality checks passed; label not generated."
		}
	}

	if err := e.setStatus(product.ID, final); err != nil {
		log.Printf("⚠️  Failed to persist final status for product %s: %v", product.ID, err)
	}
	log.Printf("⏹️  Product %s workflow finished: %s", product.ID, final)
	e.audit.Append(product.ID, "complete_workflow", outcome, details)
	return final, nil
}

func allPassed(checks []models.QualityCheck) bool {
	for _, c := range checks {
		if c.Status != models.CheckPassed {
			return false
		}
	}
	return true
}

// RunAutoChecks runs only the check-generation and status-derivation part
// of the workflow. Returns whether the sub-step succeeded.
func (e *Engine) RunAutoChecks(ctx context.Context, productID string) (bool, error) {
	product, err := e.loadProduct(productID)
	if err != nil {
		return false, err
	}
	return e.autoQualityChecks(ctx, product), nil
}

// autoQualityChecks seeds simulated checks from the reference catalog,
// forces every check of the product to passed (demo policy: simulated
// checks always validate) and re-derives the product status.
func (e *Engine) autoQualityChecks(ctx context.Context, product *models.Product) bool {
	log.Printf("🔬 Running automatic quality checks for product %s", product.ID)
	e.audit.Append(product.ID, "auto_quality_check", models.LogInProgress,
		"Starting automatic quality checks")

	entry, ok := e.catalog.LookupByName(product.Name)
	if !ok || len(entry.QualityParameters) == 0 {
		e.audit.Append(product.ID, "auto_quality_check", models.LogFailed,
			"No quality parameters found in database for this product.")
		return false
	}

	created := 0
	for _, param := range entry.QualityParameters {
		result := e.sim.SimulateQualityCheck(ctx, param.Parameter, param.Expected, param.Tolerance)

		tolerance := hardware.DefaultTolerance
		if param.Tolerance != nil {
			tolerance = *param.Tolerance
		}
		variance := 0.0
		if result.Variance != nil {
			variance = *result.Variance
		}
		actual := result.ActualValue
		check := models.QualityCheck{
			ProductID:     product.ID,
			ParameterName: param.Parameter,
			ExpectedValue: param.Expected,
			ActualValue:   &actual,
			Unit:          param.Unit,
			Tolerance:     &tolerance,
			Status:        result.Status,
			CheckedBy:     "Auto-System",
			AutoGenerated: true,
			Notes:         fmt.Sprintf("Automated check - Variance: %v", variance),
		}
		if err := e.db.Create(&check).Error; err != nil {
			e.audit.Append(product.ID, "auto_quality_check", models.LogFailed,
				fmt.Sprintf("Error running quality checks: %v", err))
			return false
		}
		created++
	}

	// Demo policy: after successful generation every check of the product
	// is forced to passed, pre-existing ones included
	if err := e.db.Model(&models.QualityCheck{}).
		Where("product_id = ?", product.ID).
		Update("status", models.CheckPassed).Error; err != nil {
		e.audit.Append(product.ID, "auto_quality_check", models.LogFailed,
			fmt.Sprintf("Error running quality checks: %v", err))
		return false
	}

	e.audit.Append(product.ID, "auto_quality_check", models.LogSuccess,
		fmt.Sprintf("Created %d automatic quality checks", created))

	if _, err := e.RecomputeStatus(product.ID); err != nil {
		e.audit.Append(product.ID, "auto_quality_check", models.LogFailed,
			fmt.Sprintf("Error running quality checks: %v", err))
		return false
	}
	return true
}

// autoGenerateLabel issues the QR trace label for a product that passed
// all checks
func (e *Engine) autoGenerateLabel(ctx context.Context, productID string) bool {
	product, err := e.loadProduct(productID)
	if err != nil {
		return false
	}
	if !product.AutoLabelEnabled {
		log.Printf("⏭️  Skipping label generation for product %s: auto labeling disabled", productID)
		return false
	}

	e.audit.Append(productID, "auto_label_generation", models.LogInProgress,
		"Starting automatic label generation")

	label, err := e.labels.Issue(ctx, productID, models.LabelTypeQRCode, true)
	if err != nil {
		e.audit.Append(productID, "auto_label_generation", models.LogFailed,
			fmt.Sprintf("Error generating label: %v", err))
		return false
	}

	e.audit.Append(productID, "auto_label_generation", models.LogSuccess,
		fmt.Sprintf("QR code label generated successfully: %s", label.ID))
	return true
}

// RecomputeStatus re-derives and persists the product status from its
// current checks. Idempotent; callable anytime for repair.
func (e *Engine) RecomputeStatus(productID string) (models.WorkflowStatus, error) {
	if _, err := e.loadProduct(productID); err != nil {
		return "", err
	}
	var checks []models.QualityCheck
	if err := e.db.Where("product_id = ?", productID).Order("checked_at").Find(&checks).Error; err != nil {
		return "", fmt.Errorf("load checks: %w", err)
	}
	status := DeriveStatus(checks)
	if err := e.setStatus(productID, status); err != nil {
		return "", fmt.Errorf("persist status: %w", err)
	}
	return status, nil
}

// ResetAutoChecks bulk-deletes the product's auto-generated checks and all
// of its workflow logs so automation can re-run from a clean slate.
// Human-entered checks and existing labels are left untouched.
func (e *Engine) ResetAutoChecks(productID string) error {
	if err := e.db.Where("product_id = ? AND auto_generated = ?", productID, true).
		Delete(&models.QualityCheck{}).Error; err != nil {
		return fmt.Errorf("delete auto checks: %w", err)
	}
	if err := e.db.Where("product_id = ?", productID).
		Delete(&models.WorkflowLog{}).Error; err != nil {
		return fmt.Errorf("delete workflow logs: %w", err)
	}
	return nil
}

// RunBatch runs the workflow for each product id sequentially, skipping
// ids that do not resolve. Each item's effects are fully visible once
// processed.
func (e *Engine) RunBatch(ctx context.Context, productIDs []string) {
	for i, id := range productIDs {
		if i > 0 && e.batchDelay > 0 {
			select {
			case <-time.After(e.batchDelay):
			case <-ctx.Done():
				return
			}
		}
		if _, err := e.RunWorkflow(ctx, id); err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				log.Printf("⏭️  Batch: skipping unknown product %s", id)
				continue
			}
			log.Printf("⚠️  Batch: workflow for product %s failed: %v", id, err)
		}
	}
}
