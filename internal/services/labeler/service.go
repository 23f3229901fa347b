// Package labeler issues trace labels: it builds the canonical payload,
// asks a renderer for the image and persists the result. The payload is
// what gets encoded and later resolved by the trace viewer.
package labeler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/prodtrace/smartlabel/internal/errs"
	"github.com/prodtrace/smartlabel/internal/hardware"
	"github.com/prodtrace/smartlabel/internal/models"
)

// Audit appends one entry to a product's workflow log
type Audit interface {
	Append(productID, action string, outcome models.LogOutcome, details string)
}

// Service issues and manages labels for products
type Service struct {
	db       *gorm.DB
	renderer Renderer
	sim      *hardware.Simulator
	baseURL  string
	audit    Audit
}

// New creates a label service. baseURL is the public address trace
// references resolve against.
func New(db *gorm.DB, renderer Renderer, sim *hardware.Simulator, baseURL string, audit Audit) *Service {
	return &Service{
		db:       db,
		renderer: renderer,
		sim:      sim,
		baseURL:  baseURL,
		audit:    audit,
	}
}

// TraceReference builds the resolvable payload encoded into QR labels.
// Deliberately minimal: an identifier to look the product up by, not a
// dump of its fields.
func (s *Service) TraceReference(productID string) string {
	return fmt.Sprintf("%s/product/%s", s.baseURL, productID)
}

// Payload returns the canonical payload for a label type: QR labels carry
// the trace reference, barcodes the batch number (product id when absent)
func (s *Service) Payload(product *models.Product, labelType string) string {
	if labelType == models.LabelTypeBarcode {
		if product.BatchNumber != "" {
			return product.BatchNumber
		}
		return product.ID
	}
	return s.TraceReference(product.ID)
}

func overlayFor(product *models.Product) OverlayText {
	o := OverlayText{
		Name:    product.Name,
		Batch:   product.BatchNumber,
		MfgDate: "N/A",
		ExpDate: "N/A",
	}
	if o.Batch == "" {
		o.Batch = "N/A"
	}
	if product.ManufacturingDate != nil {
		o.MfgDate = product.ManufacturingDate.Format("2006-01-02")
	}
	if product.ExpiryDate != nil {
		o.ExpDate = product.ExpiryDate.Format("2006-01-02")
	}
	return o
}

// Issue creates a label for a product. Rendering failure degrades to a
// label without an image; the payload is always preserved.
func (s *Service) Issue(ctx context.Context, productID, labelType string, autoGenerated bool) (*models.Label, error) {
	var product models.Product
	if err := s.db.First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Wrapf(errs.ErrNotFound, "product %s", productID)
		}
		return nil, fmt.Errorf("load product: %w", err)
	}

	payload := s.Payload(&product, labelType)
	overlay := overlayFor(&product)

	imgBytes, err := s.renderer.Render(labelType, payload, overlay)
	if err != nil {
		log.Printf("⚠️  Label image rendering failed for product %s: %v", productID, err)
		imgBytes = nil
	}

	meta, _ := json.Marshal(overlay)
	label := models.Label{
		ProductID:     product.ID,
		LabelType:     labelType,
		LabelData:     payload,
		LabelImage:    imgBytes,
		Meta:          meta,
		AutoGenerated: autoGenerated,
		PrintStatus:   models.PrintPending,
	}
	if err := s.db.Create(&label).Error; err != nil {
		return nil, fmt.Errorf("persist label: %w", err)
	}

	log.Printf("🏷️  Created label %s for product %s", label.ID, product.ID)
	return &label, nil
}

// Get loads one label by id
func (s *Service) Get(labelID string) (*models.Label, error) {
	var label models.Label
	if err := s.db.First(&label, "id = ?", labelID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Wrapf(errs.ErrNotFound, "label %s", labelID)
		}
		return nil, err
	}
	return &label, nil
}

// Verify marks a label as verified and printed
func (s *Service) Verify(labelID string) (*models.Label, error) {
	label, err := s.Get(labelID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	label.IsVerified = true
	label.VerifiedAt = &now
	label.PrintStatus = models.PrintPrinted
	if err := s.db.Save(label).Error; err != nil {
		return nil, fmt.Errorf("persist verification: %w", err)
	}
	return label, nil
}

// Print simulates sending a label to the printer: randomized delay, ~10%
// failure rate, outcome appended to the product's workflow log. Meant to
// run in the background; the final print status lands in the label row.
func (s *Service) Print(ctx context.Context, labelID string) error {
	label, err := s.Get(labelID)
	if err != nil {
		return err
	}

	if d := s.sim.PrintDelay(); d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
		}
	}

	if s.sim.PrintSucceeds() {
		label.PrintStatus = models.PrintPrinted
		s.audit.Append(label.ProductID, "label_print", models.LogSuccess,
			fmt.Sprintf("Label %s printed successfully", labelID))
	} else {
		label.PrintStatus = models.PrintFailed
		s.audit.Append(label.ProductID, "label_print", models.LogFailed,
			fmt.Sprintf("Failed to print label %s", labelID))
	}
	return s.db.Save(label).Error
}

// DeleteAuto removes all auto-generated labels of a product. Manually
// created labels are never touched.
func (s *Service) DeleteAuto(productID string) error {
	return s.db.Where("product_id = ? AND auto_generated = ?", productID, true).
		Delete(&models.Label{}).Error
}
