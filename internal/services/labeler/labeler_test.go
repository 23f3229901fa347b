package labeler

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/prodtrace/smartlabel/internal/errs"
	"github.com/prodtrace/smartlabel/internal/hardware"
	"github.com/prodtrace/smartlabel/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Product{},
		&models.QualityCheck{},
		&models.Label{},
		&models.WorkflowLog{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type recordingAudit struct {
	entries []string
}

func (r *recordingAudit) Append(productID, action string, outcome models.LogOutcome, details string) {
	r.entries = append(r.entries, action+":"+string(outcome))
}

func newTestService(t *testing.T, db *gorm.DB, renderer Renderer) (*Service, *recordingAudit) {
	t.Helper()
	audit := &recordingAudit{}
	return New(db, renderer, hardware.NewFast(), "http://localhost:3001", audit), audit
}

func TestPayloadRules(t *testing.T) {
	db := openTestDB(t)
	svc, _ := newTestService(t, db, ImageRenderer{})

	withBatch := &models.Product{ID: "p1", BatchNumber: "B-42"}
	if got := svc.Payload(withBatch, models.LabelTypeBarcode); got != "B-42" {
		t.Errorf("barcode payload = %q, want batch number", got)
	}

	noBatch := &models.Product{ID: "p2"}
	if got := svc.Payload(noBatch, models.LabelTypeBarcode); got != "p2" {
		t.Errorf("barcode payload without batch = %q, want product id", got)
	}

	if got := svc.Payload(withBatch, models.LabelTypeQRCode); got != "http://localhost:3001/product/p1" {
		t.Errorf("qr payload = %q, want trace reference", got)
	}
}

func TestIssueQRLabel(t *testing.T) {
	db := openTestDB(t)
	svc, _ := newTestService(t, db, ImageRenderer{})

	mfg := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	product := models.Product{Name: "Basmati Rice", BatchNumber: "BR-300", ManufacturingDate: &mfg}
	if err := db.Create(&product).Error; err != nil {
		t.Fatal(err)
	}

	label, err := svc.Issue(context.Background(), product.ID, models.LabelTypeQRCode, true)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if label.LabelData != "http://localhost:3001/product/"+product.ID {
		t.Errorf("payload = %q", label.LabelData)
	}
	if !label.AutoGenerated {
		t.Error("label not marked auto-generated")
	}
	if label.PrintStatus != models.PrintPending {
		t.Errorf("print status = %q, want pending", label.PrintStatus)
	}

	// Image must be a decodable PNG
	img, err := png.Decode(bytes.NewReader(label.LabelImage))
	if err != nil {
		t.Fatalf("label image is not a valid PNG: %v", err)
	}
	if img.Bounds().Dx() < 256 {
		t.Errorf("image width %d unexpectedly small", img.Bounds().Dx())
	}
}

func TestIssueBarcodeLabel(t *testing.T) {
	db := openTestDB(t)
	svc, _ := newTestService(t, db, ImageRenderer{})

	product := models.Product{Name: "Lassi", BatchNumber: "LS-77"}
	if err := db.Create(&product).Error; err != nil {
		t.Fatal(err)
	}

	label, err := svc.Issue(context.Background(), product.ID, models.LabelTypeBarcode, false)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if label.LabelData != "LS-77" {
		t.Errorf("barcode payload = %q, want batch number", label.LabelData)
	}
	if !label.HasImage() {
		t.Error("barcode label missing image")
	}
}

func TestIssueUnknownProduct(t *testing.T) {
	db := openTestDB(t)
	svc, _ := newTestService(t, db, ImageRenderer{})

	_, err := svc.Issue(context.Background(), "nope", models.LabelTypeQRCode, false)
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

type brokenRenderer struct{}

func (brokenRenderer) Render(labelType, payload string, overlay OverlayText) ([]byte, error) {
	return nil, errs.Wrap(errs.ErrRenderFailure, "out of ink")
}

func TestIssueDegradesOnRenderFailure(t *testing.T) {
	db := openTestDB(t)
	svc, _ := newTestService(t, db, brokenRenderer{})

	product := models.Product{Name: "Khakhra", BatchNumber: "KH-1"}
	if err := db.Create(&product).Error; err != nil {
		t.Fatal(err)
	}

	label, err := svc.Issue(context.Background(), product.ID, models.LabelTypeQRCode, false)
	if err != nil {
		t.Fatalf("Issue should not fail on render errors: %v", err)
	}
	if label.HasImage() {
		t.Error("degraded label should have no image")
	}
	if label.LabelData != "http://localhost:3001/product/"+product.ID {
		t.Errorf("payload lost on degradation: %q", label.LabelData)
	}

	var stored models.Label
	if err := db.First(&stored, "id = ?", label.ID).Error; err != nil {
		t.Fatalf("degraded label not persisted: %v", err)
	}
}

func TestVerifyLabel(t *testing.T) {
	db := openTestDB(t)
	svc, _ := newTestService(t, db, ImageRenderer{})

	product := models.Product{Name: "Ghee"}
	if err := db.Create(&product).Error; err != nil {
		t.Fatal(err)
	}
	label, err := svc.Issue(context.Background(), product.ID, models.LabelTypeQRCode, false)
	if err != nil {
		t.Fatal(err)
	}

	verified, err := svc.Verify(label.ID)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !verified.IsVerified || verified.VerifiedAt == nil {
		t.Error("verification fields not set")
	}
	if verified.PrintStatus != models.PrintPrinted {
		t.Errorf("print status = %q, want printed after verification", verified.PrintStatus)
	}
}

func TestPrintRecordsOutcome(t *testing.T) {
	db := openTestDB(t)
	svc, audit := newTestService(t, db, ImageRenderer{})

	product := models.Product{Name: "Jaggery"}
	if err := db.Create(&product).Error; err != nil {
		t.Fatal(err)
	}
	label, err := svc.Issue(context.Background(), product.ID, models.LabelTypeQRCode, false)
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Print(context.Background(), label.ID); err != nil {
		t.Fatalf("Print: %v", err)
	}

	var stored models.Label
	if err := db.First(&stored, "id = ?", label.ID).Error; err != nil {
		t.Fatal(err)
	}
	if stored.PrintStatus != models.PrintPrinted && stored.PrintStatus != models.PrintFailed {
		t.Errorf("print status = %q, want a terminal print state", stored.PrintStatus)
	}
	if len(audit.entries) == 0 {
		t.Fatal("print left no audit entry")
	}
	last := audit.entries[len(audit.entries)-1]
	if last != "label_print:success" && last != "label_print:failed" {
		t.Errorf("audit entry = %q", last)
	}
}

func TestDeleteAutoKeepsManualLabels(t *testing.T) {
	db := openTestDB(t)
	svc, _ := newTestService(t, db, ImageRenderer{})

	product := models.Product{Name: "Filter Coffee"}
	if err := db.Create(&product).Error; err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Issue(context.Background(), product.ID, models.LabelTypeQRCode, true); err != nil {
		t.Fatal(err)
	}
	manual, err := svc.Issue(context.Background(), product.ID, models.LabelTypeBarcode, false)
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.DeleteAuto(product.ID); err != nil {
		t.Fatalf("DeleteAuto: %v", err)
	}

	var labels []models.Label
	if err := db.Where("product_id = ?", product.ID).Find(&labels).Error; err != nil {
		t.Fatal(err)
	}
	if len(labels) != 1 || labels[0].ID != manual.ID {
		t.Errorf("DeleteAuto kept %d labels, want only the manual one", len(labels))
	}
}

func TestSheetPDF(t *testing.T) {
	db := openTestDB(t)
	svc, _ := newTestService(t, db, ImageRenderer{})

	products := []models.Product{
		{ID: "p1", Name: "Basmati Rice", BatchNumber: "BR-1"},
		{ID: "p2", Name: "Lassi", BatchNumber: "LS-1"},
	}
	pdf, err := svc.SheetPDF(products, SheetConfig{})
	if err != nil {
		t.Fatalf("SheetPDF: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Error("output does not look like a PDF")
	}
}
