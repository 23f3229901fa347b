package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/prodtrace/smartlabel/internal/models"
	"github.com/prodtrace/smartlabel/internal/services/labeler"
)

// createLabel issues a label of the requested type for a product
func (r *Router) createLabel(w http.ResponseWriter, req *http.Request) {
	productID := mux.Vars(req)["id"]

	var payload struct {
		LabelType string `json:"label_type"`
	}
	if req.Body != nil {
		_ = json.NewDecoder(req.Body).Decode(&payload)
	}
	if payload.LabelType == "" {
		payload.LabelType = models.LabelTypeQRCode
	}
	if payload.LabelType != models.LabelTypeQRCode && payload.LabelType != models.LabelTypeBarcode {
		respondError(w, http.StatusBadRequest, "label_type must be qr_code or barcode")
		return
	}

	label, err := r.labels.Issue(req.Context(), productID, payload.LabelType, false)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Label generated successfully",
		"label":   label,
		"success": true,
	})
}

// autoGenerateLabel issues the automated QR label for a product,
// mirroring what the workflow engine does after passing checks
func (r *Router) autoGenerateLabel(w http.ResponseWriter, req *http.Request) {
	productID := mux.Vars(req)["id"]

	label, err := r.labels.Issue(req.Context(), productID, models.LabelTypeQRCode, true)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Automatic label generated successfully",
		"label":   label,
		"success": true,
	})
}

// deleteAutoLabels removes auto-generated labels for a product
func (r *Router) deleteAutoLabels(w http.ResponseWriter, req *http.Request) {
	productID := mux.Vars(req)["id"]

	var product models.Product
	if err := r.db.First(&product, "id = ?", productID).Error; err != nil {
		respondError(w, http.StatusNotFound, "Product not found")
		return
	}

	if err := r.labels.DeleteAuto(productID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Automatic labels deleted successfully",
		"success": true,
	})
}

// labelSheet renders a printable A4 PDF sheet of QR labels for the
// requested products
func (r *Router) labelSheet(w http.ResponseWriter, req *http.Request) {
	var payload struct {
		ProductIDs []string             `json:"product_ids"`
		Layout     *labeler.SheetConfig `json:"layout"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if len(payload.ProductIDs) == 0 {
		respondError(w, http.StatusBadRequest, "product_ids is required")
		return
	}

	var products []models.Product
	if err := r.db.Where("id IN ?", payload.ProductIDs).Find(&products).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch products")
		return
	}
	if len(products) == 0 {
		respondError(w, http.StatusNotFound, "No matching products found")
		return
	}

	cfg := labeler.SheetConfig{}
	if payload.Layout != nil {
		cfg = *payload.Layout
	}

	pdf, err := r.labels.SheetPDF(products, cfg)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=labels_%s.pdf", time.Now().UTC().Format("20060102_150405")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// getLabelImage streams the rendered label PNG
func (r *Router) getLabelImage(w http.ResponseWriter, req *http.Request) {
	labelID := mux.Vars(req)["id"]

	label, err := r.labels.Get(labelID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !label.HasImage() {
		respondError(w, http.StatusNotFound, "Label has no image")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(label.LabelImage)
}

// getLabelImageBase64 returns the label image as a base64 data payload
// for embedding in UI clients
func (r *Router) getLabelImageBase64(w http.ResponseWriter, req *http.Request) {
	labelID := mux.Vars(req)["id"]

	label, err := r.labels.Get(labelID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !label.HasImage() {
		respondError(w, http.StatusNotFound, "Label has no image")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"label_id":   label.ID,
		"label_type": label.LabelType,
		"image":      "data:image/png;base64," + base64.StdEncoding.EncodeToString(label.LabelImage),
		"success":    true,
	})
}

// verifyLabel marks a label as verified and printed
func (r *Router) verifyLabel(w http.ResponseWriter, req *http.Request) {
	labelID := mux.Vars(req)["id"]

	label, err := r.labels.Verify(labelID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Label verified successfully",
		"label":   label,
		"success": true,
	})
}

// printLabel queues a simulated print job. The print itself runs in the
// background; label state is updated when it completes.
func (r *Router) printLabel(w http.ResponseWriter, req *http.Request) {
	labelID := mux.Vars(req)["id"]

	label, err := r.labels.Get(labelID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	go func() {
		if err := r.labels.Print(context.Background(), label.ID); err != nil {
			log.Printf("⚠️ Print job for label %s failed: %v", label.ID, err)
		}
	}()

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"message":  "Print job queued",
		"label_id": label.ID,
		"success":  true,
	})
}
