package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/prodtrace/smartlabel/internal/models"
)

type productPayload struct {
	Name              string  `json:"name"`
	Description       *string `json:"description"`
	Category          *string `json:"category"`
	Manufacturer      *string `json:"manufacturer"`
	BatchNumber       *string `json:"batch_number"`
	ManufacturingDate *string `json:"manufacturing_date"`
	ExpiryDate        *string `json:"expiry_date"`
	AutoLabelEnabled  *bool   `json:"auto_label_enabled"`
	RunAutoWorkflow   bool    `json:"run_auto_workflow"`
}

func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	_, err := time.Parse(time.RFC3339, value)
	return nil, err
}

func pageParams(req *http.Request, defaultPerPage int) (page, perPage int) {
	page, _ = strconv.Atoi(req.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ = strconv.Atoi(req.URL.Query().Get("per_page"))
	if perPage < 1 {
		perPage = defaultPerPage
	}
	return page, perPage
}

// listProducts returns a paginated product list, filterable by category
// and workflow status
func (r *Router) listProducts(w http.ResponseWriter, req *http.Request) {
	page, perPage := pageParams(req, 10)

	query := r.db.Model(&models.Product{})
	if category := req.URL.Query().Get("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if status := req.URL.Query().Get("workflow_status"); status != "" {
		query = query.Where("workflow_status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to count products")
		return
	}

	var products []models.Product
	if err := query.
		Preload("QualityChecks").
		Preload("Labels").
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&products).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch products")
		return
	}

	pages := int(total) / perPage
	if int(total)%perPage != 0 {
		pages++
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"products":     products,
		"total":        total,
		"pages":        pages,
		"current_page": page,
		"success":      true,
	})
}

// createProduct creates a new product, optionally queueing the automated
// workflow right away
func (r *Router) createProduct(w http.ResponseWriter, req *http.Request) {
	var payload productPayload
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if payload.Name == "" {
		respondError(w, http.StatusBadRequest, "Product name is required")
		return
	}

	product := models.Product{
		Name:             payload.Name,
		AutoLabelEnabled: true,
	}
	if payload.Description != nil {
		product.Description = *payload.Description
	}
	if payload.Category != nil {
		product.Category = *payload.Category
	}
	if payload.Manufacturer != nil {
		product.Manufacturer = *payload.Manufacturer
	}
	if payload.BatchNumber != nil {
		product.BatchNumber = *payload.BatchNumber
	}
	if payload.AutoLabelEnabled != nil {
		product.AutoLabelEnabled = *payload.AutoLabelEnabled
	}
	if payload.ManufacturingDate != nil {
		t, err := parseDate(*payload.ManufacturingDate)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid manufacturing_date")
			return
		}
		product.ManufacturingDate = t
	}
	if payload.ExpiryDate != nil {
		t, err := parseDate(*payload.ExpiryDate)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid expiry_date")
			return
		}
		product.ExpiryDate = t
	}

	if err := r.db.Create(&product).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create product")
		return
	}

	response := map[string]interface{}{
		"message": "Product created successfully",
		"product": product,
		"success": true,
	}
	if payload.RunAutoWorkflow {
		response["job_id"] = r.queue.Submit(product.ID)
	}
	respondJSON(w, http.StatusCreated, response)
}

// getProduct returns one product with its full trace bundle
func (r *Router) getProduct(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]

	var product models.Product
	if err := r.db.First(&product, "id = ?", id).Error; err != nil {
		respondError(w, http.StatusNotFound, "Product not found")
		return
	}

	bundle, err := r.resolver.Bundle(&product)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"product":        bundle.Product,
		"quality_checks": bundle.QualityChecks,
		"labels":         bundle.Labels,
		"workflow_logs":  bundle.WorkflowLogs,
		"quality_status": bundle.QualityStatus,
		"is_good":        bundle.IsGood,
		"success":        true,
	})
}

// updateProduct updates the mutable descriptive fields of a product
func (r *Router) updateProduct(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]

	var product models.Product
	if err := r.db.First(&product, "id = ?", id).Error; err != nil {
		respondError(w, http.StatusNotFound, "Product not found")
		return
	}

	var payload productPayload
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "No data provided")
		return
	}

	if payload.Name != "" {
		product.Name = payload.Name
	}
	if payload.Description != nil {
		product.Description = *payload.Description
	}
	if payload.Category != nil {
		product.Category = *payload.Category
	}
	if payload.Manufacturer != nil {
		product.Manufacturer = *payload.Manufacturer
	}
	if payload.BatchNumber != nil {
		product.BatchNumber = *payload.BatchNumber
	}
	if payload.AutoLabelEnabled != nil {
		product.AutoLabelEnabled = *payload.AutoLabelEnabled
	}
	if payload.ManufacturingDate != nil && *payload.ManufacturingDate != "" {
		t, err := parseDate(*payload.ManufacturingDate)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid manufacturing_date")
			return
		}
		product.ManufacturingDate = t
	}
	if payload.ExpiryDate != nil && *payload.ExpiryDate != "" {
		t, err := parseDate(*payload.ExpiryDate)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid expiry_date")
			return
		}
		product.ExpiryDate = t
	}

	if err := r.db.Save(&product).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to update product")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Product updated successfully",
		"product": product,
		"success": true,
	})
}

// deleteProduct removes a product; checks, labels and logs cascade
func (r *Router) deleteProduct(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]

	var product models.Product
	if err := r.db.First(&product, "id = ?", id).Error; err != nil {
		respondError(w, http.StatusNotFound, "Product not found")
		return
	}

	// Cascade explicitly so the invariant holds on drivers without FK
	// cascade enforcement
	if err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.QualityCheck{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.Label{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.WorkflowLog{}).Error; err != nil {
			return err
		}
		return tx.Delete(&product).Error
	}); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete product")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Product deleted successfully",
		"success": true,
	})
}
