package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/prodtrace/smartlabel/internal/models"
)

type checkPayload struct {
	ParameterName *string  `json:"parameter_name"`
	ExpectedValue *string  `json:"expected_value"`
	ActualValue   *string  `json:"actual_value"`
	Unit          *string  `json:"unit"`
	Tolerance     *float64 `json:"tolerance"`
	Status        *string  `json:"status"`
	CheckedBy     *string  `json:"checked_by"`
	Notes         *string  `json:"notes"`
}

// createQualityCheck records a manual quality check against a product and
// recomputes the workflow status from the full check set
func (r *Router) createQualityCheck(w http.ResponseWriter, req *http.Request) {
	productID := mux.Vars(req)["id"]

	var product models.Product
	if err := r.db.First(&product, "id = ?", productID).Error; err != nil {
		respondError(w, http.StatusNotFound, "Product not found")
		return
	}

	var payload checkPayload
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if payload.ParameterName == nil || *payload.ParameterName == "" {
		respondError(w, http.StatusBadRequest, "parameter_name is required")
		return
	}
	if payload.ExpectedValue == nil || *payload.ExpectedValue == "" {
		respondError(w, http.StatusBadRequest, "expected_value is required")
		return
	}

	check := models.QualityCheck{
		ProductID:     productID,
		ParameterName: *payload.ParameterName,
		ExpectedValue: *payload.ExpectedValue,
		Status:        models.CheckPending,
		CheckedAt:     time.Now().UTC(),
	}
	if payload.ActualValue != nil {
		check.ActualValue = payload.ActualValue
	}
	if payload.Unit != nil {
		check.Unit = *payload.Unit
	}
	check.Tolerance = payload.Tolerance
	if payload.Status != nil {
		check.Status = models.CheckStatus(*payload.Status)
	}
	if payload.CheckedBy != nil {
		check.CheckedBy = *payload.CheckedBy
	}
	if payload.Notes != nil {
		check.Notes = *payload.Notes
	}

	if err := r.db.Create(&check).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create quality check")
		return
	}

	status, err := r.engine.RecomputeStatus(productID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":         "Quality check created successfully",
		"quality_check":   check,
		"workflow_status": status,
		"success":         true,
	})
}

// runAutoQualityChecks generates and records catalog-driven checks for a
// product without touching labels
func (r *Router) runAutoQualityChecks(w http.ResponseWriter, req *http.Request) {
	productID := mux.Vars(req)["id"]

	ok, err := r.engine.RunAutoChecks(req.Context(), productID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !ok {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"message": "No quality parameters found for this product",
			"success": false,
		})
		return
	}

	var checks []models.QualityCheck
	if err := r.db.Where("product_id = ? AND auto_generated = ?", productID, true).
		Order("checked_at ASC").Find(&checks).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch quality checks")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":        "Automatic quality checks completed",
		"quality_checks": checks,
		"success":        true,
	})
}

// deleteAutoQualityChecks removes auto-generated checks and the workflow
// log so the automated flow can be re-run from a clean slate
func (r *Router) deleteAutoQualityChecks(w http.ResponseWriter, req *http.Request) {
	productID := mux.Vars(req)["id"]

	if err := r.engine.ResetAutoChecks(productID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Automatic quality checks reset successfully",
		"success": true,
	})
}

// updateQualityCheck edits an existing check and recomputes the owning
// product's workflow status
func (r *Router) updateQualityCheck(w http.ResponseWriter, req *http.Request) {
	checkID := mux.Vars(req)["id"]

	var check models.QualityCheck
	if err := r.db.First(&check, "id = ?", checkID).Error; err != nil {
		respondError(w, http.StatusNotFound, "Quality check not found")
		return
	}

	var payload checkPayload
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	if payload.ActualValue != nil {
		check.ActualValue = payload.ActualValue
	}
	if payload.Status != nil {
		check.Status = models.CheckStatus(*payload.Status)
	}
	if payload.CheckedBy != nil {
		check.CheckedBy = *payload.CheckedBy
	}
	if payload.Notes != nil {
		check.Notes = *payload.Notes
	}
	check.CheckedAt = time.Now().UTC()

	if err := r.db.Save(&check).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to update quality check")
		return
	}

	status, err := r.engine.RecomputeStatus(check.ProductID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":         "Quality check updated successfully",
		"quality_check":   check,
		"workflow_status": status,
		"success":         true,
	})
}

// simulateQualityCheck runs the hardware simulator against a recorded
// check and persists the measured value
func (r *Router) simulateQualityCheck(w http.ResponseWriter, req *http.Request) {
	checkID := mux.Vars(req)["id"]

	var check models.QualityCheck
	if err := r.db.First(&check, "id = ?", checkID).Error; err != nil {
		respondError(w, http.StatusNotFound, "Quality check not found")
		return
	}

	result := r.sim.SimulateQualityCheck(req.Context(), check.ParameterName, check.ExpectedValue, check.Tolerance)

	check.ActualValue = &result.ActualValue
	check.Status = result.Status
	check.CheckedBy = "Hardware-Simulator"
	check.CheckedAt = time.Now().UTC()
	if err := r.db.Save(&check).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to save simulation result")
		return
	}

	status, err := r.engine.RecomputeStatus(check.ProductID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":         "Quality check simulated successfully",
		"quality_check":   check,
		"result":          result,
		"workflow_status": status,
		"success":         true,
	})
}
