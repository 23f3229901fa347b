package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/prodtrace/smartlabel/internal/models"
	"github.com/prodtrace/smartlabel/internal/services/workflow"
)

// runWorkflow queues the complete automated workflow for one product and
// returns a job id the caller can poll
func (r *Router) runWorkflow(w http.ResponseWriter, req *http.Request) {
	productID := mux.Vars(req)["id"]

	var product models.Product
	if err := r.db.First(&product, "id = ?", productID).Error; err != nil {
		respondError(w, http.StatusNotFound, "Product not found")
		return
	}

	jobID := r.queue.Submit(productID)
	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"message": "Workflow started",
		"job_id":  jobID,
		"success": true,
	})
}

// getWorkflowJob reports the state of a queued workflow run
func (r *Router) getWorkflowJob(w http.ResponseWriter, req *http.Request) {
	jobID := mux.Vars(req)["id"]

	job, err := r.queue.Job(jobID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Job not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"job":     job,
		"success": true,
	})
}

// getWorkflowLogs returns the audit trail for one product, newest first
func (r *Router) getWorkflowLogs(w http.ResponseWriter, req *http.Request) {
	productID := mux.Vars(req)["id"]

	var product models.Product
	if err := r.db.First(&product, "id = ?", productID).Error; err != nil {
		respondError(w, http.StatusNotFound, "Product not found")
		return
	}

	var logs []models.WorkflowLog
	if err := r.db.Where("product_id = ?", productID).
		Order("created_at DESC").Find(&logs).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch workflow logs")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"workflow_logs": logs,
		"success":       true,
	})
}

// getAllWorkflowLogs returns the global audit trail, paginated
func (r *Router) getAllWorkflowLogs(w http.ResponseWriter, req *http.Request) {
	page, perPage := pageParams(req, 50)

	var total int64
	if err := r.db.Model(&models.WorkflowLog{}).Count(&total).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to count workflow logs")
		return
	}

	var logs []models.WorkflowLog
	if err := r.db.Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&logs).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch workflow logs")
		return
	}

	pages := int(total) / perPage
	if int(total)%perPage != 0 {
		pages++
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"workflow_logs": logs,
		"total":         total,
		"pages":         pages,
		"current_page":  page,
		"success":       true,
	})
}

// forceStatusUpdate recomputes the workflow status from the stored checks,
// repairing any drift between the check set and the cached status
func (r *Router) forceStatusUpdate(w http.ResponseWriter, req *http.Request) {
	productID := mux.Vars(req)["id"]

	status, err := r.engine.RecomputeStatus(productID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":         "Workflow status updated",
		"workflow_status": status,
		"success":         true,
	})
}

// debugStatus shows the stored workflow status next to what the status
// policy derives from the checks, so drift is easy to spot
func (r *Router) debugStatus(w http.ResponseWriter, req *http.Request) {
	productID := mux.Vars(req)["id"]

	var product models.Product
	if err := r.db.First(&product, "id = ?", productID).Error; err != nil {
		respondError(w, http.StatusNotFound, "Product not found")
		return
	}

	var checks []models.QualityCheck
	if err := r.db.Where("product_id = ?", productID).Find(&checks).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch quality checks")
		return
	}

	var passed, failed, pending int
	summaries := make([]string, 0, len(checks))
	for _, c := range checks {
		switch c.Status {
		case models.CheckPassed:
			passed++
		case models.CheckFailed:
			failed++
		default:
			pending++
		}
		summaries = append(summaries, fmt.Sprintf("%s: %s", c.ParameterName, c.Status))
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"product_id":      product.ID,
		"stored_status":   product.WorkflowStatus,
		"derived_status":  workflow.DeriveStatus(checks),
		"total_checks":    len(checks),
		"passed_checks":   passed,
		"failed_checks":   failed,
		"pending_checks":  pending,
		"check_summaries": summaries,
		"success":         true,
	})
}

// runBatchWorkflow queues the automated workflow for several products
func (r *Router) runBatchWorkflow(w http.ResponseWriter, req *http.Request) {
	var payload struct {
		ProductIDs []string `json:"product_ids"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if len(payload.ProductIDs) == 0 {
		respondError(w, http.StatusBadRequest, "product_ids is required")
		return
	}

	jobID := r.queue.SubmitBatch(payload.ProductIDs)
	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"message":       "Batch workflow started",
		"job_id":        jobID,
		"product_count": len(payload.ProductIDs),
		"success":       true,
	})
}

// generateBatchLabels issues QR labels for several products in one call,
// reporting per-product results
func (r *Router) generateBatchLabels(w http.ResponseWriter, req *http.Request) {
	var payload struct {
		ProductIDs []string `json:"product_ids"`
		LabelType  string   `json:"label_type"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if len(payload.ProductIDs) == 0 {
		respondError(w, http.StatusBadRequest, "product_ids is required")
		return
	}
	if payload.LabelType == "" {
		payload.LabelType = models.LabelTypeQRCode
	}

	results := make([]map[string]interface{}, 0, len(payload.ProductIDs))
	generated := 0
	for _, id := range payload.ProductIDs {
		label, err := r.labels.Issue(req.Context(), id, payload.LabelType, false)
		if err != nil {
			results = append(results, map[string]interface{}{
				"product_id": id,
				"success":    false,
				"error":      err.Error(),
			})
			continue
		}
		generated++
		results = append(results, map[string]interface{}{
			"product_id": id,
			"label_id":   label.ID,
			"success":    true,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":   fmt.Sprintf("Generated %d of %d labels", generated, len(payload.ProductIDs)),
		"results":   results,
		"generated": generated,
		"success":   true,
	})
}
