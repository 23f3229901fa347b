package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prodtrace/smartlabel/internal/models"
)

// dashboard returns headline counts and rates across the whole dataset
func (r *Router) dashboard(w http.ResponseWriter, req *http.Request) {
	var (
		totalProducts  int64
		completed      int64
		failed         int64
		pending        int64
		totalChecks    int64
		passedChecks   int64
		failedChecks   int64
		totalLabels    int64
		verifiedLabels int64
		printedLabels  int64
	)

	counts := []struct {
		dest  *int64
		model interface{}
		query string
		args  []interface{}
	}{
		{&totalProducts, &models.Product{}, "", nil},
		{&completed, &models.Product{}, "workflow_status = ?", []interface{}{models.WorkflowCompleted}},
		{&failed, &models.Product{}, "workflow_status = ?", []interface{}{models.WorkflowFailed}},
		{&pending, &models.Product{}, "workflow_status IN ?", []interface{}{[]models.WorkflowStatus{models.WorkflowPending, models.WorkflowInProgress}}},
		{&totalChecks, &models.QualityCheck{}, "", nil},
		{&passedChecks, &models.QualityCheck{}, "status = ?", []interface{}{models.CheckPassed}},
		{&failedChecks, &models.QualityCheck{}, "status = ?", []interface{}{models.CheckFailed}},
		{&totalLabels, &models.Label{}, "", nil},
		{&verifiedLabels, &models.Label{}, "is_verified = ?", []interface{}{true}},
		{&printedLabels, &models.Label{}, "print_status = ?", []interface{}{models.PrintPrinted}},
	}
	for _, c := range counts {
		q := r.db.Model(c.model)
		if c.query != "" {
			q = q.Where(c.query, c.args...)
		}
		if err := q.Count(c.dest).Error; err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to compute dashboard counts")
			return
		}
	}

	rate := func(part, total int64) float64 {
		if total == 0 {
			return 0
		}
		return float64(part) / float64(total) * 100
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"products": map[string]interface{}{
			"total":           totalProducts,
			"completed":       completed,
			"failed":          failed,
			"pending":         pending,
			"completion_rate": rate(completed, totalProducts),
		},
		"quality_checks": map[string]interface{}{
			"total":     totalChecks,
			"passed":    passedChecks,
			"failed":    failedChecks,
			"pass_rate": rate(passedChecks, totalChecks),
		},
		"labels": map[string]interface{}{
			"total":    totalLabels,
			"verified": verifiedLabels,
			"printed":  printedLabels,
		},
		"success": true,
	})
}

// qualityTrends groups check outcomes per day over the requested window
// (default 30 days)
func (r *Router) qualityTrends(w http.ResponseWriter, req *http.Request) {
	days, _ := strconv.Atoi(req.URL.Query().Get("days"))
	if days < 1 {
		days = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	type trendRow struct {
		Day    string `json:"day"`
		Total  int64  `json:"total"`
		Passed int64  `json:"passed"`
		Failed int64  `json:"failed"`
	}
	var rows []trendRow
	if err := r.db.Model(&models.QualityCheck{}).
		Select("DATE(checked_at) AS day, "+
			"COUNT(*) AS total, "+
			"SUM(CASE WHEN status = 'passed' THEN 1 ELSE 0 END) AS passed, "+
			"SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END) AS failed").
		Where("checked_at >= ?", since).
		Group("DATE(checked_at)").
		Order("day ASC").
		Scan(&rows).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to compute quality trends")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"trends":  rows,
		"days":    days,
		"success": true,
	})
}

// categoryBreakdown groups product counts and workflow outcomes by category
func (r *Router) categoryBreakdown(w http.ResponseWriter, req *http.Request) {
	type categoryRow struct {
		Category  string `json:"category"`
		Total     int64  `json:"total"`
		Completed int64  `json:"completed"`
		Failed    int64  `json:"failed"`
	}
	var rows []categoryRow
	if err := r.db.Model(&models.Product{}).
		Select("category, " +
			"COUNT(*) AS total, " +
			"SUM(CASE WHEN workflow_status = 'completed' THEN 1 ELSE 0 END) AS completed, " +
			"SUM(CASE WHEN workflow_status = 'failed' THEN 1 ELSE 0 END) AS failed").
		Group("category").
		Order("total DESC").
		Scan(&rows).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to compute category breakdown")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"categories": rows,
		"success":    true,
	})
}
