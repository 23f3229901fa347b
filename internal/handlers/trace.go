package handlers

import (
	"encoding/base64"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/prodtrace/smartlabel/internal/models"
	"github.com/prodtrace/smartlabel/internal/services/trace"
)

// traceProduct resolves a product by id, batch number or label payload and
// returns its full traceability bundle
func (r *Router) traceProduct(w http.ResponseWriter, req *http.Request) {
	identifier := mux.Vars(req)["identifier"]

	bundle, err := r.resolver.Resolve(identifier)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"product":            bundle.Product,
		"quality_checks":     bundle.QualityChecks,
		"labels":             bundle.Labels,
		"workflow_logs":      bundle.WorkflowLogs,
		"traceability_score": bundle.Score,
		"compliance_status":  bundle.ComplianceStatus,
		"is_good":            bundle.IsGood,
		"quality_status":     bundle.QualityStatus,
		"verification_time":  time.Now().UTC().Format(time.RFC3339),
		"success":            true,
	})
}

var detailsTemplate = template.Must(template.New("details").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Product.Name}} - Product Trace</title>
<style>
body { font-family: -apple-system, Arial, sans-serif; margin: 0; background: #f5f5f5; color: #222; }
.header { background: #2c3e50; color: #fff; padding: 20px; text-align: center; }
.card { background: #fff; margin: 12px; padding: 16px; border-radius: 8px; box-shadow: 0 1px 3px rgba(0,0,0,0.12); }
.row { display: flex; justify-content: space-between; padding: 6px 0; border-bottom: 1px solid #eee; }
.row span:first-child { color: #777; }
.badge { display: inline-block; padding: 4px 10px; border-radius: 12px; font-size: 13px; color: #fff; }
.badge.ok { background: #27ae60; }
.badge.warn { background: #f39c12; }
.badge.bad { background: #e74c3c; }
.qr { text-align: center; padding: 10px; }
.qr img { max-width: 200px; }
.score { font-size: 32px; font-weight: bold; text-align: center; color: #2c3e50; }
table { width: 100%; border-collapse: collapse; font-size: 14px; }
th, td { text-align: left; padding: 6px; border-bottom: 1px solid #eee; }
</style>
</head>
<body>
<div class="header">
<h2>{{.Product.Name}}</h2>
<p>{{.Product.Category}}{{if .Product.Manufacturer}} &middot; {{.Product.Manufacturer}}{{end}}</p>
</div>
<div class="card">
<div class="row"><span>Batch</span><span>{{if .Product.BatchNumber}}{{.Product.BatchNumber}}{{else}}N/A{{end}}</span></div>
<div class="row"><span>Manufactured</span><span>{{.MfgDate}}</span></div>
<div class="row"><span>Expires</span><span>{{.ExpDate}}</span></div>
<div class="row"><span>Workflow</span><span class="badge {{.StatusClass}}">{{.Product.WorkflowStatus}}</span></div>
<div class="row"><span>Compliance</span><span class="badge {{.ComplianceClass}}">{{.Bundle.ComplianceStatus}}</span></div>
<div class="row"><span>Freshness</span><span>{{.Bundle.QualityStatus}}</span></div>
</div>
<div class="card">
<p style="text-align:center;color:#777;margin:0">Traceability Score</p>
<div class="score">{{.Bundle.Score}} / 100</div>
</div>
{{if .QRImage}}
<div class="card qr">
<img src="data:image/png;base64,{{.QRImage}}" alt="Trace QR code">
</div>
{{end}}
<div class="card">
<h3>Quality Checks</h3>
{{if .Bundle.QualityChecks}}
<table>
<tr><th>Parameter</th><th>Expected</th><th>Actual</th><th>Status</th></tr>
{{range .Bundle.QualityChecks}}
<tr><td>{{.ParameterName}}</td><td>{{.ExpectedValue}} {{.Unit}}</td><td>{{if .ActualValue}}{{.ActualValue}}{{else}}-{{end}}</td><td>{{.Status}}</td></tr>
{{end}}
</table>
{{else}}
<p>No quality checks recorded.</p>
{{end}}
</div>
</body>
</html>`))

type detailsView struct {
	Product         *models.Product
	Bundle          *trace.Bundle
	MfgDate         string
	ExpDate         string
	QRImage         string
	StatusClass     string
	ComplianceClass string
}

// productDetailsPage serves the mobile trace page a scanned QR label
// resolves to
func (r *Router) productDetailsPage(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]

	var product models.Product
	if err := r.db.First(&product, "id = ?", id).Error; err != nil {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}

	bundle, err := r.resolver.Bundle(&product)
	if err != nil {
		http.Error(w, "Failed to assemble trace record", http.StatusInternalServerError)
		return
	}

	view := detailsView{
		Product: &product,
		Bundle:  bundle,
		MfgDate: "N/A",
		ExpDate: "N/A",
	}
	if product.ManufacturingDate != nil {
		view.MfgDate = product.ManufacturingDate.Format("2006-01-02")
	}
	if product.ExpiryDate != nil {
		view.ExpDate = product.ExpiryDate.Format("2006-01-02")
	}
	for _, label := range bundle.Labels {
		if label.LabelType == models.LabelTypeQRCode && label.HasImage() {
			view.QRImage = base64.StdEncoding.EncodeToString(label.LabelImage)
			break
		}
	}
	switch product.WorkflowStatus {
	case models.WorkflowCompleted:
		view.StatusClass = "ok"
	case models.WorkflowFailed:
		view.StatusClass = "bad"
	default:
		view.StatusClass = "warn"
	}
	switch bundle.ComplianceStatus {
	case trace.ComplianceCompliant:
		view.ComplianceClass = "ok"
	case trace.ComplianceNonCompliant:
		view.ComplianceClass = "bad"
	default:
		view.ComplianceClass = "warn"
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := detailsTemplate.Execute(w, view); err != nil {
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}

// getCatalogParameters returns the quality parameters known for a catalog
// product key
func (r *Router) getCatalogParameters(w http.ResponseWriter, req *http.Request) {
	key := mux.Vars(req)["key"]

	entry, ok := r.catalog.LookupByName(key)
	if !ok {
		respondError(w, http.StatusNotFound, "Product not found in catalog")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"product":    entry,
		"parameters": entry.QualityParameters,
		"success":    true,
	})
}

// searchCatalog searches the built-in catalog by name or category
func (r *Router) searchCatalog(w http.ResponseWriter, req *http.Request) {
	query := req.URL.Query().Get("q")
	if query == "" {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"results":    r.catalog.Keys(),
			"categories": r.catalog.Categories(),
			"total":      r.catalog.Len(),
			"success":    true,
		})
		return
	}

	results := r.catalog.Search(query)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"total":   len(results),
		"success": true,
	})
}
