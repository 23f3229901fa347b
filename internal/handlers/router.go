package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/prodtrace/smartlabel/internal/buildinfo"
	"github.com/prodtrace/smartlabel/internal/catalog"
	"github.com/prodtrace/smartlabel/internal/database"
	"github.com/prodtrace/smartlabel/internal/errs"
	"github.com/prodtrace/smartlabel/internal/hardware"
	"github.com/prodtrace/smartlabel/internal/services/labeler"
	"github.com/prodtrace/smartlabel/internal/services/trace"
	"github.com/prodtrace/smartlabel/internal/services/workflow"
	"github.com/prodtrace/smartlabel/internal/websocket"
)

// Router wraps the mux router and the service layer
type Router struct {
	*mux.Router
	db       *database.DB
	catalog  *catalog.Catalog
	sim      *hardware.Simulator
	engine   *workflow.Engine
	queue    *workflow.Queue
	labels   *labeler.Service
	resolver *trace.Resolver
	hub      *websocket.Hub
}

// Deps bundles everything the HTTP layer needs
type Deps struct {
	DB       *database.DB
	Catalog  *catalog.Catalog
	Sim      *hardware.Simulator
	Engine   *workflow.Engine
	Queue    *workflow.Queue
	Labels   *labeler.Service
	Resolver *trace.Resolver
	Hub      *websocket.Hub
}

// NewRouter creates the HTTP router with all routes
func NewRouter(d Deps) *Router {
	r := &Router{
		Router:   mux.NewRouter(),
		db:       d.DB,
		catalog:  d.Catalog,
		sim:      d.Sim,
		engine:   d.Engine,
		queue:    d.Queue,
		labels:   d.Labels,
		resolver: d.Resolver,
		hub:      d.Hub,
	}

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	// Product routes
	r.HandleFunc("/api/products", r.listProducts).Methods("GET")
	r.HandleFunc("/api/products", r.createProduct).Methods("POST")
	r.HandleFunc("/api/products/{id}", r.getProduct).Methods("GET")
	r.HandleFunc("/api/products/{id}", r.updateProduct).Methods("PUT")
	r.HandleFunc("/api/products/{id}", r.deleteProduct).Methods("DELETE")

	// Quality check routes
	r.HandleFunc("/api/products/{id}/quality-checks", r.createQualityCheck).Methods("POST")
	r.HandleFunc("/api/products/{id}/quality-checks/auto", r.runAutoQualityChecks).Methods("POST")
	r.HandleFunc("/api/products/{id}/quality-checks/auto", r.deleteAutoQualityChecks).Methods("DELETE")
	r.HandleFunc("/api/quality-checks/{id}", r.updateQualityCheck).Methods("PUT")
	r.HandleFunc("/api/quality-checks/{id}/simulate", r.simulateQualityCheck).Methods("POST")

	// Label routes
	r.HandleFunc("/api/products/{id}/labels", r.createLabel).Methods("POST")
	r.HandleFunc("/api/products/{id}/labels/auto", r.autoGenerateLabel).Methods("POST")
	r.HandleFunc("/api/products/{id}/labels/auto", r.deleteAutoLabels).Methods("DELETE")
	r.HandleFunc("/api/labels/sheet", r.labelSheet).Methods("POST")
	r.HandleFunc("/api/labels/{id}/image", r.getLabelImage).Methods("GET")
	r.HandleFunc("/api/labels/{id}/image/base64", r.getLabelImageBase64).Methods("GET")
	r.HandleFunc("/api/labels/{id}/verify", r.verifyLabel).Methods("POST")
	r.HandleFunc("/api/labels/{id}/print", r.printLabel).Methods("POST")

	// Workflow routes
	r.HandleFunc("/api/products/{id}/workflow/run", r.runWorkflow).Methods("POST")
	r.HandleFunc("/api/products/{id}/workflow/logs", r.getWorkflowLogs).Methods("GET")
	r.HandleFunc("/api/workflow/logs", r.getAllWorkflowLogs).Methods("GET")
	r.HandleFunc("/api/workflow/jobs/{id}", r.getWorkflowJob).Methods("GET")
	r.HandleFunc("/api/products/{id}/force-status-update", r.forceStatusUpdate).Methods("POST")
	r.HandleFunc("/api/products/{id}/debug-status", r.debugStatus).Methods("GET")

	// Batch routes
	r.HandleFunc("/api/batch/workflow/run", r.runBatchWorkflow).Methods("POST")
	r.HandleFunc("/api/batch/labels/generate", r.generateBatchLabels).Methods("POST")

	// Traceability routes
	r.HandleFunc("/api/traceability/{identifier}", r.traceProduct).Methods("GET")
	r.HandleFunc("/product/{id}", r.productDetailsPage).Methods("GET")

	// Reference catalog routes
	r.HandleFunc("/api/catalog/products/{key}/parameters", r.getCatalogParameters).Methods("GET")
	r.HandleFunc("/api/catalog/search", r.searchCatalog).Methods("GET")

	// Hardware simulation routes
	r.HandleFunc("/api/hardware/scanner/connect", r.connectScanner).Methods("POST")
	r.HandleFunc("/api/hardware/printer/connect", r.connectPrinter).Methods("POST")
	r.HandleFunc("/api/hardware/sensors/connect", r.connectSensors).Methods("POST")
	r.HandleFunc("/api/hardware/status", r.hardwareStatus).Methods("GET")

	// Analytics routes
	r.HandleFunc("/api/analytics/dashboard", r.dashboard).Methods("GET")
	r.HandleFunc("/api/analytics/quality-trends", r.qualityTrends).Methods("GET")
	r.HandleFunc("/api/analytics/category-breakdown", r.categoryBreakdown).Methods("GET")

	// Live workflow event stream
	r.HandleFunc("/ws", r.hub.ServeWS)

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Smart product labeling backend is running",
		"status":  "healthy",
		"started": buildinfo.StartTime,
		"commit":  buildinfo.CommitHash,
		"features": []string{
			"QR Code Generation",
			"Barcode Generation",
			"Hardware Simulation",
			"Workflow Automation",
			"Quality Check Automation",
		},
	})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   message,
		"success": false,
	})
}

// respondServiceError maps service-layer failures to HTTP statuses
func respondServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, errs.ErrNotFound) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondError(w, http.StatusInternalServerError, err.Error())
}
