package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prodtrace/smartlabel/internal/catalog"
	"github.com/prodtrace/smartlabel/internal/config"
	"github.com/prodtrace/smartlabel/internal/database"
	"github.com/prodtrace/smartlabel/internal/hardware"
	"github.com/prodtrace/smartlabel/internal/models"
	"github.com/prodtrace/smartlabel/internal/services/labeler"
	"github.com/prodtrace/smartlabel/internal/services/trace"
	"github.com/prodtrace/smartlabel/internal/services/workflow"
	"github.com/prodtrace/smartlabel/internal/websocket"
)

func newTestRouter(t *testing.T) (*Router, *workflow.Queue) {
	t.Helper()

	db, err := database.Connect(config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.AutoMigrate(
		&models.Product{},
		&models.QualityCheck{},
		&models.Label{},
		&models.WorkflowLog{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}

	sim := hardware.NewFast()
	hub := websocket.NewHub()
	audit := workflow.NewAuditLog(db.DB, hub)
	labels := labeler.New(db.DB, labeler.ImageRenderer{}, sim, "http://localhost:3001", audit)
	engine := workflow.NewEngine(db.DB, cat, sim, labels, audit)
	engine.SetBatchDelay(0)
	resolver := trace.NewResolver(db.DB)
	queue := workflow.NewQueue(engine, 1)
	if err := queue.Start(); err != nil {
		t.Fatalf("start queue: %v", err)
	}
	t.Cleanup(queue.Stop)

	return NewRouter(Deps{
		DB:       db,
		Catalog:  cat,
		Sim:      sim,
		Engine:   engine,
		Queue:    queue,
		Labels:   labels,
		Resolver: resolver,
		Hub:      hub,
	}), queue
}

func doJSON(t *testing.T, r *Router, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	}
	return rec, decoded
}

func TestHealthEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	rec, body := doJSON(t, r, "GET", "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["status"] != "healthy" {
		t.Errorf("health status = %v", body["status"])
	}
}

func TestProductLifecycle(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, body := doJSON(t, r, "POST", "/api/products", map[string]interface{}{
		"name":         "Basmati Rice",
		"category":     "food",
		"batch_number": "BR-2026-500",
		"expiry_date":  "2027-06-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body: %s", rec.Code, rec.Body.String())
	}
	product := body["product"].(map[string]interface{})
	id := product["id"].(string)
	if product["workflow_status"] != "pending" {
		t.Errorf("new product status = %v, want pending", product["workflow_status"])
	}

	rec, body = doJSON(t, r, "GET", "/api/products/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if _, ok := body["quality_status"]; !ok {
		t.Error("get product missing quality_status")
	}

	rec, _ = doJSON(t, r, "PUT", "/api/products/"+id, map[string]interface{}{
		"manufacturer": "Demo Foods",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d", rec.Code)
	}

	rec, body = doJSON(t, r, "GET", "/api/products?category=food", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if body["total"].(float64) != 1 {
		t.Errorf("list total = %v, want 1", body["total"])
	}

	rec, _ = doJSON(t, r, "DELETE", "/api/products/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec, _ = doJSON(t, r, "GET", "/api/products/"+id, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestCreateProductValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, _ := doJSON(t, r, "POST", "/api/products", map[string]interface{}{"category": "food"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing name status = %d, want 400", rec.Code)
	}

	rec, _ = doJSON(t, r, "POST", "/api/products", map[string]interface{}{
		"name":        "X",
		"expiry_date": "not-a-date",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad date status = %d, want 400", rec.Code)
	}
}

func createTestProduct(t *testing.T, r *Router, name, batch string) string {
	t.Helper()
	rec, body := doJSON(t, r, "POST", "/api/products", map[string]interface{}{
		"name":         name,
		"batch_number": batch,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create product: %d %s", rec.Code, rec.Body.String())
	}
	return body["product"].(map[string]interface{})["id"].(string)
}

func waitForJobDone(t *testing.T, r *Router, jobID string) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		rec, body := doJSON(t, r, "GET", "/api/workflow/jobs/"+jobID, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("job status = %d", rec.Code)
		}
		job := body["job"].(map[string]interface{})
		if job["state"] == "done" {
			return job
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("job did not finish in time")
	return nil
}

func TestWorkflowViaAPI(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createTestProduct(t, r, "Basmati Rice", "BR-2026-501")

	rec, body := doJSON(t, r, "POST", fmt.Sprintf("/api/products/%s/workflow/run", id), nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("run status = %d", rec.Code)
	}
	jobID := body["job_id"].(string)

	job := waitForJobDone(t, r, jobID)
	results := job["results"].(map[string]interface{})
	if results[id] != "completed" {
		t.Errorf("workflow result = %v, want completed", results[id])
	}

	rec, body = doJSON(t, r, "GET", fmt.Sprintf("/api/products/%s/workflow/logs", id), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logs status = %d", rec.Code)
	}
	logs := body["workflow_logs"].([]interface{})
	if len(logs) == 0 {
		t.Error("no workflow logs recorded")
	}

	rec, body = doJSON(t, r, "GET", fmt.Sprintf("/api/products/%s/debug-status", id), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("debug status = %d", rec.Code)
	}
	if body["stored_status"] != "completed" || body["derived_status"] != "completed" {
		t.Errorf("debug stored=%v derived=%v, want completed/completed",
			body["stored_status"], body["derived_status"])
	}
}

func TestTraceabilityEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createTestProduct(t, r, "Basmati Rice", "BR-2026-502")

	rec, body := doJSON(t, r, "GET", "/api/traceability/BR-2026-502", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("trace by batch status = %d", rec.Code)
	}
	product := body["product"].(map[string]interface{})
	if product["id"] != id {
		t.Errorf("trace resolved product %v, want %s", product["id"], id)
	}
	if _, ok := body["traceability_score"]; !ok {
		t.Error("trace response missing traceability_score")
	}

	rec, _ = doJSON(t, r, "GET", "/api/traceability/does-not-exist", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown identifier status = %d, want 404", rec.Code)
	}
}

func TestProductDetailsPage(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createTestProduct(t, r, "Basmati Rice", "BR-2026-503")

	req := httptest.NewRequest("GET", "/product/"+id, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("details page status = %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") {
		t.Errorf("content type = %q", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "Basmati Rice") {
		t.Error("page does not mention the product name")
	}
}

func TestLabelEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createTestProduct(t, r, "Basmati Rice", "BR-2026-504")

	rec, body := doJSON(t, r, "POST", fmt.Sprintf("/api/products/%s/labels", id),
		map[string]interface{}{"label_type": "qr_code"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create label status = %d, body: %s", rec.Code, rec.Body.String())
	}
	labelID := body["label"].(map[string]interface{})["id"].(string)

	req := httptest.NewRequest("GET", fmt.Sprintf("/api/labels/%s/image", labelID), nil)
	rec2 := httptest.NewRecorder()
	r.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusOK {
		t.Fatalf("image status = %d", rec2.Code)
	}
	if rec2.Header().Get("Content-Type") != "image/png" {
		t.Errorf("image content type = %q", rec2.Header().Get("Content-Type"))
	}

	rec, body = doJSON(t, r, "GET", fmt.Sprintf("/api/labels/%s/image/base64", labelID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("base64 status = %d", rec.Code)
	}
	if !strings.HasPrefix(body["image"].(string), "data:image/png;base64,") {
		t.Error("base64 image missing data prefix")
	}

	rec, body = doJSON(t, r, "POST", fmt.Sprintf("/api/labels/%s/verify", labelID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify status = %d", rec.Code)
	}
	if body["label"].(map[string]interface{})["is_verified"] != true {
		t.Error("label not verified")
	}

	rec, _ = doJSON(t, r, "POST", "/api/labels/sheet", map[string]interface{}{
		"product_ids": []string{id},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("sheet status = %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/pdf" {
		t.Errorf("sheet content type = %q", rec.Header().Get("Content-Type"))
	}
}

func TestQualityCheckEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createTestProduct(t, r, "Lassi", "LS-2026-001")

	rec, body := doJSON(t, r, "POST", fmt.Sprintf("/api/products/%s/quality-checks", id),
		map[string]interface{}{
			"parameter_name": "Acidity",
			"expected_value": "4.5",
			"status":         "failed",
			"checked_by":     "QA Team",
		})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create check status = %d, body: %s", rec.Code, rec.Body.String())
	}
	if body["workflow_status"] != "failed" {
		t.Errorf("workflow status after failed check = %v, want failed", body["workflow_status"])
	}
	checkID := body["quality_check"].(map[string]interface{})["id"].(string)

	rec, body = doJSON(t, r, "PUT", "/api/quality-checks/"+checkID,
		map[string]interface{}{"status": "passed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update check status = %d", rec.Code)
	}
	if body["workflow_status"] != "completed" {
		t.Errorf("workflow status after pass = %v, want completed", body["workflow_status"])
	}

	rec, _ = doJSON(t, r, "POST", fmt.Sprintf("/api/products/%s/quality-checks/auto", id), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("auto checks status = %d", rec.Code)
	}

	rec, _ = doJSON(t, r, "DELETE", fmt.Sprintf("/api/products/%s/quality-checks/auto", id), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d", rec.Code)
	}
}

func TestCatalogEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, body := doJSON(t, r, "GET", "/api/catalog/products/basmati_rice/parameters", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("parameters status = %d", rec.Code)
	}
	params := body["parameters"].([]interface{})
	if len(params) != 6 {
		t.Errorf("basmati_rice has %d parameters, want 6", len(params))
	}

	rec, _ = doJSON(t, r, "GET", "/api/catalog/products/unknown_thing/parameters", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown key status = %d, want 404", rec.Code)
	}

	rec, body = doJSON(t, r, "GET", "/api/catalog/search?q=rice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("search status = %d", rec.Code)
	}
	if body["total"].(float64) < 1 {
		t.Error("search for rice found nothing")
	}
}

func TestHardwareEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, body := doJSON(t, r, "POST", "/api/hardware/scanner/connect", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("scanner connect status = %d", rec.Code)
	}
	if body["device_id"] != "SCANNER_001" {
		t.Errorf("device_id = %v", body["device_id"])
	}

	rec, _ = doJSON(t, r, "GET", "/api/hardware/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("hardware status = %d", rec.Code)
	}
}

func TestAnalyticsEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)
	createTestProduct(t, r, "Basmati Rice", "BR-2026-505")

	rec, body := doJSON(t, r, "GET", "/api/analytics/dashboard", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d", rec.Code)
	}
	products := body["products"].(map[string]interface{})
	if products["total"].(float64) != 1 {
		t.Errorf("dashboard total products = %v, want 1", products["total"])
	}

	rec, _ = doJSON(t, r, "GET", "/api/analytics/quality-trends?days=7", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("trends status = %d", rec.Code)
	}

	rec, _ = doJSON(t, r, "GET", "/api/analytics/category-breakdown", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("breakdown status = %d", rec.Code)
	}
}
