package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/iwvelando/mortgage-compare/pkg/constants"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var testConfigPath = filepath.Join("..", "..", "test", "test_config.yaml")

func readTestConfig(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(testConfigPath)
	if err != nil {
		t.Fatalf("failed to read test config: %v", err)
	}
	return data
}

func TestHandleCompareSuccess(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	rr := performUpload(t, handler, string(readTestConfig(t)), "test_config.yaml", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp compareResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Comparison == nil || len(resp.Comparison.Results) != 5 {
		t.Fatalf("expected 5 offer results in response, got %+v", resp.Comparison)
	}
	if resp.Comparison.Benchmark != "2 year fix then standard rate" {
		t.Fatalf("expected benchmark in response, got %q", resp.Comparison.Benchmark)
	}
	if !strings.HasPrefix(resp.CSV, "rank,offer") {
		t.Fatalf("expected CSV data in response, got %q", resp.CSV)
	}
	if resp.Duration == "" {
		t.Fatal("expected duration in response")
	}
	if resp.Config == nil {
		t.Fatal("expected config data in response")
	}
	if resp.ConfigYAML == "" {
		t.Fatal("expected config YAML in response")
	}
	if resp.Schedule != nil {
		t.Fatal("expected no schedule unless requested")
	}
	if resp.RequestID == "" || resp.RequestID != rr.Header().Get(RequestIDHeader) {
		t.Fatalf("expected request ID %q to match header %q", resp.RequestID, rr.Header().Get(RequestIDHeader))
	}
	if _, err := uuid.Parse(resp.RequestID); err != nil {
		t.Fatalf("expected a UUID request ID, got %q", resp.RequestID)
	}
}

func TestHandleCompareWithSchedule(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	rr := performUpload(t, handler, string(readTestConfig(t)), "test_config.yaml",
		map[string]string{"schedule": "2 year fix then standard rate"})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp compareResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Schedule) != 300 {
		t.Fatalf("expected 300 schedule rows, got %d", len(resp.Schedule))
	}
	if resp.Schedule[0].Date != "2025-01" {
		t.Fatalf("expected schedule to start 2025-01, got %q", resp.Schedule[0].Date)
	}
	if resp.Schedule[299].Remaining > 0.01 {
		t.Fatalf("expected schedule to end repaid, got %.2f", resp.Schedule[299].Remaining)
	}
}

func TestHandleCompareRequestIDPropagation(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	req.Header.Set(RequestIDHeader, id)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get(RequestIDHeader); got != id {
		t.Fatalf("expected request ID %s to be echoed, got %s", id, got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/version", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get(RequestIDHeader); got == "not-a-uuid" || got == "" {
		t.Fatalf("expected a fresh request ID for an invalid one, got %q", got)
	}
}

func TestHandleCompareEditorSuccess(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	var configPayload map[string]interface{}
	if err := yaml.Unmarshal(readTestConfig(t), &configPayload); err != nil {
		t.Fatalf("failed to unmarshal yaml: %v", err)
	}

	payload := map[string]interface{}{
		"config":  configPayload,
		"options": map[string]interface{}{"schedule": "2 year fix"},
	}
	rr := performEditorJSON(t, handler, payload, "/api/editor/compare")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp compareResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Comparison == nil || len(resp.Comparison.Results) != 5 {
		t.Fatal("expected offer results in response")
	}
	if len(resp.Schedule) != 300 {
		t.Fatalf("expected 300 schedule rows, got %d", len(resp.Schedule))
	}
	if resp.Config == nil {
		t.Fatal("expected config data in response")
	}
	if resp.ConfigYAML == "" {
		t.Fatal("expected config YAML in response")
	}
}

func TestHandleCompareEditorErrors(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	var configPayload map[string]interface{}
	if err := yaml.Unmarshal(readTestConfig(t), &configPayload); err != nil {
		t.Fatalf("failed to unmarshal yaml: %v", err)
	}

	tests := []struct {
		name     string
		payload  map[string]interface{}
		contains string
	}{
		{
			name:     "config not an object",
			payload:  map[string]interface{}{"config": "nope"},
			contains: "expected object",
		},
		{
			name:     "options not an object",
			payload:  map[string]interface{}{"config": configPayload, "options": []interface{}{}},
			contains: "expected object",
		},
		{
			name:     "unknown schedule offer",
			payload:  map[string]interface{}{"config": configPayload, "options": map[string]interface{}{"schedule": "missing"}},
			contains: "offer missing not found",
		},
		{
			name:     "no offers",
			payload:  map[string]interface{}{"common": map[string]interface{}{"principal": 1000, "termMonths": 12}},
			contains: "at least one offer",
		},
		{
			name: "segment longer than its term",
			payload: map[string]interface{}{
				"common": map[string]interface{}{"principal": 1000, "termMonths": 12},
				"offers": []interface{}{
					map[string]interface{}{
						"name":   "broken",
						"active": true,
						"segments": []interface{}{
							map[string]interface{}{"rate": 3, "durationMonths": 24},
							map[string]interface{}{"rate": 4},
						},
					},
				},
			},
			contains: "failed to compare offers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := performEditorJSON(t, handler, tt.payload, "/api/editor/compare")
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
			}

			var resp map[string]string
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode error response: %v", err)
			}
			if !strings.Contains(resp["error"], tt.contains) {
				t.Fatalf("expected error containing %q, got %q", tt.contains, resp["error"])
			}
			if resp["requestId"] == "" {
				t.Fatal("expected request ID in error response")
			}
		})
	}
}

func TestHandleConfigExport(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	payload := map[string]interface{}{
		"offers": []interface{}{
			map[string]interface{}{
				"name":   "sample",
				"active": true,
				"segments": []interface{}{
					map[string]interface{}{"rate": 2.5, "fees": 999},
				},
			},
		},
		"common": map[string]interface{}{
			"principal":  125000.0,
			"termMonths": 300,
		},
		"output": map[string]interface{}{
			"format": "pretty",
		},
		"logging": map[string]interface{}{
			"level": "info",
		},
	}

	rr := performEditorJSON(t, handler, payload, "/api/editor/export")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	yamlStr := resp["configYaml"]
	if yamlStr == "" {
		t.Fatal("expected configYaml in response")
	}

	var topLevel []string
	for _, line := range strings.Split(strings.TrimRight(yamlStr, "\n"), "\n") {
		if line == "" || strings.HasPrefix(line, " ") || strings.HasPrefix(line, "-") {
			continue
		}
		topLevel = append(topLevel, strings.SplitN(line, ":", 2)[0])
	}

	expected := []string{"logging", "output", "common", "offers"}
	if strings.Join(topLevel, ",") != strings.Join(expected, ",") {
		t.Fatalf("expected top-level keys %v, got %v", expected, topLevel)
	}
	if !strings.Contains(yamlStr, "fees: 999") || !strings.Contains(yamlStr, "rate: 2.5") {
		t.Errorf("expected segment values in exported YAML, got:\n%s", yamlStr)
	}
}

func TestHandleConfigExportWrappedAndUnknownKeys(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	wrapped := map[string]interface{}{
		"config": map[string]interface{}{
			"common": map[string]interface{}{"principal": 1000, "termMonths": 12},
		},
	}
	rr := performEditorJSON(t, handler, wrapped, "/api/editor/export")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 for a wrapped config, got %d: %s", rr.Code, rr.Body.String())
	}

	unknown := map[string]interface{}{
		"common": map[string]interface{}{"principal": 1000, "termMonths": 12},
		"extra":  true,
	}
	rr = performEditorJSON(t, handler, unknown, "/api/editor/export")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for an unknown key, got %d", rr.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if !strings.Contains(resp["error"], "extra") {
		t.Errorf("expected the unknown key in the error, got %q", resp["error"])
	}
}

func TestHandleVersion(t *testing.T) {
	handler := NewHandler(nil, 0, "  ")

	req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["version"] != "dev" {
		t.Fatalf("expected blank version to default to dev, got %q", resp["version"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	// Record at least one request so the counter is exported.
	versionReq := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	handler.ServeHTTP(httptest.NewRecorder(), versionReq)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "mortgage_compare_requests_total") {
		t.Fatalf("expected request counter in metrics output")
	}
}

func TestHandleCompareMethodNotAllowed(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	for _, path := range []string{"/api/compare", "/api/editor/compare", "/api/editor/export"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s: expected status 405, got %d", path, rr.Code)
		}
	}
}

func TestHandleCompareUploadTooLarge(t *testing.T) {
	handler := NewHandler(zap.NewNop(), 64, "test")

	rr := performUpload(t, handler, strings.Repeat("a", 128), "config.yaml", nil)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d", rr.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if !strings.Contains(resp["error"], "upload exceeds limit") {
		t.Fatalf("expected upload limit error message, got %q", resp["error"])
	}
}

func TestHandleCompareMissingFile(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/compare", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if resp["error"] != "missing configuration file" {
		t.Fatalf("expected missing file error, got %q", resp["error"])
	}
}

func TestHandleCompareInvalidYAML(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	rr := performUpload(t, handler, "common: [", "config.yaml", nil)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if !strings.Contains(resp["error"], "error reading config data") {
		t.Fatalf("expected parse error message, got %q", resp["error"])
	}
}

func TestHandleCompareInvalidConfiguration(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	configYAML := `
common:
  principal: 100000
  termMonths: 300
  rateConvention: apr
offers:
  - name: sample
    active: true
    segments:
      - rate: 2
`

	rr := performUpload(t, handler, configYAML, "config.yaml", nil)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if !strings.Contains(resp["error"], "rate convention") {
		t.Fatalf("expected rate convention error, got %q", resp["error"])
	}
}

func performUpload(t *testing.T, handler http.Handler, content, filename string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("failed to write form data: %v", err)
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("failed to write form field: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/compare", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	return rr
}

func performEditorJSON(t *testing.T, handler http.Handler, payload map[string]interface{}, path string) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	return rr
}
