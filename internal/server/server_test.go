package server

import (
	"bytes"
	"context"
	"errors"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/iwvelando/backlog-forecast/internal/config"
	"github.com/iwvelando/backlog-forecast/internal/override"
	"github.com/iwvelando/backlog-forecast/pkg/constants"
	"github.com/iwvelando/backlog-forecast/pkg/contour"
	"github.com/iwvelando/backlog-forecast/pkg/datetime"
	"github.com/iwvelando/backlog-forecast/pkg/duration"
	"github.com/iwvelando/backlog-forecast/pkg/testutil"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const contractsYAML = `contracts:
  - id: C-100
    name: Riverside School
    value: "$1,200,000"
    backlog: 120000
    earnedRevenue: 0
    projectedRevenue: 1200000
    department: Electrical
    projectManager: Avery
    status: active
  - id: C-200
    name: Harbor Clinic
    value: 3000000
    backlog: 1500000
    earnedRevenue: 1500000
    projectedRevenue: 3000000
    department: Mechanical
    projectManager: Jordan
    status: active
`

func fixedNow() time.Time {
	return datetime.MustParseTime(constants.DateTimeLayout, "2025-06")
}

func newTestHandler(t *testing.T, manager *override.Manager) http.Handler {
	t.Helper()
	return NewHandler(Options{
		Logger:        zap.NewNop(),
		MaxUploadSize: constants.DefaultMaxUploadSizeBytes,
		Version:       "1.2.3",
		Config:        config.Default(),
		Contracts:     testutil.SampleContracts(),
		Overrides:     manager,
		Now:           fixedNow,
	})
}

func performJSON(t *testing.T, handler http.Handler, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("failed to encode payload: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeForecast(t *testing.T, rr *httptest.ResponseRecorder) forecastResponse {
	t.Helper()
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp forecastResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestHandleForecastUpload(t *testing.T) {
	handler := newTestHandler(t, nil)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "contracts.yaml")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte(contractsYAML)); err != nil {
		t.Fatalf("failed to write form data: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/forecast", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	resp := decodeForecast(t, rr)
	if len(resp.Projections) != 2 {
		t.Fatalf("expected 2 projections, got %d", len(resp.Projections))
	}
	if resp.AsOf != "2025-06" {
		t.Errorf("expected asOf 2025-06, got %s", resp.AsOf)
	}
	if resp.Summary.GrandTotal < 1_619_999 || resp.Summary.GrandTotal > 1_620_001 {
		t.Errorf("expected grand total 1620000, got %f", resp.Summary.GrandTotal)
	}
	if resp.CSV == "" || resp.Duration == "" {
		t.Errorf("expected CSV and duration in response")
	}
	if len(resp.Keys) != 15 {
		t.Errorf("expected 15 period keys, got %v", resp.Keys)
	}

	// The upload replaced the working set.
	current := decodeForecast(t, performJSON(t, handler, http.MethodGet, "/api/forecast", nil))
	if len(current.Projections) != 2 || testutil.FindProjection(current.Projections, "C-400") != nil {
		t.Errorf("working set not replaced by upload: %+v", current.Projections)
	}
}

func TestHandleForecastUploadMissingFile(t *testing.T) {
	handler := newTestHandler(t, nil)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	_ = writer.WriteField("measure", "hours")
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/forecast", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "missing contracts file") {
		t.Errorf("unexpected error body %s", rr.Body.String())
	}
}

func TestHandleForecastUploadTooLarge(t *testing.T) {
	handler := NewHandler(Options{MaxUploadSize: 64, Now: fixedNow})

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, _ := writer.CreateFormFile("file", "contracts.yaml")
	_, _ = part.Write([]byte(contractsYAML))
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/forecast", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestHandleForecastEditor(t *testing.T) {
	handler := newTestHandler(t, nil)

	tests := []struct {
		name         string
		payload      map[string]interface{}
		wantCount    int
		wantMeasure  string
		wantWarnings bool
	}{
		{
			name:        "Working set",
			payload:     map[string]interface{}{},
			wantCount:   2,
			wantMeasure: constants.MeasureRevenue,
		},
		{
			name:        "Filter by department",
			payload:     map[string]interface{}{"filters": map[string]interface{}{"departments": []string{"Mechanical"}}},
			wantCount:   1,
			wantMeasure: constants.MeasureRevenue,
		},
		{
			name:        "Hours",
			payload:     map[string]interface{}{"measure": "hours"},
			wantCount:   2,
			wantMeasure: constants.MeasureHours,
		},
		{
			name: "Inline contracts",
			payload: map[string]interface{}{
				"contracts": []map[string]interface{}{
					{"id": "X-1", "value": "250,000", "backlog": "$90,000"},
					{"id": "X-2", "value": -4, "backlog": 10},
				},
			},
			wantCount:    2,
			wantMeasure:  constants.MeasureRevenue,
			wantWarnings: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := decodeForecast(t, performJSON(t, handler, http.MethodPost, "/api/editor/forecast", tt.payload))
			if len(resp.Projections) != tt.wantCount {
				t.Errorf("expected %d projections, got %d", tt.wantCount, len(resp.Projections))
			}
			if resp.Measure != tt.wantMeasure {
				t.Errorf("expected measure %s, got %s", tt.wantMeasure, resp.Measure)
			}
			if tt.wantWarnings && len(resp.Warnings) == 0 {
				t.Errorf("expected warnings for negative input")
			}
		})
	}
}

func TestHandleForecastEditorInvalid(t *testing.T) {
	handler := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/editor/forecast", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}

	rr = performJSON(t, handler, http.MethodPost, "/api/editor/forecast", map[string]string{"asOf": "June"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for bad asOf, got %d", rr.Code)
	}
}

func TestOverrideLifecycle(t *testing.T) {
	manager := override.NewManager(override.NewMemoryStore(), zap.NewNop())
	handler := newTestHandler(t, manager)

	rr := performJSON(t, handler, http.MethodPut, "/api/overrides/C-100", map[string]interface{}{
		"endMonths": 5,
		"contour":   "ramp-up",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var set overrideResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &set); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !set.Persisted || set.IsAuto || set.Override.EndMonths == nil || *set.Override.EndMonths != 5 {
		t.Errorf("unexpected override response %+v", set)
	}

	resp := decodeForecast(t, performJSON(t, handler, http.MethodGet, "/api/forecast", nil))
	school := testutil.FindProjection(resp.Projections, "C-100")
	if school == nil || school.RemainingPeriods != 5 || school.Contour != contour.RampUp || school.IsAutoContour {
		t.Fatalf("override not applied to forecast: %+v", school)
	}

	rr = performJSON(t, handler, http.MethodGet, "/api/overrides/C-100", nil)
	if !strings.Contains(rr.Body.String(), `"contour":"ramp-up"`) {
		t.Errorf("GET override body = %s", rr.Body.String())
	}

	rr = performJSON(t, handler, http.MethodGet, "/api/overrides", nil)
	var list struct {
		Overrides map[string]override.Entry `json:"overrides"`
		Version   uint64                    `json:"version"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("failed to decode override list: %v", err)
	}
	if _, ok := list.Overrides["C-100"]; !ok || list.Version == 0 {
		t.Errorf("unexpected override list %s", rr.Body.String())
	}

	rr = performJSON(t, handler, http.MethodDelete, "/api/overrides/C-100", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	resp = decodeForecast(t, performJSON(t, handler, http.MethodGet, "/api/forecast", nil))
	school = testutil.FindProjection(resp.Projections, "C-100")
	if school == nil || school.RemainingPeriods != 6 || !school.IsAutoContour {
		t.Fatalf("cleared override still applied: %+v", school)
	}
}

func TestOverridePersistFailureKeepsValue(t *testing.T) {
	store := override.NewMemoryStore()
	store.FailWrites = errors.New("disk full")
	manager := override.NewManager(store, zap.NewNop())
	handler := newTestHandler(t, manager)

	rr := performJSON(t, handler, http.MethodPut, "/api/overrides/C-200", map[string]interface{}{"endMonths": 2})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp overrideResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Persisted || resp.Warning == "" {
		t.Errorf("expected persisted=false with a warning, got %+v", resp)
	}

	if entry, ok := manager.Get("C-200"); !ok || entry.EndMonths == nil || *entry.EndMonths != 2 {
		t.Errorf("local override lost after persist failure: %+v", entry)
	}
	if _, ok, _ := store.Get(context.Background(), "C-200"); ok {
		t.Errorf("store unexpectedly holds the failed write")
	}
}

func TestOverrideValidation(t *testing.T) {
	handler := newTestHandler(t, nil)

	tests := []struct {
		name    string
		payload interface{}
	}{
		{"Empty", map[string]interface{}{}},
		{"Unknown contour", map[string]interface{}{"contour": "zigzag"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := performJSON(t, handler, http.MethodPut, "/api/overrides/C-100", tt.payload)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", rr.Code)
			}
		})
	}
}

func TestRulesEndpoints(t *testing.T) {
	handler := newTestHandler(t, nil)

	var rules struct {
		Rules []duration.Rule `json:"rules"`
	}
	rr := performJSON(t, handler, http.MethodGet, "/api/rules", nil)
	if err := json.Unmarshal(rr.Body.Bytes(), &rules); err != nil {
		t.Fatalf("failed to decode rules: %v", err)
	}
	if len(rules.Rules) != len(duration.DefaultRules()) {
		t.Fatalf("expected default rules, got %+v", rules.Rules)
	}

	rr = performJSON(t, handler, http.MethodPut, "/api/rules/1", map[string]int{"months": 12})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decodeForecast(t, performJSON(t, handler, http.MethodGet, "/api/forecast", nil))
	if p := testutil.FindProjection(resp.Projections, "C-100"); p == nil || p.RemainingPeriods != 12 {
		t.Errorf("rule edit not applied: %+v", p)
	}

	for _, path := range []string{"/api/rules/9", "/api/rules/x"} {
		if rr := performJSON(t, handler, http.MethodPut, path, map[string]int{"months": 3}); rr.Code != http.StatusBadRequest {
			t.Errorf("PUT %s expected 400, got %d", path, rr.Code)
		}
	}
	if rr := performJSON(t, handler, http.MethodPut, "/api/rules/0", map[string]int{"months": 0}); rr.Code != http.StatusBadRequest {
		t.Errorf("zero months expected 400, got %d", rr.Code)
	}

	rr = performJSON(t, handler, http.MethodPost, "/api/rules/reset", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	resp = decodeForecast(t, performJSON(t, handler, http.MethodGet, "/api/forecast", nil))
	if p := testutil.FindProjection(resp.Projections, "C-100"); p == nil || p.RemainingPeriods != 6 {
		t.Errorf("rule reset not applied: %+v", p)
	}
}

func TestHandleExport(t *testing.T) {
	handler := newTestHandler(t, nil)

	rr := performJSON(t, handler, http.MethodPost, "/api/export.xlsx", map[string]string{"measure": "hours"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("expected xlsx content type, got %s", ct)
	}

	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	if err != nil {
		t.Fatalf("response is not a workbook: %v", err)
	}
	defer func() { _ = f.Close() }()
	if v, _ := f.GetCellValue("Trades", "A1"); v != "Trade" {
		t.Errorf("Trades!A1 = %q, expected Trade", v)
	}
}

func TestHandleVersion(t *testing.T) {
	handler := newTestHandler(t, nil)

	rr := performJSON(t, handler, http.MethodGet, "/api/version", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["version"] != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %s", resp["version"])
	}
	if rr.Header().Get(RequestIDHeader) == "" {
		t.Errorf("expected %s header", RequestIDHeader)
	}
}

func TestRequestIDPropagated(t *testing.T) {
	handler := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("expected request id abc-123, got %s", got)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler := newTestHandler(t, nil)

	rr := performJSON(t, handler, http.MethodDelete, "/api/version", nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", rr.Code)
	}
}

func TestForecastResponseShape(t *testing.T) {
	handler := newTestHandler(t, nil)
	resp := decodeForecast(t, performJSON(t, handler, http.MethodGet, "/api/forecast", nil))

	var chartTotal float64
	for _, bar := range resp.Summary.Chart {
		chartTotal += bar.Total
	}
	if diff := chartTotal - resp.Summary.GrandTotal; diff > 1e-6 || diff < -1e-6 {
		t.Errorf("chart sums to %f, expected %f", chartTotal, resp.Summary.GrandTotal)
	}
	if len(resp.Excluded) != 1 || resp.Excluded[0] != "C-400" {
		t.Errorf("expected C-400 excluded, got %v", resp.Excluded)
	}
}

func TestWriteJSONEncodeFailure(t *testing.T) {
	h := &handler{logger: zap.NewNop()}

	rr := httptest.NewRecorder()
	h.writeJSON(rr, http.StatusOK, map[string]float64{"grandTotal": math.Inf(1)})
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500 for an unencodable payload, got %d", rr.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not valid JSON: %v (%s)", err, rr.Body.String())
	}
	if body["error"] == "" {
		t.Errorf("expected an error message, got %s", rr.Body.String())
	}

	rr = httptest.NewRecorder()
	h.writeJSON(rr, http.StatusCreated, map[string]float64{"grandTotal": 12.5})
	if rr.Code != http.StatusCreated || strings.TrimSpace(rr.Body.String()) != `{"grandTotal":12.5}` {
		t.Errorf("writeJSON() = %d %s", rr.Code, rr.Body.String())
	}
}
