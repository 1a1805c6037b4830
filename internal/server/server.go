package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/iwvelando/backlog-forecast/internal/config"
	"github.com/iwvelando/backlog-forecast/internal/contract"
	"github.com/iwvelando/backlog-forecast/internal/forecast"
	"github.com/iwvelando/backlog-forecast/internal/output"
	"github.com/iwvelando/backlog-forecast/internal/override"
	"github.com/iwvelando/backlog-forecast/pkg/constants"
	"github.com/iwvelando/backlog-forecast/pkg/contour"
	"github.com/iwvelando/backlog-forecast/pkg/duration"
	"go.uber.org/zap"
)

// RequestIDHeader carries the per-request id on every response.
const RequestIDHeader = "X-Request-Id"

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Options configures NewHandler. Zero values select defaults.
type Options struct {
	Logger        *zap.Logger
	MaxUploadSize int64
	Version       string
	Config        config.Configuration
	// Contracts is the initial working set served by GET /api/forecast.
	Contracts []contract.Contract
	// Overrides defaults to an in-memory manager.
	Overrides *override.Manager
	// Now defaults to time.Now.
	Now func() time.Time
}

type handler struct {
	logger        *zap.Logger
	maxUploadSize int64
	version       string
	now           func() time.Time
	engine        *forecast.Engine
	overrides     *override.Manager

	mu        sync.RWMutex
	conf      config.Configuration
	rules     *duration.RuleSet
	contracts []contract.Contract
}

// NewHandler constructs the HTTP handler that serves the forecast API.
func NewHandler(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	maxUploadSize := opts.MaxUploadSize
	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	version := strings.TrimSpace(opts.Version)
	if version == "" {
		version = "dev"
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	overrides := opts.Overrides
	if overrides == nil {
		overrides = override.NewManager(nil, logger)
	}

	conf := opts.Config
	conf.ApplyDefaults()

	h := &handler{
		logger:        logger,
		maxUploadSize: maxUploadSize,
		version:       version,
		now:           now,
		engine:        forecast.NewEngine(logger),
		overrides:     overrides,
		conf:          conf,
		rules:         duration.NewRuleSet(conf.DurationRules),
		contracts:     opts.Contracts,
	}

	mux := http.NewServeMux()

	// Forecast of the working contract set
	mux.HandleFunc("GET /api/forecast", h.handleForecastCurrent)

	// Forecast API endpoint (file upload); replaces the working set
	mux.HandleFunc("POST /api/forecast", h.handleForecast)

	// Forecast API endpoint for editor-driven updates
	mux.HandleFunc("POST /api/editor/forecast", h.handleForecastEditor)

	// Workbook download
	mux.HandleFunc("POST /api/export.xlsx", h.handleExport)

	// Overrides
	mux.HandleFunc("GET /api/overrides", h.handleOverrideList)
	mux.HandleFunc("GET /api/overrides/{id}", h.handleOverrideGet)
	mux.HandleFunc("PUT /api/overrides/{id}", h.handleOverrideSet)
	mux.HandleFunc("DELETE /api/overrides/{id}", h.handleOverrideClear)

	// Duration rules
	mux.HandleFunc("GET /api/rules", h.handleRules)
	mux.HandleFunc("PUT /api/rules/{index}", h.handleRuleSet)
	mux.HandleFunc("POST /api/rules/reset", h.handleRulesReset)

	// Version endpoint for UI metadata
	mux.HandleFunc("GET /api/version", h.handleVersion)

	return h.withRequestID(mux)
}

type requestIDKey struct{}

func (h *handler) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		start := time.Now()
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
		h.logger.Debug("request served",
			zap.String("op", "server.withRequestID"),
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey{}).(string)
	return id
}

// forecastRequest is the editor payload. Omitted fields fall back to the
// working set and the configured filters and measure.
type forecastRequest struct {
	Contracts []contract.Contract `json:"contracts"`
	Filters   *contract.Filter    `json:"filters"`
	Measure   string              `json:"measure"`
	AsOf      string              `json:"asOf"`
}

type forecastResponse struct {
	Measure     string                `json:"measure"`
	AsOf        string                `json:"asOf"`
	Keys        []string              `json:"keys"`
	Summary     forecast.Summary      `json:"summary"`
	Projections []forecast.Projection `json:"projections"`
	Excluded    []string              `json:"excluded,omitempty"`
	CSV         string                `json:"csv"`
	Warnings    []string              `json:"warnings,omitempty"`
	Duration    string                `json:"duration"`
}

type overrideResponse struct {
	ContractID string         `json:"contractId"`
	Override   override.Entry `json:"override"`
	IsAuto     bool           `json:"isAutoContour"`
	Persisted  bool           `json:"persisted"`
	Warning    string         `json:"warning,omitempty"`
}

type overrideRequest struct {
	EndMonths *int          `json:"endMonths"`
	Contour   *contour.Type `json:"contour"`
}

type ruleRequest struct {
	Months int `json:"months"`
}

func (h *handler) handleForecastCurrent(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	in, warnings, err := h.inputs(forecastRequest{}, false)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), "server.handleForecastCurrent")
		return
	}
	h.runForecast(w, r, in, warnings, start, "server.handleForecastCurrent")
}

func (h *handler) handleForecast(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleForecast"
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, r, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), op)
			return
		}
		h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err), op)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, "missing contracts file", op)
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.logger.Warn("failed to close uploaded file",
				zap.String("op", op),
				zap.Error(closeErr),
			)
		}
	}()

	format := contract.FormatForPath(fileHeader.Filename)
	if requested := strings.TrimSpace(r.FormValue("format")); requested != "" {
		format = strings.ToLower(requested)
	}
	contracts, err := contract.DecodeReader(file, format)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("error reading contracts data, %v", err), op)
		return
	}

	h.mu.Lock()
	h.contracts = contracts
	h.mu.Unlock()

	in, warnings, err := h.inputs(forecastRequest{Measure: r.FormValue("measure"), AsOf: r.FormValue("asOf")}, false)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}
	h.runForecast(w, r, in, warnings, start, op)
}

func (h *handler) handleForecastEditor(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleForecastEditor"
	start := time.Now()

	req, ok := h.decodeForecastRequest(w, r, op)
	if !ok {
		return
	}
	in, warnings, err := h.inputs(req, req.Contracts != nil)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}
	h.runForecast(w, r, in, warnings, start, op)
}

func (h *handler) handleExport(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleExport"

	req, ok := h.decodeForecastRequest(w, r, op)
	if !ok {
		return
	}
	in, _, err := h.inputs(req, req.Contracts != nil)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}

	var buf bytes.Buffer
	if err := output.WriteWorkbook(&buf, h.engine.Run(in)); err != nil {
		h.respondErrorWithOp(w, r, http.StatusInternalServerError, err.Error(), op)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+constants.DefaultXLSXFile+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("failed to write workbook response",
			zap.String("op", op),
			zap.String("request_id", requestID(r)),
			zap.Error(err),
		)
	}
}

func (h *handler) decodeForecastRequest(w http.ResponseWriter, r *http.Request, op string) (forecastRequest, bool) {
	var req forecastRequest
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, r, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request exceeds limit of %d bytes", h.maxUploadSize), op)
			return req, false
		}
		h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("failed to read request: %v", err), op)
		return req, false
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return req, true
	}
	if err := json.Unmarshal(data, &req); err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		return req, false
	}
	return req, true
}

// inputs assembles forecast inputs from the current handler state and the
// request. Contracts in the request replace the working set only for this
// call when useRequestContracts is set.
func (h *handler) inputs(req forecastRequest, useRequestContracts bool) (forecast.Inputs, []string, error) {
	asOf := h.now()
	if s := strings.TrimSpace(req.AsOf); s != "" {
		t, err := time.Parse(constants.DateTimeLayout, s)
		if err != nil {
			return forecast.Inputs{}, nil, fmt.Errorf("invalid asOf %q: expected %s", s, constants.DateTimeLayout)
		}
		asOf = t
	}

	h.mu.RLock()
	conf := h.conf
	conf.DurationRules = h.rules.Rules()
	contracts := h.contracts
	h.mu.RUnlock()

	if useRequestContracts {
		contracts = req.Contracts
	}
	if req.Filters != nil {
		conf.Filters = *req.Filters
	}
	if m := strings.ToLower(strings.TrimSpace(req.Measure)); m != "" {
		conf.Forecast.Measure = m
	}

	warnings := conf.ValidateConfiguration()
	warnings = append(warnings, contract.Warnings(contracts)...)
	return forecast.NewInputs(conf, contracts, h.overrides.Snapshot(), asOf), warnings, nil
}

func (h *handler) runForecast(w http.ResponseWriter, r *http.Request, in forecast.Inputs, warnings []string, start time.Time, op string) {
	result := h.engine.Run(in)

	csvData, err := output.CsvString(result)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to render CSV: %v", err), op)
		return
	}

	elapsed := time.Since(start)
	response := forecastResponse{
		Measure:     result.Summary.Measure,
		AsOf:        result.Summary.AsOf,
		Keys:        result.Summary.Keys,
		Summary:     result.Summary,
		Projections: result.Projections,
		Excluded:    result.Excluded,
		CSV:         csvData,
		Warnings:    warnings,
		Duration:    elapsed.String(),
	}
	if response.Projections == nil {
		response.Projections = []forecast.Projection{}
	}

	h.logger.Info("forecast served",
		zap.String("op", op),
		zap.String("request_id", requestID(r)),
		zap.Int("contracts", len(in.Contracts)),
		zap.Int("projections", len(response.Projections)),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, response)
}

func (h *handler) handleOverrideList(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"overrides": h.overrides.Snapshot(),
		"version":   h.overrides.Version(),
	})
}

func (h *handler) handleOverrideGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	entry, _ := h.overrides.Get(id)
	h.writeJSON(w, http.StatusOK, overrideResponse{
		ContractID: id,
		Override:   entry,
		IsAuto:     entry.Contour == nil,
		Persisted:  true,
	})
}

func (h *handler) handleOverrideSet(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleOverrideSet"
	id := r.PathValue("id")

	var req overrideRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxUploadSize)).Decode(&req); err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("failed to decode override: %v", err), op)
		return
	}
	update := override.Entry{EndMonths: req.EndMonths, Contour: req.Contour}
	if update.Empty() {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, "override must set endMonths or contour", op)
		return
	}
	if update.Contour != nil && !update.Contour.Valid() {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, "unknown contour", op)
		return
	}

	entry, err := h.overrides.Set(r.Context(), id, update)
	h.writeOverrideResult(w, r, id, entry, err, op)
}

func (h *handler) handleOverrideClear(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleOverrideClear"
	id := r.PathValue("id")
	err := h.overrides.Clear(r.Context(), id)
	h.writeOverrideResult(w, r, id, override.Entry{}, err, op)
}

// A failed persist still reports the applied value; the client may retry.
func (h *handler) writeOverrideResult(w http.ResponseWriter, r *http.Request, id string, entry override.Entry, err error, op string) {
	resp := overrideResponse{
		ContractID: id,
		Override:   entry,
		IsAuto:     entry.Contour == nil,
		Persisted:  err == nil,
	}
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, override.ErrPersist):
		h.logger.Warn("override applied but not persisted",
			zap.String("op", op),
			zap.String("request_id", requestID(r)),
			zap.String("contract", id),
			zap.Error(err),
		)
		resp.Warning = err.Error()
		h.writeJSON(w, http.StatusAccepted, resp)
	default:
		h.respondErrorWithOp(w, r, http.StatusInternalServerError, err.Error(), op)
	}
}

func (h *handler) handleRules(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	rules := h.rules.Rules()
	h.mu.RUnlock()
	h.writeRules(w, rules)
}

func (h *handler) handleRuleSet(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleRuleSet"

	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("invalid rule index %q", r.PathValue("index")), op)
		return
	}
	var req ruleRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxUploadSize)).Decode(&req); err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("failed to decode rule: %v", err), op)
		return
	}

	h.mu.Lock()
	err = h.rules.SetMonths(index, req.Months)
	rules := h.rules.Rules()
	h.mu.Unlock()
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}

	h.logger.Info("duration rule updated",
		zap.String("op", op),
		zap.String("request_id", requestID(r)),
		zap.Int("index", index),
		zap.Int("months", req.Months),
	)
	h.writeRules(w, rules)
}

func (h *handler) handleRulesReset(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.rules.Reset()
	rules := h.rules.Rules()
	h.mu.Unlock()

	h.logger.Info("duration rules reset",
		zap.String("op", "server.handleRulesReset"),
		zap.String("request_id", requestID(r)),
	)
	h.writeRules(w, rules)
}

func (h *handler) writeRules(w http.ResponseWriter, rules []duration.Rule) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"rules": rules})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, r *http.Request, status int, msg string, op string) {
	h.logger.Error("request failed",
		zap.String("op", op),
		zap.String("request_id", requestID(r)),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

// writeJSON encodes payload before writing the status so an encoding
// failure becomes a 500 instead of a truncated body.
func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to encode JSON response",
			zap.String("op", "server.writeJSON"),
			zap.Error(err),
		)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to encode response"}` + "\n"))
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		h.logger.Warn("failed to write JSON response",
			zap.String("op", "server.writeJSON"),
			zap.Error(err),
		)
	}
}
