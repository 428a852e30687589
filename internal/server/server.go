// Package server exposes mortgage comparisons over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/mortgage-compare/internal/compare"
	"github.com/iwvelando/mortgage-compare/internal/config"
	"github.com/iwvelando/mortgage-compare/internal/tracing"
	"github.com/iwvelando/mortgage-compare/pkg/amortization"
	"github.com/iwvelando/mortgage-compare/pkg/constants"
	"github.com/iwvelando/mortgage-compare/pkg/output"
	"github.com/iwvelando/mortgage-compare/pkg/validation"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

type handler struct {
	logger        *zap.Logger
	maxUploadSize int64
	version       string
}

type compareOptions struct {
	Schedule string `json:"schedule"`
}

// NewHandler constructs the HTTP handler that serves the comparison API and metrics.
func NewHandler(logger *zap.Logger, maxUploadSize int64, version string) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{logger: logger, maxUploadSize: maxUploadSize, version: trimmedVersion}

	mux := http.NewServeMux()

	// Comparison API endpoint (file upload)
	mux.HandleFunc("/api/compare", h.handleCompare)

	// Comparison API endpoint for editor-driven updates
	mux.HandleFunc("/api/editor/compare", h.handleCompareEditor)

	// Config serialization endpoint for editor downloads
	mux.HandleFunc("/api/editor/export", h.handleConfigExport)

	// Version endpoint for UI metadata
	mux.HandleFunc("/api/version", h.handleVersion)

	mux.Handle("/metrics", promhttp.Handler())

	return h.withRequestContext(mux)
}

type compareResponse struct {
	RequestID  string                `json:"requestId"`
	Comparison *compare.Comparison   `json:"comparison"`
	Schedule   []scheduleRow         `json:"schedule,omitempty"`
	CSV        string                `json:"csv"`
	Warnings   []string              `json:"warnings,omitempty"`
	Duration   string                `json:"duration"`
	Config     *config.Configuration `json:"config,omitempty"`
	ConfigYAML string                `json:"configYaml,omitempty"`
}

type scheduleRow struct {
	Month     int     `json:"month"`
	Date      string  `json:"date,omitempty"`
	Payment   float64 `json:"payment"`
	Principal float64 `json:"principal"`
	Interest  float64 `json:"interest"`
	Remaining float64 `json:"remaining"`
}

type requestIDKey struct{}

// RequestID returns the request ID stored in ctx by the handler, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// withRequestContext tags every request with an ID, a span and a request counter.
func (h *handler) withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx, span := tracing.Tracer().Start(r.Context(), r.Method+" "+r.URL.Path)
		defer span.End()
		span.SetAttributes(
			attribute.String("http.request.method", r.Method),
			attribute.String("url.path", r.URL.Path),
			attribute.String("request.id", id),
		)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r.WithContext(context.WithValue(ctx, requestIDKey{}, id)))

		span.SetAttributes(attribute.Int("http.response.status_code", recorder.status))
		if recorder.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(recorder.status))
		}
		if r.URL.Path != "/metrics" {
			Requests.WithLabelValues(r.URL.Path, strconv.Itoa(recorder.status)).Inc()
		}
	})
}

func (h *handler) requestLogger(r *http.Request) *zap.Logger {
	return h.logger.With(zap.String("requestId", RequestID(r.Context())))
}

func (h *handler) handleCompare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	const op = "server.handleCompare"
	start := time.Now()
	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}
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

	file, _, err := r.FormFile("file")
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, "missing configuration file", op)
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.requestLogger(r).Warn("failed to close uploaded file",
				zap.String("op", op),
				zap.Error(closeErr),
			)
		}
	}()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		h.respondErrorWithOp(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to read configuration: %v", err), op)
		return
	}

	opts := compareOptions{Schedule: strings.TrimSpace(r.FormValue("schedule"))}
	h.runCompare(w, r, buf.Bytes(), start, op, opts)
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleCompareEditor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	const op = "server.handleCompareEditor"
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	cfg, opts, err := decodeEditorRequest(r.Body)
	if err != nil {
		h.respondErrorWithOp(w, r, decodeStatus(err), err.Error(), op)
		return
	}

	configBytes, err := yaml.Marshal(cfg)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("failed to encode configuration: %v", err), op)
		return
	}

	h.runCompare(w, r, configBytes, start, op, opts)
}

// handleConfigExport renders an editor configuration as YAML. Keys follow
// the field order of config.Configuration and unknown keys are rejected.
func (h *handler) handleConfigExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	const op = "server.handleConfigExport"
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	cfg, _, err := decodeEditorRequest(r.Body)
	if err != nil {
		h.respondErrorWithOp(w, r, decodeStatus(err), err.Error(), op)
		return
	}

	configBytes, err := yaml.Marshal(cfg)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("failed to encode configuration: %v", err), op)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"configYaml": string(configBytes),
	})
}

// decodeEditorRequest reads an editor body. The configuration is either
// wrapped as {"config": {...}, "options": {...}} or sent bare.
func decodeEditorRequest(body io.Reader) (*config.Configuration, compareOptions, error) {
	var opts compareOptions

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, opts, fmt.Errorf("failed to read configuration: %w", err)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, opts, fmt.Errorf("failed to decode configuration: %w", err)
	}

	configJSON := json.RawMessage(raw)
	if wrapped, ok := envelope["config"]; ok {
		if !isJSONObject(wrapped) {
			return nil, opts, errors.New("invalid config payload: expected object")
		}
		configJSON = wrapped

		if rawOptions, ok := envelope["options"]; ok {
			if !isJSONObject(rawOptions) {
				return nil, opts, errors.New("invalid options payload: expected object")
			}
			if err := json.Unmarshal(rawOptions, &opts); err != nil {
				return nil, opts, fmt.Errorf("failed to decode options: %w", err)
			}
			opts.Schedule = strings.TrimSpace(opts.Schedule)
		}
	}

	var cfg config.Configuration
	decoder := json.NewDecoder(bytes.NewReader(configJSON))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return nil, opts, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return &cfg, opts, nil
}

func decodeStatus(err error) int {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func isJSONObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func (h *handler) runCompare(w http.ResponseWriter, r *http.Request, configBytes []byte, start time.Time, op string, opts compareOptions) {
	logger := h.requestLogger(r)

	cfg, err := config.LoadConfigurationFromReader(bytes.NewReader(configBytes))
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}

	warnings := cfg.ValidateConfiguration()

	var schedule []scheduleRow
	if opts.Schedule != "" {
		offer, ok := cfg.FindOffer(opts.Schedule)
		if !ok {
			h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("offer %s not found for schedule", opts.Schedule), op)
			return
		}
		payments, err := offer.Schedule(logger, cfg.Common)
		if err != nil {
			h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("failed to build schedule: %v", err), op)
			return
		}
		schedule = buildSchedule(payments)
	}

	comparison, err := compare.Compare(r.Context(), logger, *cfg)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, validation.ErrInvalidInput) || errors.Is(err, validation.ErrOutOfRange) {
			status = http.StatusBadRequest
		}
		h.respondErrorWithOp(w, r, status, fmt.Sprintf("failed to compare offers: %v", err), op)
		return
	}

	elapsed := time.Since(start)
	ComparisonDuration.WithLabelValues(r.URL.Path).Observe(elapsed.Seconds())
	for _, result := range comparison.Results {
		if result.EffectiveRate.Method != "" {
			SolverIterations.Observe(float64(result.EffectiveRate.Iterations))
		}
		if len(result.Notes) > 0 {
			OfferNotes.Inc()
		}
	}

	canonical, err := yaml.Marshal(cfg)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to encode configuration: %v", err), op)
		return
	}

	response := compareResponse{
		RequestID:  RequestID(r.Context()),
		Comparison: comparison,
		Schedule:   schedule,
		CSV:        output.CsvString(comparison),
		Warnings:   warnings,
		Duration:   elapsed.String(),
		Config:     cfg,
		ConfigYAML: string(canonical),
	}

	logger.Info("comparison computed",
		zap.String("op", op),
		zap.Int("offers", len(comparison.Results)),
		zap.Int("warnings", len(warnings)),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, response)
}

func buildSchedule(payments []amortization.Payment) []scheduleRow {
	rows := make([]scheduleRow, 0, len(payments))
	for _, payment := range payments {
		rows = append(rows, scheduleRow{
			Month:     payment.Month,
			Date:      payment.Date,
			Payment:   payment.Payment,
			Principal: payment.Principal,
			Interest:  payment.Interest,
			Remaining: payment.RemainingPrincipal,
		})
	}
	return rows
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, r *http.Request, status int, msg string, op string) {
	h.requestLogger(r).Error("comparison request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{
		"error":     msg,
		"requestId": RequestID(r.Context()),
	})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
