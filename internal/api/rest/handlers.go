package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kundrost/feedback-rewards-backend/internal/domain/errors"
	"github.com/kundrost/feedback-rewards-backend/internal/service/fraud"
)

const maxRequestBody = 1 << 20 // audio payloads ride a separate channel

// ReadinessCheck probes one downstream dependency
type ReadinessCheck func(ctx context.Context) error

// Handler serves the fraud analysis HTTP surface
type Handler struct {
	svc       fraud.Service
	validate  *validator.Validate
	logger    *slog.Logger
	tracer    trace.Tracer
	version   string
	readiness map[string]ReadinessCheck
}

// NewHandler wires the HTTP surface around the fraud service
func NewHandler(svc fraud.Service, logger *slog.Logger, version string) *Handler {
	return &Handler{
		svc:       svc,
		validate:  validator.New(),
		logger:    logger,
		tracer:    otel.Tracer("api.rest"),
		version:   version,
		readiness: make(map[string]ReadinessCheck),
	}
}

// RegisterReadinessCheck adds a named dependency probe to GET /ready
func (h *Handler) RegisterReadinessCheck(name string, check ReadinessCheck) {
	h.readiness[name] = check
}

// Routes builds the route table for the service
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/fraud/analyze", h.handleAnalyze)
	mux.HandleFunc("GET /api/v1/fraud/results/{sessionID}", h.handleGetResult)
	mux.HandleFunc("PUT /api/v1/fraud/config", h.handleUpdateConfig)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /ready", h.handleReady)
	return mux
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "rest.analyze")
	defer span.End()

	var req AnalyzeRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	session, err := req.toSession()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	span.SetAttributes(
		attribute.String("session.id", session.ID.String()),
		attribute.String("business.id", session.BusinessID.String()),
	)

	result, err := h.svc.AnalyzeSession(ctx, session)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, result)
}

func (h *Handler) handleGetResult(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "rest.get_result")
	defer span.End()

	sessionID, err := uuid.Parse(r.PathValue("sessionID"))
	if err != nil {
		writeError(w, r, h.logger, errors.NewValidationError("INVALID_SESSION_ID", "session id must be a valid UUID"))
		return
	}
	span.SetAttributes(attribute.String("session.id", sessionID.String()))

	result, err := h.svc.GetResult(ctx, sessionID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, result)
}

func (h *Handler) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "rest.update_config")
	defer span.End()

	cfg := fraud.DefaultDetectionConfig()
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(cfg); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.svc.UpdateConfig(ctx, cfg); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.InfoContext(ctx, "detection config updated",
		"conservative_mode", cfg.ConservativeMode,
		"flag_threshold", cfg.FlagThreshold,
	)
	writeJSON(w, h.logger, http.StatusOK, configUpdateResponse{Status: "updated"})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Timestamp: time.Now().UTC(),
	})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := ReadinessResponse{Status: "ready", Checks: make(map[string]string, len(h.readiness))}
	status := http.StatusOK
	for name, check := range h.readiness {
		if err := check(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "not_ready"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	writeJSON(w, h.logger, status, resp)
}
