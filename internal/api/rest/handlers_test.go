package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kundrost/feedback-rewards-backend/internal/domain/errors"
	"github.com/kundrost/feedback-rewards-backend/internal/domain/feedback"
	"github.com/kundrost/feedback-rewards-backend/internal/service/fraud"
)

type mockFraudService struct {
	mock.Mock
}

func (m *mockFraudService) AnalyzeSession(ctx context.Context, session *feedback.Session) (*fraud.AnalysisResult, error) {
	args := m.Called(ctx, session)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fraud.AnalysisResult), args.Error(1)
}

func (m *mockFraudService) UpdateConfig(ctx context.Context, cfg *fraud.DetectionConfig) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}

func (m *mockFraudService) GetResult(ctx context.Context, sessionID uuid.UUID) (*fraud.AnalysisResult, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fraud.AnalysisResult), args.Error(1)
}

func (m *mockFraudService) StartSweeper(ctx context.Context) {
	m.Called(ctx)
}

func newTestHandler(svc fraud.Service) *Handler {
	return NewHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)), "test")
}

func analyzeBody(t *testing.T, overrides map[string]interface{}) *bytes.Reader {
	t.Helper()
	body := map[string]interface{}{
		"transcript":      "Personalen var trevlig och kaffet var gott",
		"customer_hash":   "a1b2c3d4e5f6a7b8",
		"business_id":     uuid.NewString(),
		"location_id":     "loc-1",
		"purchase_amount": "79.00",
	}
	for k, v := range overrides {
		body[k] = v
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

func TestHandleAnalyze(t *testing.T) {
	sessionID := uuid.New()
	result := &fraud.AnalysisResult{
		ID:               uuid.New(),
		SessionID:        sessionID,
		OverallRiskScore: 0.12,
		Confidence:       0.81,
		Recommendation:   fraud.RecommendAccept,
		AnalyzedAt:       time.Now().UTC(),
	}

	t.Run("returns the analysis result", func(t *testing.T) {
		svc := new(mockFraudService)
		svc.On("AnalyzeSession", mock.Anything, mock.AnythingOfType("*feedback.Session")).Return(result, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/fraud/analyze",
			analyzeBody(t, map[string]interface{}{"session_id": sessionID.String()}))
		rec := httptest.NewRecorder()
		newTestHandler(svc).Routes().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var got fraud.AnalysisResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, sessionID, got.SessionID)
		assert.Equal(t, fraud.RecommendAccept, got.Recommendation)
		svc.AssertExpectations(t)
	})

	t.Run("forwards the inbound session id to the engine", func(t *testing.T) {
		svc := new(mockFraudService)
		svc.On("AnalyzeSession", mock.Anything, mock.MatchedBy(func(s *feedback.Session) bool {
			return s.ID == sessionID
		})).Return(result, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/fraud/analyze",
			analyzeBody(t, map[string]interface{}{"session_id": sessionID.String()}))
		rec := httptest.NewRecorder()
		newTestHandler(svc).Routes().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("rejects a missing customer hash", func(t *testing.T) {
		svc := new(mockFraudService)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/fraud/analyze",
			analyzeBody(t, map[string]interface{}{"customer_hash": ""}))
		rec := httptest.NewRecorder()
		newTestHandler(svc).Routes().ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		var env errorEnvelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
		svc.AssertNotCalled(t, "AnalyzeSession")
	})

	t.Run("rejects a malformed business id", func(t *testing.T) {
		svc := new(mockFraudService)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/fraud/analyze",
			analyzeBody(t, map[string]interface{}{"business_id": "not-a-uuid"}))
		rec := httptest.NewRecorder()
		newTestHandler(svc).Routes().ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects a malformed purchase amount", func(t *testing.T) {
		svc := new(mockFraudService)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/fraud/analyze",
			analyzeBody(t, map[string]interface{}{"purchase_amount": "sju kronor"}))
		rec := httptest.NewRecorder()
		newTestHandler(svc).Routes().ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		var env errorEnvelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.Equal(t, "INVALID_AMOUNT", env.Error.Code)
	})

	t.Run("rejects a body that is not JSON", func(t *testing.T) {
		svc := new(mockFraudService)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/fraud/analyze", bytes.NewReader([]byte("not json")))
		rec := httptest.NewRecorder()
		newTestHandler(svc).Routes().ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		var env errorEnvelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.Equal(t, "INVALID_JSON", env.Error.Code)
	})

	t.Run("maps engine failures to 500", func(t *testing.T) {
		svc := new(mockFraudService)
		svc.On("AnalyzeSession", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("engine down"))

		req := httptest.NewRequest(http.MethodPost, "/api/v1/fraud/analyze", analyzeBody(t, nil))
		rec := httptest.NewRecorder()
		newTestHandler(svc).Routes().ServeHTTP(rec, req)

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		var env errorEnvelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.Equal(t, "INTERNAL_ERROR", env.Error.Code)
	})
}

func TestHandleGetResult(t *testing.T) {
	sessionID := uuid.New()

	t.Run("returns a stored result", func(t *testing.T) {
		svc := new(mockFraudService)
		svc.On("GetResult", mock.Anything, sessionID).Return(&fraud.AnalysisResult{
			SessionID:      sessionID,
			Recommendation: fraud.RecommendReview,
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/fraud/results/"+sessionID.String(), nil)
		rec := httptest.NewRecorder()
		newTestHandler(svc).Routes().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var got fraud.AnalysisResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, fraud.RecommendReview, got.Recommendation)
	})

	t.Run("maps a missing result to 404", func(t *testing.T) {
		svc := new(mockFraudService)
		svc.On("GetResult", mock.Anything, sessionID).Return(nil, errors.ErrResultNotFound)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/fraud/results/"+sessionID.String(), nil)
		rec := httptest.NewRecorder()
		newTestHandler(svc).Routes().ServeHTTP(rec, req)

		require.Equal(t, http.StatusNotFound, rec.Code)
		var env errorEnvelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.Equal(t, "RESOURCE_NOT_FOUND", env.Error.Code)
	})

	t.Run("rejects a malformed session id", func(t *testing.T) {
		svc := new(mockFraudService)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/fraud/results/abc", nil)
		rec := httptest.NewRecorder()
		newTestHandler(svc).Routes().ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "GetResult")
	})
}

func TestHandleUpdateConfig(t *testing.T) {
	t.Run("applies a valid config", func(t *testing.T) {
		svc := new(mockFraudService)
		svc.On("UpdateConfig", mock.Anything, mock.MatchedBy(func(cfg *fraud.DetectionConfig) bool {
			return cfg.FuzzyMatchThreshold == 0.75 && !cfg.ConservativeMode
		})).Return(nil)

		body := []byte(`{"fuzzy_match_threshold": 0.75, "conservative_mode": false}`)
		req := httptest.NewRequest(http.MethodPut, "/api/v1/fraud/config", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		newTestHandler(svc).Routes().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("propagates validation failures", func(t *testing.T) {
		svc := new(mockFraudService)
		svc.On("UpdateConfig", mock.Anything, mock.Anything).
			Return(errors.NewValidationError("INVALID_MULTIPLIER", "conservative multiplier must not reduce scores"))

		body := []byte(`{"conservative_multiplier": 0.5}`)
		req := httptest.NewRequest(http.MethodPut, "/api/v1/fraud/config", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		newTestHandler(svc).Routes().ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		var env errorEnvelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.Equal(t, "INVALID_MULTIPLIER", env.Error.Code)
	})
}

func TestHandleHealth(t *testing.T) {
	svc := new(mockFraudService)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	newTestHandler(svc).Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "test", resp.Version)
}

func TestHandleReady(t *testing.T) {
	t.Run("ready when all checks pass", func(t *testing.T) {
		h := newTestHandler(new(mockFraudService))
		h.RegisterReadinessCheck("database", func(ctx context.Context) error { return nil })

		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		rec := httptest.NewRecorder()
		h.Routes().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp ReadinessResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "ready", resp.Status)
		assert.Equal(t, "ok", resp.Checks["database"])
	})

	t.Run("not ready when a dependency fails", func(t *testing.T) {
		h := newTestHandler(new(mockFraudService))
		h.RegisterReadinessCheck("database", func(ctx context.Context) error { return nil })
		h.RegisterReadinessCheck("redis", func(ctx context.Context) error { return fmt.Errorf("connection refused") })

		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		rec := httptest.NewRecorder()
		h.Routes().ServeHTTP(rec, req)

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var resp ReadinessResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "not_ready", resp.Status)
		assert.Equal(t, "connection refused", resp.Checks["redis"])
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("request id is generated and echoed", func(t *testing.T) {
		var seen string
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = RequestIDFromContext(r.Context())
		})
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		requestIDMiddleware(inner).ServeHTTP(rec, req)

		require.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
	})

	t.Run("inbound request id is preserved", func(t *testing.T) {
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "req-42")
		rec := httptest.NewRecorder()
		requestIDMiddleware(inner).ServeHTTP(rec, req)

		assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
	})

	t.Run("panics become 500 responses", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		})
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		recoveryMiddleware(logger)(inner).ServeHTTP(rec, req)

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		var env errorEnvelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.Equal(t, "INTERNAL_ERROR", env.Error.Code)
	})

	t.Run("rate limiter rejects beyond the burst", func(t *testing.T) {
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		limited := rateLimitMiddleware(1, 2)(inner)

		codes := make([]int, 0, 3)
		for i := 0; i < 3; i++ {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "10.0.0.1:1234"
			rec := httptest.NewRecorder()
			limited.ServeHTTP(rec, req)
			codes = append(codes, rec.Code)
		}

		assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	})

	t.Run("separate clients get separate buckets", func(t *testing.T) {
		cl := newClientLimiter(1, 1)
		assert.True(t, cl.allow("10.0.0.1"))
		assert.False(t, cl.allow("10.0.0.1"))
		assert.True(t, cl.allow("10.0.0.2"))
	})
}
