package rest

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kundrost/feedback-rewards-backend/internal/domain/errors"
	"github.com/kundrost/feedback-rewards-backend/internal/domain/feedback"
)

// AnalyzeRequest is the payload for POST /api/v1/fraud/analyze. The session
// pipeline submits it once transcription has finished.
type AnalyzeRequest struct {
	SessionID      string                    `json:"session_id" validate:"omitempty,uuid"`
	Transcript     string                    `json:"transcript"`
	CustomerHash   string                    `json:"customer_hash" validate:"required,min=8"`
	BusinessID     string                    `json:"business_id" validate:"required,uuid"`
	LocationID     string                    `json:"location_id" validate:"required"`
	PurchaseAmount string                    `json:"purchase_amount" validate:"omitempty"`
	Timestamp      *time.Time                `json:"timestamp,omitempty"`
	Device         *DeviceFingerprintRequest `json:"device,omitempty"`
	AudioData      []byte                    `json:"audio_data,omitempty"`
}

// DeviceFingerprintRequest mirrors the PWA's best-effort device signals
type DeviceFingerprintRequest struct {
	UserAgent      string `json:"user_agent"`
	ScreenWidth    int    `json:"screen_width"`
	ScreenHeight   int    `json:"screen_height"`
	CookiesEnabled bool   `json:"cookies_enabled"`
	DoNotTrack     bool   `json:"do_not_track"`
	Language       string `json:"language,omitempty"`
	Timezone       string `json:"timezone,omitempty"`
}

// toSession converts the request into the domain session the engine analyzes
func (req *AnalyzeRequest) toSession() (*feedback.Session, error) {
	businessID, err := uuid.Parse(req.BusinessID)
	if err != nil {
		return nil, errors.NewValidationError("INVALID_BUSINESS_ID", "business_id must be a valid UUID")
	}

	amount := decimal.Zero
	if req.PurchaseAmount != "" {
		amount, err = decimal.NewFromString(req.PurchaseAmount)
		if err != nil {
			return nil, errors.NewValidationError("INVALID_AMOUNT", "purchase_amount must be a decimal string")
		}
	}

	session, err := feedback.NewSession(req.Transcript, req.CustomerHash, businessID, req.LocationID, amount)
	if err != nil {
		return nil, err
	}

	if req.SessionID != "" {
		id, err := uuid.Parse(req.SessionID)
		if err != nil {
			return nil, errors.NewValidationError("INVALID_SESSION_ID", "session_id must be a valid UUID")
		}
		session.ID = id
	}
	if req.Timestamp != nil {
		session.Timestamp = *req.Timestamp
	}
	if req.Device != nil {
		session.Device = &feedback.DeviceFingerprint{
			UserAgent:      req.Device.UserAgent,
			ScreenWidth:    req.Device.ScreenWidth,
			ScreenHeight:   req.Device.ScreenHeight,
			CookiesEnabled: req.Device.CookiesEnabled,
			DoNotTrack:     req.Device.DoNotTrack,
			Language:       req.Device.Language,
			Timezone:       req.Device.Timezone,
		}
	}
	session.AudioData = req.AudioData

	return session, nil
}

// ErrorResponse is the wire form of a request failure
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error ErrorResponse `json:"error"`
}

// HealthResponse reports process liveness
type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadinessResponse reports per-dependency readiness
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type configUpdateResponse struct {
	Status string `json:"status"`
}
