package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainerrors "github.com/kundrost/feedback-rewards-backend/internal/domain/errors"
	"github.com/kundrost/feedback-rewards-backend/internal/service/fraud"
)

// AnalysisRepository persists fraud analysis results in PostgreSQL. Flags
// and checks land as JSONB so review tooling can query evidence keys
// without schema churn.
type AnalysisRepository struct {
	db *pgxpool.Pool
}

// NewAnalysisRepository creates a new analysis repository
func NewAnalysisRepository(db *pgxpool.Pool) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// SaveResult upserts the result for a session. Re-analysis of the same
// session replaces the stored verdict.
func (r *AnalysisRepository) SaveResult(ctx context.Context, result *fraud.AnalysisResult) error {
	if result == nil {
		return errors.New("result cannot be nil")
	}

	flagsJSON, err := json.Marshal(result.Flags)
	if err != nil {
		return fmt.Errorf("failed to marshal flags: %w", err)
	}
	checksJSON, err := json.Marshal(result.Checks)
	if err != nil {
		return fmt.Errorf("failed to marshal checks: %w", err)
	}

	query := `
		INSERT INTO fraud_analysis_results (
			id, session_id, overall_risk_score, confidence, recommendation,
			flags, checks, analyzed_at, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (session_id) DO UPDATE SET
			id = EXCLUDED.id,
			overall_risk_score = EXCLUDED.overall_risk_score,
			confidence = EXCLUDED.confidence,
			recommendation = EXCLUDED.recommendation,
			flags = EXCLUDED.flags,
			checks = EXCLUDED.checks,
			analyzed_at = EXCLUDED.analyzed_at,
			duration_ms = EXCLUDED.duration_ms
	`

	_, err = r.db.Exec(ctx, query,
		result.ID, result.SessionID, result.OverallRiskScore, result.Confidence,
		string(result.Recommendation), flagsJSON, checksJSON,
		result.AnalyzedAt, result.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to save analysis result: %w", err)
	}
	return nil
}

// GetResult loads the stored verdict for a session
func (r *AnalysisRepository) GetResult(ctx context.Context, sessionID uuid.UUID) (*fraud.AnalysisResult, error) {
	query := `
		SELECT id, session_id, overall_risk_score, confidence, recommendation,
		       flags, checks, analyzed_at, duration_ms
		FROM fraud_analysis_results
		WHERE session_id = $1
	`

	var (
		result         fraud.AnalysisResult
		recommendation string
		flagsJSON      []byte
		checksJSON     []byte
		durationMs     int64
	)

	err := r.db.QueryRow(ctx, query, sessionID).Scan(
		&result.ID, &result.SessionID, &result.OverallRiskScore, &result.Confidence,
		&recommendation, &flagsJSON, &checksJSON, &result.AnalyzedAt, &durationMs,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerrors.ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to load analysis result: %w", err)
	}

	result.Recommendation = fraud.Recommendation(recommendation)
	result.Duration = time.Duration(durationMs) * time.Millisecond
	if err := json.Unmarshal(flagsJSON, &result.Flags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal flags: %w", err)
	}
	if err := json.Unmarshal(checksJSON, &result.Checks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checks: %w", err)
	}
	return &result, nil
}
