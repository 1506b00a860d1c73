package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kundrost/feedback-rewards-backend/internal/domain/feedback"
)

// BusinessContextRepository loads business profiles for the
// context-authenticity check. An unknown business yields (nil, nil): the
// check degrades to its language-only signals.
type BusinessContextRepository struct {
	db *pgxpool.Pool
}

// NewBusinessContextRepository creates a new business context repository
func NewBusinessContextRepository(db *pgxpool.Pool) *BusinessContextRepository {
	return &BusinessContextRepository{db: db}
}

// GetBusinessContext implements fraud.BusinessContextProvider
func (r *BusinessContextRepository) GetBusinessContext(ctx context.Context, businessID uuid.UUID) (*feedback.BusinessContext, error) {
	query := `
		SELECT id, business_type, known_issues, strengths, departments
		FROM businesses
		WHERE id = $1
	`

	bizCtx := feedback.BusinessContext{}
	err := r.db.QueryRow(ctx, query, businessID).Scan(
		&bizCtx.BusinessID, &bizCtx.Type,
		&bizCtx.KnownIssues, &bizCtx.Strengths, &bizCtx.Departments,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load business context: %w", err)
	}
	return &bizCtx, nil
}
