package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kundrost/feedback-rewards-backend/internal/domain/feedback"
)

// CustomerHistoryRepository serves per-customer submission history from
// PostgreSQL. RecordSubmission is called by the session pipeline when a
// session completes; the fraud checks only read.
type CustomerHistoryRepository struct {
	db *pgxpool.Pool
}

// NewCustomerHistoryRepository creates a new customer history repository
func NewCustomerHistoryRepository(db *pgxpool.Pool) *CustomerHistoryRepository {
	return &CustomerHistoryRepository{db: db}
}

// RecordSubmission appends one completed submission to the history
func (r *CustomerHistoryRepository) RecordSubmission(ctx context.Context, customerHash string, sessionID uuid.UUID, locationID string, ts time.Time) error {
	query := `
		INSERT INTO feedback_submissions (id, customer_hash, session_id, location_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, uuid.New(), customerHash, sessionID, locationID, ts)
	if err != nil {
		return fmt.Errorf("failed to record submission: %w", err)
	}
	return nil
}

// RecentSubmissions returns submissions newer than since, oldest first
func (r *CustomerHistoryRepository) RecentSubmissions(ctx context.Context, customerHash string, since time.Time) ([]feedback.Submission, error) {
	query := `
		SELECT session_id, location_id, occurred_at
		FROM feedback_submissions
		WHERE customer_hash = $1 AND occurred_at > $2
		ORDER BY occurred_at ASC
	`

	rows, err := r.db.Query(ctx, query, customerHash, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var out []feedback.Submission
	for rows.Next() {
		var s feedback.Submission
		if err := rows.Scan(&s.SessionID, &s.LocationID, &s.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// RecentLocations returns location sightings newer than since, oldest first
func (r *CustomerHistoryRepository) RecentLocations(ctx context.Context, customerHash string, since time.Time) ([]feedback.LocationVisit, error) {
	query := `
		SELECT location_id, occurred_at
		FROM feedback_submissions
		WHERE customer_hash = $1 AND occurred_at > $2
		ORDER BY occurred_at ASC
	`

	rows, err := r.db.Query(ctx, query, customerHash, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	defer rows.Close()

	var out []feedback.LocationVisit
	for rows.Next() {
		var v feedback.LocationVisit
		if err := rows.Scan(&v.LocationID, &v.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan location visit: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
