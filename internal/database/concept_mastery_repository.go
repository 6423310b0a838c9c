package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/mcatbot/pkg/models"
	"github.com/jmoiron/sqlx"
)

// ConceptMasteryRepository handles per-user concept mastery rows
type ConceptMasteryRepository struct {
	db *sqlx.DB
}

// NewConceptMasteryRepository creates a new repository instance
func NewConceptMasteryRepository(db *sqlx.DB) *ConceptMasteryRepository {
	return &ConceptMasteryRepository{db: db}
}

// GetByUser returns all mastery rows of a user, best mastered first
func (r *ConceptMasteryRepository) GetByUser(ctx context.Context, userID string) ([]models.ConceptMastery, error) {
	var rows []models.ConceptMastery
	query := r.db.Rebind(`
		SELECT id, user_id, concept, total_attempts, correct_attempts, mastery_percentage, last_practiced
		FROM concept_mastery
		WHERE user_id = ?
		ORDER BY mastery_percentage DESC, concept
	`)
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get concept mastery: %w", err)
	}
	return rows, nil
}

// GetByUserAndConcept returns one mastery row, or nil when the user never practiced the concept
func (r *ConceptMasteryRepository) GetByUserAndConcept(ctx context.Context, userID, concept string) (*models.ConceptMastery, error) {
	var row models.ConceptMastery
	query := r.db.Rebind(`
		SELECT id, user_id, concept, total_attempts, correct_attempts, mastery_percentage, last_practiced
		FROM concept_mastery
		WHERE user_id = ? AND concept = ?
	`)
	err := r.db.GetContext(ctx, &row, query, userID, concept)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get concept mastery: %w", err)
	}
	return &row, nil
}

// Increment records one attempt on a concept in a single statement: the row is created
// on first attempt and otherwise incremented in place, so concurrent answers never lose updates.
func (r *ConceptMasteryRepository) Increment(ctx context.Context, userID, concept string, correct bool, at time.Time) (*models.ConceptMastery, error) {
	correctInc := 0
	if correct {
		correctInc = 1
	}
	query := r.db.Rebind(`
		INSERT INTO concept_mastery (
			user_id, concept, total_attempts, correct_attempts, mastery_percentage, last_practiced
		) VALUES (?, ?, 1, ?, ?, ?)
		ON CONFLICT (user_id, concept) DO UPDATE SET
			total_attempts = concept_mastery.total_attempts + 1,
			correct_attempts = concept_mastery.correct_attempts + excluded.correct_attempts,
			mastery_percentage = 100.0 * (concept_mastery.correct_attempts + excluded.correct_attempts)
				/ (concept_mastery.total_attempts + 1),
			last_practiced = excluded.last_practiced
		RETURNING id, total_attempts, correct_attempts, mastery_percentage
	`)

	row := &models.ConceptMastery{
		UserID:        userID,
		Concept:       concept,
		LastPracticed: at,
	}
	err := r.db.QueryRowxContext(ctx, query,
		userID,
		concept,
		correctInc,
		models.MasteryPercentage(correctInc, 1),
		at,
	).Scan(&row.ID, &row.TotalAttempts, &row.CorrectAttempts, &row.MasteryPercentage)
	if err != nil {
		return nil, fmt.Errorf("failed to increment concept mastery for %q: %w", concept, err)
	}
	return row, nil
}

// DeleteAll clears every mastery row
func (r *ConceptMasteryRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM concept_mastery"); err != nil {
		return fmt.Errorf("failed to delete concept mastery: %w", err)
	}
	return nil
}
