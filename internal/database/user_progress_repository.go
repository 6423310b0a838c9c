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

// UserProgressRepository handles the append-only answer log
type UserProgressRepository struct {
	db *sqlx.DB
}

// NewUserProgressRepository creates a new repository instance
func NewUserProgressRepository(db *sqlx.DB) *UserProgressRepository {
	return &UserProgressRepository{db: db}
}

// Create appends one answer event
func (r *UserProgressRepository) Create(ctx context.Context, progress *models.UserProgress) error {
	if progress.AnsweredAt.IsZero() {
		progress.AnsweredAt = time.Now().UTC()
	}
	query := r.db.Rebind(`
		INSERT INTO user_progress (user_id, question_id, correct, answered_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`)
	err := r.db.QueryRowxContext(ctx, query,
		progress.UserID,
		progress.QuestionID,
		progress.Correct,
		progress.AnsweredAt,
	).Scan(&progress.ID)
	if err != nil {
		return fmt.Errorf("failed to record progress: %w", err)
	}
	return nil
}

// GetByUser returns every answer event of a user
func (r *UserProgressRepository) GetByUser(ctx context.Context, userID string) ([]models.UserProgress, error) {
	var events []models.UserProgress
	query := r.db.Rebind(`
		SELECT id, user_id, question_id, correct, answered_at
		FROM user_progress
		WHERE user_id = ?
		ORDER BY id
	`)
	if err := r.db.SelectContext(ctx, &events, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get user progress: %w", err)
	}
	return events, nil
}

// LastAnsweredAt returns the time of the user's latest answer; ok is false when there is none
func (r *UserProgressRepository) LastAnsweredAt(ctx context.Context, userID string) (t time.Time, ok bool, err error) {
	query := r.db.Rebind("SELECT answered_at FROM user_progress WHERE user_id = ? ORDER BY id DESC LIMIT 1")
	err = r.db.GetContext(ctx, &t, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get last answer time: %w", err)
	}
	return t, true, nil
}

// DeleteAll clears the answer log (seeding with a clean slate)
func (r *UserProgressRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM user_progress"); err != nil {
		return fmt.Errorf("failed to delete user progress: %w", err)
	}
	return nil
}
