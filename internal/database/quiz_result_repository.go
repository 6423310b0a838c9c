package database

import (
	"context"
	"fmt"
	"time"

	"github.com/example/mcatbot/pkg/models"
	"github.com/jmoiron/sqlx"
)

// QuizResultRepository handles database operations for finished quiz sessions
type QuizResultRepository struct {
	db *sqlx.DB
}

// NewQuizResultRepository creates a new repository instance
func NewQuizResultRepository(db *sqlx.DB) *QuizResultRepository {
	return &QuizResultRepository{db: db}
}

// Create inserts a new quiz result
func (r *QuizResultRepository) Create(ctx context.Context, result *models.QuizResult) error {
	if result.CompletedAt.IsZero() {
		result.CompletedAt = time.Now().UTC()
	}
	query := r.db.Rebind(`
		INSERT INTO quiz_results (
			user_id, chapter_id, total_questions, correct_answers, duration, completed_at
		) VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	err := r.db.QueryRowxContext(ctx, query,
		result.UserID,
		result.ChapterID,
		result.TotalQuestions,
		result.CorrectAnswers,
		result.Duration,
		result.CompletedAt,
	).Scan(&result.ID)
	if err != nil {
		return fmt.Errorf("failed to create quiz result: %w", err)
	}
	return nil
}

// GetByUser returns the user's quiz results, most recent first
func (r *QuizResultRepository) GetByUser(ctx context.Context, userID string, limit int) ([]models.QuizResult, error) {
	var results []models.QuizResult
	query := r.db.Rebind(`
		SELECT id, user_id, chapter_id, total_questions, correct_answers, duration, completed_at
		FROM quiz_results
		WHERE user_id = ?
		ORDER BY id DESC
		LIMIT ?
	`)
	if err := r.db.SelectContext(ctx, &results, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to get quiz results: %w", err)
	}
	return results, nil
}
