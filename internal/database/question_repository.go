package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/mcatbot/pkg/models"
	"github.com/jmoiron/sqlx"
)

const questionColumns = `id, chapter_id, question_text, options, correct_answer,
	explanation, concept_tags, difficulty, created_at`

// QuestionRepository handles database operations for questions
type QuestionRepository struct {
	db *sqlx.DB
}

// NewQuestionRepository creates a new repository instance
func NewQuestionRepository(db *sqlx.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// GetByID returns a question by ID, or nil when it does not exist
func (r *QuestionRepository) GetByID(ctx context.Context, id string) (*models.Question, error) {
	var q models.Question
	err := r.db.GetContext(ctx, &q, r.db.Rebind("SELECT "+questionColumns+" FROM questions WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get question by ID: %w", err)
	}
	return &q, nil
}

// GetByIDs returns the questions whose id is in ids
func (r *QuestionRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In("SELECT "+questionColumns+" FROM questions WHERE id IN (?)", ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build questions query: %w", err)
	}
	var questions []models.Question
	if err := r.db.SelectContext(ctx, &questions, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get questions by ids: %w", err)
	}
	return questions, nil
}

// GetByChapter returns every question of a chapter
func (r *QuestionRepository) GetByChapter(ctx context.Context, chapterID int64) ([]models.Question, error) {
	var questions []models.Question
	query := r.db.Rebind("SELECT " + questionColumns + " FROM questions WHERE chapter_id = ? ORDER BY id")
	if err := r.db.SelectContext(ctx, &questions, query, chapterID); err != nil {
		return nil, fmt.Errorf("failed to get questions by chapter: %w", err)
	}
	return questions, nil
}

// GetRandomByChapter returns up to limit distinct questions of a chapter in random order
func (r *QuestionRepository) GetRandomByChapter(ctx context.Context, chapterID int64, limit int) ([]models.Question, error) {
	var questions []models.Question
	query := r.db.Rebind(`
		SELECT ` + questionColumns + ` FROM questions
		WHERE chapter_id = ?
		ORDER BY RANDOM()
		LIMIT ?
	`)
	if err := r.db.SelectContext(ctx, &questions, query, chapterID, limit); err != nil {
		return nil, fmt.Errorf("failed to get random questions: %w", err)
	}
	return questions, nil
}

const upsertQuestionQuery = `
	INSERT INTO questions (
		id, chapter_id, question_text, options, correct_answer,
		explanation, concept_tags, difficulty
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		chapter_id = excluded.chapter_id,
		question_text = excluded.question_text,
		options = excluded.options,
		correct_answer = excluded.correct_answer,
		explanation = excluded.explanation,
		concept_tags = excluded.concept_tags,
		difficulty = excluded.difficulty
`

// Upsert creates the question or replaces its content when the id already exists
func (r *QuestionRepository) Upsert(ctx context.Context, q *models.Question) error {
	return upsertQuestion(ctx, r.db, q)
}

// UpsertBatch upserts all questions inside one transaction
func (r *QuestionRepository) UpsertBatch(ctx context.Context, questions []models.Question) error {
	if len(questions) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	for i := range questions {
		if err := upsertQuestion(ctx, tx, &questions[i]); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func upsertQuestion(ctx context.Context, ext sqlx.ExtContext, q *models.Question) error {
	if q.Difficulty == "" {
		q.Difficulty = "medium"
	}
	_, err := ext.ExecContext(ctx, ext.Rebind(upsertQuestionQuery),
		q.ID,
		q.ChapterID,
		q.QuestionText,
		q.Options,
		q.CorrectAnswer,
		q.Explanation,
		q.ConceptTags,
		q.Difficulty,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert question %s: %w", q.ID, err)
	}
	return nil
}

// Count returns the number of questions
func (r *QuestionRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM questions"); err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return n, nil
}

// DeleteAll removes every question
func (r *QuestionRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM questions"); err != nil {
		return fmt.Errorf("failed to delete questions: %w", err)
	}
	return nil
}
