// Package catalog reads books, chapters and questions for browsing and quizzes.
package catalog

import (
	"context"
	"fmt"

	"github.com/example/mcatbot/internal/database"
	"github.com/example/mcatbot/pkg/models"
)

// MaxSample is the largest number of questions served for one chapter
const MaxSample = 20

// Reader lists the catalog
type Reader struct {
	repos        *database.Repositories
	defaultLimit int
}

// NewReader creates a reader. defaultLimit is used when a caller asks for no explicit limit.
func NewReader(repos *database.Repositories, defaultLimit int) *Reader {
	return &Reader{repos: repos, defaultLimit: clampLimit(defaultLimit)}
}

// ListBooks returns all books ordered by name
func (r *Reader) ListBooks(ctx context.Context) ([]models.Book, error) {
	return r.repos.Books.GetAll(ctx)
}

// Book returns one book, or nil when it does not exist
func (r *Reader) Book(ctx context.Context, id string) (*models.Book, error) {
	return r.repos.Books.GetByID(ctx, id)
}

// ListChaptersForBook returns the chapters of a book ordered by chapter number
func (r *Reader) ListChaptersForBook(ctx context.Context, bookID string) ([]models.Chapter, error) {
	return r.repos.Chapters.GetByBook(ctx, bookID)
}

// Chapter returns one chapter, or nil when it does not exist
func (r *Reader) Chapter(ctx context.Context, id int64) (*models.Chapter, error) {
	return r.repos.Chapters.GetByID(ctx, id)
}

// SampleQuestionsForChapter returns a random sample without replacement.
// A limit of zero uses the reader default; every limit is capped at MaxSample.
func (r *Reader) SampleQuestionsForChapter(ctx context.Context, chapterID int64, limit int) ([]models.Question, error) {
	if limit <= 0 {
		limit = r.defaultLimit
	}
	questions, err := r.repos.Questions.GetRandomByChapter(ctx, chapterID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to sample chapter %d: %w", chapterID, err)
	}
	return questions, nil
}

// Question returns one question, or nil when it does not exist
func (r *Reader) Question(ctx context.Context, id string) (*models.Question, error) {
	return r.repos.Questions.GetByID(ctx, id)
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxSample {
		return MaxSample
	}
	return limit
}
