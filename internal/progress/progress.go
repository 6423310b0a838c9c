// Package progress rolls a user's answer history up into book, chapter and
// concept statistics and records new answers together with concept mastery.
package progress

import (
	"context"
	"errors"
	"time"

	"github.com/example/mcatbot/pkg/models"
)

var (
	// ErrFetch marks a failed read from the store. The aggregator still returns
	// an empty result alongside it.
	ErrFetch = errors.New("progress fetch failed")
	// ErrInvalidInput is returned for a missing user or question identifier
	ErrInvalidInput = errors.New("invalid input")
	// ErrMasteryUpdate is returned when the answer was saved but one or more
	// concept mastery rows could not be updated
	ErrMasteryUpdate = errors.New("concept mastery update failed")
)

// Store is the read side needed by the Aggregator
type Store interface {
	AnswerEvents(ctx context.Context, userID string) ([]models.UserProgress, error)
	QuestionsByIDs(ctx context.Context, ids []string) ([]models.Question, error)
	ChaptersByIDs(ctx context.Context, ids []int64) ([]models.Chapter, error)
	BooksByIDs(ctx context.Context, ids []string) ([]models.Book, error)
	ConceptMastery(ctx context.Context, userID string) ([]models.ConceptMastery, error)
}

// Writer is the write side needed by the Updater.
// IncrementConceptMastery must create or increment the (user, concept) row atomically.
type Writer interface {
	InsertAnswer(ctx context.Context, event *models.UserProgress) error
	IncrementConceptMastery(ctx context.Context, userID, concept string, correct bool, at time.Time) (*models.ConceptMastery, error)
}

// Tree is the book -> chapter -> concept roll-up of a user's answers
type Tree struct {
	Books []BookNode `json:"books"`
}

// BookNode aggregates every answer that resolved to one book
type BookNode struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Total    int           `json:"total"`
	Correct  int           `json:"correct"`
	Accuracy int           `json:"accuracy"`
	Chapters []ChapterNode `json:"chapters"`
}

// ChapterNode aggregates the answers of one chapter
type ChapterNode struct {
	ID            int64                   `json:"id"`
	Title         string                  `json:"title"`
	ChapterNumber int                     `json:"chapter_number"`
	Total         int                     `json:"total"`
	Correct       int                     `json:"correct"`
	Accuracy      int                     `json:"accuracy"`
	Concepts      []models.ConceptMastery `json:"concepts"`
}

// Stats are the overall answer totals of a user
type Stats struct {
	Total    int `json:"total"`
	Correct  int `json:"correct"`
	Accuracy int `json:"accuracy"`
}

// Dashboard bundles the overall stats with the hierarchical tree
type Dashboard struct {
	Stats Stats `json:"stats"`
	Tree  Tree  `json:"tree"`
}

// EmptyTree returns a tree with no books
func EmptyTree() Tree {
	return Tree{Books: []BookNode{}}
}

// IsEmpty reports whether the tree holds no books
func (t Tree) IsEmpty() bool {
	return len(t.Books) == 0
}
