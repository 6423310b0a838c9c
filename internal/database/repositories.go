package database

import (
	"context"
	"time"

	"github.com/example/mcatbot/internal/progress"
	"github.com/example/mcatbot/pkg/models"
	"github.com/jmoiron/sqlx"
)

// Repositories groups every repository built on one connection
type Repositories struct {
	Users       *UserRepository
	Books       *BookRepository
	Chapters    *ChapterRepository
	Questions   *QuestionRepository
	Progress    *UserProgressRepository
	Mastery     *ConceptMasteryRepository
	QuizResults *QuizResultRepository
}

// NewRepositories creates all repositories for db
func NewRepositories(db *sqlx.DB) *Repositories {
	return &Repositories{
		Users:       NewUserRepository(db),
		Books:       NewBookRepository(db),
		Chapters:    NewChapterRepository(db),
		Questions:   NewQuestionRepository(db),
		Progress:    NewUserProgressRepository(db),
		Mastery:     NewConceptMasteryRepository(db),
		QuizResults: NewQuizResultRepository(db),
	}
}

// ProgressStore adapts the repositories to the progress package
type ProgressStore struct {
	repos *Repositories
}

var (
	_ progress.Store  = (*ProgressStore)(nil)
	_ progress.Writer = (*ProgressStore)(nil)
)

// NewProgressStore creates a progress store over repos
func NewProgressStore(repos *Repositories) *ProgressStore {
	return &ProgressStore{repos: repos}
}

func (s *ProgressStore) AnswerEvents(ctx context.Context, userID string) ([]models.UserProgress, error) {
	return s.repos.Progress.GetByUser(ctx, userID)
}

func (s *ProgressStore) QuestionsByIDs(ctx context.Context, ids []string) ([]models.Question, error) {
	return s.repos.Questions.GetByIDs(ctx, ids)
}

func (s *ProgressStore) ChaptersByIDs(ctx context.Context, ids []int64) ([]models.Chapter, error) {
	return s.repos.Chapters.GetByIDs(ctx, ids)
}

func (s *ProgressStore) BooksByIDs(ctx context.Context, ids []string) ([]models.Book, error) {
	return s.repos.Books.GetByIDs(ctx, ids)
}

func (s *ProgressStore) ConceptMastery(ctx context.Context, userID string) ([]models.ConceptMastery, error) {
	return s.repos.Mastery.GetByUser(ctx, userID)
}

func (s *ProgressStore) InsertAnswer(ctx context.Context, event *models.UserProgress) error {
	return s.repos.Progress.Create(ctx, event)
}

func (s *ProgressStore) IncrementConceptMastery(ctx context.Context, userID, concept string, correct bool, at time.Time) (*models.ConceptMastery, error) {
	return s.repos.Mastery.Increment(ctx, userID, concept, correct, at)
}

// ClearAll deletes all catalog and progress rows, children first
func (r *Repositories) ClearAll(ctx context.Context) error {
	steps := []func(context.Context) error{
		r.Mastery.DeleteAll,
		r.Progress.DeleteAll,
		r.Questions.DeleteAll,
		r.Chapters.DeleteAll,
		r.Books.DeleteAll,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return err
		}
	}
	return nil
}
