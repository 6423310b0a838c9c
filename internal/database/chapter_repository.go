package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/mcatbot/pkg/models"
	"github.com/jmoiron/sqlx"
)

const chapterColumns = "id, book_id, title, chapter_number, created_at"

// ChapterRepository handles database operations for chapters
type ChapterRepository struct {
	db *sqlx.DB
}

// NewChapterRepository creates a new repository instance
func NewChapterRepository(db *sqlx.DB) *ChapterRepository {
	return &ChapterRepository{db: db}
}

// GetByBook returns the chapters of a book ordered by chapter number
func (r *ChapterRepository) GetByBook(ctx context.Context, bookID string) ([]models.Chapter, error) {
	var chapters []models.Chapter
	query := r.db.Rebind("SELECT " + chapterColumns + " FROM chapters WHERE book_id = ? ORDER BY chapter_number")
	if err := r.db.SelectContext(ctx, &chapters, query, bookID); err != nil {
		return nil, fmt.Errorf("failed to get chapters by book: %w", err)
	}
	return chapters, nil
}

// GetByID returns a chapter by ID, or nil when it does not exist
func (r *ChapterRepository) GetByID(ctx context.Context, id int64) (*models.Chapter, error) {
	var chapter models.Chapter
	err := r.db.GetContext(ctx, &chapter, r.db.Rebind("SELECT "+chapterColumns+" FROM chapters WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chapter: %w", err)
	}
	return &chapter, nil
}

// GetByIDs returns the chapters whose id is in ids
func (r *ChapterRepository) GetByIDs(ctx context.Context, ids []int64) ([]models.Chapter, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In("SELECT "+chapterColumns+" FROM chapters WHERE id IN (?)", ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build chapters query: %w", err)
	}
	var chapters []models.Chapter
	if err := r.db.SelectContext(ctx, &chapters, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get chapters by ids: %w", err)
	}
	return chapters, nil
}

// Upsert inserts the chapter or updates its title, keyed by (book_id, chapter_number).
// chapter.ID is set to the stored row id.
func (r *ChapterRepository) Upsert(ctx context.Context, chapter *models.Chapter) error {
	query := r.db.Rebind(`
		INSERT INTO chapters (book_id, title, chapter_number) VALUES (?, ?, ?)
		ON CONFLICT (book_id, chapter_number) DO UPDATE SET title = excluded.title
		RETURNING id
	`)
	err := r.db.QueryRowxContext(ctx, query, chapter.BookID, chapter.Title, chapter.ChapterNumber).
		Scan(&chapter.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert chapter %d of %s: %w", chapter.ChapterNumber, chapter.BookID, err)
	}
	return nil
}

// Count returns the number of chapters
func (r *ChapterRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM chapters"); err != nil {
		return 0, fmt.Errorf("failed to count chapters: %w", err)
	}
	return n, nil
}

// DeleteAll removes every chapter. Questions must be removed first.
func (r *ChapterRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM chapters"); err != nil {
		return fmt.Errorf("failed to delete chapters: %w", err)
	}
	return nil
}
