package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/mcatbot/pkg/models"
	"github.com/jmoiron/sqlx"
)

// BookRepository handles database operations for books
type BookRepository struct {
	db *sqlx.DB
}

// NewBookRepository creates a new repository instance
func NewBookRepository(db *sqlx.DB) *BookRepository {
	return &BookRepository{db: db}
}

// GetAll returns all books ordered by name
func (r *BookRepository) GetAll(ctx context.Context) ([]models.Book, error) {
	var books []models.Book
	err := r.db.SelectContext(ctx, &books, "SELECT id, name, created_at FROM books ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to get books: %w", err)
	}
	return books, nil
}

// GetByID returns a book by ID, or nil when it does not exist
func (r *BookRepository) GetByID(ctx context.Context, id string) (*models.Book, error) {
	var book models.Book
	err := r.db.GetContext(ctx, &book, r.db.Rebind("SELECT id, name, created_at FROM books WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return &book, nil
}

// GetByIDs returns the books whose id is in ids. Missing ids are simply absent.
func (r *BookRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Book, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In("SELECT id, name, created_at FROM books WHERE id IN (?)", ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build books query: %w", err)
	}
	var books []models.Book
	if err := r.db.SelectContext(ctx, &books, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get books by ids: %w", err)
	}
	return books, nil
}

// Upsert creates the book or renames it when the id already exists
func (r *BookRepository) Upsert(ctx context.Context, book *models.Book) error {
	query := r.db.Rebind(`
		INSERT INTO books (id, name) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name
	`)
	if _, err := r.db.ExecContext(ctx, query, book.ID, book.Name); err != nil {
		return fmt.Errorf("failed to upsert book %s: %w", book.ID, err)
	}
	return nil
}

// Count returns the number of books
func (r *BookRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM books"); err != nil {
		return 0, fmt.Errorf("failed to count books: %w", err)
	}
	return n, nil
}

// DeleteAll removes every book. Chapters must be removed first.
func (r *BookRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM books"); err != nil {
		return fmt.Errorf("failed to delete books: %w", err)
	}
	return nil
}
