package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/example/mcatbot/internal/database"
	"github.com/example/mcatbot/internal/logger"
	"github.com/example/mcatbot/pkg/models"
)

// BookMappingFile lists the books of the question directory
const BookMappingFile = "book-mapping.json"

// SeedOptions control a seeding run
type SeedOptions struct {
	Book      string // only seed this book id
	ClearOnly bool   // clear all data and stop
	NoClear   bool   // keep existing data
}

// SeedSummary counts what a seeding run stored
type SeedSummary struct {
	Cleared   bool
	Books     int
	Chapters  int
	Questions int
	Errors    []string
}

// DBStats are the catalog row counts
type DBStats struct {
	Books     int
	Chapters  int
	Questions int
}

type bookMapping struct {
	Books []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"books"`
}

type chapterFile struct {
	Chapter      int    `json:"chapter"`
	ChapterTitle string `json:"chapter_title"`
	Questions    []struct {
		ID            string   `json:"id"`
		QuestionText  string   `json:"question_text"`
		Options       []string `json:"options"`
		CorrectAnswer string   `json:"correct_answer"`
		Explanation   string   `json:"explanation"`
		ConceptTags   []string `json:"concept_tags"`
		Difficulty    string   `json:"difficulty"`
	} `json:"questions"`
}

// Seeder syncs the JSON question directory into the database.
// Layout: <dir>/book-mapping.json and <dir>/<book id>/chapter-*.json
type Seeder struct {
	repos *database.Repositories
	dir   string
	log   *logger.Logger
}

// NewSeeder creates a seeder reading from dir
func NewSeeder(repos *database.Repositories, dir string, log *logger.Logger) *Seeder {
	if log == nil {
		log = logger.Nop()
	}
	return &Seeder{repos: repos, dir: dir, log: log}
}

// Run clears (unless NoClear) and seeds books, chapters and questions
func (s *Seeder) Run(ctx context.Context, opts SeedOptions) (*SeedSummary, error) {
	summary := &SeedSummary{}

	if opts.ClearOnly {
		if err := s.clear(ctx, summary); err != nil {
			return summary, err
		}
		return summary, nil
	}

	// The mapping and book filter are checked before anything is deleted
	mapping, err := s.loadBookMapping()
	if err != nil {
		return summary, err
	}
	books := mapping.Books
	if opts.Book != "" {
		books = books[:0:0]
		for _, b := range mapping.Books {
			if b.ID == opts.Book {
				books = append(books, b)
			}
		}
		if len(books) == 0 {
			return summary, fmt.Errorf("unknown book ID: %s", opts.Book)
		}
	}

	if !opts.NoClear {
		if err := s.clear(ctx, summary); err != nil {
			return summary, err
		}
	}

	// Every mapped book is stored even when only one is seeded
	for _, b := range mapping.Books {
		if err := s.repos.Books.Upsert(ctx, &models.Book{ID: b.ID, Name: b.Name}); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("book %s: %v", b.ID, err))
			continue
		}
		summary.Books++
	}

	for _, b := range books {
		files, err := s.chapterFiles(b.ID)
		if err != nil {
			summary.Errors = append(summary.Errors, err.Error())
			continue
		}
		if len(files) == 0 {
			s.log.Warn("No chapter files found", "book", b.ID)
			continue
		}
		for _, path := range files {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			n, err := s.seedChapter(ctx, b.ID, path)
			if err != nil {
				s.log.Error("Failed to seed chapter file", "file", path, "error", err)
				summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", filepath.Base(path), err))
				continue
			}
			summary.Chapters++
			summary.Questions += n
		}
	}

	s.log.Info("Seeding complete",
		"books", summary.Books,
		"chapters", summary.Chapters,
		"questions", summary.Questions,
		"errors", len(summary.Errors),
	)
	return summary, nil
}

func (s *Seeder) clear(ctx context.Context, summary *SeedSummary) error {
	if err := s.repos.ClearAll(ctx); err != nil {
		return err
	}
	summary.Cleared = true
	s.log.Info("Cleared existing data")
	return nil
}

// Stats returns the current catalog row counts
func (s *Seeder) Stats(ctx context.Context) (DBStats, error) {
	var st DBStats
	var err error
	if st.Books, err = s.repos.Books.Count(ctx); err != nil {
		return st, err
	}
	if st.Chapters, err = s.repos.Chapters.Count(ctx); err != nil {
		return st, err
	}
	if st.Questions, err = s.repos.Questions.Count(ctx); err != nil {
		return st, err
	}
	return st, nil
}

func (s *Seeder) loadBookMapping() (*bookMapping, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, BookMappingFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read book mapping: %w", err)
	}
	var m bookMapping
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse book mapping: %w", err)
	}
	return &m, nil
}

// chapterFiles lists the chapter files of a book in name order, skipping examples
func (s *Seeder) chapterFiles(bookID string) ([]string, error) {
	bookDir := filepath.Join(s.dir, bookID)
	if _, err := os.Stat(bookDir); err != nil {
		return nil, fmt.Errorf("no questions directory for %s", bookID)
	}
	matches, err := filepath.Glob(filepath.Join(bookDir, "chapter-*.json"))
	if err != nil {
		return nil, err
	}
	files := matches[:0]
	for _, m := range matches {
		if !strings.Contains(filepath.Base(m), "example") {
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}

func (s *Seeder) seedChapter(ctx context.Context, bookID, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var cf chapterFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return 0, fmt.Errorf("invalid JSON: %w", err)
	}

	chapter := &models.Chapter{BookID: bookID, Title: cf.ChapterTitle, ChapterNumber: cf.Chapter}
	if err := s.repos.Chapters.Upsert(ctx, chapter); err != nil {
		return 0, err
	}

	questions := make([]models.Question, 0, len(cf.Questions))
	for _, q := range cf.Questions {
		questions = append(questions, models.Question{
			ID:            q.ID,
			ChapterID:     chapter.ID,
			QuestionText:  q.QuestionText,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
			ConceptTags:   q.ConceptTags,
			Difficulty:    q.Difficulty,
		})
	}
	if err := s.repos.Questions.UpsertBatch(ctx, questions); err != nil {
		return 0, err
	}
	s.log.Debug("Seeded chapter", "book", bookID, "chapter", cf.Chapter, "questions", len(questions))
	return len(questions), nil
}
