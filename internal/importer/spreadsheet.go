// Package importer loads question banks into the catalog, from spreadsheets
// uploaded by admins or from the JSON question directory.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/example/mcatbot/internal/database"
	"github.com/example/mcatbot/internal/logger"
	"github.com/example/mcatbot/pkg/models"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// Format of an uploaded question bank
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	BookColumn          string // Column with the book name
	ChapterNumberColumn string // Column with the chapter number
	ChapterTitleColumn  string // Column with the chapter title
	IDColumn            string // Column with the question id (optional)
	QuestionColumn      string // Column with the question text
	OptionsColumn       string // Column with the options, separated by OptionSeparator
	AnswerColumn        string // Column with the correct answer (letter or option text)
	ExplanationColumn   string // Column with the explanation
	ConceptsColumn      string // Column with comma separated concept tags
	DifficultyColumn    string // Column with the difficulty
	OptionSeparator     string
	SheetName           string // Sheet to import; empty means the first sheet
	StartRow            int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		BookColumn:          "A",
		ChapterNumberColumn: "B",
		ChapterTitleColumn:  "C",
		IDColumn:            "D",
		QuestionColumn:      "E",
		OptionsColumn:       "F",
		AnswerColumn:        "G",
		ExplanationColumn:   "H",
		ConceptsColumn:      "I",
		DifficultyColumn:    "J",
		OptionSeparator:     "|",
		StartRow:            2, // By default, start from the second row (skip header)
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed  int
	BooksCreated    int
	ChaptersCreated int
	Created         int
	Updated         int
	Errors          []string
}

// Importer writes imported questions through the repositories
type Importer struct {
	repos *database.Repositories
	log   *logger.Logger
}

// New creates an importer
func New(repos *database.Repositories, log *logger.Logger) *Importer {
	if log == nil {
		log = logger.Nop()
	}
	return &Importer{repos: repos, log: log}
}

// FormatFromName picks the format from a file extension
func FormatFromName(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported file type %q (expected .xlsx or .csv)", filepath.Ext(name))
	}
}

// ImportFile imports questions from an Excel or CSV file on disk
func (im *Importer) ImportFile(ctx context.Context, path string, config ImportConfig) (*ImportResult, error) {
	format, err := FormatFromName(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()
	return im.Import(ctx, file, format, config)
}

// Import imports questions from r. Rows with missing fields are reported in the result, not fatal.
func (im *Importer) Import(ctx context.Context, r io.Reader, format Format, config ImportConfig) (*ImportResult, error) {
	var rows [][]string
	var err error
	switch format {
	case FormatXLSX:
		rows, err = readExcelRows(r, config.SheetName)
	case FormatCSV:
		rows, err = readCSVRows(r)
	default:
		err = fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, err
	}

	st, err := im.newImportState(ctx)
	if err != nil {
		return nil, err
	}

	startRow := config.StartRow
	if startRow < 1 {
		startRow = 1
	}
	for i, row := range rows {
		// Skip header rows
		if i < startRow-1 || isBlank(row) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return st.result, err
		}
		st.result.TotalProcessed++
		if err := im.processRow(ctx, row, config, st, i+1); err != nil {
			st.result.Errors = append(st.result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
		}
	}

	im.log.Info("Question bank imported",
		"processed", st.result.TotalProcessed,
		"created", st.result.Created,
		"updated", st.result.Updated,
		"errors", len(st.result.Errors),
	)
	return st.result, nil
}

func readExcelRows(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

func readCSVRows(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error reading CSV: %w", err)
	}
	return rows, nil
}

// importState caches books and chapters seen during one import
type importState struct {
	result   *ImportResult
	books    map[string]string // lower-case name -> id
	chapters map[string]int64  // "<book id>/<number>" -> id
}

func (im *Importer) newImportState(ctx context.Context) (*importState, error) {
	existing, err := im.repos.Books.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get existing books: %w", err)
	}
	st := &importState{
		result:   &ImportResult{Errors: make([]string, 0)},
		books:    make(map[string]string, len(existing)),
		chapters: make(map[string]int64),
	}
	for _, b := range existing {
		st.books[strings.ToLower(b.Name)] = b.ID
	}
	return st, nil
}

// processRow processes a single spreadsheet row
func (im *Importer) processRow(ctx context.Context, row []string, config ImportConfig, st *importState, rowNum int) error {
	cell := func(column string) string {
		if column == "" {
			return ""
		}
		if idx := columnToIndex(column); idx >= 0 && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	bookName := cell(config.BookColumn)
	chapterTitle := cell(config.ChapterTitleColumn)
	questionText := cell(config.QuestionColumn)
	answer := cell(config.AnswerColumn)
	options := splitList(cell(config.OptionsColumn), config.OptionSeparator)

	switch {
	case bookName == "":
		return errors.New("book cannot be empty")
	case questionText == "":
		return errors.New("question text cannot be empty")
	case len(options) < 2:
		return errors.New("at least two options are required")
	case answer == "":
		return errors.New("correct answer cannot be empty")
	}
	chapterNumber, err := strconv.Atoi(cell(config.ChapterNumberColumn))
	if err != nil || chapterNumber < 1 {
		return fmt.Errorf("invalid chapter number %q", cell(config.ChapterNumberColumn))
	}
	if chapterTitle == "" {
		chapterTitle = fmt.Sprintf("Chapter %d", chapterNumber)
	}

	q := &models.Question{
		ID:            cell(config.IDColumn),
		QuestionText:  questionText,
		Options:       options,
		CorrectAnswer: answer,
		Explanation:   cell(config.ExplanationColumn),
		ConceptTags:   splitList(cell(config.ConceptsColumn), ","),
		Difficulty:    strings.ToLower(cell(config.DifficultyColumn)),
	}
	if q.CorrectIndex() < 0 {
		return fmt.Errorf("correct answer %q matches no option", answer)
	}

	bookID, err := im.getOrCreateBook(ctx, bookName, st)
	if err != nil {
		return err
	}
	chapterID, err := im.getOrCreateChapter(ctx, bookID, chapterNumber, chapterTitle, st)
	if err != nil {
		return err
	}
	q.ChapterID = chapterID
	if q.ID == "" {
		q.ID = fmt.Sprintf("%s-ch%d-r%d", bookID, chapterNumber, rowNum)
	}

	existing, err := im.repos.Questions.GetByID(ctx, q.ID)
	if err != nil {
		return err
	}
	if err := im.repos.Questions.Upsert(ctx, q); err != nil {
		return err
	}
	if existing != nil {
		st.result.Updated++
	} else {
		st.result.Created++
	}
	return nil
}

// getOrCreateBook gets a book by name or creates a new one if it doesn't exist
func (im *Importer) getOrCreateBook(ctx context.Context, name string, st *importState) (string, error) {
	key := strings.ToLower(name)
	if id, ok := st.books[key]; ok {
		return id, nil
	}
	book := &models.Book{ID: Slug(name), Name: name}
	if err := im.repos.Books.Upsert(ctx, book); err != nil {
		return "", fmt.Errorf("failed to create book: %w", err)
	}
	st.books[key] = book.ID
	st.result.BooksCreated++
	return book.ID, nil
}

func (im *Importer) getOrCreateChapter(ctx context.Context, bookID string, number int, title string, st *importState) (int64, error) {
	key := fmt.Sprintf("%s/%d", bookID, number)
	if id, ok := st.chapters[key]; ok {
		return id, nil
	}
	chapter := &models.Chapter{BookID: bookID, Title: title, ChapterNumber: number}
	if err := im.repos.Chapters.Upsert(ctx, chapter); err != nil {
		return 0, fmt.Errorf("failed to create chapter: %w", err)
	}
	st.chapters[key] = chapter.ID
	st.result.ChaptersCreated++
	return chapter.ID, nil
}

// Slug turns a book name into a stable identifier ("Organic Chemistry" -> "organic-chemistry")
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		// Names without latin letters or digits still need a stable id
		slug = "book-" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()[:8]
	}
	return slug
}

func splitList(s, sep string) models.StringList {
	if sep == "" {
		sep = ","
	}
	var out models.StringList
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Helper function to convert Excel column letter to index
func columnToIndex(column string) int {
	column = strings.ToUpper(column)
	index := 0
	for i := 0; i < len(column); i++ {
		index = index*26 + int(column[i]-'A'+1)
	}
	return index - 1
}
