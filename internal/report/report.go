// Package report exports progress as an Excel workbook.
package report

import (
	"fmt"
	"io"

	"github.com/example/mcatbot/internal/progress"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the exported workbook
const (
	SheetSummary  = "Summary"
	SheetBooks    = "Books"
	SheetChapters = "Chapters"
	SheetConcepts = "Concepts"
)

// ProgressWorkbook builds a workbook with one sheet per level of the tree
func ProgressWorkbook(stats progress.Stats, tree progress.Tree) (*excelize.File, error) {
	f := excelize.NewFile()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	w := &sheetWriter{f: f, header: headerStyle}
	if err := f.SetSheetName(f.GetSheetName(0), SheetSummary); err != nil {
		f.Close()
		return nil, err
	}
	w.rows(SheetSummary,
		[]interface{}{"Answered", "Correct", "Accuracy %"},
		[][]interface{}{{stats.Total, stats.Correct, stats.Accuracy}},
	)

	var books, chapters, concepts [][]interface{}
	for _, b := range tree.Books {
		books = append(books, []interface{}{b.Name, b.Total, b.Correct, b.Accuracy})
		for _, ch := range b.Chapters {
			chapters = append(chapters, []interface{}{b.Name, ch.ChapterNumber, ch.Title, ch.Total, ch.Correct, ch.Accuracy})
			for _, c := range ch.Concepts {
				concepts = append(concepts, []interface{}{
					b.Name, ch.ChapterNumber, c.Concept, c.TotalAttempts, c.CorrectAttempts,
					fmt.Sprintf("%.1f", c.MasteryPercentage), c.LastPracticed.Format("2006-01-02 15:04"),
				})
			}
		}
	}
	w.rows(SheetBooks, []interface{}{"Book", "Answered", "Correct", "Accuracy %"}, books)
	w.rows(SheetChapters, []interface{}{"Book", "Chapter", "Title", "Answered", "Correct", "Accuracy %"}, chapters)
	w.rows(SheetConcepts, []interface{}{"Book", "Chapter", "Concept", "Attempts", "Correct", "Mastery %", "Last practiced"}, concepts)

	if w.err != nil {
		f.Close()
		return nil, w.err
	}
	return f, nil
}

// WriteProgress writes the progress workbook to out
func WriteProgress(out io.Writer, stats progress.Stats, tree progress.Tree) error {
	f, err := ProgressWorkbook(stats, tree)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// sheetWriter keeps the first error so sheets can be written without checks in between
type sheetWriter struct {
	f      *excelize.File
	header int
	err    error
}

func (w *sheetWriter) rows(sheet string, header []interface{}, rows [][]interface{}) {
	if w.err != nil {
		return
	}
	if idx, _ := w.f.GetSheetIndex(sheet); idx < 0 {
		if _, w.err = w.f.NewSheet(sheet); w.err != nil {
			return
		}
	}
	if w.err = w.f.SetSheetRow(sheet, "A1", &header); w.err != nil {
		return
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if w.err = w.f.SetCellStyle(sheet, "A1", last, w.header); w.err != nil {
		return
	}
	for i := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if w.err = w.f.SetSheetRow(sheet, cell, &rows[i]); w.err != nil {
			return
		}
	}
}
