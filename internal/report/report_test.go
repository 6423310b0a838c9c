package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/example/mcatbot/internal/progress"
	"github.com/example/mcatbot/pkg/models"
	"github.com/xuri/excelize/v2"
)

func TestWriteProgress(t *testing.T) {
	tree := progress.Tree{Books: []progress.BookNode{{
		ID: "chem", Name: "Chemistry", Total: 3, Correct: 2, Accuracy: 67,
		Chapters: []progress.ChapterNode{
			{ID: 1, Title: "Acids", ChapterNumber: 1, Total: 2, Correct: 1, Accuracy: 50,
				Concepts: []models.ConceptMastery{{Concept: "acids", TotalAttempts: 2, CorrectAttempts: 1, MasteryPercentage: 50, LastPracticed: time.Now()}}},
			{ID: 2, Title: "Bases", ChapterNumber: 2, Total: 1, Correct: 1, Accuracy: 100},
		},
	}}}

	var buf bytes.Buffer
	if err := WriteProgress(&buf, progress.Stats{Total: 3, Correct: 2, Accuracy: 67}, tree); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	tests := []struct {
		sheet string
		rows  int
		cell  string
		want  string
	}{
		{SheetSummary, 2, "C2", "67"},
		{SheetBooks, 2, "A2", "Chemistry"},
		{SheetChapters, 3, "C3", "Bases"},
		{SheetConcepts, 2, "C2", "acids"},
	}
	for _, tt := range tests {
		t.Run(tt.sheet, func(t *testing.T) {
			rows, err := f.GetRows(tt.sheet)
			if err != nil {
				t.Fatal(err)
			}
			if len(rows) != tt.rows {
				t.Errorf("got %d rows, want %d", len(rows), tt.rows)
			}
			got, err := f.GetCellValue(tt.sheet, tt.cell)
			if err != nil || got != tt.want {
				t.Errorf("%s = %q, want %q (%v)", tt.cell, got, tt.want, err)
			}
		})
	}
}

func TestWriteProgressEmptyTree(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteProgress(&buf, progress.Stats{}, progress.EmptyTree()); err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows(SheetBooks)
	if err != nil || len(rows) != 1 {
		t.Errorf("expected header only, got %v, %v", rows, err)
	}
}
