package progress

import (
	"reflect"
	"testing"

	"github.com/example/mcatbot/pkg/models"
)

func TestAccuracy(t *testing.T) {
	tests := []struct {
		correct, total, want int
	}{
		{0, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 2, 50},
		{1, 8, 13},
		{5, 5, 100},
		{0, 4, 0},
		{7, -1, 0},
	}
	for _, tt := range tests {
		if got := Accuracy(tt.correct, tt.total); got != tt.want {
			t.Errorf("Accuracy(%d, %d) = %d, want %d", tt.correct, tt.total, got, tt.want)
		}
	}
}

func TestBuildEmpty(t *testing.T) {
	tree := Build(nil, nil, nil, nil, nil)
	if tree.Books == nil || len(tree.Books) != 0 {
		t.Fatalf("expected empty non-nil books, got %#v", tree.Books)
	}
}

func chemistryInputs() ([]models.UserProgress, []models.Question, []models.Chapter, []models.Book, []models.ConceptMastery) {
	f := newFakeStore()
	seedChemistry(f)
	events := []models.UserProgress{
		{UserID: "u1", QuestionID: "q1", Correct: true},
		{UserID: "u1", QuestionID: "q2", Correct: false},
		{UserID: "u1", QuestionID: "q3", Correct: true},
	}
	mastery := []models.ConceptMastery{
		{UserID: "u1", Concept: "acids", TotalAttempts: 2, CorrectAttempts: 1, MasteryPercentage: 50},
		{UserID: "u1", Concept: "bases", TotalAttempts: 1, CorrectAttempts: 1, MasteryPercentage: 100},
	}
	return events, f.questions, f.chapters, f.books, mastery
}

func TestBuildChemistryScenario(t *testing.T) {
	tree := Build(chemistryInputs())

	if len(tree.Books) != 1 {
		t.Fatalf("expected 1 book, got %d", len(tree.Books))
	}
	book := tree.Books[0]
	if book.Name != "Chemistry" || book.Total != 3 || book.Correct != 2 || book.Accuracy != 67 {
		t.Errorf("unexpected book node: %+v", book)
	}
	if len(book.Chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(book.Chapters))
	}

	wants := []struct {
		number   int
		total    int
		accuracy int
		concept  string
	}{
		{1, 2, 50, "acids"},
		{2, 1, 100, "bases"},
	}
	for i, want := range wants {
		ch := book.Chapters[i]
		if ch.ChapterNumber != want.number || ch.Total != want.total || ch.Accuracy != want.accuracy {
			t.Errorf("chapter %d: got %+v", i, ch)
		}
		if len(ch.Concepts) != 1 || ch.Concepts[0].Concept != want.concept {
			t.Errorf("chapter %d concepts: got %+v", i, ch.Concepts)
		}
	}
}

func TestBuildSkipsOrphans(t *testing.T) {
	events, questions, chapters, books, mastery := chemistryInputs()
	questions = append(questions,
		models.Question{ID: "q-no-chapter", ChapterID: 99},
		models.Question{ID: "q-no-book", ChapterID: 3},
	)
	chapters = append(chapters, models.Chapter{ID: 3, BookID: "gone", ChapterNumber: 1})
	events = append(events,
		models.UserProgress{QuestionID: "q-missing", Correct: true},
		models.UserProgress{QuestionID: "q-no-chapter", Correct: true},
		models.UserProgress{QuestionID: "q-no-book", Correct: false},
	)

	tree := Build(events, questions, chapters, books, mastery)
	if len(tree.Books) != 1 {
		t.Fatalf("expected 1 book, got %d", len(tree.Books))
	}
	if tree.Books[0].Total != 3 || tree.Books[0].Correct != 2 {
		t.Errorf("orphans were counted: %+v", tree.Books[0])
	}
}

func TestBuildTotalsMatchEvents(t *testing.T) {
	events, questions, chapters, books, mastery := chemistryInputs()
	events = append(events, events...)

	tree := Build(events, questions, chapters, books, mastery)
	var total, correct int
	for _, b := range tree.Books {
		total += b.Total
		correct += b.Correct
		var chTotal int
		for _, ch := range b.Chapters {
			if ch.Total == 0 {
				t.Errorf("chapter %d has zero total", ch.ID)
			}
			chTotal += ch.Total
		}
		if chTotal != b.Total {
			t.Errorf("book %s: chapter totals %d != book total %d", b.ID, chTotal, b.Total)
		}
	}
	if total != len(events) || correct != 4 {
		t.Errorf("got total=%d correct=%d, want %d and 4", total, correct, len(events))
	}
}

func TestBuildOrdering(t *testing.T) {
	books := []models.Book{
		{ID: "p", Name: "physics"},
		{ID: "b", Name: "Biology"},
		{ID: "c", Name: "chemistry"},
	}
	chapters := []models.Chapter{
		{ID: 10, BookID: "b", ChapterNumber: 3},
		{ID: 11, BookID: "b", ChapterNumber: 1},
		{ID: 12, BookID: "b", ChapterNumber: 2},
		{ID: 20, BookID: "c", ChapterNumber: 1},
		{ID: 30, BookID: "p", ChapterNumber: 1},
	}
	questions := []models.Question{
		{ID: "b3", ChapterID: 10, ConceptTags: models.StringList{"cells", "dna", "untracked"}},
		{ID: "b1", ChapterID: 11},
		{ID: "b2", ChapterID: 12},
		{ID: "c1", ChapterID: 20},
		{ID: "p1", ChapterID: 30},
	}
	mastery := []models.ConceptMastery{
		{Concept: "cells", MasteryPercentage: 40},
		{Concept: "dna", MasteryPercentage: 90},
	}
	var events []models.UserProgress
	for _, id := range []string{"p1", "b3", "c1", "b1", "b2"} {
		events = append(events, models.UserProgress{QuestionID: id})
	}

	tree := Build(events, questions, chapters, books, mastery)

	var names []string
	for _, b := range tree.Books {
		names = append(names, b.Name)
	}
	if want := []string{"Biology", "chemistry", "physics"}; !reflect.DeepEqual(names, want) {
		t.Errorf("book order = %v, want %v", names, want)
	}

	bio := tree.Books[0]
	var numbers []int
	for _, ch := range bio.Chapters {
		numbers = append(numbers, ch.ChapterNumber)
	}
	if want := []int{1, 2, 3}; !reflect.DeepEqual(numbers, want) {
		t.Errorf("chapter order = %v, want %v", numbers, want)
	}

	concepts := bio.Chapters[2].Concepts
	if len(concepts) != 2 || concepts[0].Concept != "dna" || concepts[1].Concept != "cells" {
		t.Errorf("concepts = %+v, want dna then cells without untracked", concepts)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	first := Build(chemistryInputs())
	second := Build(chemistryInputs())
	if !reflect.DeepEqual(first, second) {
		t.Errorf("trees differ:\n%+v\n%+v", first, second)
	}
}

func TestStatsFromEvents(t *testing.T) {
	tests := []struct {
		name   string
		events []models.UserProgress
		want   Stats
	}{
		{"empty", nil, Stats{}},
		{"mixed", []models.UserProgress{{Correct: true}, {Correct: false}, {Correct: true}}, Stats{Total: 3, Correct: 2, Accuracy: 67}},
		{"all wrong", []models.UserProgress{{}, {}}, Stats{Total: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatsFromEvents(tt.events); got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestBuildNormalizesConceptTags(t *testing.T) {
	books := []models.Book{{ID: "chem", Name: "Chemistry"}}
	chapters := []models.Chapter{{ID: 1, BookID: "chem", Title: "Acids", ChapterNumber: 1}}
	questions := []models.Question{
		{ID: "q1", ChapterID: 1, ConceptTags: models.StringList{"acids ", " acids", ""}},
	}
	events := []models.UserProgress{{UserID: "u1", QuestionID: "q1", Correct: true}}
	mastery := []models.ConceptMastery{{UserID: "u1", Concept: "acids", TotalAttempts: 1, CorrectAttempts: 1, MasteryPercentage: 100}}

	tree := Build(events, questions, chapters, books, mastery)
	if len(tree.Books) != 1 || len(tree.Books[0].Chapters) != 1 {
		t.Fatalf("unexpected tree: %+v", tree)
	}
	concepts := tree.Books[0].Chapters[0].Concepts
	if len(concepts) != 1 || concepts[0].Concept != "acids" {
		t.Errorf("padded tag should resolve to the stored mastery row, got %+v", concepts)
	}
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" acids", "bases", "acids ", "", "  "})
	want := []string{"acids", "bases"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeTags() = %v, want %v", got, want)
	}
}
