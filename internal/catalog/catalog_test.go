package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/example/mcatbot/internal/database"
	"github.com/example/mcatbot/pkg/models"
)

func newTestReader(t *testing.T, defaultLimit int) (*Reader, int64) {
	t.Helper()
	db, err := database.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	repos := database.NewRepositories(db)
	ctx := context.Background()
	for _, b := range []models.Book{{ID: "phys", Name: "Physics"}, {ID: "bio", Name: "Biology"}} {
		b := b
		if err := repos.Books.Upsert(ctx, &b); err != nil {
			t.Fatal(err)
		}
	}
	ch := &models.Chapter{BookID: "bio", Title: "Cells", ChapterNumber: 1}
	if err := repos.Chapters.Upsert(ctx, ch); err != nil {
		t.Fatal(err)
	}
	var questions []models.Question
	for i := 0; i < 25; i++ {
		questions = append(questions, models.Question{
			ID:            fmt.Sprintf("bio-1-%02d", i),
			ChapterID:     ch.ID,
			QuestionText:  fmt.Sprintf("Question %d", i),
			Options:       models.StringList{"a", "b", "c", "d"},
			CorrectAnswer: "A",
		})
	}
	if err := repos.Questions.UpsertBatch(ctx, questions); err != nil {
		t.Fatal(err)
	}
	return NewReader(repos, defaultLimit), ch.ID
}

func TestListBooksOrderedByName(t *testing.T) {
	r, _ := newTestReader(t, 0)
	books, err := r.ListBooks(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(books) != 2 || books[0].Name != "Biology" {
		t.Errorf("unexpected books: %+v", books)
	}
}

func TestSampleQuestionsForChapter(t *testing.T) {
	tests := []struct {
		name         string
		defaultLimit int
		limit        int
		want         int
	}{
		{"explicit limit", 20, 5, 5},
		{"default limit", 10, 0, 10},
		{"capped", 20, 100, MaxSample},
		{"default capped", 50, 0, MaxSample},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, chapterID := newTestReader(t, tt.defaultLimit)
			got, err := r.SampleQuestionsForChapter(context.Background(), chapterID, tt.limit)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.want {
				t.Fatalf("got %d questions, want %d", len(got), tt.want)
			}
			seen := make(map[string]bool)
			for _, q := range got {
				if seen[q.ID] {
					t.Errorf("question %s sampled twice", q.ID)
				}
				seen[q.ID] = true
			}
		})
	}
}

func TestSampleUnknownChapter(t *testing.T) {
	r, _ := newTestReader(t, 20)
	got, err := r.SampleQuestionsForChapter(context.Background(), 999, 5)
	if err != nil || len(got) != 0 {
		t.Errorf("expected no questions, got %d, %v", len(got), err)
	}
}
