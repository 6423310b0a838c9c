package ai

import (
	"context"
	"fmt"

	"github.com/example/mcatbot/pkg/models"
)

// Mock generates placeholder questions without calling any API
type Mock struct{}

// GenerateQuestions returns count deterministic questions with option A correct
func (Mock) GenerateQuestions(_ context.Context, book *models.Book, chapter *models.Chapter, count int) ([]models.Question, error) {
	questions := make([]models.Question, 0, count)
	for i := 1; i <= count; i++ {
		questions = append(questions, models.Question{
			ID:            fmt.Sprintf("%s-ch%d-mock-%d", book.ID, chapter.ChapterNumber, i),
			ChapterID:     chapter.ID,
			QuestionText:  fmt.Sprintf("This is mock question %d for %s, formatted like an MCAT question.", i, chapter.Title),
			Options:       models.StringList{"Option A", "Option B", "Option C", "Option D"},
			CorrectAnswer: "A",
			Explanation: fmt.Sprintf("Explanation for question %d: Option A is correct because [reason]. "+
				"Options B, C, and D are incorrect because [reasons].", i),
			Difficulty: "medium",
		})
	}
	return questions, nil
}
