package models

import "time"

// QuizResult summarizes a finished quiz session
type QuizResult struct {
	ID             int64     `json:"id" db:"id"`
	UserID         string    `json:"user_id" db:"user_id"`
	ChapterID      int64     `json:"chapter_id" db:"chapter_id"`
	TotalQuestions int       `json:"total_questions" db:"total_questions"`
	CorrectAnswers int       `json:"correct_answers" db:"correct_answers"`
	Duration       int       `json:"duration" db:"duration"` // Duration in seconds
	CompletedAt    time.Time `json:"completed_at" db:"completed_at"`
}
