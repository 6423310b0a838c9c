package models

import "time"

// UserProgress is one answer event. Rows are append-only.
type UserProgress struct {
	ID         int64     `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	QuestionID string    `json:"question_id" db:"question_id"`
	Correct    bool      `json:"correct" db:"correct"`
	AnsweredAt time.Time `json:"answered_at" db:"answered_at"`
}
