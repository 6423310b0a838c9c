package models

import "time"

// ConceptMastery is the rolling accuracy of a user on one concept, unique per (UserID, Concept)
type ConceptMastery struct {
	ID                int64     `json:"id" db:"id"`
	UserID            string    `json:"user_id" db:"user_id"`
	Concept           string    `json:"concept" db:"concept"`
	TotalAttempts     int       `json:"total_attempts" db:"total_attempts"`
	CorrectAttempts   int       `json:"correct_attempts" db:"correct_attempts"`
	MasteryPercentage float64   `json:"mastery_percentage" db:"mastery_percentage"`
	LastPracticed     time.Time `json:"last_practiced" db:"last_practiced"`
}

// MasteryPercentage returns 100*correct/total clamped to [0, 100]
func MasteryPercentage(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	p := float64(correct) / float64(total) * 100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
