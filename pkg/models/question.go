package models

import (
	"strings"
	"time"
)

// Question is a multiple-choice question attached to a chapter
type Question struct {
	ID            string     `json:"id" db:"id"`
	ChapterID     int64      `json:"chapter_id" db:"chapter_id"`
	QuestionText  string     `json:"question_text" db:"question_text"`
	Options       StringList `json:"options" db:"options"`
	CorrectAnswer string     `json:"correct_answer" db:"correct_answer"` // option identifier, e.g. "B"
	Explanation   string     `json:"explanation" db:"explanation"`
	ConceptTags   StringList `json:"concept_tags" db:"concept_tags"`
	Difficulty    string     `json:"difficulty" db:"difficulty"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// OptionLetter returns the identifier of the option at index i ("A", "B", ...)
func OptionLetter(i int) string {
	if i < 0 || i >= 26 {
		return ""
	}
	return string(rune('A' + i))
}

// CorrectIndex resolves CorrectAnswer to an index into Options.
// CorrectAnswer may be a letter or the full text of the option.
func (q *Question) CorrectIndex() int {
	answer := strings.TrimSpace(q.CorrectAnswer)
	if len(answer) == 1 {
		idx := int(strings.ToUpper(answer)[0] - 'A')
		if idx >= 0 && idx < len(q.Options) {
			return idx
		}
	}
	for i, opt := range q.Options {
		if strings.EqualFold(strings.TrimSpace(opt), answer) {
			return i
		}
	}
	return -1
}

// IsCorrect reports whether the chosen option identifier (letter or text) is the right answer
func (q *Question) IsCorrect(choice string) bool {
	idx := q.CorrectIndex()
	if idx < 0 {
		return strings.EqualFold(strings.TrimSpace(choice), strings.TrimSpace(q.CorrectAnswer))
	}
	choice = strings.TrimSpace(choice)
	if len(choice) == 1 {
		return strings.EqualFold(choice, OptionLetter(idx))
	}
	return strings.EqualFold(choice, strings.TrimSpace(q.Options[idx]))
}
