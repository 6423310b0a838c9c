package models

import "time"

// Chapter belongs to exactly one Book and is ordered by ChapterNumber within it
type Chapter struct {
	ID            int64     `json:"id" db:"id"`
	BookID        string    `json:"book_id" db:"book_id"`
	Title         string    `json:"title" db:"title"`
	ChapterNumber int       `json:"chapter_number" db:"chapter_number"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
