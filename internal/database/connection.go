package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/mcatbot/internal/config"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Connect opens the database described by cfg and initializes the schema
func Connect(cfg *config.Config) (*sqlx.DB, error) {
	switch cfg.DBType {
	case "postgres":
		return Open("postgres", cfg.DatabaseURL)
	default:
		// Create data directory if it doesn't exist
		if dir := filepath.Dir(cfg.DBPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %v", err)
			}
		}
		return Open("sqlite3", cfg.DBPath)
	}
}

// Open connects with the given driver ("sqlite3" or "postgres") and creates missing tables
func Open(driver, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	if driver == "sqlite3" {
		// Enable foreign keys
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %v", err)
		}
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	}

	if err := initializeSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema(db *sqlx.DB) error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.DriverName() == "postgres" {
		serial = "BIGSERIAL PRIMARY KEY"
	}

	statements := []struct {
		name  string
		query string
	}{
		{"users table", `
			CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				telegram_id BIGINT UNIQUE NOT NULL,
				username TEXT NOT NULL DEFAULT '',
				first_name TEXT NOT NULL DEFAULT '',
				last_name TEXT NOT NULL DEFAULT '',
				is_admin BOOLEAN NOT NULL DEFAULT FALSE,
				notification_enabled BOOLEAN NOT NULL DEFAULT TRUE,
				notification_hour INTEGER NOT NULL DEFAULT 9,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`},
		{"books table", `
			CREATE TABLE IF NOT EXISTS books (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`},
		{"chapters table", `
			CREATE TABLE IF NOT EXISTS chapters (
				id {{serial}},
				book_id TEXT NOT NULL REFERENCES books(id),
				title TEXT NOT NULL,
				chapter_number INTEGER NOT NULL,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				UNIQUE(book_id, chapter_number)
			)`},
		{"questions table", `
			CREATE TABLE IF NOT EXISTS questions (
				id TEXT PRIMARY KEY,
				chapter_id BIGINT NOT NULL REFERENCES chapters(id),
				question_text TEXT NOT NULL,
				options TEXT NOT NULL DEFAULT '[]',
				correct_answer TEXT NOT NULL,
				explanation TEXT NOT NULL DEFAULT '',
				concept_tags TEXT NOT NULL DEFAULT '[]',
				difficulty TEXT NOT NULL DEFAULT 'medium',
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`},
		// Answer events keep no foreign key on question_id: the log outlives catalog edits
		{"user_progress table", `
			CREATE TABLE IF NOT EXISTS user_progress (
				id {{serial}},
				user_id TEXT NOT NULL,
				question_id TEXT NOT NULL,
				correct BOOLEAN NOT NULL,
				answered_at TIMESTAMP NOT NULL
			)`},
		{"user_progress index", `CREATE INDEX IF NOT EXISTS idx_user_progress_user ON user_progress(user_id)`},
		{"concept_mastery table", `
			CREATE TABLE IF NOT EXISTS concept_mastery (
				id {{serial}},
				user_id TEXT NOT NULL,
				concept TEXT NOT NULL,
				total_attempts INTEGER NOT NULL DEFAULT 0,
				correct_attempts INTEGER NOT NULL DEFAULT 0,
				mastery_percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
				last_practiced TIMESTAMP NOT NULL,
				UNIQUE(user_id, concept)
			)`},
		{"quiz_results table", `
			CREATE TABLE IF NOT EXISTS quiz_results (
				id {{serial}},
				user_id TEXT NOT NULL,
				chapter_id BIGINT NOT NULL,
				total_questions INTEGER NOT NULL,
				correct_answers INTEGER NOT NULL,
				duration INTEGER NOT NULL DEFAULT 0,
				completed_at TIMESTAMP NOT NULL
			)`},
	}

	for _, stmt := range statements {
		query := strings.ReplaceAll(stmt.query, "{{serial}}", serial)
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to create %s: %v", stmt.name, err)
		}
	}
	return nil
}
