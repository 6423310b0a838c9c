package bot

import (
	"time"
)

// Config represents the configuration for the bot
type Config struct {
	// Time allowed for one progress aggregation
	ProgressTimeout time.Duration
	// Number of questions /generate asks for
	GenerateCount int
	// Largest question bank accepted by /import
	ImportMaxBytes int64
	// Number of recent quizzes shown by /stats
	RecentQuizzes int
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() *Config {
	return &Config{
		ProgressTimeout: 30 * time.Second,
		GenerateCount:   5,
		ImportMaxBytes:  10 << 20,
		RecentQuizzes:   5,
	}
}
