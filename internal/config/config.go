package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Defaults
const (
	DefaultDBPath                = "data/mcatbot.db"
	DefaultQuestionLimit         = 20
	DefaultNotificationStartHour = 8
	DefaultNotificationEndHour   = 22
	DefaultReminderIdleHours     = 24
	DefaultOpenAIURL             = "https://api.openai.com/v1/chat/completions"
	DefaultOpenAIModel           = "gpt-4o-mini"
)

var (
	// ErrMissingToken is returned by Validate when the bot is served without a token
	ErrMissingToken = errors.New("TELEGRAM_BOT_TOKEN environment variable is not set")
)

// Config holds the application configuration
type Config struct {
	TelegramToken string
	AdminUserIDs  []int64

	DBType      string // sqlite | postgres
	DBPath      string
	DatabaseURL string

	OpenAIKey   string
	OpenAIURL   string
	OpenAIModel string

	SchedulerEnabled      bool
	NotificationStartHour int
	NotificationEndHour   int
	ReminderIdleHours     int

	QuestionLimit int
	QuestionsDir  string

	LogMode     string
	LogFile     string
	MetricsAddr string
}

// Load reads .env (if present) and the process environment
func Load() (*Config, error) {
	// A missing .env is fine, the environment may be set another way
	_ = godotenv.Load()

	admins, err := envInt64List("ADMIN_USER_IDS")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		TelegramToken:         envString("TELEGRAM_BOT_TOKEN", ""),
		AdminUserIDs:          admins,
		DBType:                strings.ToLower(envString("DB_TYPE", "sqlite")),
		DBPath:                envString("DB_PATH", DefaultDBPath),
		DatabaseURL:           envString("DATABASE_URL", ""),
		OpenAIKey:             envString("OPENAI_API_KEY", ""),
		OpenAIURL:             envString("OPENAI_API_URL", DefaultOpenAIURL),
		OpenAIModel:           envString("OPENAI_MODEL", DefaultOpenAIModel),
		SchedulerEnabled:      envBool("ENABLE_SCHEDULER", true),
		NotificationStartHour: envInt("NOTIFICATION_START_HOUR", DefaultNotificationStartHour),
		NotificationEndHour:   envInt("NOTIFICATION_END_HOUR", DefaultNotificationEndHour),
		ReminderIdleHours:     envInt("REMINDER_IDLE_HOURS", DefaultReminderIdleHours),
		QuestionLimit:         envInt("QUIZ_QUESTION_LIMIT", DefaultQuestionLimit),
		QuestionsDir:          envString("QUESTIONS_DIR", "questions"),
		LogMode:               envString("LOG_MODE", "development"),
		LogFile:               envString("LOG_FILE", ""),
		MetricsAddr:           envString("METRICS_ADDR", ":9090"),
	}

	if cfg.QuestionLimit <= 0 || cfg.QuestionLimit > DefaultQuestionLimit {
		cfg.QuestionLimit = DefaultQuestionLimit
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBType {
	case "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when DB_TYPE=postgres")
		}
	default:
		return fmt.Errorf("unsupported DB_TYPE %q", c.DBType)
	}
	if !validHour(c.NotificationStartHour) || !validHour(c.NotificationEndHour) {
		return fmt.Errorf("notification hours must be within 0-23, got %d-%d",
			c.NotificationStartHour, c.NotificationEndHour)
	}
	if c.NotificationStartHour > c.NotificationEndHour {
		return fmt.Errorf("NOTIFICATION_START_HOUR (%d) is after NOTIFICATION_END_HOUR (%d)",
			c.NotificationStartHour, c.NotificationEndHour)
	}
	if c.ReminderIdleHours <= 0 {
		c.ReminderIdleHours = DefaultReminderIdleHours
	}
	return nil
}

// RequireBot checks the settings needed to run the Telegram bot
func (c *Config) RequireBot() error {
	if c.TelegramToken == "" {
		return ErrMissingToken
	}
	return nil
}

// IsAdmin reports whether the Telegram user is listed in ADMIN_USER_IDS
func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.AdminUserIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

func validHour(h int) bool {
	return h >= 0 && h <= 23
}

func envString(name, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}

func envInt(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func envBool(name string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt64List(name string) ([]int64, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return nil, nil
	}
	var out []int64
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q in %s: %v", part, name, err)
		}
		out = append(out, id)
	}
	return out, nil
}
