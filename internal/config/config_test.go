package config

import (
	"errors"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"TELEGRAM_BOT_TOKEN", "DB_TYPE", "DB_PATH", "DATABASE_URL", "ADMIN_USER_IDS",
		"NOTIFICATION_START_HOUR", "NOTIFICATION_END_HOUR", "QUIZ_QUESTION_LIMIT",
		"ENABLE_SCHEDULER", "REMINDER_IDLE_HOURS",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.DBType != "sqlite" {
		t.Errorf("expected sqlite, got %q", cfg.DBType)
	}
	if cfg.DBPath != DefaultDBPath {
		t.Errorf("expected %q, got %q", DefaultDBPath, cfg.DBPath)
	}
	if cfg.QuestionLimit != DefaultQuestionLimit {
		t.Errorf("expected question limit %d, got %d", DefaultQuestionLimit, cfg.QuestionLimit)
	}
	if !cfg.SchedulerEnabled {
		t.Error("expected scheduler enabled by default")
	}
	if err := cfg.RequireBot(); !errors.Is(err, ErrMissingToken) {
		t.Errorf("expected ErrMissingToken, got %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("DB_TYPE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/mcat?sslmode=disable")
	t.Setenv("ADMIN_USER_IDS", "10, 20,")
	t.Setenv("QUIZ_QUESTION_LIMIT", "50")
	t.Setenv("ENABLE_SCHEDULER", "false")
	t.Setenv("NOTIFICATION_START_HOUR", "9")
	t.Setenv("NOTIFICATION_END_HOUR", "21")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.QuestionLimit != DefaultQuestionLimit {
		t.Errorf("limit above the cap should be clamped, got %d", cfg.QuestionLimit)
	}
	if cfg.SchedulerEnabled {
		t.Error("expected scheduler disabled")
	}
	if !cfg.IsAdmin(20) || cfg.IsAdmin(30) {
		t.Errorf("unexpected admin list %v", cfg.AdminUserIDs)
	}
	if err := cfg.RequireBot(); err != nil {
		t.Errorf("RequireBot() error: %v", err)
	}
}

func TestLoadValidation(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"DB_TYPE": "mysql"}},
		{"postgres without dsn", map[string]string{"DB_TYPE": "postgres", "DATABASE_URL": ""}},
		{"hour out of range", map[string]string{"DB_TYPE": "sqlite", "NOTIFICATION_END_HOUR": "24"}},
		{"window reversed", map[string]string{"DB_TYPE": "sqlite", "NOTIFICATION_START_HOUR": "20", "NOTIFICATION_END_HOUR": "6"}},
		{"bad admin id", map[string]string{"DB_TYPE": "sqlite", "ADMIN_USER_IDS": "1,abc"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("NOTIFICATION_START_HOUR", "")
			t.Setenv("NOTIFICATION_END_HOUR", "")
			t.Setenv("ADMIN_USER_IDS", "")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
