package progress

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/mcatbot/internal/logger"
	"github.com/example/mcatbot/internal/metrics"
	"github.com/example/mcatbot/pkg/models"
)

// Updater records answers and keeps concept mastery current
type Updater struct {
	writer Writer
	log    *logger.Logger
	now    func() time.Time
}

// NewUpdater creates an updater writing through w
func NewUpdater(w Writer, log *logger.Logger) *Updater {
	if log == nil {
		log = logger.Nop()
	}
	return &Updater{
		writer: w,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// RecordAnswer appends an answer event and then increments mastery for each concept tag.
// If the answer event cannot be written nothing else is attempted. Tags are processed
// independently: a failing tag does not stop the others and all failures are joined
// under ErrMasteryUpdate, in which case the answer event itself was saved.
func (u *Updater) RecordAnswer(ctx context.Context, userID, questionID string, correct bool, conceptTags []string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: empty user id", ErrInvalidInput)
	}
	if strings.TrimSpace(questionID) == "" {
		return fmt.Errorf("%w: empty question id", ErrInvalidInput)
	}

	at := u.now()
	event := &models.UserProgress{
		UserID:     userID,
		QuestionID: questionID,
		Correct:    correct,
		AnsweredAt: at,
	}
	if err := u.writer.InsertAnswer(ctx, event); err != nil {
		u.log.Error("Failed to record answer", "user_id", userID, "question_id", questionID, "error", err)
		return fmt.Errorf("failed to record answer: %w", err)
	}
	metrics.AnswersRecorded.WithLabelValues(resultLabel(correct)).Inc()

	var errs []error
	for _, tag := range NormalizeTags(conceptTags) {
		if _, err := u.writer.IncrementConceptMastery(ctx, userID, tag, correct, at); err != nil {
			metrics.MasteryUpdateFailures.Inc()
			u.log.Warn("Failed to update concept mastery", "user_id", userID, "concept", tag, "error", err)
			errs = append(errs, fmt.Errorf("concept %q: %w", tag, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrMasteryUpdate, errors.Join(errs...))
	}
	return nil
}

// NormalizeTags trims concept tags, drops empty ones and keeps the first occurrence of each.
// Mastery rows are keyed by the normalized tag.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func resultLabel(correct bool) string {
	if correct {
		return "correct"
	}
	return "incorrect"
}
