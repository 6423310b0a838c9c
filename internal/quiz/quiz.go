// Package quiz runs chapter quizzes: one open session per user, answers are
// checked and recorded as they come in and a summary is stored on finish.
package quiz

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/example/mcatbot/internal/logger"
	"github.com/example/mcatbot/internal/metrics"
	"github.com/example/mcatbot/internal/progress"
	"github.com/example/mcatbot/pkg/models"
)

var (
	// ErrNoSession is returned when the user has no quiz in progress
	ErrNoSession = errors.New("no quiz in progress")
	// ErrNoQuestions is returned when a chapter has nothing to ask
	ErrNoQuestions = errors.New("chapter has no questions")
	// ErrAlreadyAnswered is returned for a second answer to the same question
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrNotAnswered is returned when moving on before answering
	ErrNotAnswered = errors.New("current question not answered yet")
)

// Sampler picks the questions of a quiz
type Sampler interface {
	SampleQuestionsForChapter(ctx context.Context, chapterID int64, limit int) ([]models.Question, error)
}

// Recorder stores one answer and its concept mastery
type Recorder interface {
	RecordAnswer(ctx context.Context, userID, questionID string, correct bool, conceptTags []string) error
}

// ResultStore keeps finished quiz summaries
type ResultStore interface {
	Create(ctx context.Context, result *models.QuizResult) error
}

// Step is a question together with its place in the quiz
type Step struct {
	Question models.Question
	Position int // 1-based
	Total    int
}

// Feedback describes the outcome of one answer
type Feedback struct {
	Correct       bool
	Chosen        string
	CorrectLetter string
	CorrectText   string
	Explanation   string
	Position      int
	Total         int
	Score         int
	Finished      bool
	// Recorded is false when the answer could not be saved
	Recorded bool
}

type session struct {
	userID    string
	chapterID int64
	questions []models.Question
	index     int
	answered  bool
	correct   int
	startedAt time.Time
}

func (s *session) step() Step {
	return Step{Question: s.questions[s.index], Position: s.index + 1, Total: len(s.questions)}
}

// Runner keeps the open quiz sessions
type Runner struct {
	sampler  Sampler
	recorder Recorder
	results  ResultStore
	limit    int
	log      *logger.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// NewRunner creates a quiz runner asking up to limit questions per quiz
func NewRunner(sampler Sampler, recorder Recorder, results ResultStore, limit int, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{
		sampler:  sampler,
		recorder: recorder,
		results:  results,
		limit:    limit,
		log:      log,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// Start opens a quiz on a chapter, replacing any quiz the user had open
func (r *Runner) Start(ctx context.Context, userID string, chapterID int64) (Step, error) {
	questions, err := r.sampler.SampleQuestionsForChapter(ctx, chapterID, r.limit)
	if err != nil {
		return Step{}, err
	}
	if len(questions) == 0 {
		return Step{}, ErrNoQuestions
	}

	s := &session{
		userID:    userID,
		chapterID: chapterID,
		questions: questions,
		startedAt: r.now(),
	}

	r.mu.Lock()
	if _, replaced := r.sessions[userID]; replaced {
		metrics.QuizSessions.WithLabelValues("abandoned").Inc()
	}
	r.sessions[userID] = s
	r.mu.Unlock()

	metrics.QuizSessions.WithLabelValues("started").Inc()
	r.log.Debug("Quiz started", "user_id", userID, "chapter_id", chapterID, "questions", len(questions))
	return s.step(), nil
}

// Current returns the question the user is on
func (r *Runner) Current(userID string) (Step, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[userID]
	if !ok {
		return Step{}, ErrNoSession
	}
	return s.step(), nil
}

// Answer checks the chosen option (letter or option text) and records it.
// A failed save is logged and reported through Feedback.Recorded; the quiz goes on.
func (r *Runner) Answer(ctx context.Context, userID, choice string) (Feedback, error) {
	r.mu.Lock()
	s, ok := r.sessions[userID]
	if !ok {
		r.mu.Unlock()
		return Feedback{}, ErrNoSession
	}
	if s.answered {
		r.mu.Unlock()
		return Feedback{}, ErrAlreadyAnswered
	}
	s.answered = true
	q := s.questions[s.index]
	correct := q.IsCorrect(choice)
	if correct {
		s.correct++
	}
	fb := Feedback{
		Correct:     correct,
		Chosen:      choice,
		Explanation: q.Explanation,
		Position:    s.index + 1,
		Total:       len(s.questions),
		Score:       s.correct,
		Finished:    s.index == len(s.questions)-1,
	}
	if idx := q.CorrectIndex(); idx >= 0 {
		fb.CorrectLetter = models.OptionLetter(idx)
		fb.CorrectText = q.Options[idx]
	} else {
		fb.CorrectText = q.CorrectAnswer
	}
	if fb.Finished {
		delete(r.sessions, userID)
	}
	r.mu.Unlock()

	err := r.recorder.RecordAnswer(ctx, userID, q.ID, correct, q.ConceptTags)
	if err != nil {
		r.log.Warn("Failed to record quiz answer", "user_id", userID, "question_id", q.ID, "error", err)
	}
	// A mastery-only failure still leaves the answer event stored
	fb.Recorded = err == nil || errors.Is(err, progress.ErrMasteryUpdate)

	if fb.Finished {
		r.finish(ctx, s, fb.Score)
	}
	return fb, nil
}

// Next moves to the following question once the current one is answered
func (r *Runner) Next(userID string) (Step, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[userID]
	if !ok {
		return Step{}, ErrNoSession
	}
	if !s.answered {
		return Step{}, ErrNotAnswered
	}
	s.index++
	s.answered = false
	return s.step(), nil
}

// Stop abandons the user's quiz; it reports whether one was open
func (r *Runner) Stop(userID string) bool {
	r.mu.Lock()
	_, ok := r.sessions[userID]
	delete(r.sessions, userID)
	r.mu.Unlock()
	if ok {
		metrics.QuizSessions.WithLabelValues("abandoned").Inc()
	}
	return ok
}

func (r *Runner) finish(ctx context.Context, s *session, score int) {
	metrics.QuizSessions.WithLabelValues("finished").Inc()
	result := &models.QuizResult{
		UserID:         s.userID,
		ChapterID:      s.chapterID,
		TotalQuestions: len(s.questions),
		CorrectAnswers: score,
		Duration:       int(r.now().Sub(s.startedAt).Seconds()),
		CompletedAt:    r.now().UTC(),
	}
	if err := r.results.Create(ctx, result); err != nil {
		r.log.Error("Failed to save quiz result", "user_id", s.userID, "chapter_id", s.chapterID, "error", err)
	}
}
