package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/example/mcatbot/internal/logger"
	"github.com/example/mcatbot/internal/metrics"
	"github.com/example/mcatbot/pkg/models"
	"golang.org/x/sync/errgroup"
)

// Aggregator computes progress views from the store
type Aggregator struct {
	store Store
	log   *logger.Logger
}

// NewAggregator creates an aggregator reading from store
func NewAggregator(store Store, log *logger.Logger) *Aggregator {
	if log == nil {
		log = logger.Nop()
	}
	return &Aggregator{store: store, log: log}
}

// HierarchicalProgress returns the book -> chapter -> concept tree of a user.
// On any failed read the tree is empty and the error wraps ErrFetch; a partial
// tree is never returned.
func (a *Aggregator) HierarchicalProgress(ctx context.Context, userID string) (Tree, error) {
	if userID == "" {
		return EmptyTree(), fmt.Errorf("%w: empty user id", ErrInvalidInput)
	}

	start := time.Now()
	tree, err := a.hierarchicalProgress(ctx, userID)
	metrics.AggregationDuration.Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		metrics.Aggregations.WithLabelValues("error").Inc()
		a.log.Error("Failed to aggregate progress", "user_id", userID, "error", err)
		return EmptyTree(), err
	case tree.IsEmpty():
		metrics.Aggregations.WithLabelValues("empty").Inc()
	default:
		metrics.Aggregations.WithLabelValues("ok").Inc()
	}
	return tree, nil
}

func (a *Aggregator) hierarchicalProgress(ctx context.Context, userID string) (Tree, error) {
	if err := ctx.Err(); err != nil {
		return Tree{}, fetchError("answer events", err)
	}
	events, err := a.store.AnswerEvents(ctx, userID)
	if err != nil {
		return Tree{}, fetchError("answer events", err)
	}
	if len(events) == 0 {
		return EmptyTree(), nil
	}

	questions, err := a.store.QuestionsByIDs(ctx, distinctQuestionIDs(events))
	if err != nil {
		return Tree{}, fetchError("questions", err)
	}
	if err := ctx.Err(); err != nil {
		return Tree{}, fetchError("questions", err)
	}

	chapters, err := a.store.ChaptersByIDs(ctx, distinctChapterIDs(questions))
	if err != nil {
		return Tree{}, fetchError("chapters", err)
	}
	if err := ctx.Err(); err != nil {
		return Tree{}, fetchError("chapters", err)
	}

	books, err := a.store.BooksByIDs(ctx, distinctBookIDs(chapters))
	if err != nil {
		return Tree{}, fetchError("books", err)
	}
	if err := ctx.Err(); err != nil {
		return Tree{}, fetchError("books", err)
	}

	mastery, err := a.store.ConceptMastery(ctx, userID)
	if err != nil {
		return Tree{}, fetchError("concept mastery", err)
	}
	if err := ctx.Err(); err != nil {
		return Tree{}, fetchError("concept mastery", err)
	}

	return Build(events, questions, chapters, books, mastery), nil
}

// Stats returns the user's overall totals; zeros together with an ErrFetch error on failure
func (a *Aggregator) Stats(ctx context.Context, userID string) (Stats, error) {
	if userID == "" {
		return Stats{}, fmt.Errorf("%w: empty user id", ErrInvalidInput)
	}
	events, err := a.store.AnswerEvents(ctx, userID)
	if err != nil {
		err = fetchError("answer events", err)
		a.log.Error("Failed to fetch progress stats", "user_id", userID, "error", err)
		return Stats{}, err
	}
	return StatsFromEvents(events), nil
}

// ConceptMastery returns the user's mastery rows, best mastered first.
// On failure the list is empty and the error wraps ErrFetch.
func (a *Aggregator) ConceptMastery(ctx context.Context, userID string) ([]models.ConceptMastery, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: empty user id", ErrInvalidInput)
	}
	rows, err := a.store.ConceptMastery(ctx, userID)
	if err != nil {
		err = fetchError("concept mastery", err)
		a.log.Error("Failed to fetch concept mastery", "user_id", userID, "error", err)
		return []models.ConceptMastery{}, err
	}
	sorted := make([]models.ConceptMastery, len(rows))
	copy(sorted, rows)
	sortMastery(sorted)
	return sorted, nil
}

// Dashboard fetches stats and the hierarchical tree concurrently.
// Each half degrades independently; the first error is returned.
func (a *Aggregator) Dashboard(ctx context.Context, userID string) (Dashboard, error) {
	var d Dashboard
	var statsErr, treeErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d.Stats, statsErr = a.Stats(gctx, userID)
		return nil
	})
	g.Go(func() error {
		d.Tree, treeErr = a.HierarchicalProgress(gctx, userID)
		return nil
	})
	_ = g.Wait()

	if statsErr != nil {
		return d, statsErr
	}
	return d, treeErr
}

func fetchError(stage string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrFetch, stage, err)
}

func distinctQuestionIDs(events []models.UserProgress) []string {
	seen := make(map[string]struct{}, len(events))
	ids := make([]string, 0, len(events))
	for _, ev := range events {
		if _, ok := seen[ev.QuestionID]; ok {
			continue
		}
		seen[ev.QuestionID] = struct{}{}
		ids = append(ids, ev.QuestionID)
	}
	return ids
}

func distinctChapterIDs(questions []models.Question) []int64 {
	seen := make(map[int64]struct{}, len(questions))
	ids := make([]int64, 0, len(questions))
	for _, q := range questions {
		if _, ok := seen[q.ChapterID]; ok {
			continue
		}
		seen[q.ChapterID] = struct{}{}
		ids = append(ids, q.ChapterID)
	}
	return ids
}

func distinctBookIDs(chapters []models.Chapter) []string {
	seen := make(map[string]struct{}, len(chapters))
	ids := make([]string, 0, len(chapters))
	for _, ch := range chapters {
		if _, ok := seen[ch.BookID]; ok {
			continue
		}
		seen[ch.BookID] = struct{}{}
		ids = append(ids, ch.BookID)
	}
	return ids
}
